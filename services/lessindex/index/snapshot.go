// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"path"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/lessindex/services/lessindex/ast"
)

// Snapshot is the result of one indexing run plus any single-file updates
// applied since.
type Snapshot struct {
	// RunID identifies the IndexDir run that produced the snapshot.
	RunID string `json:"run_id" yaml:"run_id"`

	// Root is the absolute index root.
	Root string `json:"root" yaml:"root"`

	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`

	// Files maps root-relative slash paths to parse results.
	Files map[string]*ast.ParseResult `json:"files" yaml:"files"`

	// Errors maps root-relative slash paths to the reason they could not
	// be indexed.
	Errors map[string]string `json:"errors,omitempty" yaml:"errors,omitempty"`

	// CacheHits counts files whose result came from the symbol cache.
	CacheHits int `json:"cache_hits" yaml:"cache_hits"`
}

func newSnapshot(root string) *Snapshot {
	return &Snapshot{
		RunID:     newRunID(),
		Root:      root,
		StartedAt: time.Now(),
		Files:     make(map[string]*ast.ParseResult),
		Errors:    make(map[string]string),
	}
}

// clone copies the maps; parse results are shared.
func (s *Snapshot) clone() *Snapshot {
	out := *s
	out.Files = make(map[string]*ast.ParseResult, len(s.Files))
	for k, v := range s.Files {
		out.Files[k] = v
	}
	out.Errors = make(map[string]string, len(s.Errors))
	for k, v := range s.Errors {
		out.Errors[k] = v
	}
	return &out
}

// Paths returns the indexed file paths, sorted.
func (s *Snapshot) Paths() []string {
	paths := make([]string, 0, len(s.Files))
	for p := range s.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// FindVariable returns every top-level variable declaration named name,
// ordered by file then offset. The leading "@" is optional.
func (s *Snapshot) FindVariable(name string) []*ast.Symbol {
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	return s.find(ast.SymbolKindVariable, func(n string) bool { return n == name })
}

// FindMixin returns every mixin named name, ordered by file then offset.
// A name without a leading "." or "#" matches either form.
func (s *Snapshot) FindMixin(name string) []*ast.Symbol {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "#") {
		return s.find(ast.SymbolKindMixin, func(n string) bool { return n == name })
	}
	return s.find(ast.SymbolKindMixin, func(n string) bool {
		return n == "."+name || n == "#"+name
	})
}

func (s *Snapshot) find(kind ast.SymbolKind, match func(string) bool) []*ast.Symbol {
	out := make([]*ast.Symbol, 0)
	for _, p := range s.Paths() {
		for _, sym := range s.Files[p].Symbols {
			if sym.Kind == kind && match(sym.Name) {
				out = append(out, sym)
			}
		}
	}
	return out
}

// ImportEdge is one @import statement and, when it names an indexed file,
// the file it resolves to.
type ImportEdge struct {
	From   string     `json:"from" yaml:"from"`
	Import ast.Import `json:"import" yaml:"import"`

	// Resolved is the root-relative path of the imported file, or empty
	// when the import is dynamic, plain CSS, or not in the snapshot.
	Resolved string `json:"resolved,omitempty" yaml:"resolved,omitempty"`
}

// Imports returns every import in the snapshot, ordered by importing file
// then source position.
func (s *Snapshot) Imports() []ImportEdge {
	out := make([]ImportEdge, 0)
	for _, p := range s.Paths() {
		for _, imp := range s.Files[p].Imports {
			out = append(out, ImportEdge{
				From:     p,
				Import:   imp,
				Resolved: s.resolve(p, imp),
			})
		}
	}
	return out
}

// resolve applies the LESS lookup rule for a relative import: the path is
// joined to the importer's directory and ".less" is appended when it has
// no extension.
func (s *Snapshot) resolve(from string, imp ast.Import) string {
	if imp.IsDynamic || imp.IsCSS || strings.Contains(imp.Path, "://") {
		return ""
	}
	target := path.Clean(path.Join(path.Dir(from), imp.Path))
	if path.Ext(target) == "" {
		target += ".less"
	}
	if _, ok := s.Files[target]; ok {
		return target
	}
	return ""
}

// Stats summarizes a snapshot.
type Stats struct {
	Files      int `json:"files" yaml:"files"`
	Variables  int `json:"variables" yaml:"variables"`
	Mixins     int `json:"mixins" yaml:"mixins"`
	Parameters int `json:"parameters" yaml:"parameters"`
	Imports    int `json:"imports" yaml:"imports"`
	Errors     int `json:"errors" yaml:"errors"`
	CacheHits  int `json:"cache_hits" yaml:"cache_hits"`
}

// Symbols returns the number of top-level symbols.
func (st Stats) Symbols() int {
	return st.Variables + st.Mixins + st.Imports
}

// Stats counts files, symbols by kind, and errors.
func (s *Snapshot) Stats() Stats {
	st := Stats{
		Files:     len(s.Files),
		Errors:    len(s.Errors),
		CacheHits: s.CacheHits,
	}
	for _, r := range s.Files {
		for _, sym := range r.Symbols {
			switch sym.Kind {
			case ast.SymbolKindVariable:
				st.Variables++
			case ast.SymbolKindMixin:
				st.Mixins++
				st.Parameters += len(sym.Children)
			case ast.SymbolKindImport:
				st.Imports++
			}
		}
	}
	return st
}
