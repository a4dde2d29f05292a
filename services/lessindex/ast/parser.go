// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Parser extracts the symbols of one stylesheet.
//
// Parse is best effort: problems that still leave a usable result are
// reported in ParseResult.Errors, and a non-nil error means nothing could
// be extracted. filePath is recorded on the result and in symbol IDs; keep
// it relative to the index root.
//
// Imports are recorded but never followed, and nothing is evaluated.
//
//	result, err := NewLessParser().Parse(ctx, content, "theme.less")
//	if err != nil {
//	    return fmt.Errorf("parse theme: %w", err)
//	}
//	for _, s := range result.Symbols {
//	    fmt.Printf("%s %s at %d\n", s.Kind, s.Name, s.StartLine)
//	}
//
// Implementations must be safe for concurrent use.
type Parser interface {
	Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error)

	// Language is the lowercase language name, e.g. "less".
	Language() string

	// Extensions lists the handled file extensions with their leading dot.
	Extensions() []string
}

// ParserRegistry picks a Parser by file extension.
//
// Thread Safety: Safe for concurrent use.
type ParserRegistry struct {
	mu      sync.RWMutex
	parsers map[string]Parser // by Language()
	byExt   map[string]Parser // by lowercase extension
}

// NewParserRegistry returns an empty registry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{
		parsers: make(map[string]Parser),
		byExt:   make(map[string]Parser),
	}
}

// NewDefaultRegistry returns a registry holding a LessParser built with opts.
func NewDefaultRegistry(opts ...LessParserOption) *ParserRegistry {
	r := NewParserRegistry()
	r.Register(NewLessParser(opts...))
	return r
}

// Register adds p under its language and each of its extensions, replacing
// earlier registrations of either. A nil parser is ignored.
func (r *ParserRegistry) Register(p Parser) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.parsers[p.Language()] = p
	for _, ext := range p.Extensions() {
		r.byExt[strings.ToLower(ext)] = p
	}
}

// GetByLanguage returns the parser registered for language.
func (r *ParserRegistry) GetByLanguage(language string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[language]
	return p, ok
}

// GetByExtension returns the parser for ext, which includes the dot.
// Case is ignored.
func (r *ParserRegistry) GetByExtension(ext string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byExt[strings.ToLower(ext)]
	return p, ok
}

// ForFile returns the parser for the extension of path, or an error
// wrapping ErrUnsupportedLanguage.
func (r *ParserRegistry) ForFile(path string) (Parser, error) {
	ext := filepath.Ext(path)
	if p, ok := r.GetByExtension(ext); ok {
		return p, nil
	}
	if ext == "" {
		return nil, fmt.Errorf("%s: no file extension: %w", path, ErrUnsupportedLanguage)
	}
	return nil, fmt.Errorf("%s: file type %q: %w", path, ext, ErrUnsupportedLanguage)
}

// Supports reports whether ForFile would succeed for path.
func (r *ParserRegistry) Supports(path string) bool {
	_, ok := r.GetByExtension(filepath.Ext(path))
	return ok
}

// Languages returns the registered language names, sorted.
func (r *ParserRegistry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.parsers)
}

// Extensions returns the registered extensions, lowercase and sorted.
func (r *ParserRegistry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.byExt)
}

func sortedKeys(m map[string]Parser) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
