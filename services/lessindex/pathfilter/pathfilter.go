// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pathfilter decides which files the indexer and watcher consider.
package pathfilter

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ErrBadPattern is returned by New for a malformed ignore pattern.
var ErrBadPattern = errors.New("bad ignore pattern")

// Filter matches slash-separated paths relative to an index root.
//
// An ignore pattern without a slash is tested against every path segment,
// so "node_modules" excludes that directory at any depth. A pattern with a
// slash is tested against the whole relative path. Patterns use path.Match
// syntax.
//
// Thread Safety: Immutable after New; safe for concurrent use.
type Filter struct {
	extensions map[string]struct{}
	ignore     []string
}

// New builds a filter. Extensions are compared case-insensitively; an
// empty list accepts every extension.
func New(extensions, ignore []string) (*Filter, error) {
	f := &Filter{
		extensions: make(map[string]struct{}, len(extensions)),
		ignore:     make([]string, 0, len(ignore)),
	}
	for _, ext := range extensions {
		f.extensions[strings.ToLower(ext)] = struct{}{}
	}
	for _, p := range ignore {
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, p)
		}
		f.ignore = append(f.ignore, p)
	}
	return f, nil
}

// Ignored reports whether rel, or any directory above it, matches an
// ignore pattern. rel may use either separator.
func (f *Filter) Ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	if rel == "" || rel == "." {
		return false
	}
	segments := strings.Split(rel, "/")
	for _, p := range f.ignore {
		if strings.Contains(p, "/") {
			if ok, _ := path.Match(p, rel); ok {
				return true
			}
			continue
		}
		for _, seg := range segments {
			if ok, _ := path.Match(p, seg); ok {
				return true
			}
		}
	}
	return false
}

// HasExtension reports whether rel carries one of the filter's extensions.
func (f *Filter) HasExtension(rel string) bool {
	if len(f.extensions) == 0 {
		return true
	}
	_, ok := f.extensions[strings.ToLower(path.Ext(filepath.ToSlash(rel)))]
	return ok
}

// Accepts reports whether rel is an indexable file path.
func (f *Filter) Accepts(rel string) bool {
	return f.HasExtension(rel) && !f.Ignored(rel)
}

// Extensions returns the accepted extensions, sorted.
func (f *Filter) Extensions() []string {
	out := make([]string, 0, len(f.extensions))
	for ext := range f.extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
