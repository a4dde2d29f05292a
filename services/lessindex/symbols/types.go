// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package symbols

// Variable is a top-level "@name: value;" declaration or a mixin parameter.
type Variable struct {
	// Name always starts with "@" and never carries the trailing colon.
	Name string `json:"name" yaml:"name"`

	// Value is the raw, trimmed value text. It is nil only for mixin
	// parameters declared without a default.
	Value *string `json:"value" yaml:"value"`

	// Offset is the byte offset of the declaring at-word (variables) or of
	// the parameter name (parameters).
	Offset int `json:"offset" yaml:"offset"`
}

// HasValue reports whether the variable carries a value.
func (v Variable) HasValue() bool {
	return v.Value != nil
}

// ValueOr returns the value, or def when there is none.
func (v Variable) ValueOr(def string) string {
	if v.Value == nil {
		return def
	}
	return *v.Value
}

// Mixin is a ".name(params) { ... }" or "#name(params) { ... }" declaration.
type Mixin struct {
	// Name is the trimmed raw selector text before the parameter list.
	Name string `json:"name" yaml:"name"`

	// Parameters is empty, never nil, for "()" and for lists that could
	// not be parsed.
	Parameters []Variable `json:"parameters" yaml:"parameters"`

	// Offset is the byte offset of the first selector token.
	Offset int `json:"offset" yaml:"offset"`
}

// Import is an "@import (modes) 'path';" statement.
type Import struct {
	// Filepath is the quoted path with its quotes removed.
	Filepath string `json:"filepath" yaml:"filepath"`

	// Modes holds the lowercase keywords of the optional mode list.
	Modes []string `json:"modes" yaml:"modes"`

	// Dynamic is set when the path contains interpolation or glob markers.
	Dynamic bool `json:"dynamic" yaml:"dynamic"`

	// CSS is set when the path ends in ".css" or the modes contain "css".
	CSS bool `json:"css" yaml:"css"`

	// Offset is the byte offset of the "@import" at-word.
	Offset int `json:"offset" yaml:"offset"`
}

// HasMode reports whether mode appears in the import's mode list.
func (i Import) HasMode(mode string) bool {
	for _, m := range i.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// SymbolTable holds the top-level symbols of one source text, each list
// in source order.
type SymbolTable struct {
	Variables []Variable `json:"variables" yaml:"variables"`
	Mixins    []Mixin    `json:"mixins" yaml:"mixins"`
	Imports   []Import   `json:"imports" yaml:"imports"`
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{
		Variables: make([]Variable, 0),
		Mixins:    make([]Mixin, 0),
		Imports:   make([]Import, 0),
	}
}

// Len returns the total number of top-level symbols.
func (st *SymbolTable) Len() int {
	return len(st.Variables) + len(st.Mixins) + len(st.Imports)
}

// IsEmpty reports whether no symbol of any kind was found.
func (st *SymbolTable) IsEmpty() bool {
	return st.Len() == 0
}
