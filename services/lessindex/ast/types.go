// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast turns LESS stylesheets into positioned, serializable symbols
// and defines the Parser abstraction that produces them.
//
// A ParseResult is plain data: it round-trips through JSON for the symbol
// cache and renders through YAML for the CLI.
package ast

import (
	"fmt"
	"strings"
)

// SymbolKind classifies a Symbol.
type SymbolKind int

const (
	SymbolKindUnknown SymbolKind = iota

	// SymbolKindVariable is a top-level "@name: value;" declaration.
	SymbolKindVariable

	// SymbolKindMixin is a mixin definition with a parameter list.
	SymbolKindMixin

	// SymbolKindParameter is a mixin parameter. It only appears among the
	// Children of a mixin.
	SymbolKindParameter

	// SymbolKindImport is an @import statement.
	SymbolKindImport
)

var kindNames = [...]string{
	SymbolKindUnknown:   "unknown",
	SymbolKindVariable:  "variable",
	SymbolKindMixin:     "mixin",
	SymbolKindParameter: "parameter",
	SymbolKindImport:    "import",
}

func (k SymbolKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[SymbolKindUnknown]
	}
	return kindNames[k]
}

// ParseSymbolKind is the inverse of String. Unrecognized names give
// SymbolKindUnknown.
func ParseSymbolKind(s string) SymbolKind {
	for k, name := range kindNames {
		if name == s {
			return SymbolKind(k)
		}
	}
	return SymbolKindUnknown
}

// MarshalText encodes the kind by name for both JSON and YAML.
func (k SymbolKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts any name; unknown names decode to SymbolKindUnknown.
func (k *SymbolKind) UnmarshalText(text []byte) error {
	*k = ParseSymbolKind(string(text))
	return nil
}

// Location is a source range. Lines are 1-based, columns 0-based bytes.
type Location struct {
	FilePath  string `json:"file_path" yaml:"file_path"`
	StartLine int    `json:"start_line" yaml:"start_line"`
	EndLine   int    `json:"end_line" yaml:"end_line"`
	StartCol  int    `json:"start_col" yaml:"start_col"`
	EndCol    int    `json:"end_col" yaml:"end_col"`
}

// String renders "path:line:col" of the start.
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.FilePath, l.StartLine, l.StartCol)
}

// Symbol is one named declaration found in a stylesheet.
type Symbol struct {
	// ID is GenerateID(FilePath, StartLine, Name), e.g.
	// "theme/buttons.less:12:.button-variant". Parameters use the mixin
	// name followed by their own.
	ID string `json:"id" yaml:"id"`

	// Name is the identifier as written: "@primary", ".button-variant",
	// or the import path.
	Name string     `json:"name" yaml:"name"`
	Kind SymbolKind `json:"kind" yaml:"kind"`

	FilePath  string `json:"file_path" yaml:"file_path"`
	StartLine int    `json:"start_line" yaml:"start_line"`
	EndLine   int    `json:"end_line" yaml:"end_line"`
	StartCol  int    `json:"start_col" yaml:"start_col"`
	EndCol    int    `json:"end_col" yaml:"end_col"`

	// Offset is the byte offset of the declaration in the file.
	Offset int `json:"offset" yaml:"offset"`

	// Signature is the declaration rebuilt for display, e.g.
	// ".button(@size; @color: red)".
	Signature string `json:"signature" yaml:"signature"`
	Language  string `json:"language" yaml:"language"`

	ParsedAtMilli int64 `json:"parsed_at_milli" yaml:"parsed_at_milli"`

	// Children holds a mixin's parameters.
	Children []*Symbol       `json:"children,omitempty" yaml:"children,omitempty"`
	Metadata *SymbolMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// SymbolMetadata carries the kind-specific details of a Symbol.
type SymbolMetadata struct {
	// Value is a variable's value or a parameter's default.
	Value string `json:"value,omitempty" yaml:"value,omitempty"`

	// HasDefault is set on parameters that declare a default, even an
	// empty one.
	HasDefault bool `json:"has_default,omitempty" yaml:"has_default,omitempty"`

	// ParentName is the owning mixin of a parameter.
	ParentName string `json:"parent_name,omitempty" yaml:"parent_name,omitempty"`

	// Modes are an import's lowercase options.
	Modes []string `json:"modes,omitempty" yaml:"modes,omitempty"`
}

// GenerateID builds the "path:line:name" symbol ID. filePath is used as
// given; Validate rejects paths that climb out of the index root.
func GenerateID(filePath string, startLine int, name string) string {
	return fmt.Sprintf("%s:%d:%s", filePath, startLine, name)
}

// Location returns the symbol's source range.
func (s *Symbol) Location() Location {
	return Location{
		FilePath:  s.FilePath,
		StartLine: s.StartLine,
		EndLine:   s.EndLine,
		StartCol:  s.StartCol,
		EndCol:    s.EndCol,
	}
}

// ValidationError names the first field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// check is one validation rule; failing rules report field and msg.
type check struct {
	failed bool
	field  string
	msg    string
}

func firstFailure(checks ...check) error {
	for _, c := range checks {
		if c.failed {
			return ValidationError{Field: c.field, Message: c.msg}
		}
	}
	return nil
}

func nested(field string, i int, err error) error {
	if err == nil {
		return nil
	}
	return ValidationError{Field: fmt.Sprintf("%s[%d]", field, i), Message: err.Error()}
}

// Validate reports the first malformed field of s or of its children.
func (s *Symbol) Validate() error {
	err := firstFailure(
		check{s.Name == "", "Name", "must not be empty"},
		check{s.FilePath == "", "FilePath", "must not be empty"},
		check{strings.Contains(s.FilePath, ".."), "FilePath", "must not contain path traversal (..)"},
		check{s.StartLine < 1, "StartLine", "must be >= 1 (1-indexed)"},
		check{s.EndLine < s.StartLine, "EndLine", "must be >= StartLine"},
		check{s.StartCol < 0, "StartCol", "must be >= 0 (0-indexed)"},
		check{s.EndCol < 0, "EndCol", "must be >= 0"},
		check{s.Language == "", "Language", "must not be empty"},
	)
	if err != nil {
		return err
	}
	for i, child := range s.Children {
		if err := nested("Children", i, child.Validate()); err != nil {
			return err
		}
	}
	return nil
}

// ParseResult is everything extracted from one stylesheet.
//
// Each import appears twice: as an Import for dependency tracking and as a
// SymbolKindImport entry in Symbols for navigation.
type ParseResult struct {
	// FilePath is relative to the index root.
	FilePath string `json:"file_path" yaml:"file_path"`
	Language string `json:"language" yaml:"language"`

	// Symbols are the top-level symbols in source order.
	Symbols []*Symbol `json:"symbols" yaml:"symbols"`
	Imports []Import  `json:"imports" yaml:"imports"`

	ParsedAtMilli   int64 `json:"parsed_at_milli" yaml:"parsed_at_milli"`
	ParseDurationMs int64 `json:"parse_duration_ms" yaml:"parse_duration_ms"`

	// Errors are problems that did not stop extraction.
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	// Hash is the hex SHA256 of the parsed content.
	Hash string `json:"hash" yaml:"hash"`
}

// Import is one @import statement.
type Import struct {
	// Path is the imported path without quotes.
	Path string `json:"path" yaml:"path"`

	// Modes are the lowercase options, e.g. ["reference", "optional"].
	Modes []string `json:"modes,omitempty" yaml:"modes,omitempty"`

	// IsDynamic marks paths with interpolation or glob characters.
	IsDynamic bool `json:"is_dynamic,omitempty" yaml:"is_dynamic,omitempty"`

	// IsCSS marks imports LESS passes through as plain CSS.
	IsCSS       bool `json:"is_css,omitempty" yaml:"is_css,omitempty"`
	IsOptional  bool `json:"is_optional,omitempty" yaml:"is_optional,omitempty"`
	IsReference bool `json:"is_reference,omitempty" yaml:"is_reference,omitempty"`

	Location Location `json:"location" yaml:"location"`
}

// SymbolCount returns the number of symbols including mixin parameters.
func (r *ParseResult) SymbolCount() int {
	n := 0
	for _, s := range r.Symbols {
		n += 1 + len(s.Children)
	}
	return n
}

// SymbolsOfKind returns the top-level symbols of kind in source order.
func (r *ParseResult) SymbolsOfKind(kind SymbolKind) []*Symbol {
	out := make([]*Symbol, 0)
	for _, s := range r.Symbols {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// HasErrors reports whether any non-fatal problem was recorded.
func (r *ParseResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Validate reports the first malformed field of r, its symbols or its
// imports.
func (r *ParseResult) Validate() error {
	err := firstFailure(
		check{r.FilePath == "", "FilePath", "must not be empty"},
		check{strings.Contains(r.FilePath, ".."), "FilePath", "must not contain path traversal (..)"},
		check{r.Language == "", "Language", "must not be empty"},
	)
	if err != nil {
		return err
	}
	for i, sym := range r.Symbols {
		if err := nested("Symbols", i, sym.Validate()); err != nil {
			return err
		}
	}
	for i, imp := range r.Imports {
		err := firstFailure(
			check{imp.Path == "", fmt.Sprintf("Imports[%d].Path", i), "must not be empty"},
			check{imp.Location.StartLine < 1, fmt.Sprintf("Imports[%d].Location.StartLine", i), "must be >= 1"},
		)
		if err != nil {
			return err
		}
	}
	return nil
}
