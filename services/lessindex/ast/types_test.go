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
	"encoding/json"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestSymbolKind_String(t *testing.T) {
	tests := []struct {
		name     string
		kind     SymbolKind
		expected string
	}{
		{"unknown", SymbolKindUnknown, "unknown"},
		{"variable", SymbolKindVariable, "variable"},
		{"mixin", SymbolKindMixin, "mixin"},
		{"parameter", SymbolKindParameter, "parameter"},
		{"import", SymbolKindImport, "import"},
		{"invalid kind returns unknown", SymbolKind(9999), "unknown"},
		{"negative kind returns unknown", SymbolKind(-1), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.kind.String()
			if got != tt.expected {
				t.Errorf("SymbolKind(%d).String() = %q, want %q", tt.kind, got, tt.expected)
			}
		})
	}
}

func TestParseSymbolKind(t *testing.T) {
	tests := []struct {
		input    string
		expected SymbolKind
	}{
		{"variable", SymbolKindVariable},
		{"mixin", SymbolKindMixin},
		{"parameter", SymbolKindParameter},
		{"import", SymbolKindImport},
		{"selector", SymbolKindUnknown},
		{"", SymbolKindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseSymbolKind(tt.input); got != tt.expected {
				t.Errorf("ParseSymbolKind(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSymbolKind_JSON(t *testing.T) {
	data, err := json.Marshal(SymbolKindMixin)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"mixin"` {
		t.Errorf("Marshal = %s, want \"mixin\"", data)
	}

	var kind SymbolKind
	if err := json.Unmarshal([]byte(`"import"`), &kind); err != nil {
		t.Fatalf("Unmarshal string failed: %v", err)
	}
	if kind != SymbolKindImport {
		t.Errorf("Unmarshal string = %v, want import", kind)
	}

	if err := json.Unmarshal([]byte(`"selector"`), &kind); err != nil {
		t.Fatalf("Unmarshal unknown name failed: %v", err)
	}
	if kind != SymbolKindUnknown {
		t.Errorf("Unmarshal unknown name = %v, want unknown", kind)
	}

	if err := json.Unmarshal([]byte(`1`), &kind); err == nil {
		t.Error("expected error for numeric input")
	}
}

func TestSymbolKind_YAML(t *testing.T) {
	data, err := yaml.Marshal(map[string]SymbolKind{"kind": SymbolKindParameter})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != "kind: parameter\n" {
		t.Errorf("Marshal = %q", data)
	}

	var got map[string]SymbolKind
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got["kind"] != SymbolKindParameter {
		t.Errorf("Unmarshal = %v, want parameter", got["kind"])
	}
}

func TestGenerateID(t *testing.T) {
	got := GenerateID("theme/buttons.less", 12, ".button-variant")
	want := "theme/buttons.less:12:.button-variant"
	if got != want {
		t.Errorf("GenerateID = %q, want %q", got, want)
	}
}

func validSymbol() *Symbol {
	return &Symbol{
		ID:        "a.less:1:@a",
		Name:      "@a",
		Kind:      SymbolKindVariable,
		FilePath:  "a.less",
		StartLine: 1,
		EndLine:   1,
		StartCol:  0,
		EndCol:    2,
		Language:  LessLanguage,
	}
}

func TestSymbol_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Symbol)
		field  string
	}{
		{"valid", func(s *Symbol) {}, ""},
		{"empty name", func(s *Symbol) { s.Name = "" }, "Name"},
		{"empty path", func(s *Symbol) { s.FilePath = "" }, "FilePath"},
		{"path traversal", func(s *Symbol) { s.FilePath = "../a.less" }, "FilePath"},
		{"zero line", func(s *Symbol) { s.StartLine = 0 }, "StartLine"},
		{"end before start", func(s *Symbol) { s.StartLine = 3; s.EndLine = 2 }, "EndLine"},
		{"negative column", func(s *Symbol) { s.StartCol = -1 }, "StartCol"},
		{"negative end column", func(s *Symbol) { s.EndCol = -1 }, "EndCol"},
		{"no language", func(s *Symbol) { s.Language = "" }, "Language"},
		{"invalid child", func(s *Symbol) {
			child := validSymbol()
			child.Name = ""
			s.Children = []*Symbol{child}
		}, "Children[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSymbol()
			tt.mutate(s)
			err := s.Validate()

			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var vErr ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", vErr.Field, tt.field)
			}
			if vErr.Error() != vErr.Field+": "+vErr.Message {
				t.Errorf("Error() = %q", vErr.Error())
			}
		})
	}
}

func TestParseResult_Validate(t *testing.T) {
	r := &ParseResult{
		FilePath: "a.less",
		Language: LessLanguage,
		Symbols:  []*Symbol{validSymbol()},
		Imports:  []Import{{Path: "b.less", Location: Location{FilePath: "a.less", StartLine: 2, EndLine: 2}}},
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r.Imports[0].Location.StartLine = 0
	if err := r.Validate(); err == nil {
		t.Error("expected error for import without line")
	}

	r.Imports = nil
	r.Language = ""
	if err := r.Validate(); err == nil {
		t.Error("expected error for missing language")
	}
}

func TestParseResult_SymbolCount(t *testing.T) {
	mixin := validSymbol()
	mixin.Kind = SymbolKindMixin
	mixin.Children = []*Symbol{validSymbol(), validSymbol()}

	r := &ParseResult{Symbols: []*Symbol{validSymbol(), mixin}}

	if got := r.SymbolCount(); got != 4 {
		t.Errorf("SymbolCount = %d, want 4", got)
	}
	if got := len(r.SymbolsOfKind(SymbolKindMixin)); got != 1 {
		t.Errorf("SymbolsOfKind(mixin) = %d, want 1", got)
	}
	if got := (&ParseResult{}).SymbolCount(); got != 0 {
		t.Errorf("empty SymbolCount = %d, want 0", got)
	}
}

func TestParseResult_HasErrors(t *testing.T) {
	r := &ParseResult{}
	if r.HasErrors() {
		t.Error("expected no errors")
	}
	r.Errors = append(r.Errors, "x")
	if !r.HasErrors() {
		t.Error("expected errors")
	}
}

func TestLocation_String(t *testing.T) {
	loc := validSymbol().Location()
	if got := loc.String(); got != "a.less:1:0" {
		t.Errorf("Location.String() = %q, want a.less:1:0", got)
	}
}
