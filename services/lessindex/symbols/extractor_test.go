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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/lessindex/services/lessindex/token"
	"github.com/AleutianAI/lessindex/services/lessindex/tokenizer"
)

func strPtr(s string) *string { return &s }

func TestExtract_EmptyInput(t *testing.T) {
	table := Extract("")
	require.NotNil(t, table)
	assert.NotNil(t, table.Variables)
	assert.NotNil(t, table.Mixins)
	assert.NotNil(t, table.Imports)
	assert.True(t, table.IsEmpty())
}

func TestExtract_CommentsOnly(t *testing.T) {
	src := "/* @a: 1; { } ; @import \"x\"; .m() {} */\n" +
		"// @b: 2; .n() { } @import 'y';\n" +
		"/* } } } */"

	table := Extract(src)
	assert.True(t, table.IsEmpty(), "got %+v", table)
}

func TestExtract_Variables(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Variable
	}{
		{
			name: "simple",
			src:  "@a: 1;",
			want: []Variable{{Name: "@a", Value: strPtr("1"), Offset: 0}},
		},
		{
			name: "no space after colon",
			src:  "@a:1;",
			want: []Variable{{Name: "@a", Value: strPtr("1"), Offset: 0}},
		},
		{
			name: "multi word value",
			src:  "@border: 1px solid @color;",
			want: []Variable{{Name: "@border", Value: strPtr("1px solid @color"), Offset: 0}},
		},
		{
			name: "function call value",
			src:  "@shadow: rgba(0,0,0,0.5);",
			want: []Variable{{Name: "@shadow", Value: strPtr("rgba(0,0,0,0.5)"), Offset: 0}},
		},
		{
			name: "escaped string value",
			src:  `@q: ~"calc(100% - 1px)";`,
			want: []Variable{{Name: "@q", Value: strPtr(`~"calc(100% - 1px)"`), Offset: 0}},
		},
		{
			name: "comment in value dropped",
			src:  "@a: 1 /* note */;",
			want: []Variable{{Name: "@a", Value: strPtr("1"), Offset: 0}},
		},
		{
			name: "missing semicolon at end",
			src:  "@a: 1",
			want: []Variable{{Name: "@a", Value: strPtr("1"), Offset: 0}},
		},
		{
			name: "empty value",
			src:  "@a: ;",
			want: []Variable{{Name: "@a", Value: strPtr(""), Offset: 0}},
		},
		{
			name: "offsets in source order",
			src:  "@a: 1;\n@b: 2;",
			want: []Variable{
				{Name: "@a", Value: strPtr("1"), Offset: 0},
				{Name: "@b", Value: strPtr("2"), Offset: 7},
			},
		},
		{
			name: "duplicates kept",
			src:  "@a: 1; @a: 2;",
			want: []Variable{
				{Name: "@a", Value: strPtr("1"), Offset: 0},
				{Name: "@a", Value: strPtr("2"), Offset: 7},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Extract(tt.src)
			assert.Equal(t, tt.want, table.Variables)
			assert.Empty(t, table.Mixins)
			assert.Empty(t, table.Imports)
		})
	}
}

func TestExtract_DetachedRuleset(t *testing.T) {
	src := "@g: {\n\t@skip: me;\n\tcontent: \"\";\n\n\t.test {\n\t\t@skip: me;\n\t}\n};\n@after: 1;"

	table := Extract(src)
	require.Len(t, table.Variables, 2)

	g := table.Variables[0]
	assert.Equal(t, "@g", g.Name)
	require.NotNil(t, g.Value)
	assert.Equal(t, "{\n@skip: me;\ncontent: \"\";\n\n.test {\n@skip: me;\n}\n}", *g.Value)

	assert.Equal(t, "@after", table.Variables[1].Name)
	assert.Empty(t, table.Mixins)
}

func TestExtract_NestedInvisible(t *testing.T) {
	src := ".a {\n" +
		"  @inner: 1;\n" +
		"  /* } */\n" +
		"  // }\n" +
		"  .b { @deep: 2; }\n" +
		"  .m(@x) { }\n" +
		"  @import \"nested.less\";\n" +
		"}\n" +
		"@outer: 3;"

	table := Extract(src)
	require.Len(t, table.Variables, 1)
	assert.Equal(t, "@outer", table.Variables[0].Name)
	assert.Empty(t, table.Mixins)
	assert.Empty(t, table.Imports)
}

func TestExtract_MediaBlockSkipped(t *testing.T) {
	table := Extract("@media (min-width: 768px) { @a: 1; .m() {} }\n@b: 2;")
	require.Len(t, table.Variables, 1)
	assert.Equal(t, "@b", table.Variables[0].Name)
	assert.Empty(t, table.Mixins)
}

func TestExtract_MixinRecognition(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		mixin []string
	}{
		{"declaration without params", ".b() {}", []string{".b"}},
		{"call", ".b();", nil},
		{"plain ruleset", ".b {}", nil},
		{"hash namespace", "#ns() { .m() {} }", []string{"#ns"}},
		{"pseudo class selector", ".a:hover { }", nil},
		{"pseudo function selector", ".a:not(.b) { }", nil},
		{"namespaced call", "#ns > .m();", nil},
		{"call with important", ".m() !important;", nil},
		{"guard", ".m(@a) when (@a > 0) { }", []string{".m"}},
		{"guard with nested call", ".m(@a) when (iscolor(@a)) { }", []string{".m"}},
		{"too many guard tokens", ".m(@a) when (default()) and (iscolor(@a)) { }", nil},
		{"unterminated", ".m(@a)", nil},
		{"name at end of input", ".m", nil},
		{"comment before body", ".m() /* c */ { }", []string{".m"}},
		{"compound selector name", ".a.b() { }", []string{".a.b"}},
		{"two declarations", ".a() {}\n.b() {}", []string{".a", ".b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Extract(tt.src)
			var got []string
			for _, m := range table.Mixins {
				got = append(got, m.Name)
				assert.NotNil(t, m.Parameters)
			}
			assert.Equal(t, tt.mixin, got)
		})
	}
}

func TestExtract_MixinParameters(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		params []Variable
	}{
		{
			name:   "empty",
			src:    ".b() {}",
			params: []Variable{},
		},
		{
			name:   "whitespace only",
			src:    ".b( ) {}",
			params: []Variable{},
		},
		{
			name: "semicolon separated with call default",
			src:  ".one(@a: 1; @b: rgba(0,0,0,0)) {}",
			params: []Variable{
				{Name: "@a", Value: strPtr("1"), Offset: 5},
				{Name: "@b", Value: strPtr("rgba(0,0,0,0)"), Offset: 12},
			},
		},
		{
			name: "comma separated",
			src:  ".m(@a, @b) {}",
			params: []Variable{
				{Name: "@a", Offset: 3},
				{Name: "@b", Offset: 7},
			},
		},
		{
			name: "comma in default",
			src:  ".m(@a: 1, 2; @b: 3) {}",
			params: []Variable{
				{Name: "@a", Value: strPtr("1, 2"), Offset: 3},
				{Name: "@b", Value: strPtr("3"), Offset: 13},
			},
		},
		{
			name: "variable after comma starts a new parameter",
			src:  ".m(@a: 1, @b) {}",
			params: []Variable{
				{Name: "@a", Value: strPtr("1"), Offset: 3},
				{Name: "@b", Offset: 10},
			},
		},
		{
			name: "no space after colon",
			src:  ".m(@a:1) {}",
			params: []Variable{
				{Name: "@a", Value: strPtr("1"), Offset: 3},
			},
		},
		{
			name: "string default",
			src:  `.m(@a: "x"; @b) {}`,
			params: []Variable{
				{Name: "@a", Value: strPtr(`"x"`), Offset: 3},
				{Name: "@b", Offset: 12},
			},
		},
		{
			name: "empty default is nil",
			src:  ".m(@a: ) {}",
			params: []Variable{
				{Name: "@a", Offset: 3},
			},
		},
		{
			name:   "pattern argument makes list empty",
			src:    ".m(dark; @a) {}",
			params: []Variable{},
		},
		{
			name:   "variadic makes list empty",
			src:    ".m(...) {}",
			params: []Variable{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Extract(tt.src)
			require.Len(t, table.Mixins, 1)
			assert.Equal(t, tt.params, table.Mixins[0].Parameters)
		})
	}
}

func TestExtract_MixinOffsets(t *testing.T) {
	src := "@a: 1;\n  .box(@w: 10px) {\n  width: @w;\n}\n"

	table := Extract(src)
	require.Len(t, table.Mixins, 1)
	m := table.Mixins[0]
	assert.Equal(t, ".box", m.Name)
	assert.Equal(t, 9, m.Offset)
	require.Len(t, m.Parameters, 1)
	assert.Equal(t, "@w", m.Parameters[0].Name)
	assert.Equal(t, "@w", src[m.Parameters[0].Offset:m.Parameters[0].Offset+2])

	// Body declarations are not top-level variables.
	require.Len(t, table.Variables, 1)
}

func TestExtract_Imports(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []Import
	}{
		{
			name: "css mode",
			src:  `@import (css) "test";`,
			want: []Import{{Filepath: "test", Modes: []string{"css"}, CSS: true, Offset: 0}},
		},
		{
			name: "interpolated path",
			src:  `@import "@{test}.less";`,
			want: []Import{{Filepath: "@{test}.less", Modes: []string{}, Dynamic: true, Offset: 0}},
		},
		{
			name: "glob path",
			src:  `@import "mixins/*.less";`,
			want: []Import{{Filepath: "mixins/*.less", Modes: []string{}, Dynamic: true, Offset: 0}},
		},
		{
			name: "css extension",
			src:  `@import 'reset.css';`,
			want: []Import{{Filepath: "reset.css", Modes: []string{}, CSS: true, Offset: 0}},
		},
		{
			name: "several modes normalized",
			src:  `@import (Optional,  reference) "a.less";`,
			want: []Import{{Filepath: "a.less", Modes: []string{"optional", "reference"}, Offset: 0}},
		},
		{
			name: "url import dropped",
			src:  `@import url(foo.less);`,
			want: []Import{},
		},
		{
			name: "missing whitespace dropped",
			src:  `@import"a.less";`,
			want: []Import{},
		},
		{
			name: "offsets",
			src:  "@import 'a';\n@import 'b';",
			want: []Import{
				{Filepath: "a", Modes: []string{}, Offset: 0},
				{Filepath: "b", Modes: []string{}, Offset: 13},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Extract(tt.src)
			assert.Equal(t, tt.want, table.Imports)
		})
	}
}

func TestExtract_DroppedImportDoesNotStopScan(t *testing.T) {
	table := Extract("@import url(x.less);\n@a: 1;")
	assert.Empty(t, table.Imports)
	require.Len(t, table.Variables, 1)
	assert.Equal(t, "@a", table.Variables[0].Name)
}

func TestExtract_MixedDocument(t *testing.T) {
	src := `// Theme
@import (reference) "base.less";
@primary: #337ab7;
@padding:4px;

.button-variant(@color; @background: @primary) {
  color: @color;
  background: @background;
}

.btn {
  .button-variant(white);
}
`
	table := Extract(src)

	require.Len(t, table.Imports, 1)
	assert.Equal(t, "base.less", table.Imports[0].Filepath)
	assert.True(t, table.Imports[0].HasMode("reference"))

	require.Len(t, table.Variables, 2)
	assert.Equal(t, "#337ab7", table.Variables[0].ValueOr(""))
	assert.Equal(t, "4px", table.Variables[1].ValueOr(""))

	require.Len(t, table.Mixins, 1)
	m := table.Mixins[0]
	assert.Equal(t, ".button-variant", m.Name)
	require.Len(t, m.Parameters, 2)
	assert.False(t, m.Parameters[0].HasValue())
	assert.Equal(t, "@primary", m.Parameters[1].ValueOr(""))
	assert.Equal(t, 4, table.Len())
}

func TestExtractTokens_DoesNotModifyInput(t *testing.T) {
	tokens := tokenizer.Tokenize("@a:1; .m(@b, @c) {}")
	before := append([]token.Token(nil), tokens...)

	ExtractTokens(tokens)
	assert.Equal(t, before, tokens)
}

func TestNormalize(t *testing.T) {
	in := []token.Token{
		{Kind: token.AtWord, Text: "@a:1", Offset: 0},
		{Kind: token.AtWord, Text: "@b,", Offset: 4},
		{Kind: token.AtWord, Text: "@c:", Offset: 7},
		{Kind: token.AtWord, Text: "@,", Offset: 10},
		{Kind: token.Word, Text: "x:y", Offset: 12},
	}
	want := []token.Token{
		{Kind: token.AtWord, Text: "@a:", Offset: 0},
		{Kind: token.String, Text: "1", Offset: 3},
		{Kind: token.AtWord, Text: "@b", Offset: 4},
		{Kind: token.Word, Text: ",", Offset: 6},
		{Kind: token.AtWord, Text: "@c:", Offset: 7},
		{Kind: token.AtWord, Text: "@,", Offset: 10},
		{Kind: token.Word, Text: "x:y", Offset: 12},
	}

	got := normalize(in)
	assert.Equal(t, want, got)
	assert.Equal(t, token.Join(in), token.Join(got))
}

func TestExtract_NoPanicOnGarbage(t *testing.T) {
	inputs := []string{
		"{{{{", "}}}}", "((((", "))))", ".(", "#", "@", "@:", "@import",
		"@import (", ".m(@a: {", "@a: {", `"`, "/*", "\\", ".m(;) {",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			assert.NotPanics(t, func() { Extract(in) })
		})
	}
}
