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
	"strings"

	"github.com/AleutianAI/lessindex/services/lessindex/token"
	"github.com/AleutianAI/lessindex/services/lessindex/tokenizer"
)

// Extract tokenizes text and returns its top-level symbols.
//
// Extract never fails: malformed input yields a partial or empty table.
//
// Thread Safety: Safe for concurrent use.
func Extract(text string) *SymbolTable {
	return ExtractTokens(tokenizer.Tokenize(text))
}

// ExtractTokens runs the symbol recognizers over an existing token stream.
// The input slice is not modified.
func ExtractTokens(tokens []token.Token) *SymbolTable {
	x := &extractor{
		tokens: normalize(tokens),
		table:  newSymbolTable(),
	}
	for pos := 0; pos < len(x.tokens); {
		pos = x.step(pos)
	}
	return x.table
}

// extractor walks a normalized token stream. Every recognizer takes the
// cursor position and returns the position to resume at, which is always
// greater than the one it was given.
type extractor struct {
	tokens []token.Token
	table  *SymbolTable
}

func (x *extractor) step(pos int) int {
	t := x.tokens[pos]
	switch {
	case t.Kind == token.AtWord && t.Text == "@import":
		return x.importStatement(pos)
	case t.Kind == token.AtWord && strings.HasSuffix(t.Text, ":"):
		return x.variable(pos)
	case t.Kind == token.Word && (strings.HasPrefix(t.Text, ".") || strings.HasPrefix(t.Text, "#")):
		return x.mixin(pos)
	case t.Kind == token.LBrace:
		return x.ruleset(pos)
	default:
		return pos + 1
	}
}

// kindAt returns the kind of the token at i; ok is false past the end.
func (x *extractor) kindAt(i int) (token.Kind, bool) {
	if i < 0 || i >= len(x.tokens) {
		return 0, false
	}
	return x.tokens[i].Kind, true
}

// skipPast returns the position after i, clamped to the stream length.
func (x *extractor) skipPast(i int) int {
	if i >= len(x.tokens) {
		return len(x.tokens)
	}
	return i + 1
}

// variable records "@name: value;". The value runs to the first semicolon
// outside of a detached ruleset.
func (x *extractor) variable(pos int) int {
	start := x.tokens[pos]
	var value strings.Builder

	i := pos + 1
	for ; i < len(x.tokens) && x.tokens[i].Kind != token.Semicolon; i++ {
		t := x.tokens[i]
		switch t.Kind {
		case token.LBrace:
			i = x.detachedRuleset(i, &value)
		case token.Word, token.AtWord, token.String, token.Space, token.Brackets:
			value.WriteString(t.Text)
		}
	}

	v := strings.TrimSpace(value.String())
	x.table.Variables = append(x.table.Variables, Variable{
		Name:   strings.TrimSuffix(start.Text, ":"),
		Value:  &v,
		Offset: start.Offset,
	})
	return x.skipPast(i)
}

// detachedRuleset copies the "{ ... }" region opening at pos into value,
// dropping tab characters, and returns the index of the closing brace (or
// the stream length if it never closes). Comment tokens are copied but
// their braces are not counted.
func (x *extractor) detachedRuleset(pos int, value *strings.Builder) int {
	value.WriteByte('{')
	depth := 1
	for i := pos + 1; i < len(x.tokens); i++ {
		t := x.tokens[i]
		switch t.Kind {
		case token.LBrace:
			depth++
		case token.RBrace:
			depth--
			if depth == 0 {
				value.WriteByte('}')
				return i
			}
		}
		value.WriteString(strings.ReplaceAll(t.Text, "\t", ""))
	}
	return len(x.tokens)
}

// ruleset skips a brace-balanced block opening at pos. Nothing inside is
// indexed.
func (x *extractor) ruleset(pos int) int {
	depth := 0
	for i := pos; i < len(x.tokens); i++ {
		switch x.tokens[i].Kind {
		case token.LBrace:
			depth++
		case token.RBrace:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(x.tokens)
}
