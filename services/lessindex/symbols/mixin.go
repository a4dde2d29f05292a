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
	"regexp"
	"strings"

	"github.com/AleutianAI/lessindex/services/lessindex/token"
)

// maxGuardTokens bounds how many structural tokens may sit between a
// parameter list and the opening brace of a mixin body ("when (...)").
const maxGuardTokens = 2

var (
	// paramSeparator finds a "," or ";" that is followed by a parameter name.
	paramSeparator = regexp.MustCompile(`[,;]\s*@`)

	// paramPattern matches one "@name" or "@name: default" segment.
	paramPattern = regexp.MustCompile(`^\s*(@[\w-]+)(?:\s*:\s*((?s:.*)))?`)
)

// mixin tries to read a mixin declaration starting at pos. A candidate
// without a parameter list is rejected at its terminator. A candidate with
// parameters is accepted only when a "{" follows within maxGuardTokens
// structural tokens; either way scanning resumes right after the
// parameters, so an accepted body is skipped as a ruleset.
func (x *extractor) mixin(pos int) int {
	var name strings.Builder
	i := pos
	for ; i < len(x.tokens) && !endsMixinName(x.tokens[i].Kind); i++ {
		name.WriteString(x.tokens[i].Text)
	}
	if i >= len(x.tokens) {
		return len(x.tokens)
	}

	open := x.tokens[i]
	var params string
	switch open.Kind {
	case token.Brackets:
		params = open.Text
	case token.LParen:
		var b strings.Builder
		b.WriteByte('(')
		for i++; i < len(x.tokens) && x.tokens[i].Kind != token.RParen; i++ {
			b.WriteString(x.tokens[i].Text)
		}
		b.WriteByte(')')
		params = b.String()
	default:
		return i
	}

	next := x.skipPast(i)
	if !x.opensBody(next) {
		return next
	}

	x.table.Mixins = append(x.table.Mixins, Mixin{
		Name:       strings.TrimSpace(name.String()),
		Parameters: parseParameters(params, open.Offset),
		Offset:     x.tokens[pos].Offset,
	})
	return next
}

func endsMixinName(k token.Kind) bool {
	switch k {
	case token.Colon, token.Brackets, token.LParen, token.LBrace, token.Semicolon, token.RBrace:
		return true
	}
	return false
}

// opensBody reports whether a "{" is reached from pos before a ";", the
// end of input, or more than maxGuardTokens structural tokens.
func (x *extractor) opensBody(pos int) bool {
	structural := 0
	for i := pos; i < len(x.tokens); i++ {
		k, _ := x.kindAt(i)
		switch k {
		case token.LBrace:
			return true
		case token.Semicolon:
			return false
		}
		if k.Structural() {
			structural++
			if structural > maxGuardTokens {
				return false
			}
		}
	}
	return false
}

// parseParameters splits a raw "(...)" parameter list. parenOffset is the
// byte offset of the opening paren. If any segment fails to parse the
// result is empty.
func parseParameters(params string, parenOffset int) []Variable {
	out := make([]Variable, 0)
	if len(params) < 2 || params == "()" {
		return out
	}
	inner := params[1 : len(params)-1]
	base := parenOffset + 1

	start := 0
	for _, sep := range paramSeparator.FindAllStringIndex(inner, -1) {
		v, ok := parseParameter(inner[start:sep[0]], base+start)
		if !ok {
			return make([]Variable, 0)
		}
		out = append(out, v)
		start = sep[1] - 1
	}

	v, ok := parseParameter(inner[start:], base+start)
	if !ok {
		return make([]Variable, 0)
	}
	return append(out, v)
}

func parseParameter(segment string, offset int) (Variable, bool) {
	m := paramPattern.FindStringSubmatchIndex(segment)
	if m == nil {
		return Variable{}, false
	}

	v := Variable{
		Name:   segment[m[2]:m[3]],
		Offset: offset + m[2],
	}
	if m[4] >= 0 {
		if def := strings.TrimSpace(segment[m[4]:m[5]]); def != "" {
			v.Value = &def
		}
	}
	return v, true
}
