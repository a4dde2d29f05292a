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
)

// normalize returns a copy of tokens with two at-word shapes rewritten:
//
//   - "@a:1" (no space after the colon) becomes "@a:" plus a string token "1".
//   - "@a," (a comma-separated parameter) becomes "@a" plus a word token ",".
//
// Split tokens keep their exact text and offsets, so the result still
// concatenates back to the source.
func normalize(tokens []token.Token) []token.Token {
	out := make([]token.Token, 0, len(tokens)+8)
	for _, t := range tokens {
		if t.Kind != token.AtWord {
			out = append(out, t)
			continue
		}

		if i := strings.IndexByte(t.Text, ':'); i >= 0 && i < len(t.Text)-1 {
			out = append(out,
				token.Token{Kind: token.AtWord, Text: t.Text[:i+1], Offset: t.Offset},
				token.Token{Kind: token.String, Text: t.Text[i+1:], Offset: t.Offset + i + 1},
			)
			continue
		}

		if last := len(t.Text) - 1; last > 1 && t.Text[last] == ',' {
			out = append(out,
				token.Token{Kind: token.AtWord, Text: t.Text[:last], Offset: t.Offset},
				token.Token{Kind: token.Word, Text: ",", Offset: t.Offset + last},
			)
			continue
		}

		out = append(out, t)
	}
	return out
}
