// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package token defines the lexical tokens produced by the LESS tokenizer.
package token

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies the lexical class of a token.
type Kind int

const (
	Space Kind = iota
	Word
	AtWord
	String
	Comment

	// Brackets is a whole "(...)" span matched in one step.
	Brackets

	LParen
	RParen
	LBrace
	RBrace
	LBrack
	RBrack
	Colon
	Semicolon
)

var kindNames = map[Kind]string{
	Space:     "space",
	Word:      "word",
	AtWord:    "at-word",
	String:    "string",
	Comment:   "comment",
	Brackets:  "brackets",
	LParen:    "(",
	RParen:    ")",
	LBrace:    "{",
	RBrace:    "}",
	LBrack:    "[",
	RBrack:    "]",
	Colon:     ":",
	Semicolon: ";",
}

// String returns the canonical kind name, e.g. "at-word" or "{".
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalJSON renders the kind by name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// MarshalYAML renders the kind by name.
func (k Kind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// Structural reports whether the kind is anything other than a word, a
// space or an atomically matched bracket span.
func (k Kind) Structural() bool {
	return k != Word && k != Space && k != Brackets
}

// Token is a single lexical unit.
//
// Text holds the exact source bytes the token spans, delimiters included.
// Offset is the zero-based byte offset of the first byte.
type Token struct {
	Kind   Kind   `json:"kind" yaml:"kind"`
	Text   string `json:"text" yaml:"text"`
	Offset int    `json:"offset" yaml:"offset"`
}

// End returns the offset one past the last byte of the token.
func (t Token) End() int {
	return t.Offset + len(t.Text)
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q @%d", t.Kind, t.Text, t.Offset)
}

// Join concatenates the raw text of the tokens.
func Join(tokens []Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteString(tok.Text)
	}
	return sb.String()
}
