// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tokenizer splits LESS source text into a flat token stream.
//
// The tokenizer is a generic CSS-family lexer with two LESS additions:
// "//" line comments, and at-words that keep an embedded colon ("@a:").
// It never fails. Unterminated strings, comments and bracket runs are
// clamped to the end of the input, and concatenating the Text of every
// returned token reproduces the input exactly.
package tokenizer

import (
	"strings"

	"github.com/AleutianAI/lessindex/services/lessindex/token"
)

// Tokenize scans text into tokens in source order.
//
// Thread Safety: Tokenize holds no shared state and is safe for concurrent use.
func Tokenize(text string) []token.Token {
	s := &scanner{
		text:   text,
		tokens: make([]token.Token, 0, len(text)/4+1),
	}
	for pos := 0; pos < len(text); {
		pos = s.scan(pos)
	}
	return s.tokens
}

type scanner struct {
	text   string
	tokens []token.Token
}

// emit appends the token spanning text[start:end] and returns end.
func (s *scanner) emit(kind token.Kind, start, end int) int {
	s.tokens = append(s.tokens, token.Token{
		Kind:   kind,
		Text:   s.text[start:end],
		Offset: start,
	})
	return end
}

// scan emits one token starting at pos and returns the offset after it.
func (s *scanner) scan(pos int) int {
	switch c := s.text[pos]; {
	case isSpace(c):
		end := pos + 1
		for end < len(s.text) && isSpace(s.text[end]) {
			end++
		}
		return s.emit(token.Space, pos, end)
	case c == '[':
		return s.emit(token.LBrack, pos, pos+1)
	case c == ']':
		return s.emit(token.RBrack, pos, pos+1)
	case c == '{':
		return s.emit(token.LBrace, pos, pos+1)
	case c == '}':
		return s.emit(token.RBrace, pos, pos+1)
	case c == ':':
		return s.emit(token.Colon, pos, pos+1)
	case c == ';':
		return s.emit(token.Semicolon, pos, pos+1)
	case c == '(':
		return s.scanParen(pos)
	case c == ')':
		return s.emit(token.RParen, pos, pos+1)
	case c == '\'' || c == '"':
		return s.scanString(pos)
	case c == '@':
		return s.scanAtWord(pos)
	case c == '\\':
		return s.scanEscape(pos)
	case c == '/' && s.peek(pos+1) == '/':
		return s.scanLineComment(pos)
	case c == '/' && s.peek(pos+1) == '*':
		return s.scanBlockComment(pos)
	default:
		return s.scanWord(pos)
	}
}

// peek returns the byte at i, or -1 past the end of the text.
func (s *scanner) peek(i int) int {
	if i >= len(s.text) {
		return -1
	}
	return int(s.text[i])
}

func (s *scanner) prevText() string {
	if len(s.tokens) == 0 {
		return ""
	}
	return s.tokens[len(s.tokens)-1].Text
}

// scanParen handles "(": an unquoted url() body, a simple parenthetical
// matched whole, or a lone paren.
func (s *scanner) scanParen(pos int) int {
	next := s.peek(pos + 1)
	if s.prevText() == "url" && next != '\'' && next != '"' && !(next >= 0 && isSpace(byte(next))) {
		end := findUnescaped(s.text, ')', pos+1)
		if end < 0 {
			end = pos
		}
		return s.emit(token.Brackets, pos, end+1)
	}

	end := strings.IndexByte(s.text[pos+1:], ')')
	if end < 0 {
		return s.emit(token.LParen, pos, pos+1)
	}
	end += pos + 1
	if isComplexBracket(s.text[pos : end+1]) {
		return s.emit(token.LParen, pos, pos+1)
	}
	return s.emit(token.Brackets, pos, end+1)
}

func (s *scanner) scanString(pos int) int {
	end := findUnescaped(s.text, s.text[pos], pos+1)
	if end < 0 {
		end = len(s.text) - 1
	}
	return s.emit(token.String, pos, end+1)
}

func (s *scanner) scanAtWord(pos int) int {
	end := pos + 1
	for end < len(s.text) {
		c := s.text[end]
		if isAtWordEnd(c) {
			break
		}
		if c == '/' {
			if n := s.peek(end + 1); n == '*' || n == '/' {
				break
			}
		}
		end++
	}
	return s.emit(token.AtWord, pos, end)
}

// scanEscape consumes a backslash run. Doubled backslashes cancel; a
// pending escape also takes the following character unless it is
// whitespace or a slash.
func (s *scanner) scanEscape(pos int) int {
	next := pos
	escape := true
	for s.peek(next+1) == '\\' {
		next++
		escape = !escape
	}
	if c := s.peek(next + 1); escape && c >= 0 && c != '/' && !isSpace(byte(c)) {
		next++
	}
	return s.emit(token.Word, pos, next+1)
}

// scanLineComment runs through the terminating newline, inclusive.
func (s *scanner) scanLineComment(pos int) int {
	end := strings.IndexByte(s.text[pos+1:], '\n')
	if end < 0 {
		return s.emit(token.Comment, pos, len(s.text))
	}
	return s.emit(token.Comment, pos, pos+1+end+1)
}

func (s *scanner) scanBlockComment(pos int) int {
	end := strings.Index(s.text[pos+2:], "*/")
	if end < 0 {
		return s.emit(token.Comment, pos, len(s.text))
	}
	return s.emit(token.Comment, pos, pos+2+end+2)
}

// scanWord always takes the first byte, then stops before a word
// terminator or the start of a block comment.
func (s *scanner) scanWord(pos int) int {
	end := pos + 1
	for end < len(s.text) {
		c := s.text[end]
		if isWordEnd(c) || (c == '/' && s.peek(end+1) == '*') {
			break
		}
		end++
	}
	return s.emit(token.Word, pos, end)
}

// findUnescaped returns the index of the first ch at or after from that is
// not preceded by an odd number of backslashes, or -1.
func findUnescaped(text string, ch byte, from int) int {
	for from <= len(text) {
		i := strings.IndexByte(text[from:], ch)
		if i < 0 {
			return -1
		}
		i += from
		slashes := 0
		for j := i - 1; j >= 0 && text[j] == '\\'; j-- {
			slashes++
		}
		if slashes%2 == 0 {
			return i
		}
		from = i + 1
	}
	return -1
}

// isComplexBracket reports whether a "(...)" span has a quote, backslash,
// slash, newline or nested paren after its first byte. A byte that directly
// follows a line break is not considered.
func isComplexBracket(span string) bool {
	for i := 1; i < len(span); i++ {
		if prev := span[i-1]; prev == '\n' || prev == '\r' {
			continue
		}
		switch span[i] {
		case '\\', '/', '(', '"', '\'', '\n':
			return true
		}
	}
	return false
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r' || c == '\f'
}

func isAtWordEnd(c byte) bool {
	switch c {
	case '{', '(', ')', '\'', '"', '\\', ';', '[', ']', '#':
		return true
	}
	return isSpace(c)
}

func isWordEnd(c byte) bool {
	switch c {
	case '(', ')', '{', '}', ':', ';', '@', '!', '\'', '"', '\\', ']', '[', '#':
		return true
	}
	return isSpace(c)
}
