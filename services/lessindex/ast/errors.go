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
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/AleutianAI/lessindex/services/lessindex/token"
)

// Errors returned by parsers and the registry. Match them with errors.Is.
var (
	// ErrUnsupportedLanguage means no parser is registered for a file's
	// extension.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrParseFailed marks a parse that produced no result, for example
	// one canceled through its context.
	ErrParseFailed = errors.New("parse failed")

	// ErrInvalidContent means the content is not valid UTF-8.
	ErrInvalidContent = errors.New("content is not valid UTF-8")

	// ErrFileTooLarge means the content exceeds the parser's MaxFileSize.
	ErrFileTooLarge = errors.New("file exceeds maximum size limit")
)

// ParseError ties a failure to a stylesheet and, when known, a position
// in it.
//
//	var perr *ast.ParseError
//	if errors.As(err, &perr) && perr.Pos.Line > 0 {
//	    jumpTo(perr.FilePath, perr.Pos)
//	}
type ParseError struct {
	FilePath string

	// Pos is the 1-based position of the failure. The zero value means
	// the failure is not tied to a position.
	Pos token.Position

	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error renders "path:line:col: message", dropping the parts of the
// position that are unknown.
func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.FilePath)
	if e.Pos.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Pos.Line)
		if e.Pos.Column > 0 {
			fmt.Fprintf(&b, ":%d", e.Pos.Column)
		}
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a ParseError at pos.
func NewParseError(filePath string, pos token.Position, message string, cause error) *ParseError {
	return &ParseError{
		FilePath: filePath,
		Pos:      pos,
		Message:  message,
		Cause:    cause,
	}
}

// WrapParseError attaches filePath to err. A ParseError anywhere in the
// chain is returned unchanged, and nil stays nil.
func WrapParseError(err error, filePath string) error {
	if err == nil || IsParseError(err) {
		return err
	}
	return &ParseError{
		FilePath: filePath,
		Message:  err.Error(),
		Cause:    err,
	}
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var perr *ParseError
	return errors.As(err, &perr)
}

// IsUnsupportedLanguage reports whether err wraps ErrUnsupportedLanguage.
func IsUnsupportedLanguage(err error) bool {
	return errors.Is(err, ErrUnsupportedLanguage)
}

// invalidUTF8Error locates the first byte of content that does not start
// a valid UTF-8 sequence.
func invalidUTF8Error(filePath string, content []byte) *ParseError {
	off := 0
	for off < len(content) {
		r, size := utf8.DecodeRune(content[off:])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		off += size
	}
	return NewParseError(
		filePath,
		token.NewLineIndex(string(content[:off])).Position(off),
		fmt.Sprintf("invalid UTF-8 at byte %d", off),
		ErrInvalidContent,
	)
}
