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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AleutianAI/lessindex/services/lessindex/symbols"
	"github.com/AleutianAI/lessindex/services/lessindex/token"
)

// LessLanguage is the language name reported by LessParser.
const LessLanguage = "less"

// LessParser extracts top-level variables, mixins and imports from LESS
// stylesheets.
//
// Description:
//
//	LessParser runs the LESS tokenizer and symbol extractor over a file and
//	converts the resulting symbol table into the common ParseResult model,
//	adding line/column locations and stable IDs. Rulesets and mixin bodies
//	are not descended into.
//
// Thread Safety:
//
//	LessParser is safe for concurrent use. It holds no mutable state.
//
// Example:
//
//	parser := NewLessParser()
//	result, err := parser.Parse(ctx, content, "theme/buttons.less")
//	if err != nil {
//	    return fmt.Errorf("parse: %w", err)
//	}
//	for _, sym := range result.Symbols {
//	    fmt.Printf("%s: %s\n", sym.Kind, sym.Name)
//	}
type LessParser struct {
	options LessParserOptions
}

// LessParserOptions configures LessParser behavior.
type LessParserOptions struct {
	// MaxFileSize is the maximum file size in bytes to parse.
	// Files larger than this return ErrFileTooLarge.
	// Default: 10MB
	MaxFileSize int

	// IncludeParameters determines whether mixin parameters are attached
	// to mixin symbols as children.
	// Default: true
	IncludeParameters bool
}

// DefaultLessParserOptions returns the default options.
func DefaultLessParserOptions() LessParserOptions {
	return LessParserOptions{
		MaxFileSize:       10 * 1024 * 1024, // 10MB
		IncludeParameters: true,
	}
}

// LessParserOption is a functional option for configuring LessParser.
type LessParserOption func(*LessParserOptions)

// WithLessMaxFileSize sets the maximum file size for parsing.
func WithLessMaxFileSize(size int) LessParserOption {
	return func(o *LessParserOptions) {
		o.MaxFileSize = size
	}
}

// WithLessIncludeParameters sets whether mixin parameters become child symbols.
func WithLessIncludeParameters(include bool) LessParserOption {
	return func(o *LessParserOptions) {
		o.IncludeParameters = include
	}
}

// NewLessParser creates a new LessParser with the given options.
//
// Example:
//
//	// Default options
//	parser := NewLessParser()
//
//	// With custom options
//	parser := NewLessParser(
//	    WithLessMaxFileSize(1 * 1024 * 1024),
//	    WithLessIncludeParameters(false),
//	)
func NewLessParser(opts ...LessParserOption) *LessParser {
	options := DefaultLessParserOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &LessParser{options: options}
}

// Language returns the language name for this parser.
func (p *LessParser) Language() string {
	return LessLanguage
}

// Extensions returns the file extensions this parser handles.
func (p *LessParser) Extensions() []string {
	return []string{".less"}
}

// Options returns the parser's effective options.
func (p *LessParser) Options() LessParserOptions {
	return p.options
}

// Parse extracts symbols from LESS source.
//
// Inputs:
//
//	ctx      - Context for cancellation. Checked before and after extraction.
//	content  - Raw source bytes. Must be valid UTF-8.
//	filePath - Path to the file (relative to the index root, for ID generation).
//
// Outputs:
//
//	*ParseResult - Extracted symbols and metadata. Never nil on success.
//	error        - Non-nil only for complete failures (canceled, invalid UTF-8,
//	               too large).
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (p *LessParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	start := time.Now()

	ctx, span := startParseSpan(ctx, filePath, len(content))
	defer span.End()
	inst := sharedInstruments()

	if err := ctx.Err(); err != nil {
		inst.parse(ctx, outcomeCanceled, time.Since(start))
		return nil, fmt.Errorf("%w: canceled before start: %w", ErrParseFailed, err)
	}

	if len(content) > p.options.MaxFileSize {
		inst.parse(ctx, outcomeTooLarge, time.Since(start))
		return nil, fmt.Errorf("%d bytes (limit %d): %w", len(content), p.options.MaxFileSize, ErrFileTooLarge)
	}

	if !utf8.Valid(content) {
		inst.parse(ctx, outcomeInvalid, time.Since(start))
		return nil, invalidUTF8Error(filePath, content)
	}

	hash := sha256.Sum256(content)

	result := &ParseResult{
		FilePath:      filePath,
		Language:      LessLanguage,
		Hash:          hex.EncodeToString(hash[:]),
		ParsedAtMilli: time.Now().UnixMilli(),
		Symbols:       make([]*Symbol, 0),
		Imports:       make([]Import, 0),
		Errors:        make([]string, 0),
	}

	text := string(content)
	table := symbols.Extract(text)

	if err := ctx.Err(); err != nil {
		inst.parse(ctx, outcomeCanceled, time.Since(start))
		return nil, fmt.Errorf("%w: canceled after extraction: %w", ErrParseFailed, err)
	}

	b := &symbolBuilder{
		filePath: filePath,
		lines:    token.NewLineIndex(text),
		parsedAt: result.ParsedAtMilli,
	}
	for _, v := range table.Variables {
		result.Symbols = append(result.Symbols, b.variable(v))
	}
	for _, m := range table.Mixins {
		result.Symbols = append(result.Symbols, b.mixin(m, p.options.IncludeParameters))
	}
	for _, imp := range table.Imports {
		if imp.Filepath == "" {
			pos := b.lines.Position(imp.Offset)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: empty @import path", pos))
			continue
		}
		sym, structured := b.importSymbol(imp)
		result.Symbols = append(result.Symbols, sym)
		result.Imports = append(result.Imports, structured)
	}

	// Merge the three kinds back into source order.
	sort.SliceStable(result.Symbols, func(i, j int) bool {
		return result.Symbols[i].Offset < result.Symbols[j].Offset
	})

	if err := result.Validate(); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("validation error: %v", err))
	}

	result.ParseDurationMs = time.Since(start).Milliseconds()

	setParseSpanResult(span, result)
	inst.parse(ctx, outcomeOK, time.Since(start))
	inst.result(ctx, result)

	return result, nil
}

// symbolBuilder converts extractor output into located Symbols.
type symbolBuilder struct {
	filePath string
	lines    *token.LineIndex
	parsedAt int64
}

// newSymbol locates a symbol whose source extent starts at offset and
// spans length bytes.
func (b *symbolBuilder) newSymbol(name string, kind SymbolKind, offset, length int) *Symbol {
	startPos := b.lines.Position(offset)
	endPos := b.lines.Position(offset + length)
	return &Symbol{
		ID:            GenerateID(b.filePath, startPos.Line, name),
		Name:          name,
		Kind:          kind,
		FilePath:      b.filePath,
		StartLine:     startPos.Line,
		EndLine:       endPos.Line,
		StartCol:      startPos.Column - 1,
		EndCol:        endPos.Column - 1,
		Offset:        offset,
		Language:      LessLanguage,
		ParsedAtMilli: b.parsedAt,
	}
}

func (b *symbolBuilder) variable(v symbols.Variable) *Symbol {
	sym := b.newSymbol(v.Name, SymbolKindVariable, v.Offset, len(v.Name))
	value := v.ValueOr("")
	sym.Signature = v.Name + ": " + value
	sym.Metadata = &SymbolMetadata{Value: value}
	return sym
}

func (b *symbolBuilder) mixin(m symbols.Mixin, includeParams bool) *Symbol {
	sym := b.newSymbol(m.Name, SymbolKindMixin, m.Offset, len(m.Name))

	params := make([]string, 0, len(m.Parameters))
	for _, p := range m.Parameters {
		params = append(params, parameterSignature(p))
	}
	sym.Signature = m.Name + "(" + strings.Join(params, "; ") + ")"

	if !includeParams || len(m.Parameters) == 0 {
		return sym
	}

	sym.Children = make([]*Symbol, 0, len(m.Parameters))
	for _, p := range m.Parameters {
		child := b.newSymbol(p.Name, SymbolKindParameter, p.Offset, len(p.Name))
		child.ID = GenerateID(b.filePath, child.StartLine, m.Name+p.Name)
		child.Signature = parameterSignature(p)
		child.Metadata = &SymbolMetadata{
			Value:      p.ValueOr(""),
			HasDefault: p.HasValue(),
			ParentName: m.Name,
		}
		sym.Children = append(sym.Children, child)
	}
	return sym
}

func (b *symbolBuilder) importSymbol(imp symbols.Import) (*Symbol, Import) {
	sym := b.newSymbol(imp.Filepath, SymbolKindImport, imp.Offset, len("@import"))

	var sig strings.Builder
	sig.WriteString("@import ")
	if len(imp.Modes) > 0 {
		sig.WriteString("(" + strings.Join(imp.Modes, ", ") + ") ")
	}
	sig.WriteString(`"` + imp.Filepath + `"`)
	sym.Signature = sig.String()

	if len(imp.Modes) > 0 {
		sym.Metadata = &SymbolMetadata{Modes: imp.Modes}
	}

	return sym, Import{
		Path:        imp.Filepath,
		Modes:       imp.Modes,
		IsDynamic:   imp.Dynamic,
		IsCSS:       imp.CSS,
		IsOptional:  imp.HasMode("optional"),
		IsReference: imp.HasMode("reference"),
		Location:    sym.Location(),
	}
}

func parameterSignature(p symbols.Variable) string {
	if p.Value == nil {
		return p.Name
	}
	return p.Name + ": " + *p.Value
}
