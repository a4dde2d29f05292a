// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/lessindex/services/lessindex/ast"
	"github.com/AleutianAI/lessindex/services/lessindex/symbols"
)

type symbolsOptions struct {
	raw      bool
	noParams bool
}

func (a *app) newSymbolsCmd() *cobra.Command {
	var opts symbolsOptions
	cmd := &cobra.Command{
		Use:   "symbols FILE...",
		Short: "Print the variables, mixins and imports of stylesheets",
		Long: `Print the top-level symbols of each file.

With --raw the extractor's symbol table is printed as is, with byte
offsets instead of line and column positions.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSymbols(cmd, args, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "print the raw symbol table")
	cmd.Flags().BoolVar(&opts.noParams, "no-params", false, "omit mixin parameters")
	return cmd
}

// rawTable pairs a file with its extractor output.
type rawTable struct {
	File    string                `json:"file" yaml:"file"`
	Symbols *symbols.SymbolTable `json:"symbols" yaml:"symbols"`
}

func (a *app) runSymbols(cmd *cobra.Command, args []string, opts symbolsOptions) error {
	if opts.raw {
		tables := make([]rawTable, 0, len(args))
		for _, p := range args {
			content, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("read %s: %w", p, err)
			}
			tables = append(tables, rawTable{File: p, Symbols: symbols.Extract(string(content))})
		}
		if a.format != formatText {
			return a.encode(tables)
		}
		for _, t := range tables {
			a.printRawTable(t)
		}
		return nil
	}

	parserOpts := a.cfg.ParserOptions()
	if opts.noParams {
		parserOpts = append(parserOpts, ast.WithLessIncludeParameters(false))
	}
	registry := ast.NewDefaultRegistry(parserOpts...)

	results := make([]*ast.ParseResult, 0, len(args))
	for _, p := range args {
		parser, err := registry.ForFile(p)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		result, err := parser.Parse(cmd.Context(), content, displayPath(p))
		if err != nil {
			return ast.WrapParseError(err, p)
		}
		results = append(results, result)
	}

	if a.format != formatText {
		return a.encode(results)
	}
	for _, r := range results {
		a.printParseResult(r)
	}
	return nil
}

// displayPath returns p as a clean slash path, or its base name when it
// climbs out of the working directory.
func displayPath(p string) string {
	clean := filepath.ToSlash(filepath.Clean(p))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return filepath.Base(p)
	}
	return clean
}

func (a *app) printParseResult(r *ast.ParseResult) {
	a.out.Title(r.FilePath)
	a.printSymbols(r.Symbols)
	for _, e := range r.Errors {
		a.out.Warning(r.FilePath + ": " + e)
	}
}

// printSymbols renders symbols and their parameters as one table.
func (a *app) printSymbols(syms []*ast.Symbol) {
	rows := make([][]string, 0, len(syms))
	for _, s := range syms {
		rows = append(rows, symbolRow(s, ""))
		for _, c := range s.Children {
			rows = append(rows, symbolRow(c, "  "))
		}
	}
	a.out.Table([]string{"KIND", "NAME", "LOCATION", "DETAIL"}, rows)
}

func symbolRow(s *ast.Symbol, indent string) []string {
	detail := s.Signature
	if s.Metadata != nil && (s.Kind == ast.SymbolKindVariable || s.Kind == ast.SymbolKindParameter) {
		detail = s.Metadata.Value
	}
	return []string{
		indent + s.Kind.String(),
		indent + s.Name,
		s.Location().String(),
		detail,
	}
}

func (a *app) printRawTable(t rawTable) {
	a.out.Title(t.File)
	rows := make([][]string, 0, t.Symbols.Len())
	for _, v := range t.Symbols.Variables {
		rows = append(rows, []string{"variable", v.Name, strconv.Itoa(v.Offset), v.ValueOr("")})
	}
	for _, m := range t.Symbols.Mixins {
		rows = append(rows, []string{"mixin", m.Name, strconv.Itoa(m.Offset), ""})
		for _, p := range m.Parameters {
			rows = append(rows, []string{"  parameter", "  " + p.Name, strconv.Itoa(p.Offset), p.ValueOr("")})
		}
	}
	for _, imp := range t.Symbols.Imports {
		rows = append(rows, []string{"import", imp.Filepath, strconv.Itoa(imp.Offset), importFlags(imp.Modes, imp.Dynamic, imp.CSS)})
	}
	a.out.Table([]string{"KIND", "NAME", "OFFSET", "DETAIL"}, rows)
	if t.Symbols.IsEmpty() {
		a.out.Muted("no symbols")
	}
}

func importFlags(modes []string, dynamic, css bool) string {
	flags := append([]string(nil), modes...)
	if dynamic {
		flags = append(flags, "dynamic")
	}
	if css && !containsString(modes, "css") {
		flags = append(flags, "css")
	}
	return strings.Join(flags, ",")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
