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
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/lessindex/pkg/ux"
	"github.com/AleutianAI/lessindex/services/lessindex/ast"
	"github.com/AleutianAI/lessindex/services/lessindex/cache"
	"github.com/AleutianAI/lessindex/services/lessindex/index"
)

type indexOptions struct {
	noCache  bool
	snapshot bool
	imports  bool
	variable string
	mixin    string
}

func (a *app) newIndexCmd() *cobra.Command {
	var opts indexOptions
	cmd := &cobra.Command{
		Use:   "index DIR",
		Short: "Index every stylesheet under a directory",
		Long: `Index every stylesheet under DIR and print a summary.

Use --var or --mixin to look up declarations, --imports to list the import
graph, or --snapshot to print everything.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIndex(cmd.Context(), args[0], opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.noCache, "no-cache", false, "do not read or write the symbol cache")
	f.BoolVar(&opts.snapshot, "snapshot", false, "print the full snapshot")
	f.BoolVar(&opts.imports, "imports", false, "print the import graph")
	f.StringVar(&opts.variable, "var", "", "print declarations of a variable")
	f.StringVar(&opts.mixin, "mixin", "", "print definitions of a mixin")
	cmd.MarkFlagsMutuallyExclusive("snapshot", "imports", "var", "mixin")
	return cmd
}

func (a *app) runIndex(ctx context.Context, root string, opts indexOptions) error {
	_, stopTelemetry, err := a.startTelemetry(ctx)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	ix, closeCache, err := a.newIndexer(root, !opts.noCache)
	if err != nil {
		return err
	}
	defer closeCache()

	snap, err := ix.IndexDir(ctx, root)
	if err != nil {
		return err
	}

	switch {
	case opts.variable != "":
		return a.printMatches(snap.FindVariable(opts.variable))
	case opts.mixin != "":
		return a.printMatches(snap.FindMixin(opts.mixin))
	case opts.imports:
		return a.printImports(snap.Imports())
	case opts.snapshot:
		if a.format != formatText {
			return a.encode(snap)
		}
		for _, p := range snap.Paths() {
			a.printParseResult(snap.Files[p])
		}
		a.printStats(snap)
		return nil
	default:
		if a.format != formatText {
			return a.encode(snap.Stats())
		}
		a.printStats(snap)
		return nil
	}
}

// newIndexer builds an Indexer from the config. The returned func closes
// the cache, if one was opened.
func (a *app) newIndexer(root string, useCache bool) (*index.Indexer, func(), error) {
	opts := index.Options{
		Extensions: a.cfg.Index.Extensions,
		Ignore:     a.cfg.Index.Ignore,
		Workers:    a.cfg.Index.Workers,
		PruneCache: true,
		Logger:     a.logger,
	}

	closeCache := func() {}
	if useCache && a.cfg.Cache.Enabled {
		base, err := filepath.Abs(root)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve %s: %w", root, err)
		}
		c, err := cache.Open(a.cfg.Cache.StoreConfig(base, a.logger), a.logger)
		if err != nil {
			return nil, nil, err
		}
		opts.Cache = c
		closeCache = func() {
			if err := c.Close(); err != nil {
				a.logger.Warn("close symbol cache", slog.String("error", err.Error()))
			}
		}
	}

	registry := ast.NewDefaultRegistry(a.cfg.ParserOptions()...)
	ix, err := index.New(registry, opts)
	if err != nil {
		closeCache()
		return nil, nil, err
	}
	return ix, closeCache, nil
}

func (a *app) printMatches(syms []*ast.Symbol) error {
	if a.format != formatText {
		return a.encode(syms)
	}
	if len(syms) == 0 {
		a.out.Warning("no matches")
		return nil
	}
	a.printSymbols(syms)
	return nil
}

func (a *app) printImports(edges []index.ImportEdge) error {
	if a.format != formatText {
		return a.encode(edges)
	}
	rows := make([][]string, 0, len(edges))
	for _, e := range edges {
		target := e.Resolved
		if target == "" {
			target = "-"
		}
		rows = append(rows, []string{
			e.From,
			e.Import.Path,
			target,
			importFlags(e.Import.Modes, e.Import.IsDynamic, e.Import.IsCSS),
		})
	}
	a.out.Table([]string{"FROM", "IMPORT", "RESOLVED", "FLAGS"}, rows)
	return nil
}

func (a *app) printStats(snap *index.Snapshot) {
	failed := make([]string, 0, len(snap.Errors))
	for p := range snap.Errors {
		failed = append(failed, p)
	}
	sort.Strings(failed)
	for _, p := range failed {
		a.out.FileStatus(p, ux.IconError, snap.Errors[p])
	}
	st := snap.Stats()
	a.out.Summary(
		ux.Count{Label: "files", N: st.Files},
		ux.Count{Label: "variables", N: st.Variables},
		ux.Count{Label: "mixins", N: st.Mixins},
		ux.Count{Label: "parameters", N: st.Parameters},
		ux.Count{Label: "imports", N: st.Imports},
		ux.Count{Label: "errors", N: st.Errors, Warn: true},
		ux.Count{Label: "cached", N: st.CacheHits},
	)
}
