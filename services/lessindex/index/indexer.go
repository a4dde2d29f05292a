// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package index builds a queryable snapshot of every stylesheet under a
// directory.
//
// The Indexer walks a root, parses accepted files in parallel through an
// ast.ParserRegistry, and reuses cached results whose content hash still
// matches. Each run yields a Snapshot keyed by slash-separated paths
// relative to the root. IndexFile and Remove apply single-file updates, as
// delivered by the watcher, to the current snapshot.
package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/lessindex/services/lessindex/ast"
	"github.com/AleutianAI/lessindex/services/lessindex/cache"
	"github.com/AleutianAI/lessindex/services/lessindex/pathfilter"
	"github.com/AleutianAI/lessindex/services/lessindex/telemetry"
)

const tracerName = "lessindex.index"

var (
	// ErrNotDirectory is returned when the index root is not a directory.
	ErrNotDirectory = errors.New("index root is not a directory")

	// ErrNoSnapshot is returned by single-file updates before IndexDir ran.
	ErrNoSnapshot = errors.New("no snapshot; run IndexDir first")

	// ErrOutsideRoot is returned for a path that is not under the index root.
	ErrOutsideRoot = errors.New("path is outside the index root")
)

// Options configures an Indexer.
type Options struct {
	// Extensions restricts indexing to these extensions. Empty means every
	// extension the registry has a parser for.
	Extensions []string

	// Ignore holds pathfilter patterns for files and directories to skip.
	Ignore []string

	// Workers bounds parallel parsing. 0 means runtime.NumCPU().
	Workers int

	// Cache is consulted before parsing and updated after. May be nil.
	Cache *cache.SymbolCache

	// PruneCache removes cache entries for files no longer present after
	// a full IndexDir run.
	PruneCache bool

	Logger *slog.Logger
}

// Indexer parses stylesheet trees into Snapshots.
//
// Thread Safety: Safe for concurrent use. Snapshots are never mutated
// after they are returned; updates install a modified copy.
type Indexer struct {
	registry *ast.ParserRegistry
	filter   *pathfilter.Filter
	cache    *cache.SymbolCache
	prune    bool
	workers  int
	logger   *slog.Logger

	mu      sync.RWMutex
	current *Snapshot
}

// New creates an Indexer over registry.
//
// Returns an error if an ignore pattern is malformed.
func New(registry *ast.ParserRegistry, opts Options) (*Indexer, error) {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = registry.Extensions()
	}
	filter, err := pathfilter.New(exts, opts.Ignore)
	if err != nil {
		return nil, fmt.Errorf("create indexer: %w", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Indexer{
		registry: registry,
		filter:   filter,
		cache:    opts.Cache,
		prune:    opts.PruneCache,
		workers:  workers,
		logger:   logger,
	}, nil
}

// Filter returns the path filter used to select files.
func (ix *Indexer) Filter() *pathfilter.Filter {
	return ix.filter
}

// Snapshot returns the most recent snapshot, or nil before IndexDir.
func (ix *Indexer) Snapshot() *Snapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.current
}

// IndexDir parses every accepted file under root and installs the result
// as the current snapshot.
//
// Description:
//
//	Directories matching an ignore pattern are not entered. Files are
//	parsed concurrently, at most Workers at a time. A file that cannot be
//	read or parsed is recorded in Snapshot.Errors and does not fail the run.
//
// Outputs:
//
//	*Snapshot - The new snapshot. Never nil on success.
//	error - Non-nil if root is unusable or ctx is canceled.
func (ix *Indexer) IndexDir(ctx context.Context, root string) (*Snapshot, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve index root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat index root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", abs, ErrNotDirectory)
	}

	ctx, span := telemetry.StartSpan(ctx, tracerName, "Indexer.IndexDir",
		trace.WithAttributes(
			attribute.String("index.root", abs),
			attribute.Int("index.workers", ix.workers),
		),
	)
	defer span.End()

	snap := newSnapshot(abs)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)

	walkErr := filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := gctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := relPath(abs, p)
		if relErr != nil {
			return relErr
		}
		if err != nil {
			if p == abs {
				return err
			}
			mu.Lock()
			snap.Errors[rel] = err.Error()
			mu.Unlock()
			return nil
		}
		if d.IsDir() {
			if rel != "." && ix.filter.Ignored(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !ix.filter.Accepts(rel) {
			return nil
		}

		g.Go(func() error {
			result, cached, err := ix.parseFile(gctx, abs, rel)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				snap.Files[rel] = result
				if cached {
					snap.CacheHits++
				}
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				snap.Errors[rel] = err.Error()
			}
			return nil
		})
		return nil
	})

	groupErr := g.Wait()
	if err := errors.Join(walkErr, groupErr); err != nil {
		telemetry.SetStatus(span, err)
		return nil, fmt.Errorf("index %s: %w", abs, err)
	}

	snap.CompletedAt = time.Now()
	ix.install(snap)

	if ix.prune && ix.cache != nil {
		keep := make(map[string]bool, len(snap.Files))
		for p := range snap.Files {
			keep[p] = true
		}
		if _, err := ix.cache.Prune(ctx, keep); err != nil {
			ix.logger.Warn("cache prune failed", slog.String("error", err.Error()))
		}
	}

	stats := snap.Stats()
	span.SetAttributes(
		attribute.Int("index.files", stats.Files),
		attribute.Int("index.errors", stats.Errors),
		attribute.Int("index.cache_hits", stats.CacheHits),
	)
	telemetry.SetStatus(span, nil)

	telemetry.LoggerWithTrace(ctx, ix.logger).Info("indexed directory",
		slog.String("root", abs),
		slog.String("run_id", snap.RunID),
		slog.Int("files", stats.Files),
		slog.Int("symbols", stats.Symbols()),
		slog.Int("errors", stats.Errors),
		slog.Int("cache_hits", stats.CacheHits),
		slog.Duration("duration", snap.CompletedAt.Sub(snap.StartedAt)),
	)
	return snap, nil
}

// IndexFile re-parses one file and installs an updated snapshot. path may
// be absolute or relative to the snapshot root.
//
// A file the filter rejects is treated like a removal. A read or parse
// failure is recorded in the snapshot's Errors and also returned.
func (ix *Indexer) IndexFile(ctx context.Context, path string) (*ast.ParseResult, error) {
	base := ix.Snapshot()
	if base == nil {
		return nil, ErrNoSnapshot
	}
	rel, err := ix.rootRelative(base.Root, path)
	if err != nil {
		return nil, err
	}
	if !ix.filter.Accepts(rel) {
		ix.removeRel(rel)
		return nil, nil
	}

	ctx, span := telemetry.StartSpan(ctx, tracerName, "Indexer.IndexFile",
		trace.WithAttributes(attribute.String("index.file", rel)),
	)
	defer span.End()

	result, _, err := ix.parseFile(ctx, base.Root, rel)

	ix.mu.Lock()
	next := ix.current.clone()
	if err != nil {
		delete(next.Files, rel)
		next.Errors[rel] = err.Error()
	} else {
		next.Files[rel] = result
		delete(next.Errors, rel)
	}
	ix.current = next
	ix.mu.Unlock()

	telemetry.SetStatus(span, err)
	if err != nil {
		return nil, err
	}
	telemetry.LoggerWithTrace(ctx, ix.logger).Debug("indexed file",
		slog.String("file", rel),
		slog.Int("symbols", result.SymbolCount()),
	)
	return result, nil
}

// Remove drops path from the current snapshot and the cache. Removing an
// unknown path is not an error.
func (ix *Indexer) Remove(ctx context.Context, path string) error {
	base := ix.Snapshot()
	if base == nil {
		return ErrNoSnapshot
	}
	rel, err := ix.rootRelative(base.Root, path)
	if err != nil {
		return err
	}
	ix.removeRel(rel)
	if ix.cache != nil {
		if err := ix.cache.Delete(ctx, rel); err != nil {
			ix.logger.Warn("cache delete failed",
				slog.String("file", rel),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

func (ix *Indexer) removeRel(rel string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, inFiles := ix.current.Files[rel]
	_, inErrors := ix.current.Errors[rel]
	if !inFiles && !inErrors {
		return
	}
	next := ix.current.clone()
	delete(next.Files, rel)
	delete(next.Errors, rel)
	ix.current = next
}

func (ix *Indexer) install(snap *Snapshot) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.current = snap
}

// parseFile returns the parse result for root/rel, from cache when the
// stored hash matches the file's current content.
func (ix *Indexer) parseFile(ctx context.Context, root, rel string) (*ast.ParseResult, bool, error) {
	parser, err := ix.registry.ForFile(rel)
	if err != nil {
		return nil, false, err
	}

	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", rel, err)
	}

	hash := cache.ContentHash(content)
	if ix.cache != nil {
		result, err := ix.cache.Get(ctx, rel, hash)
		if err == nil {
			return result, true, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			ix.logger.Warn("cache read failed",
				slog.String("file", rel),
				slog.String("error", err.Error()),
			)
		}
	}

	result, err := parser.Parse(ctx, content, rel)
	if err != nil {
		return nil, false, ast.WrapParseError(err, rel)
	}

	if ix.cache != nil {
		if err := ix.cache.Put(ctx, result); err != nil {
			ix.logger.Warn("cache write failed",
				slog.String("file", rel),
				slog.String("error", err.Error()),
			)
		}
	}
	return result, false, nil
}

func (ix *Indexer) rootRelative(root, path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	rel, err := relPath(root, path)
	if err != nil {
		return "", err
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideRoot)
	}
	return rel, nil
}

func relPath(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("relative path of %s: %w", path, err)
	}
	return filepath.ToSlash(rel), nil
}

// newRunID is a variable so tests can pin run identifiers.
var newRunID = func() string {
	return uuid.NewString()
}
