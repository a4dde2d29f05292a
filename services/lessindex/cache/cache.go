// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache persists parse results in BadgerDB, keyed by file path and
// validated by content hash.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/lessindex/services/lessindex/ast"
	store "github.com/AleutianAI/lessindex/services/lessindex/storage/badger"
)

// KeyPrefix namespaces every cache key. The version segment changes when
// the stored entry layout does.
const KeyPrefix = "lessindex:v1:"

var (
	// ErrCacheMiss is returned by Get when no fresh entry exists.
	ErrCacheMiss = errors.New("cache miss")

	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("cache closed")
)

// entry is the stored value layout.
type entry struct {
	Hash     string           `json:"hash"`
	StoredAt int64            `json:"stored_at_milli"`
	Result   *ast.ParseResult `json:"result"`
}

// SymbolCache maps file paths to their last parse result.
//
// Thread Safety: Safe for concurrent use.
type SymbolCache struct {
	db     *store.DB
	ownsDB bool
	logger *slog.Logger
	inst   *instruments
	closed atomic.Bool
}

// New wraps an open store. The caller keeps ownership of db.
func New(db *store.DB, logger *slog.Logger) *SymbolCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &SymbolCache{db: db, logger: logger, inst: globalInstruments()}
}

// Open opens a store with cfg and returns a cache that closes it on Close.
func Open(cfg store.Config, logger *slog.Logger) (*SymbolCache, error) {
	db, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open symbol cache: %w", err)
	}
	c := New(db, logger)
	c.ownsDB = true
	return c, nil
}

// ContentHash returns the hex SHA256 of content, matching ParseResult.Hash.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func key(filePath string) []byte {
	return []byte(KeyPrefix + filePath)
}

// Get returns the cached result for filePath if it was stored for content
// with the given hash.
//
// Returns ErrCacheMiss when there is no entry or the entry is stale.
func (c *SymbolCache) Get(ctx context.Context, filePath, hash string) (*ast.ParseResult, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	ctx, sp := span(ctx, "Get", filePath)
	defer sp.End()
	start := time.Now()

	e, err := c.read(ctx, filePath)
	result := lookupHit
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		result, err = lookupAbsent, ErrCacheMiss
	case err != nil:
		result, err = lookupError, fmt.Errorf("read cache entry %s: %w", filePath, err)
	case e.Hash != hash || e.Result == nil:
		result, err = lookupStale, ErrCacheMiss
	}
	c.inst.lookup(ctx, result, time.Since(start))
	sp.SetAttributes(attribute.String("cache.result", result))

	if err != nil {
		return nil, err
	}
	return e.Result, nil
}

func (c *SymbolCache) read(ctx context.Context, filePath string) (entry, error) {
	var e entry
	err := c.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(key(filePath))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	return e, err
}

// Put stores result under result.FilePath, tagged with result.Hash.
func (c *SymbolCache) Put(ctx context.Context, result *ast.ParseResult) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if result == nil || result.FilePath == "" {
		return errors.New("result with a file path is required")
	}

	ctx, sp := span(ctx, "Put", result.FilePath)
	defer sp.End()

	data, err := json.Marshal(entry{
		Hash:     result.Hash,
		StoredAt: time.Now().UnixMilli(),
		Result:   result,
	})
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", result.FilePath, err)
	}

	err = c.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(key(result.FilePath), data)
	})
	if err != nil {
		return fmt.Errorf("write cache entry %s: %w", result.FilePath, err)
	}

	c.inst.write(ctx)
	return nil
}

// Delete removes the entry for filePath. Deleting a missing entry is not
// an error.
func (c *SymbolCache) Delete(ctx context.Context, filePath string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	err := c.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Delete(key(filePath))
	})
	if err != nil {
		return fmt.Errorf("delete cache entry %s: %w", filePath, err)
	}
	return nil
}

// Len returns the number of cached files.
func (c *SymbolCache) Len(ctx context.Context) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	return c.db.CountPrefix(ctx, []byte(KeyPrefix))
}

// Paths returns the cached file paths in key order.
func (c *SymbolCache) Paths(ctx context.Context) ([]string, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	paths := make([]string, 0)
	err := c.db.ForEachPrefix(ctx, []byte(KeyPrefix), func(k, _ []byte) error {
		paths = append(paths, strings.TrimPrefix(string(k), KeyPrefix))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	return paths, nil
}

// Prune deletes every entry whose path is not in keep and returns how many
// were removed.
func (c *SymbolCache) Prune(ctx context.Context, keep map[string]bool) (int, error) {
	paths, err := c.Paths(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range paths {
		if keep[p] {
			continue
		}
		if err := c.Delete(ctx, p); err != nil {
			return removed, err
		}
		removed++
	}

	c.inst.evict(ctx, removed)
	if removed > 0 {
		c.logger.Debug("pruned symbol cache", slog.Int("removed", removed))
	}
	return removed, nil
}

// Close marks the cache closed and closes the store if the cache opened it.
func (c *SymbolCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.ownsDB {
		return c.db.Close()
	}
	return nil
}
