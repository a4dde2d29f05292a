// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/lessindex/services/lessindex/ast"
	store "github.com/AleutianAI/lessindex/services/lessindex/storage/badger"
)

func newTestCache(t *testing.T) *SymbolCache {
	t.Helper()
	c, err := Open(store.InMemoryConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func parse(t *testing.T, path, src string) *ast.ParseResult {
	t.Helper()
	result, err := ast.NewLessParser().Parse(context.Background(), []byte(src), path)
	require.NoError(t, err)
	return result
}

func TestSymbolCache_GetPut(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	src := "@a: 1;\n.m(@x) {}"
	result := parse(t, "a.less", src)

	_, err := c.Get(ctx, "a.less", result.Hash)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Put(ctx, result))

	got, err := c.Get(ctx, "a.less", ContentHash([]byte(src)))
	require.NoError(t, err)
	assert.Equal(t, result.Hash, got.Hash)
	require.Len(t, got.Symbols, 2)
	assert.Equal(t, ast.SymbolKindMixin, got.Symbols[1].Kind)
	assert.Len(t, got.Symbols[1].Children, 1)
}

func TestSymbolCache_StaleHash(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Put(ctx, parse(t, "a.less", "@a: 1;")))

	_, err := c.Get(ctx, "a.less", ContentHash([]byte("@a: 2;")))
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSymbolCache_DeleteLenPaths(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	for _, p := range []string{"b.less", "a.less", "c/d.less"} {
		require.NoError(t, c.Put(ctx, parse(t, p, "@a: 1;")))
	}

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	paths, err := c.Paths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.less", "b.less", "c/d.less"}, paths)

	require.NoError(t, c.Delete(ctx, "b.less"))
	require.NoError(t, c.Delete(ctx, "missing.less"))

	n, err = c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSymbolCache_Prune(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	for _, p := range []string{"a.less", "b.less", "c.less"} {
		require.NoError(t, c.Put(ctx, parse(t, p, "@a: 1;")))
	}

	removed, err := c.Prune(ctx, map[string]bool{"b.less": true})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	paths, err := c.Paths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.less"}, paths)
}

func TestSymbolCache_PutValidation(t *testing.T) {
	c := newTestCache(t)
	assert.Error(t, c.Put(context.Background(), nil))
	assert.Error(t, c.Put(context.Background(), &ast.ParseResult{}))
}

func TestSymbolCache_Closed(t *testing.T) {
	ctx := context.Background()
	c, err := Open(store.InMemoryConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.Get(ctx, "a.less", "")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Put(ctx, &ast.ParseResult{FilePath: "a.less"}), ErrClosed)
	assert.ErrorIs(t, c.Delete(ctx, "a.less"), ErrClosed)
	_, err = c.Len(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSymbolCache_SharedStore(t *testing.T) {
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	c := New(db, nil)
	require.NoError(t, c.Put(context.Background(), parse(t, "a.less", "@a: 1;")))
	require.NoError(t, c.Close())

	// The store stays open for its owner.
	n, err := db.CountPrefix(context.Background(), []byte(KeyPrefix))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestContentHash(t *testing.T) {
	result := parse(t, "a.less", "@a: 1;")
	assert.Equal(t, result.Hash, ContentHash([]byte("@a: 1;")))
	assert.NotEqual(t, ContentHash([]byte("a")), ContentHash([]byte("b")))
}
