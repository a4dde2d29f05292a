// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOpenInMemory verifies in-memory database creation works.
func TestOpenInMemory(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, db.InMemory())
	assert.Empty(t, db.Path())

	err = db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("key"), []byte("value"))
	})
	require.NoError(t, err)

	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("key"))
		require.NoError(t, err)

		return item.Value(func(val []byte) error {
			assert.Equal(t, []byte("value"), val)
			return nil
		})
	})
	require.NoError(t, err)
}

// TestOpen_Persistent verifies data survives a close and reopen.
func TestOpen_Persistent(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	assert.Equal(t, dir, db.Path())

	err = db.WithTxn(context.Background(), func(txn *badger.Txn) error {
		return txn.Set([]byte("persistent-key"), []byte("persistent-value"))
	})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db2, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer db2.Close()

	err = db2.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("persistent-key"))
		require.NoError(t, err)

		return item.Value(func(val []byte) error {
			assert.Equal(t, []byte("persistent-value"), val)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.ErrorIs(t, err, ErrPathRequired)
}

func TestDB_CloseTwice(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)

	require.NoError(t, db.Close())
	assert.NoError(t, db.Close())
}

func TestDB_WithTxn(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	t.Run("rolls back on error", func(t *testing.T) {
		sentinel := errors.New("boom")
		err := db.WithTxn(context.Background(), func(txn *badger.Txn) error {
			if err := txn.Set([]byte("rolled-back"), []byte("x")); err != nil {
				return err
			}
			return sentinel
		})
		require.ErrorIs(t, err, sentinel)

		err = db.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
			_, err := txn.Get([]byte("rolled-back"))
			return err
		})
		assert.ErrorIs(t, err, badger.ErrKeyNotFound)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := db.WithTxn(ctx, func(txn *badger.Txn) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)

		err = db.WithReadTxn(ctx, func(txn *badger.Txn) error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDB_Prefix(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	err = db.WithTxn(ctx, func(txn *badger.Txn) error {
		for _, k := range []string{"a:1", "a:2", "a:3", "b:1"} {
			if err := txn.Set([]byte(k), []byte("v-"+k)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	count, err := db.CountPrefix(ctx, []byte("a:"))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	var keys []string
	err = db.ForEachPrefix(ctx, []byte("a:"), func(key, value []byte) error {
		keys = append(keys, string(key))
		assert.Equal(t, "v-"+string(key), string(value))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a:1", "a:2", "a:3"}, keys)

	stop := errors.New("stop")
	calls := 0
	err = db.ForEachPrefix(ctx, []byte("a:"), func(key, value []byte) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestOpen_GCConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func(dir string) Config
		wantErr error
		wantGC  bool
	}{
		{"defaults", DefaultConfig, nil, true},
		{"disabled", func(dir string) Config {
			cfg := DefaultConfig(dir)
			cfg.GCInterval = 0
			return cfg
		}, nil, false},
		{"zero ratio", func(dir string) Config {
			cfg := DefaultConfig(dir)
			cfg.GCDiscardRatio = 0
			return cfg
		}, ErrInvalidGC, false},
		{"ratio of one", func(dir string) Config {
			cfg := DefaultConfig(dir)
			cfg.GCDiscardRatio = 1
			return cfg
		}, ErrInvalidGC, false},
		{"in memory ignores gc", func(string) Config {
			cfg := InMemoryConfig()
			cfg.GCInterval = time.Second
			return cfg
		}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := Open(tt.cfg(t.TempDir()))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantGC, db.gcDone != nil)
			require.NoError(t, db.Close())
		})
	}
}

func TestOpen_GCLoopStopsOnClose(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	cfg.GCInterval = 10 * time.Millisecond

	db, err := Open(cfg)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, db.Close())

	select {
	case <-db.gcDone:
	default:
		t.Fatal("gc loop still running after Close")
	}
}

func TestDB_CollectLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()
	db.logger = logger

	// Value log GC is not supported in memory.
	db.collect(context.Background(), 0.5)
	assert.Contains(t, buf.String(), "value log GC failed")
}

func TestSlogAdapter(t *testing.T) {
	var buf bytes.Buffer
	a := slogAdapter{slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))}

	a.Infof("opened %d tables\n", 3)
	a.Debugf("hidden")
	a.Warningf("slow")
	a.Errorf("broken")

	out := buf.String()
	assert.Contains(t, out, `msg="opened 3 tables"`)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=WARN msg=slow")
	assert.Contains(t, out, "level=ERROR msg=broken")
}
