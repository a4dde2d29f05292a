// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger owns the embedded BadgerDB store behind the symbol cache.
//
// Keys are opaque to this package. It opens the store, keeps the value log
// compacted in the background, and offers transaction and prefix helpers
// that honor a context.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var (
	// ErrPathRequired is returned by Open when an on-disk store has no path.
	ErrPathRequired = errors.New("path is required for persistent database")

	// ErrInvalidGC is returned by Open when GC is enabled with a discard
	// ratio outside (0, 1).
	ErrInvalidGC = errors.New("gc discard ratio must be between 0 and 1")
)

// Config describes a store.
type Config struct {
	// Path is the store directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in memory; nothing touches disk.
	InMemory bool

	// SyncWrites fsyncs every commit. Cache entries can be rebuilt from
	// source, so this is off by default.
	SyncWrites bool

	// Logger receives BadgerDB's own log lines. Nil silences them.
	Logger *slog.Logger

	// GCInterval is the period of value log GC. Zero disables it; it is
	// never run for in-memory stores.
	GCInterval time.Duration

	// GCDiscardRatio is passed to RunValueLogGC.
	GCDiscardRatio float64
}

// DefaultConfig returns the on-disk defaults for a store at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a store configuration for tests and one-shot runs.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

func (c Config) options() (badger.Options, error) {
	if c.InMemory {
		return c.tune(badger.DefaultOptions("").WithInMemory(true)), nil
	}
	if c.Path == "" {
		return badger.Options{}, ErrPathRequired
	}
	if err := os.MkdirAll(c.Path, 0750); err != nil {
		return badger.Options{}, fmt.Errorf("create database directory %s: %w", c.Path, err)
	}
	return c.tune(badger.DefaultOptions(c.Path)), nil
}

func (c Config) tune(opts badger.Options) badger.Options {
	opts = opts.WithSyncWrites(c.SyncWrites).WithNumVersionsToKeep(1)
	if c.Logger == nil {
		return opts.WithLogger(nil)
	}
	return opts.WithLogger(slogAdapter{c.Logger.With(slog.String("component", "badger"))})
}

func (c Config) gcEnabled() bool {
	return !c.InMemory && c.GCInterval > 0
}

// slogAdapter satisfies badger.Logger.
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) log(level slog.Level, format string, args []any) {
	if !a.l.Enabled(context.Background(), level) {
		return
	}
	a.l.Log(context.Background(), level, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (a slogAdapter) Errorf(format string, args ...any)   { a.log(slog.LevelError, format, args) }
func (a slogAdapter) Warningf(format string, args ...any) { a.log(slog.LevelWarn, format, args) }
func (a slogAdapter) Infof(format string, args ...any)    { a.log(slog.LevelInfo, format, args) }
func (a slogAdapter) Debugf(format string, args ...any)   { a.log(slog.LevelDebug, format, args) }

// DB is an open store.
//
// Thread Safety: Safe for concurrent use.
type DB struct {
	*badger.DB
	path     string
	inMemory bool
	logger   *slog.Logger

	stopGC context.CancelFunc
	gcDone chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// Open opens the store described by cfg and, for on-disk stores with a
// GC interval, starts value log GC in the background.
func Open(cfg Config) (*DB, error) {
	if cfg.gcEnabled() && (cfg.GCDiscardRatio <= 0 || cfg.GCDiscardRatio >= 1) {
		return nil, ErrInvalidGC
	}
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	db := &DB{
		DB:       bdb,
		path:     cfg.Path,
		inMemory: cfg.InMemory,
		logger:   cfg.Logger,
	}
	if cfg.gcEnabled() {
		ctx, cancel := context.WithCancel(context.Background())
		db.stopGC = cancel
		db.gcDone = make(chan struct{})
		go db.gcLoop(ctx, cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return db, nil
}

// OpenInMemory opens an empty in-memory store.
func OpenInMemory() (*DB, error) {
	return Open(InMemoryConfig())
}

func (d *DB) gcLoop(ctx context.Context, interval time.Duration, ratio float64) {
	defer close(d.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.collect(ctx, ratio)
		}
	}
}

// collect rewrites value log files until badger reports nothing left to
// reclaim.
func (d *DB) collect(ctx context.Context, ratio float64) {
	rewrites := 0
	for ctx.Err() == nil {
		err := d.DB.RunValueLogGC(ratio)
		if err == nil {
			rewrites++
			continue
		}
		if !errors.Is(err, badger.ErrNoRewrite) && d.logger != nil {
			d.logger.Warn("value log GC failed", slog.String("error", err.Error()))
		}
		break
	}
	if rewrites > 0 && d.logger != nil {
		d.logger.Debug("value log GC", slog.Int("rewrites", rewrites))
	}
}

// Close stops background GC and closes the store. Later calls return the
// result of the first.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		if d.stopGC != nil {
			d.stopGC()
			<-d.gcDone
		}
		d.closeErr = d.DB.Close()
	})
	return d.closeErr
}

// Path returns the store directory; it is empty for in-memory stores.
func (d *DB) Path() string {
	return d.path
}

// InMemory reports whether the store lives only in memory.
func (d *DB) InMemory() bool {
	return d.inMemory
}

// WithTxn runs fn in a read-write transaction, committing when fn returns
// nil and discarding otherwise.
func (d *DB) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	return d.txn(ctx, true, fn)
}

// WithReadTxn runs fn in a read-only transaction.
func (d *DB) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	return d.txn(ctx, false, fn)
}

func (d *DB) txn(ctx context.Context, update bool, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	txn := d.DB.NewTransaction(update)
	defer txn.Discard()

	if err := fn(txn); err != nil {
		return err
	}
	if !update {
		return nil
	}
	return txn.Commit()
}

// ForEachPrefix calls fn for every entry under prefix in key order. It
// stops at the first error from fn or when ctx is done. key and value are
// only valid for the duration of the call.
func (d *DB) ForEachPrefix(ctx context.Context, prefix []byte, fn func(key, value []byte) error) error {
	return d.scan(ctx, prefix, true, func(item *badger.Item) error {
		return item.Value(func(val []byte) error {
			return fn(item.Key(), val)
		})
	})
}

// CountPrefix returns the number of keys under prefix.
func (d *DB) CountPrefix(ctx context.Context, prefix []byte) (int, error) {
	n := 0
	err := d.scan(ctx, prefix, false, func(*badger.Item) error {
		n++
		return nil
	})
	return n, err
}

func (d *DB) scan(ctx context.Context, prefix []byte, values bool, fn func(*badger.Item) error) error {
	return d.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = values
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(it.Item()); err != nil {
				return err
			}
		}
		return nil
	})
}
