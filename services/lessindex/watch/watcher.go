// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch reports debounced stylesheet changes under a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/lessindex/services/lessindex/pathfilter"
)

// ErrNilHandler is returned by New when no handler is given.
var ErrNilHandler = errors.New("change handler must not be nil")

// FileOp is the kind of change.
type FileOp int

const (
	FileOpCreate FileOp = iota
	FileOpWrite
	FileOpRemove
	FileOpRename
)

var opNames = [...]string{"create", "write", "remove", "rename"}

func (op FileOp) String() string {
	if op < 0 || int(op) >= len(opNames) {
		return "unknown"
	}
	return opNames[op]
}

// Gone reports whether the file no longer exists under its path.
func (op FileOp) Gone() bool {
	return op == FileOpRemove || op == FileOpRename
}

func opOf(op fsnotify.Op) FileOp {
	switch {
	case op.Has(fsnotify.Remove):
		return FileOpRemove
	case op.Has(fsnotify.Rename):
		return FileOpRename
	case op.Has(fsnotify.Create):
		return FileOpCreate
	default:
		return FileOpWrite
	}
}

// FileChange is one change to an accepted file.
type FileChange struct {
	// Path is absolute.
	Path string

	// Rel is Path relative to the watch root, slash-separated.
	Rel string

	Op   FileOp
	Time time.Time
}

// FileChangeHandler receives each debounced batch. It is always called
// from the same goroutine.
type FileChangeHandler func(changes []FileChange)

// Options configures a FileWatcher. Zero fields take their defaults.
type Options struct {
	// Debounce is the quiet period that closes a batch. Default 100ms.
	Debounce time.Duration

	// MaxBatch flushes a batch early once it holds this many distinct
	// paths. Default 500.
	MaxBatch int

	// Filter selects reported files and pruned directories. Nil reports
	// everything.
	Filter *pathfilter.Filter

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = 100 * time.Millisecond
	}
	if o.MaxBatch <= 0 {
		o.MaxBatch = 500
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// batch collects changes keyed by path. A later change to a path replaces
// the earlier one but keeps its place.
type batch struct {
	changes []FileChange
	at      map[string]int
}

func (b *batch) add(c FileChange) {
	if i, ok := b.at[c.Path]; ok {
		b.changes[i] = c
		return
	}
	if b.at == nil {
		b.at = make(map[string]int)
	}
	b.at[c.Path] = len(b.changes)
	b.changes = append(b.changes, c)
}

func (b *batch) len() int {
	return len(b.changes)
}

// take returns the collected changes and empties the batch.
func (b *batch) take() []FileChange {
	out := b.changes
	b.changes = nil
	clear(b.at)
	return out
}

// FileWatcher watches a directory tree and delivers debounced batches.
//
// Thread Safety: Safe for concurrent use.
type FileWatcher struct {
	root    string
	handler FileChangeHandler
	opts    Options
	fsw     *fsnotify.Watcher

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	exited  chan struct{}
}

// New creates a watcher for root. Nothing is watched until Start.
func New(root string, handler FileChangeHandler, opts Options) (*FileWatcher, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root %s: %w", root, err)
	}
	return &FileWatcher{
		root:    abs,
		handler: handler,
		opts:    opts.withDefaults(),
	}, nil
}

// Root returns the absolute watch root.
func (w *FileWatcher) Root() string {
	return w.root
}

// Start watches every directory under the root that the filter does not
// ignore and returns once the watches are in place. Starting a running
// watcher does nothing.
//
// Delivery ends when ctx is done or Stop is called; the pending batch is
// flushed first.
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	w.fsw = fsw
	if err := w.watchTree(w.root); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", w.root, err)
	}

	w.running = true
	w.stop = make(chan struct{})
	w.exited = make(chan struct{})
	go w.loop(ctx, w.stop, w.exited)

	w.opts.Logger.Debug("watching directory", slog.String("root", w.root))
	return nil
}

// Stop ends delivery, waits for the final flush and releases the
// underlying watches. It may be called any number of times.
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stop)
	<-w.exited
	if err := w.fsw.Close(); err != nil {
		w.opts.Logger.Warn("close fsnotify watcher", slog.String("error", err.Error()))
	}
	w.running = false
}

// IsWatching reports whether the watcher has been started and not stopped.
func (w *FileWatcher) IsWatching() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *FileWatcher) loop(ctx context.Context, stop <-chan struct{}, exited chan<- struct{}) {
	defer close(exited)

	var pending batch
	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	flush := func() {
		timer.Stop()
		if pending.len() > 0 {
			w.handler(pending.take())
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-stop:
			flush()
			return
		case <-timer.C:
			flush()
		case err, ok := <-w.fsw.Errors:
			if ok {
				w.opts.Logger.Warn("watch error", slog.String("error", err.Error()))
			}
		case ev, ok := <-w.fsw.Events:
			if !ok {
				flush()
				return
			}
			for _, c := range w.changesFor(ev) {
				pending.add(c)
			}
			switch {
			case pending.len() >= w.opts.MaxBatch:
				flush()
			case pending.len() > 0:
				timer.Reset(w.opts.Debounce)
			}
		}
	}
}

// changesFor maps one fsnotify event to the changes it implies. A new
// directory is watched and its existing files reported as created, since
// they may have been written before the watch was added.
func (w *FileWatcher) changesFor(ev fsnotify.Event) []FileChange {
	if ev.Op == fsnotify.Chmod {
		return nil
	}
	rel := w.rel(ev.Name)
	now := time.Now()

	if ev.Has(fsnotify.Create) && isDir(ev.Name) {
		if w.ignored(rel) {
			return nil
		}
		if err := w.watchTree(ev.Name); err != nil {
			w.opts.Logger.Warn("watch new directory",
				slog.String("path", ev.Name),
				slog.String("error", err.Error()),
			)
		}
		var out []FileChange
		w.walk(ev.Name, func(p, rel string) {
			out = append(out, FileChange{Path: p, Rel: rel, Op: FileOpCreate, Time: now})
		})
		return out
	}

	if !w.accepts(rel) {
		return nil
	}
	return []FileChange{{Path: ev.Name, Rel: rel, Op: opOf(ev.Op), Time: now}}
}

// watchTree adds dir and its non-ignored subdirectories.
func (w *FileWatcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		switch {
		case err != nil && p == dir:
			return err
		case err != nil || !d.IsDir():
			return nil
		case p != w.root && w.ignored(w.rel(p)):
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

// walk calls fn for every accepted file under dir.
func (w *FileWatcher) walk(dir string, fn func(path, rel string)) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel := w.rel(p)
		if d.IsDir() {
			if p != dir && w.ignored(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.accepts(rel) {
			fn(p, rel)
		}
		return nil
	})
}

func (w *FileWatcher) rel(p string) string {
	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}

func (w *FileWatcher) ignored(rel string) bool {
	return w.opts.Filter != nil && w.opts.Filter.Ignored(rel)
}

func (w *FileWatcher) accepts(rel string) bool {
	return w.opts.Filter == nil || w.opts.Filter.Accepts(rel)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
