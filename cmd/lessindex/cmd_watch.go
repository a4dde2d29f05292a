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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/lessindex/pkg/ux"
	"github.com/AleutianAI/lessindex/services/lessindex/index"
	"github.com/AleutianAI/lessindex/services/lessindex/telemetry"
	"github.com/AleutianAI/lessindex/services/lessindex/watch"
)

type watchOptions struct {
	noCache     bool
	metricsAddr string
}

func (a *app) newWatchCmd() *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:   "watch DIR",
		Short: "Index a directory and re-index files as they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("metrics-addr") {
				opts.metricsAddr = a.cfg.Telemetry.MetricsAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runWatch(ctx, args[0], opts)
		},
	}
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "do not read or write the symbol cache")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics at this address, e.g. :9090")
	return cmd
}

// runWatch blocks until ctx is canceled or the metrics server fails.
func (a *app) runWatch(ctx context.Context, root string, opts watchOptions) error {
	if opts.metricsAddr != "" {
		a.cfg.Telemetry.MetricExporter = telemetry.ExporterPrometheus
	}
	providers, stopTelemetry, err := a.startTelemetry(ctx)
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
	a.printStats(snap)

	g, gctx := errgroup.WithContext(ctx)

	w, err := watch.New(snap.Root, a.applyChanges(gctx, ix), watch.Options{
		Debounce: a.cfg.Watch.Debounce,
		Filter:   ix.Filter(),
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}
	if err := w.Start(gctx); err != nil {
		return err
	}
	defer w.Stop()
	a.out.Muted("watching " + snap.Root)

	if opts.metricsAddr != "" {
		srv := newMetricsServer(opts.metricsAddr, providers.MetricsHandler())
		g.Go(func() error {
			a.logger.Info("serving metrics", slog.String("addr", opts.metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}

// newMetricsServer serves h at /metrics, or 503 when h is nil.
func newMetricsServer(addr string, h http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		if h == nil {
			http.Error(w, "metrics exporter not enabled", http.StatusServiceUnavailable)
			return
		}
		h.ServeHTTP(w, r)
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// applyChanges returns the watcher handler that keeps ix current and
// reports each change.
func (a *app) applyChanges(ctx context.Context, ix *index.Indexer) watch.FileChangeHandler {
	return func(changes []watch.FileChange) {
		for _, c := range changes {
			if c.Op.Gone() {
				if err := ix.Remove(ctx, c.Path); err != nil {
					a.out.FileStatus(c.Rel, ux.IconError, err.Error())
					continue
				}
				a.out.FileStatus(c.Rel, ux.IconPending, "removed")
				continue
			}

			result, err := ix.IndexFile(ctx, c.Path)
			switch {
			case err != nil:
				a.out.FileStatus(c.Rel, ux.IconError, err.Error())
			case result != nil:
				a.out.FileStatus(c.Rel, ux.IconSuccess, fmt.Sprintf("%d symbols", result.SymbolCount()))
			}
		}
	}
}
