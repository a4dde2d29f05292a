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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("lessindex.cache")

// lookup outcomes, recorded as the "result" attribute.
const (
	lookupHit    = "hit"
	lookupAbsent = "absent"
	lookupStale  = "stale"
	lookupError  = "error"
)

// instruments holds the cache's counters. A nil *instruments records
// nothing.
type instruments struct {
	lookups metric.Int64Counter
	latency metric.Float64Histogram
	writes  metric.Int64Counter
	evicted metric.Int64Counter
}

var (
	globalInstOnce sync.Once
	globalInst     *instruments
)

// globalInstruments builds the instruments against the global meter
// provider on first use.
func globalInstruments() *instruments {
	globalInstOnce.Do(func() {
		inst, err := newInstruments(otel.Meter("lessindex.cache"))
		if err != nil {
			otel.Handle(err)
			return
		}
		globalInst = inst
	})
	return globalInst
}

func newInstruments(m metric.Meter) (*instruments, error) {
	lookups, err := m.Int64Counter("lessindex_cache_lookups_total",
		metric.WithDescription("Symbol cache lookups, by result"))
	if err != nil {
		return nil, err
	}
	latency, err := m.Float64Histogram("lessindex_cache_lookup_duration_seconds",
		metric.WithDescription("Time to read and decode a cache entry"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	writes, err := m.Int64Counter("lessindex_cache_writes_total",
		metric.WithDescription("Parse results written to the symbol cache"))
	if err != nil {
		return nil, err
	}
	evicted, err := m.Int64Counter("lessindex_cache_evictions_total",
		metric.WithDescription("Entries removed because their file left the tree"))
	if err != nil {
		return nil, err
	}
	return &instruments{lookups: lookups, latency: latency, writes: writes, evicted: evicted}, nil
}

func (in *instruments) lookup(ctx context.Context, result string, elapsed time.Duration) {
	if in == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("result", result))
	in.lookups.Add(ctx, 1, attrs)
	in.latency.Record(ctx, elapsed.Seconds(), attrs)
}

func (in *instruments) write(ctx context.Context) {
	if in == nil {
		return
	}
	in.writes.Add(ctx, 1)
}

func (in *instruments) evict(ctx context.Context, n int) {
	if in == nil || n == 0 {
		return
	}
	in.evicted.Add(ctx, int64(n))
}

// span starts "SymbolCache.<op>" for one file.
func span(ctx context.Context, op, filePath string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "SymbolCache."+op, trace.WithAttributes(
		attribute.String("cache.op", op),
		attribute.String("less.file", filePath),
	))
}
