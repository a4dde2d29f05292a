// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("lessindex.ast")
	meter  = otel.Meter("lessindex.ast")
)

// Parse outcomes recorded on lessindex_parse_total.
const (
	outcomeOK       = "ok"
	outcomeTooLarge = "too_large"
	outcomeInvalid  = "invalid_utf8"
	outcomeCanceled = "canceled"
)

// parseInstruments holds the parser's OTel instruments. A nil
// *parseInstruments records nothing.
type parseInstruments struct {
	duration metric.Float64Histogram
	parses   metric.Int64Counter
	symbols  metric.Int64Counter
	imports  metric.Int64Counter
}

var (
	instrumentsOnce sync.Once
	instruments     *parseInstruments
)

// sharedInstruments creates the package instruments on first use. If the
// meter rejects them the error goes to the global OTel handler and
// metrics stay off.
func sharedInstruments() *parseInstruments {
	instrumentsOnce.Do(func() {
		inst, err := newParseInstruments(meter)
		if err != nil {
			otel.Handle(err)
			return
		}
		instruments = inst
	})
	return instruments
}

func newParseInstruments(m metric.Meter) (*parseInstruments, error) {
	var (
		inst parseInstruments
		err  error
	)
	if inst.duration, err = m.Float64Histogram(
		"lessindex_parse_duration_seconds",
		metric.WithDescription("Time spent parsing one stylesheet"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("parse duration histogram: %w", err)
	}
	if inst.parses, err = m.Int64Counter(
		"lessindex_parse_total",
		metric.WithDescription("Stylesheets parsed, by outcome"),
	); err != nil {
		return nil, fmt.Errorf("parse counter: %w", err)
	}
	if inst.symbols, err = m.Int64Counter(
		"lessindex_symbols_total",
		metric.WithDescription("Symbols extracted, by kind"),
	); err != nil {
		return nil, fmt.Errorf("symbol counter: %w", err)
	}
	if inst.imports, err = m.Int64Counter(
		"lessindex_imports_total",
		metric.WithDescription("@import statements found, by classification"),
	); err != nil {
		return nil, fmt.Errorf("import counter: %w", err)
	}
	return &inst, nil
}

// parse records one Parse call and how it ended.
func (pi *parseInstruments) parse(ctx context.Context, outcome string, elapsed time.Duration) {
	if pi == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("language", LessLanguage),
		attribute.String("outcome", outcome),
	)
	pi.duration.Record(ctx, elapsed.Seconds(), attrs)
	pi.parses.Add(ctx, 1, attrs)
}

// result counts the symbols of a successful parse, parameters included,
// and classifies its imports.
func (pi *parseInstruments) result(ctx context.Context, r *ParseResult) {
	if pi == nil || r == nil {
		return
	}

	counts := make(map[SymbolKind]int64, 4)
	for _, s := range r.Symbols {
		counts[s.Kind]++
		for _, c := range s.Children {
			counts[c.Kind]++
		}
	}
	for kind, n := range counts {
		pi.symbols.Add(ctx, n, metric.WithAttributes(attribute.String("kind", kind.String())))
	}

	for _, imp := range r.Imports {
		pi.imports.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("dynamic", imp.IsDynamic),
			attribute.Bool("css", imp.IsCSS),
			attribute.Bool("reference", imp.IsReference),
		))
	}
}

func startParseSpan(ctx context.Context, filePath string, contentSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "LessParser.Parse",
		trace.WithAttributes(
			attribute.String("less.file", filePath),
			attribute.Int("less.content_size", contentSize),
		),
	)
}

func setParseSpanResult(span trace.Span, r *ParseResult) {
	span.SetAttributes(
		attribute.Int("less.symbol_count", len(r.Symbols)),
		attribute.Int("less.import_count", len(r.Imports)),
		attribute.Int("less.error_count", len(r.Errors)),
	)
}
