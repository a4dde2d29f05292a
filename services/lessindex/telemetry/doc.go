// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires OpenTelemetry tracing and metrics for lessindex.
//
// Parser and cache spans and instruments are created against the global
// otel providers, so they are no-ops until Init installs real ones.
//
// # Exporters
//
// Traces go to "otlp" (gRPC), "stdout" or "none". Metrics go to
// "prometheus", "stdout" or "none". The Prometheus exporter gets its own
// registry; Providers.MetricsHandler serves it.
//
// # Usage
//
//	p, err := telemetry.Init(ctx, telemetry.FromConfig(cfg.Telemetry))
//	if err != nil {
//	    return fmt.Errorf("init telemetry: %w", err)
//	}
//	defer p.Shutdown(context.Background())
//
// # Environment Variables
//
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint (default: localhost:4317)
//   - OTEL_TRACES_EXPORTER: otlp, stdout, or none (default: none)
//   - OTEL_METRICS_EXPORTER: prometheus, stdout, or none (default: none)
//   - LESSINDEX_ENV: environment name (default: development)
package telemetry
