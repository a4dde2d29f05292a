// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command lessindex tokenizes LESS stylesheets and indexes their
// variables, mixins and imports.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/lessindex/pkg/logging"
	"github.com/AleutianAI/lessindex/pkg/ux"
	"github.com/AleutianAI/lessindex/services/lessindex/config"
	"github.com/AleutianAI/lessindex/services/lessindex/telemetry"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the state shared by every subcommand of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	format     string

	cfg    config.Config
	logs   *logging.Logger
	logger *slog.Logger
	out    *ux.Output
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "lessindex",
		Short: "Index variables, mixins and imports in LESS stylesheets",
		Long: `lessindex tokenizes LESS stylesheets and extracts their top-level
variables, mixin definitions and @import statements. It can index a whole
directory, cache results between runs, and keep the index current while
files change.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", config.DefaultFileName, "path to the lessindex config file")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides the config)")
	pf.StringVarP(&a.format, "format", "f", formatText, "output format: text, json or yaml")

	root.AddCommand(
		a.newTokensCmd(),
		a.newSymbolsCmd(),
		a.newIndexCmd(),
		a.newWatchCmd(),
		a.newConfigCmd(),
	)
	return root
}

// setup loads the config and prepares logging and output.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := a.setupOutput(cmd, args); err != nil {
		return err
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
	}
	a.cfg = cfg
	if err := a.openLogs(); err != nil {
		return err
	}
	a.logger.Debug("config loaded", slog.String("path", a.configPath))
	return nil
}

// setupOutput prepares output without reading the config file.
func (a *app) setupOutput(_ *cobra.Command, _ []string) error {
	if !validFormat(a.format) {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, a.format)
	}
	a.cfg = config.DefaultConfig()
	a.out = ux.NewOutput(a.stdout, a.personality())
	return a.openLogs()
}

// openLogs replaces any logger from an earlier setup step with one built
// from the current config.
func (a *app) openLogs() error {
	if err := a.teardown(nil, nil); err != nil {
		return err
	}
	logs, err := logging.New(logging.Config{
		Level:   a.cfg.Log.SlogLevel(),
		Output:  a.stderr,
		JSON:    a.cfg.Log.Format == "json",
		LogDir:  a.cfg.Log.Dir,
		Service: "lessindex",
	})
	if err != nil {
		return fmt.Errorf("open logs: %w", err)
	}
	a.logs = logs
	a.logger = logs.Slog()
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) error {
	if a.logs == nil {
		return nil
	}
	err := a.logs.Close()
	a.logs = nil
	return err
}

func (a *app) personality() ux.PersonalityLevel {
	if f, ok := a.stdout.(*os.File); ok {
		return ux.DetectPersonality(f)
	}
	return ux.PersonalityMachine
}

// startTelemetry installs the configured exporters. The returned stop
// function flushes them.
func (a *app) startTelemetry(ctx context.Context) (*telemetry.Providers, func(), error) {
	p, err := telemetry.Init(ctx, telemetry.FromConfig(a.cfg.Telemetry))
	if err != nil {
		return nil, nil, fmt.Errorf("init telemetry: %w", err)
	}
	return p, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Shutdown(sctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}, nil
}
