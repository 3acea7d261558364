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
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/AleutianAI/pyoutline/services/outline"
	"github.com/AleutianAI/pyoutline/services/outline/config"
	badgerstore "github.com/AleutianAI/pyoutline/services/outline/storage/badger"
	"github.com/AleutianAI/pyoutline/services/outline/telemetry"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// errMissingArgument is returned when a command needs a file name.
var errMissingArgument = errors.New("missing source file argument")

// app holds flag values and the resources opened for one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	format     string
	roots      []string
	storeDir   string
	logLevel   string
	trace      bool

	cfg     *config.Config
	logger  *slog.Logger
	store   *badgerstore.Store
	closers []func()
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "outline <file>...",
		Short: "Summarize imports, functions and classes of Python files",
		Long: `outline parses Python source files and writes one structured summary
per file: the imports (resolved to files where possible), every function
with its parameters, return type and calls, and every class with its methods.

File names are relative to the configured input directory (input-files by
default); summaries go to parsed-files/<stem>.json and to standard output.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		Args:              requireFiles,
		RunE:              a.runAnalyze,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./"+config.DefaultFileName+" if present)")
	flags.StringVar(&a.format, "format", "", "output format: json or yaml")
	flags.StringSliceVar(&a.roots, "roots", nil, "project roots for absolute imports (default: directory of each file)")
	flags.StringVar(&a.storeDir, "store", "", "snapshot history directory (disabled when empty)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flags.BoolVar(&a.trace, "trace", false, "write OpenTelemetry spans to stderr")

	root.AddCommand(a.analyzeCmd(), a.watchCmd(), a.serveCmd(), a.historyCmd())
	return root
}

// setup configures logging and tracing, then loads the config and applies
// flag overrides.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(a.stderr, a.logLevel)
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)

	if a.trace {
		shutdown, err := telemetry.InitTracing(a.stderr)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				a.logger.Warn("trace shutdown failed", slog.Any("error", err))
			}
		})
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Format = a.format
	}
	if flags.Changed("roots") {
		cfg.ProjectRoots = a.roots
	}
	if flags.Changed("store") {
		cfg.StoreDir = a.storeDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// service builds a Service, opening the snapshot store when configured.
func (a *app) service() (*outline.Service, error) {
	opts := []outline.ServiceOption{outline.WithLogger(a.logger)}
	if a.cfg.StoreDir != "" {
		store, err := a.openStore()
		if err != nil {
			return nil, err
		}
		opts = append(opts, outline.WithStore(store))
	}
	return outline.NewService(a.cfg, opts...)
}

func (a *app) openStore() (*badgerstore.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	if a.cfg.StoreDir == "" {
		return nil, fmt.Errorf("snapshot history is disabled: set --store or store_dir")
	}
	store, err := badgerstore.Open(a.cfg.StoreDir, a.logger)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, func() {
		if err := store.Close(); err != nil {
			a.logger.Warn("closing snapshot store failed", slog.Any("error", err))
		}
	})
	return store, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// printError writes a one-line diagnostic to stderr.
func (a *app) printError(err error) {
	style := lipgloss.NewRenderer(a.stderr).NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	fmt.Fprintln(a.stderr, style.Render("error: ")+err.Error())
}

// newLogger returns a text handler for terminals and a JSON handler
// otherwise.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}

// requireFiles enforces at least one positional file name.
func requireFiles(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: usage: outline <file>...", errMissingArgument)
	}
	return nil
}
