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
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/AleutianAI/pyoutline/services/outline/watch"
	"github.com/spf13/cobra"
)

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>...",
		Short: "Analyze files, then re-analyze each one whenever it is saved",
		Args:  requireFiles,
		RunE:  a.runWatch,
	}
}

func (a *app) runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := a.service()
	if err != nil {
		return err
	}

	reports, err := svc.AnalyzeFiles(ctx, args)
	if err != nil {
		return err
	}

	names := make(map[string]string, len(args))
	paths := make([]string, 0, len(reports))
	for _, report := range reports {
		if err := a.printReport(report); err != nil {
			return err
		}
		abs, err := filepath.Abs(report.InputPath)
		if err != nil {
			return err
		}
		names[abs] = report.Name
		paths = append(paths, abs)
	}

	w, err := watch.NewWatcher(paths, watch.WithLogger(a.logger))
	if err != nil {
		return err
	}
	a.logger.Info("watching for changes", slog.Int("files", len(paths)))

	return w.Run(ctx, func(ctx context.Context, path string) {
		report, err := svc.AnalyzeFile(ctx, names[path])
		if err != nil {
			a.printError(err)
			return
		}
		if err := a.printReport(report); err != nil {
			a.logger.Error("printing report failed", slog.Any("error", err))
		}
	})
}
