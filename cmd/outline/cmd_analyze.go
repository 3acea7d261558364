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
	"fmt"

	"github.com/AleutianAI/pyoutline/services/outline"
	"github.com/spf13/cobra"
)

func (a *app) analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Analyze files and write their summaries",
		Args:  requireFiles,
		RunE:  a.runAnalyze,
	}
}

// runAnalyze analyzes every named file and prints each document on stdout.
func (a *app) runAnalyze(cmd *cobra.Command, args []string) error {
	svc, err := a.service()
	if err != nil {
		return err
	}

	reports, err := svc.AnalyzeFiles(cmd.Context(), args)
	if err != nil {
		return err
	}
	for _, report := range reports {
		if err := a.printReport(report); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) printReport(report *outline.FileReport) error {
	if _, err := fmt.Fprintf(a.stdout, "%s\n", report.Document); err != nil {
		return fmt.Errorf("writing to stdout: %w", err)
	}
	return nil
}
