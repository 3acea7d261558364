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
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/AleutianAI/pyoutline/services/outline/output"
	badgerstore "github.com/AleutianAI/pyoutline/services/outline/storage/badger"
	"github.com/spf13/cobra"
)

func (a *app) historyCmd() *cobra.Command {
	history := &cobra.Command{
		Use:   "history",
		Short: "Inspect stored analysis snapshots",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list <file>",
		Short: "List snapshots of a file, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			inputPath := filepath.Join(a.cfg.InputDir, args[0])
			snapshots, err := store.List(cmd.Context(), inputPath, limit)
			if err != nil {
				return err
			}
			return a.printSnapshots(snapshots)
		},
	}
	list.Flags().IntVar(&limit, "limit", badgerstore.DefaultListLimit, "maximum snapshots to list")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored snapshot in the configured format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			result, _, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			format, err := output.ParseFormat(a.cfg.Format)
			if err != nil {
				return err
			}
			document, err := output.Encode(result, format)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "%s\n", document)
			return err
		},
	}

	history.AddCommand(list, show)
	return history
}

func (a *app) printSnapshots(snapshots []*badgerstore.SnapshotMetadata) error {
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tIMPORTS\tFUNCTIONS\tCLASSES")
	for _, s := range snapshots {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n",
			s.SnapshotID, s.CreatedAt.Local().Format(time.DateTime), s.Imports, s.Functions, s.Classes)
	}
	return tw.Flush()
}
