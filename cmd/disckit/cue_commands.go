package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"disckit/internal/cuesheet"
	"disckit/internal/merge"
)

func newFixCueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fix-cue <title-dir>",
		Short: "Rewrite a missing or broken CUE sheet from the track files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := ctx.loadTitle(args[0])
			if err != nil {
				return err
			}
			res, err := cuesheet.Fix(t.DirectoryPath, t.SheetPath, t.TrackFiles, ctx.backupPolicy())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !res.Rewritten {
				fmt.Fprintf(out, "%s: sheet is valid\n", res.Path)
				return nil
			}
			fmt.Fprintf(out, "%s: rewritten (%s)\n", res.Path, res.Reason)
			if res.BackupPath != "" {
				fmt.Fprintf(out, "Backup: %s\n", res.BackupPath)
			}
			return nil
		},
	}
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <title-dir>",
		Short: "Merge a title's track files into a single track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := ctx.loadTitle(args[0])
			if err != nil {
				return err
			}
			merger := merge.NewMerger(ctx.backupPolicy(), ctx.loggerValue())
			res, err := merger.Merge(cmd.Context(), t.DirectoryPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.String())
			return nil
		},
	}
}
