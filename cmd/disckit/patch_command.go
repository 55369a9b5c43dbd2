package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"disckit/internal/ppf"
)

func newPatchCommand(ctx *commandContext) *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "patch <track-file> <ppf-file>",
		Short: "Apply or undo a PPF patch on a track file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := ppf.Apply
			if undo {
				mode = ppf.Undo
			}
			patcher := ppf.NewPatcher(ctx.backupPolicy(), ctx.loggerValue())
			res, err := patcher.PatchFile(cmd.Context(), args[0], args[1], mode)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "PPF%d.0 patch: %s\n", res.Version, res.Description)
			if res.FileID != "" {
				fmt.Fprintf(out, "File ID:\n%s\n", res.FileID)
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}
			if res.BackupPath != "" {
				fmt.Fprintf(out, "Backup: %s\n", res.BackupPath)
			}
			verb := "Applied"
			if undo {
				verb = "Undid"
			}
			fmt.Fprintf(out, "%s %d records\n", verb, res.Records)
			return nil
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "Restore the original bytes from the patch's undo data")
	return cmd
}
