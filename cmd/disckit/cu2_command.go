package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"disckit/internal/cu2"
)

func newCU2Command(ctx *commandContext) *cobra.Command {
	var keepSheets bool

	cmd := &cobra.Command{
		Use:   "cu2 <title-dir>",
		Short: "Generate companion index files and retire the CUE sheets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := ctx.loadTitle(args[0])
			if err != nil {
				return err
			}
			sheets := t.SheetPaths()
			if keepSheets {
				sheets = nil
			}
			gen := cu2.NewGenerator(ctx.backupPolicy(), ctx.loggerValue())
			res, err := gen.GenerateTitle(cmd.Context(), t.TrackPaths(), sheets)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range res.Companions {
				fmt.Fprintf(out, "Wrote %s\n", path)
			}
			for _, path := range res.RemovedSheets {
				fmt.Fprintf(out, "Removed %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&keepSheets, "keep-sheets", false, "Leave the CUE sheets in place")
	return cmd
}
