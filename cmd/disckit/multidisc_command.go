package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"disckit/internal/cu2"
	"disckit/internal/multidisc"
	"disckit/internal/runlock"
	"disckit/internal/title"
)

func newMultiDiscCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "multidisc",
		Short: "Consolidate multi-disc releases into single titles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if err := cfg.RequireLibrary(); err != nil {
				return err
			}
			titles, err := title.Scan(cmd.Context(), cfg.Paths.LibraryDir)
			if err != nil {
				return err
			}
			groups, _ := multidisc.Plan(titles)
			out := cmd.OutOrStdout()
			if len(groups) == 0 {
				fmt.Fprintln(out, "No multi-disc releases found")
				return nil
			}

			if dryRun {
				rows := make([][]string, 0)
				for _, g := range groups {
					for _, d := range g.Discs {
						rows = append(rows, []string{
							g.TargetName(),
							string(g.Kind),
							strconv.Itoa(d.Number),
							filepath.Base(d.SourceDir),
							strconv.Itoa(len(d.Files)),
						})
					}
				}
				headers := []string{"Target", "Kind", "Disc", "Source", "Files"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))
				return nil
			}

			lock, err := runlock.Acquire(cfg.Paths.LibraryDir)
			if err != nil {
				return err
			}
			defer lock.Release()

			var companions *cu2.Generator
			if cfg.Processing.CompanionIndex {
				companions = cu2.NewGenerator(ctx.backupPolicy(), ctx.loggerValue())
			}
			consolidator := multidisc.NewConsolidator(ctx.backupPolicy(), companions, ctx.loggerValue())
			colorize := shouldColorize(out)
			var firstErr error
			for _, g := range groups {
				_, res, err := consolidator.Consolidate(cmd.Context(), g)
				if err != nil {
					fmt.Fprintln(out, renderStatusLine(g.TargetName(), statusError, err.Error(), colorize))
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				msg := fmt.Sprintf("%d discs, manifest %s", len(res.Tracks), filepath.Base(res.Manifest))
				fmt.Fprintln(out, renderStatusLine(g.TargetName(), statusOK, msg, colorize))
			}
			return firstErr
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the plan without touching the library")
	return cmd
}
