package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"disckit/internal/identify"
)

type identifyRow struct {
	Target    string `json:"target"`
	Track     string `json:"track"`
	ProductID string `json:"product_id"`
}

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var isoFallback bool

	cmd := &cobra.Command{
		Use:   "identify <title-dir|track-file>...",
		Short: "Read the product identifier of titles or track files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			fallback := cfg.Processing.IdentifyISOFallback
			if cmd.Flags().Changed("iso-fallback") {
				fallback = isoFallback
			}
			extractor := identify.NewExtractor(fallback, ctx.loggerValue())

			rows := make([]identifyRow, 0, len(args))
			for _, arg := range args {
				track := arg
				if info, err := os.Stat(arg); err != nil || info.IsDir() {
					t, err := ctx.loadTitle(arg)
					if err != nil {
						return err
					}
					track = t.PrimaryTrack()
					if track == "" {
						return fmt.Errorf("%s: no track files", t.DirectoryName)
					}
				}
				id, err := extractor.Identify(cmd.Context(), track)
				if err != nil {
					return err
				}
				rows = append(rows, identifyRow{Target: arg, Track: track, ProductID: id})
			}

			if asJSON {
				return writeJSON(cmd, rows)
			}
			out := cmd.OutOrStdout()
			if len(rows) == 1 {
				fmt.Fprintln(out, rows[0].ProductID)
				return nil
			}
			tableRows := make([][]string, 0, len(rows))
			for _, r := range rows {
				tableRows = append(tableRows, []string{r.Target, r.ProductID})
			}
			fmt.Fprintln(out, renderTable([]string{"Target", "Product ID"}, tableRows, []columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&isoFallback, "iso-fallback", false, "Read SYSTEM.CNF when the leading bytes carry no identifier")
	return cmd
}
