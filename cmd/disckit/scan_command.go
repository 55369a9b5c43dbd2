package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"disckit/internal/identify"
	"disckit/internal/multidisc"
	"disckit/internal/staging"
	"disckit/internal/title"
)

type scanRow struct {
	Title      string   `json:"title"`
	Path       string   `json:"path"`
	ProductID  string   `json:"product_id,omitempty"`
	DiscNumber int      `json:"disc_number"`
	Tracks     int      `json:"tracks"`
	Sheet      string   `json:"sheet,omitempty"`
	IndexFile  bool     `json:"has_index_file"`
	CoverArt   bool     `json:"has_cover_art"`
	MultiDisc  bool     `json:"multi_disc"`
	Related    []string `json:"related_disc_paths,omitempty"`
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var withIDs bool
	var clean bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List the titles in the library",
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
			extractor := identify.NewExtractor(cfg.Processing.IdentifyISOFallback, ctx.loggerValue())

			groups, _ := multidisc.Plan(titles)
			related := make(map[string]bool)
			for _, g := range groups {
				for _, m := range g.Members {
					related[m.DirectoryPath] = true
				}
			}

			rows := make([]scanRow, 0, len(titles))
			for _, t := range titles {
				row := scanRow{
					Title:      t.DirectoryName,
					Path:       t.DirectoryPath,
					DiscNumber: t.DiscNumber,
					Tracks:     len(t.TrackFiles),
					IndexFile:  t.HasIndexFile,
					CoverArt:   t.HasCoverArt,
					MultiDisc:  related[t.DirectoryPath],
					Related:    t.RelatedDiscPaths,
				}
				if t.SheetPath != "" {
					row.Sheet = filepath.Base(t.SheetPath)
				}
				if withIDs {
					if primary := t.PrimaryTrack(); primary != "" {
						id, err := extractor.Identify(cmd.Context(), primary)
						if err != nil {
							fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", t.DirectoryName, err)
						}
						row.ProductID = id
					}
				}
				rows = append(rows, row)
			}

			leftovers, err := staging.ListLeftovers(cfg.Paths.LibraryDir)
			if err != nil {
				return err
			}
			if clean {
				res := staging.CleanStale(cmd.Context(), cfg.Paths.LibraryDir, 0, ctx.loggerValue())
				for _, e := range res.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "cleanup %s: %v\n", e.Path, e.Error)
				}
				leftovers = nil
			}

			if asJSON {
				return writeJSON(cmd, rows)
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No titles found")
			} else {
				tableRows := make([][]string, 0, len(rows))
				for _, r := range rows {
					tableRows = append(tableRows, []string{
						r.Title,
						r.ProductID,
						strconv.Itoa(r.Tracks),
						r.Sheet,
						yesNo(r.IndexFile),
						yesNo(r.CoverArt),
						yesNo(r.MultiDisc),
					})
				}
				headers := []string{"Title", "Product ID", "Tracks", "Sheet", "CU2", "Cover", "Multi-disc"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft}
				fmt.Fprintln(out, renderTable(headers, tableRows, aligns))
			}
			for _, lo := range leftovers {
				fmt.Fprintf(out, "Leftover from an interrupted run: %s (%s old; run 'disckit scan --clean')\n",
					lo.Path, time.Since(lo.ModTime).Round(time.Minute))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withIDs, "ids", false, "Read product identifiers from the track files")
	cmd.Flags().BoolVar(&clean, "clean", false, "Remove leftovers of interrupted runs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
