package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"disckit/internal/catalog"
	"disckit/internal/covers"
	"disckit/internal/identify"
)

func newCoverCommand(ctx *commandContext) *cobra.Command {
	var productID string

	cmd := &cobra.Command{
		Use:   "cover <title-dir>",
		Short: "Write the cover bitmap for a title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			t, err := ctx.loadTitle(args[0])
			if err != nil {
				return err
			}
			if productID == "" {
				primary := t.PrimaryTrack()
				if primary == "" {
					return fmt.Errorf("%s: no track files", t.DirectoryName)
				}
				extractor := identify.NewExtractor(cfg.Processing.IdentifyISOFallback, ctx.loggerValue())
				if productID, err = extractor.Identify(cmd.Context(), primary); err != nil {
					return err
				}
			}

			apply := func(chain covers.Chain, cache covers.Cache) error {
				applier := covers.NewApplier(chain, cache, covers.OptionsFromConfig(cfg), ctx.loggerValue())
				return applier.Apply(cmd.Context(), productID, t.CoverPath())
			}
			dir := covers.DirProvider{Dir: cfg.Paths.CoversDir}
			if cfg.Processing.CatalogEnabled {
				err = ctx.withCatalog(func(store *catalog.Store) error {
					return apply(covers.Chain{dir, store}, store)
				})
			} else {
				err = apply(covers.Chain{dir}, nil)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: cover written for %s\n", t.CoverPath(), productID)
			return nil
		},
	}

	cmd.Flags().StringVar(&productID, "id", "", "Product identifier to look up instead of reading the track")
	return cmd
}
