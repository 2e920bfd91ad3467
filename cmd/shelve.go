package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stashware/stash/internal/diag"
	"github.com/stashware/stash/internal/stash"
)

var shelveCmd = &cobra.Command{
	Use:   "shelve [site]",
	Short: "Compile the content tree and push the site's contexts onto the shelf",
	Long: `Compile every content module under the content root, aggregate the
resolved contexts into the site's route table, and push each route onto
the shelf. Broken modules are reported and skipped; each route is written
in its own transaction, so the operation is safely re-runnable.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShelve,
}

func init() {
	rootCmd.AddCommand(shelveCmd)
}

func runShelve(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadApp()
	if err != nil {
		return err
	}
	site, err := siteArg(args, cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	dc := diag.NewCollector()

	registry, err := stash.Compile(ctx, cfg.Content.Root, dc, logger)
	if err != nil {
		return err
	}

	sh, err := openShelf(ctx, cfg, dc)
	if err != nil {
		return err
	}
	defer sh.Close()

	count := 0
	for _, route := range registry.Routes(site) {
		if err := sh.Put(ctx, route.Site, route.Rule, route.Context); err != nil {
			return fmt.Errorf("shelving %s: %w", route.Rule, err)
		}
		count++
	}

	reportWarnings(ctx, logger, dc)
	fmt.Printf("shelved %d routes for site %s\n", count, site)
	return nil
}
