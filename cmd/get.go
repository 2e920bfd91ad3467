package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stashware/stash/internal/diag"
	"github.com/stashware/stash/internal/shelf"
)

var (
	getOutput string
	getModule string
)

var getCmd = &cobra.Command{
	Use:   "get [site] [rule]",
	Short: "Export shelved entries to a transfer bundle",
	Long: `Export a site's shelf entries, optionally filtered to one rule, as a
transfer bundle that stash put can load into any other shelf.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "shelf.json", "Bundle file to write")
	getCmd.Flags().StringVarP(&getModule, "module", "m", "", "Record a module name in the bundle")
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadApp()
	if err != nil {
		return err
	}
	site, err := siteArg(args, cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	sh, err := openShelf(ctx, cfg, diag.NewCollector())
	if err != nil {
		return err
	}
	defer sh.Close()

	bundle, err := shelf.Export(ctx, sh, site, ruleArg(args), getModule)
	if err != nil {
		return err
	}
	data, err := shelf.EncodeBundle(bundle)
	if err != nil {
		return err
	}
	if err := os.WriteFile(getOutput, data, 0o644); err != nil {
		return fmt.Errorf("writing bundle: %w", err)
	}

	fmt.Printf("%s created with %d entries\n", getOutput, len(bundle.Entries))
	return nil
}
