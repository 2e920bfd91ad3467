package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stashware/stash/internal/diag"
	"github.com/stashware/stash/internal/shelf"
)

var putCmd = &cobra.Command{
	Use:   "put <bundle>",
	Short: "Load a transfer bundle onto the shelf",
	Args:  cobra.ExactArgs(1),
	RunE:  runPut,
}

func init() {
	rootCmd.AddCommand(putCmd)
}

func runPut(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadApp()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading bundle: %w", err)
	}
	bundle, err := shelf.DecodeBundle(data)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	sh, err := openShelf(ctx, cfg, diag.NewCollector())
	if err != nil {
		return err
	}
	defer sh.Close()

	if err := shelf.Load(ctx, sh, bundle); err != nil {
		return err
	}

	fmt.Printf("loaded %d entries for site %s\n", len(bundle.Entries), bundle.Site)
	return nil
}
