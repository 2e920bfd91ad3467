package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stashware/stash/internal/diag"
)

var dropCmd = &cobra.Command{
	Use:   "drop [site] [rule]",
	Short: "Drop a site or a single rule from the shelf",
	Args:  cobra.MaximumNArgs(2),
	RunE:  runDrop,
}

func init() {
	rootCmd.AddCommand(dropCmd)
}

func runDrop(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadApp()
	if err != nil {
		return err
	}
	site, err := siteArg(args, cfg)
	if err != nil {
		return err
	}
	rule := ruleArg(args)

	ctx := cmd.Context()
	sh, err := openShelf(ctx, cfg, diag.NewCollector())
	if err != nil {
		return err
	}
	defer sh.Close()

	if err := sh.Drop(ctx, site, rule); err != nil {
		return err
	}

	if rule == "" {
		fmt.Printf("dropped %s\n", site)
	} else {
		fmt.Printf("dropped %s %s\n", site, rule)
	}
	return nil
}
