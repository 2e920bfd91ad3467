package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stashware/stash/internal/diag"
)

var listWithContext bool

var listCmd = &cobra.Command{
	Use:   "list [site] [rule]",
	Short: "List shelved entries for a site",
	Long: `List the shelf entries for a site, optionally filtered to one rule.

Examples:
  stash list mysite               # All rules for the site
  stash list mysite /news/        # One rule
  stash list mysite -c            # Include each entry's context`,
	Args: cobra.MaximumNArgs(2),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVarP(&listWithContext, "context", "c", false, "Show each entry's context")
}

func runList(cmd *cobra.Command, args []string) error {
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

	keys, err := sh.List(ctx, site, ruleArg(args))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		if listWithContext {
			v, err := sh.Get(ctx, k.Site, k.Rule)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%v\n", k.Site, k.Rule, v)
		} else {
			fmt.Fprintf(w, "%s\t%s\n", k.Site, k.Rule)
		}
	}
	return w.Flush()
}
