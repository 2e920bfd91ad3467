// Package cmd provides the stash command-line interface.
//
// Configuration is loaded from multiple sources with clear precedence:
// command-line flags first, then environment variables with the STASH_
// prefix (STASH_SHELF_BACKEND, STASH_SERVER_PORT, ...), then the
// .stash.yml configuration file.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "stash",
	Short: "Compile declarative content modules into shelved site routes",
	Long: `Stash compiles a tree of declaratively-annotated content modules into
routable site entries and persists the computed per-route contexts in a
key-value store, the shelf, so that expensive content generation stays
decoupled from request serving.

Quick start:
  stash shelve mysite             Compile the content tree and shelve it
  stash list mysite               List shelved routes
  stash serve mysite              Run the development server

The shelf backend defaults to a local SQLite file and is selected with
shelf.backend (sqlite, memory, mongo) in .stash.yml.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .stash.yml)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("content", "", "content tree root (default is ./content)")
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("content.root", rootCmd.PersistentFlags().Lookup("content"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("STASH_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".stash")
	}

	viper.SetEnvPrefix("STASH")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
