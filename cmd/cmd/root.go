// Package cmd defines the clarion CLI: `serve` runs the HTTP server, `ask`
// answers one question from the terminal.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clarion",
	Short: "Clarion answers research questions with cited web sources.",
	Long: `Clarion is a citation-backed answer engine. It decomposes a question
into search sub-queries, fetches and ranks the results, learns per-user
content preferences from clicks, and streams a synthesized answer in which
every claim cites its source.

Run 'clarion serve' to start the HTTP API, or 'clarion ask' to answer a
single question from the command line.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.clarion.yaml or $HOME/.clarion.yaml)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAskCmd())
}
