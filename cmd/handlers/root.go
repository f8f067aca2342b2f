// Package handlers wires the CLI commands: index, search, remove and
// migrate, each a thin shell around the core packages.
package handlers

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mroidx/searchcore/internal/config"
	"github.com/mroidx/searchcore/internal/logx"
	"github.com/mroidx/searchcore/internal/store"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "searchcore",
	Short: "searchcore maintains and queries a full-text search index of web pages",
	Long: `searchcore ingests rendered HTML pages into a persistent inverted
index and answers ranked keyword queries against it using TF-IDF cosine
similarity, with phrase, wildcard, required/excluded and fuzzy clauses.

Examples:
  # Apply the schema
  searchcore migrate up

  # Index a page
  searchcore index https://example.com/docs page.html --pid 1 --title "Docs"

  # Query the index
  searchcore search "quick +brown -fox" --limit 10

  # Drop a page
  searchcore remove https://example.com/docs`,
}

// Execute adds all child commands to the root command and runs it. Called
// once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .searchcore.yaml)")

	rootCmd.AddCommand(NewIndexCmd())
	rootCmd.AddCommand(NewSearchCmd())
	rootCmd.AddCommand(NewRemoveCmd())
	rootCmd.AddCommand(NewMigrateCmd())
}

func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logx.Init()
}

func openStore(ctx context.Context) (*store.Postgres, error) {
	return store.Open(ctx, config.Get().Database.ConnectionString)
}

func parsePIDList(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")

	pids := make([]int64, 0, len(parts))

	for _, p := range parts {
		pid, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid pid %q: %w", p, err)
		}

		pids = append(pids, pid)
	}

	return pids, nil
}
