package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mroidx/searchcore/internal/config"
	"github.com/mroidx/searchcore/internal/docmodel"
	"github.com/mroidx/searchcore/internal/search"
)

// NewSearchCmd creates the search command, which runs a ranked query
// against the index and prints one result per line.
func NewSearchCmd() *cobra.Command {
	var (
		orSearch  bool
		fuzzy     bool
		pids      string
		limit     int
		offset    int
		minLength int
		locale    string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a ranked query against the index",
		Long: `Run a ranked query against the index.

The query language supports "quoted phrases", prefix* wildcards, +required
and -excluded terms. With --fuzzy every plain term matches as a substring
of indexed terms instead.

Example:
  searchcore search '+quick -fox "brown dogs"' --limit 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pidList, err := parsePIDList(pids)
			if err != nil {
				return err
			}

			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			cfg := config.Get()
			if locale == "" {
				locale = cfg.Search.DefaultLocale
			}

			if minLength == 0 {
				minLength = cfg.Search.MinTermLength
			}

			rs, err := search.New(st).SearchFor(ctx, args[0], docmodel.SearchOptions{
				OrSearch:  orSearch,
				PIDs:      pidList,
				Limit:     limit,
				Offset:    offset,
				Fuzzy:     fuzzy,
				MinLength: minLength,
				Locale:    locale,
			})
			if err != nil {
				return err
			}

			for _, row := range rs.Rows {
				fmt.Printf("%10.8f  %s  [%s]\n", row.Relevance, row.Document.URL, row.MatchList())
			}

			fmt.Printf("%d result(s)\n", rs.Total)

			return nil
		},
	}

	cmd.Flags().BoolVar(&orSearch, "or", false, "treat plain terms as optional (OR semantics)")
	cmd.Flags().BoolVar(&fuzzy, "fuzzy", false, "match plain terms as substrings of indexed terms")
	cmd.Flags().StringVar(&pids, "pids", "", "comma-separated list of permitted pids")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of rows to return (0 = no limit)")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of ranked rows to skip")
	cmd.Flags().IntVar(&minLength, "min-length", 0, "drop plain terms shorter than this (default from config)")
	cmd.Flags().StringVar(&locale, "locale", "", "locale tag for query tokenization (default from config)")

	return cmd
}
