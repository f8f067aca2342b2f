package handlers

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mroidx/searchcore/internal/config"
	"github.com/mroidx/searchcore/internal/docmodel"
	"github.com/mroidx/searchcore/internal/htmlx"
	"github.com/mroidx/searchcore/internal/index"
)

// NewIndexCmd creates the index command, which ingests one page's HTML
// from a file into the search index.
func NewIndexCmd() *cobra.Command {
	var (
		pid       int64
		title     string
		language  string
		protected bool
		groups    string
		filesize  string
	)

	cmd := &cobra.Command{
		Use:   "index <url> <html-file>",
		Short: "Index one page's rendered HTML",
		Long: `Index one page's rendered HTML into the search index.

The URL identifies the page; the HTML is read from the given file. Pages
already indexed with identical content are skipped; re-indexing a changed
page rewrites its postings in place.

Example:
  searchcore index https://example.com/docs page.html --pid 1 --title "Docs" --language en`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			raw, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[1], err)
			}

			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if language == "" {
				language = config.Get().Search.DefaultLocale
			}

			var groupList []string
			if strings.TrimSpace(groups) != "" {
				groupList = strings.Split(groups, ",")
			}

			ix := index.New(htmlx.New(), st)

			inserted, err := ix.IndexPage(ctx, docmodel.IndexInput{
				PageMeta: docmodel.PageMeta{
					URL:       args[0],
					PID:       pid,
					Title:     title,
					Language:  language,
					Protected: protected,
					Groups:    groupList,
					Filesize:  filesize,
				},
				RawHTML: string(raw),
			})
			if err != nil {
				return err
			}

			if inserted {
				fmt.Printf("indexed %s (new document)\n", args[0])
			} else {
				fmt.Printf("indexed %s (unchanged or updated in place)\n", args[0])
			}

			return nil
		},
	}

	cmd.Flags().Int64Var(&pid, "pid", 0, "parent/group key the page is scoped to")
	cmd.Flags().StringVar(&title, "title", "", "page title")
	cmd.Flags().StringVar(&language, "language", "", "locale tag for word segmentation (default from config)")
	cmd.Flags().BoolVar(&protected, "protected", false, "mark the page as protected")
	cmd.Flags().StringVar(&groups, "groups", "", "comma-separated access groups")
	cmd.Flags().StringVar(&filesize, "filesize", "", "pre-formatted filesize (computed from HTML length if empty)")

	return cmd
}
