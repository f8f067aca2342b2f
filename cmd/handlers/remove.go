package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mroidx/searchcore/internal/htmlx"
	"github.com/mroidx/searchcore/internal/index"
)

// NewRemoveCmd creates the remove command, which drops a page and its
// postings from the index.
func NewRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <url>",
		Short: "Remove a page from the index",
		Long: `Remove a page from the index by URL.

The document row and its postings are deleted and every term it was the
last document for is purged from the dictionary. Removing a URL that was
never indexed is a no-op.

Example:
  searchcore remove https://example.com/docs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := index.New(htmlx.New(), st).RemoveEntry(ctx, args[0]); err != nil {
				return err
			}

			fmt.Printf("removed %s\n", args[0])

			return nil
		},
	}
}
