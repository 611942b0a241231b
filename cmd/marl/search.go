package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marldb/marl/pkg/query"
)

var (
	searchFilters []string
	searchSort    string
	searchDesc    bool
	searchLimit   int
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <container>",
	Short: "Filter, sort, and limit records in a container",
	Long: `Filter records by attribute=value pairs, then sort and limit the
result. The name attribute matches as a case-insensitive substring; all
other attributes match exactly.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		filter := query.Filter{}
		for _, pair := range searchFilters {
			key, value, ok := strings.Cut(pair, "=")
			if !ok || key == "" {
				fmt.Fprintf(os.Stderr, "Error: --filter must be attribute=value, got %q\n", pair)
				os.Exit(1)
			}
			filter[key] = value
		}

		ctx := context.Background()
		client := openClient(ctx, true)
		defer client.Close()

		coll, err := containerStore(client, args[0]).Search(ctx, filter, query.Options{
			Sort:       searchSort,
			Descending: searchDesc,
			Limit:      searchLimit,
		})
		emit(coll, err)
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringArrayVarP(&searchFilters, "filter", "f", nil, "Filter as attribute=value (repeatable)")
	searchCmd.Flags().StringVarP(&searchSort, "sort", "s", "", "Attribute to sort by")
	searchCmd.Flags().BoolVar(&searchDesc, "desc", false, "Sort in descending order")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "l", 0, "Maximum number of results (0 = all)")
}
