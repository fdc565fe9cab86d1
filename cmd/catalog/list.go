package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/internal/app"
)

var filterFlags struct {
	category string
	minPrice int64
	maxPrice int64
	sort     string
	search   string
	genre    string
}

var (
	listPage  int
	listAfter string
	listJSON  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print a page of products",
	Example: `  catalog list --category shawls --sort price_lowest --page 2
  catalog list --min-price 500 --max-price 1500 --search "red shawl"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			f, err := buildFilter(ctx, cmd, a)
			if err != nil {
				return err
			}
			l := a.Lister()

			var page *catalog.Page[*catalog.Product]
			if listAfter != "" {
				page, err = l.After(ctx, f, listAfter, 0)
			} else {
				page, err = l.Page(ctx, f, listPage, true)
			}
			if err != nil {
				return err
			}

			conn, err := catalog.BuildConnection(ctx, page, catalog.NewPageInfoResolver(true), l.EdgeCursor(f, page),
				func(p *catalog.Product) (*catalog.Product, error) { return p, nil })
			if err != nil {
				return err
			}
			if listJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(conn)
			}
			printPage(cmd.OutOrStdout(), conn, page.Metadata)
			return nil
		})
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the exact or estimated number of matching products",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			f, err := buildFilter(ctx, cmd, a)
			if err != nil {
				return err
			}
			res, err := a.Lister().Count(ctx, f)
			if err != nil {
				return err
			}
			approx := ""
			if res.Estimated {
				approx = "~"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%d products, %d pages\n", approx, res.TotalItems, res.TotalPages)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{listCmd, countCmd} {
		c.Flags().StringVar(&filterFlags.category, "category", "", "Category id")
		c.Flags().Int64Var(&filterFlags.minPrice, "min-price", -1, "Lowest price")
		c.Flags().Int64Var(&filterFlags.maxPrice, "max-price", -1, "Highest price")
		c.Flags().StringVar(&filterFlags.sort, "sort", "", "newest, oldest, price_lowest, price_highest, name_a_z or name_z_a")
		c.Flags().StringVar(&filterFlags.search, "search", "", "Search phrase")
		c.Flags().StringVar(&filterFlags.genre, "genre", "", "Genre id")
	}
	listCmd.Flags().IntVar(&listPage, "page", 1, "Page number")
	listCmd.Flags().StringVar(&listAfter, "after", "", "Resume after this cursor")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print the connection as JSON")
}

func buildFilter(ctx context.Context, cmd *cobra.Command, a *app.App) (catalog.Filter, error) {
	f := catalog.NewFilter()
	f.SetCategory(filterFlags.category)
	if cmd.Flags().Changed("min-price") || cmd.Flags().Changed("max-price") {
		var lo, hi *int64
		if cmd.Flags().Changed("min-price") {
			lo = &filterFlags.minPrice
		}
		if cmd.Flags().Changed("max-price") {
			hi = &filterFlags.maxPrice
		}
		f.SetPriceRange(lo, hi)
	}
	if err := f.SetSort(filterFlags.sort); err != nil {
		return f, err
	}
	f.SetSearch(filterFlags.search)
	if filterFlags.genre != "" {
		ids, err := a.Genres.GenreProductIDs(ctx, filterFlags.genre)
		if err != nil {
			return f, err
		}
		f.SetGenre(filterFlags.genre, ids)
	}
	return f, f.Validate()
}

func printPage(w io.Writer, conn *catalog.Connection[*catalog.Product], md catalog.Metadata) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tCATEGORY\tCREATED")
	for _, p := range conn.Nodes {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", p.ID, p.Name, p.Price, p.CategoryID, p.CreatedAt.Format("2006-01-02"))
	}
	tw.Flush()

	if conn.PageInfo.TotalCount != nil {
		fmt.Fprintf(w, "\ntotal %d", *conn.PageInfo.TotalCount)
	}
	if conn.Page > 0 {
		fmt.Fprintf(w, "  page %d", conn.Page)
	}
	fmt.Fprintf(w, "  strategy %s  fetches %d  %dms", md.Strategy, md.Fetches, md.QueryTimeMs)
	if md.Partial {
		fmt.Fprintf(w, "  PARTIAL (%d batches failed)", md.FailedBatches)
	}
	fmt.Fprintln(w)
	if conn.PageInfo.HasNextPage && conn.PageInfo.EndCursor != nil {
		fmt.Fprintf(w, "next: --after %s\n", *conn.PageInfo.EndCursor)
	}
}

