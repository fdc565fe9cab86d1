package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/internal/app"
	"github.com/nrfta/catalog-go/session"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the catalog interactively",
	Long: `Reads commands from stdin, one per line:

  page N              go to page N
  next | prev         move one page
  category ID         filter by category (empty clears)
  price MIN MAX       price range, "-" leaves a bound open; "price" clears
  sort KEY            change the sort
  search PHRASE       text search (empty clears)
  genre ID            restrict to a genre (empty clears)
  view grid|list      presentation only, no refetch
  quit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			out := cmd.OutOrStdout()
			s := session.New(ctx, a.Lister(),
				session.WithDebounce(a.Config.Debounce),
				session.WithLogger(a.Logger.Named("session")),
				session.WithCommit(func(snap session.Snapshot) { printSnapshot(out, snap) }),
			)
			defer s.Close()

			s.Refresh()
			return browse(ctx, cmd.InOrStdin(), out, a, s)
		})
	},
}

func browse(ctx context.Context, in io.Reader, out io.Writer, a *app.App, s *session.Session) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		cmd, arg, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		arg = strings.TrimSpace(arg)

		var err error
		switch cmd {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "page":
			var n int
			if n, err = strconv.Atoi(arg); err == nil {
				err = s.GoTo(n)
			}
		case "next":
			err = s.GoTo(s.Current().Number + 1)
		case "prev":
			err = s.GoTo(max(1, s.Current().Number-1))
		case "category":
			err = s.Update(func(f *catalog.Filter) error { f.SetCategory(arg); return nil })
		case "price":
			err = s.Update(func(f *catalog.Filter) error { return setPrice(f, arg) })
		case "sort":
			err = s.Update(func(f *catalog.Filter) error { return f.SetSort(arg) })
		case "search":
			err = s.Update(func(f *catalog.Filter) error { f.SetSearch(arg); return nil })
		case "genre":
			err = setGenre(ctx, a, s, arg)
		case "view":
			err = s.Update(func(f *catalog.Filter) error { f.SetView(catalog.ViewMode(arg)); return nil })
		default:
			err = fmt.Errorf("unknown command %q", cmd)
		}
		if err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	}
	return sc.Err()
}

func setPrice(f *catalog.Filter, arg string) error {
	if arg == "" {
		f.ClearPriceRange()
		return nil
	}
	parts := strings.Fields(arg)
	if len(parts) != 2 {
		return fmt.Errorf("usage: price MIN MAX")
	}
	bounds := make([]*int64, 2)
	for i, p := range parts {
		if p == "-" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return &catalog.ValidationError{Field: "price", Reason: "must be a whole number"}
		}
		bounds[i] = &n
	}
	f.SetPriceRange(bounds[0], bounds[1])
	return nil
}

func setGenre(ctx context.Context, a *app.App, s *session.Session, id string) error {
	if id == "" {
		return s.Update(func(f *catalog.Filter) error { f.ClearGenre(); return nil })
	}
	ids, err := a.Genres.GenreProductIDs(ctx, id)
	if err != nil {
		return err
	}
	return s.Update(func(f *catalog.Filter) error { f.SetGenre(id, ids); return nil })
}

func printSnapshot(w io.Writer, snap session.Snapshot) {
	if snap.Err != nil {
		fmt.Fprintln(w, "error:", snap.Err)
		return
	}
	fmt.Fprintf(w, "\n-- page %d of %d (%d products) --\n", snap.Number, snap.Total.TotalPages, snap.Total.TotalItems)
	for _, p := range snap.Page.Nodes {
		if snap.Filter.View == catalog.ViewList {
			fmt.Fprintf(w, "%-12s %-40s %8d  %s\n", p.ID, p.Name, p.Price, p.CategoryID)
		} else {
			fmt.Fprintf(w, "[%s] %s  %d\n", p.ID, p.Name, p.Price)
		}
	}
	if snap.Page.Metadata.Partial {
		fmt.Fprintln(w, "(some products could not be loaded)")
	}
}
