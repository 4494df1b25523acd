package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/claude/wodocr/internal/catalog"
	"github.com/claude/wodocr/internal/models"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (a *app) catalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and sync the movement catalog",
	}
	cmd.AddCommand(a.catalogSyncCommand(), a.catalogShowCommand(), a.catalogExportCommand())
	return cmd
}

func (a *app) catalogSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the catalog from its source and store it in the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := a.openStore(cmd.Context())
			defer cleanup()
			if err != nil {
				return err
			}

			snap, err := store.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			ok := color.New(color.FgGreen, color.Bold).SprintFunc()
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d movements from %s into %s\n",
				ok("synced"), len(snap.Movements), snap.Source, a.cfg.Catalog.CacheDir)
			return nil
		},
	}
}

func (a *app) catalogShowCommand() *cobra.Command {
	var (
		query   string
		asJSON  bool
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List catalog movements from the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.snapshot(cmd.Context(), !refresh)
			if err != nil {
				return err
			}
			snap.Movements = filterByName(snap.Movements, query)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			printCatalog(cmd.OutOrStdout(), snap)
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Case-insensitive name filter")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the snapshot as JSON")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Refresh from the source before listing")
	return cmd
}

func (a *app) catalogExportCommand() *cobra.Command {
	var (
		out     string
		offline bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog to a TOML file usable as a file source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.snapshot(cmd.Context(), offline)
			if err != nil {
				return err
			}
			if err := catalog.WriteFile(out, snap.Movements); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d movements to %s\n", len(snap.Movements), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "movements.toml", "Output file")
	cmd.Flags().BoolVar(&offline, "offline", false, "Export the cached catalog without contacting the source")
	return cmd
}

func (a *app) snapshot(ctx context.Context, offline bool) (models.CatalogSnapshot, error) {
	store, cleanup, err := a.openStore(ctx)
	defer cleanup()
	if err != nil {
		return models.CatalogSnapshot{}, err
	}
	if err := a.loadCatalog(ctx, store, offline); err != nil {
		return models.CatalogSnapshot{}, err
	}
	return store.Snapshot(), nil
}

func filterByName(movements []models.Movement, query string) []models.Movement {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return movements
	}
	out := []models.Movement{}
	for _, m := range movements {
		if strings.Contains(strings.ToLower(m.Name), q) {
			out = append(out, m)
		}
	}
	return out
}

func printCatalog(w io.Writer, snap models.CatalogSnapshot) {
	header := color.New(color.FgCyan, color.Bold).SprintFunc()
	dim := color.New(color.FgHiBlack).SprintFunc()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\n", header("ID"), header("NAME"), header("CATEGORY"))
	for _, m := range snap.Movements {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", m.ID, m.Name, m.Category)
	}
	tw.Flush()

	fetched := "never"
	if !snap.FetchedAt.IsZero() {
		fetched = snap.FetchedAt.Local().Format(time.DateTime)
	}
	fmt.Fprintln(w, dim(fmt.Sprintf("%d movements from %s, fetched %s", len(snap.Movements), snap.Source, fetched)))
}
