package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"airwave/internal/services/radiobrowser"
	"airwave/internal/stations"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var addIndex int

	cmd := &cobra.Command{
		Use:   "search <name>",
		Short: "Search the radio-browser directory for stations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			searchLimit := cfg.Search.Limit
			if limit > 0 {
				searchLimit = limit
			}
			client, err := radiobrowser.New(cfg.Search.APIURL, searchLimit, 10*time.Second)
			if err != nil {
				return err
			}

			term := strings.Join(args, " ")
			results, err := client.Search(cmd.Context(), term)
			if err != nil {
				return fmt.Errorf("search stations: %w", err)
			}
			if len(results) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No stations found for %q.\n", term)
				return nil
			}

			if addIndex > 0 {
				if addIndex > len(results) {
					return fmt.Errorf("result index %d out of range (got %d results)", addIndex, len(results))
				}
				pick := results[addIndex-1]
				return ctx.withStore(func(store *stations.Store) error {
					id, err := store.Add(cmd.Context(), stations.Station{
						Name:      pick.Name,
						StreamURL: pick.URL,
						ArtURL:    pick.Favicon,
						Homepage:  pick.Homepage,
						Country:   pick.Country,
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Added station %q (id %d)\n", pick.Name, id)
					return nil
				})
			}

			rows := make([][]string, 0, len(results))
			for i, station := range results {
				bitrate := ""
				if station.Bitrate > 0 {
					bitrate = strconv.Itoa(station.Bitrate)
				}
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					station.Name,
					station.Country,
					station.Codec,
					bitrate,
					station.URL,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Name", "Country", "Codec", "Kbps", "Stream URL"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintln(out, "Use --add <#> to save a result to the station list.")
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results to show")
	cmd.Flags().IntVar(&addIndex, "add", 0, "Save the numbered result instead of listing")
	return cmd
}
