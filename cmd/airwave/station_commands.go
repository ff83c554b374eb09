package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"airwave/internal/stations"
)

func newStationsCommand(ctx *commandContext) *cobra.Command {
	stationsCmd := &cobra.Command{
		Use:   "stations",
		Short: "Manage the saved station list",
	}

	stationsCmd.AddCommand(newStationsListCommand(ctx))
	stationsCmd.AddCommand(newStationsAddCommand(ctx))
	stationsCmd.AddCommand(newStationsRemoveCommand(ctx))

	return stationsCmd
}

func (c *commandContext) withStore(fn func(*stations.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := stations.Open(cfg)
	if err != nil {
		return fmt.Errorf("open station store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newStationsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved stations in playback order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *stations.Store) error {
				list, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No stations saved.")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, station := range list {
					rows = append(rows, []string{
						strconv.FormatInt(station.ID, 10),
						station.Name,
						station.Country,
						station.StreamURL,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "Country", "Stream URL"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newStationsAddCommand(ctx *commandContext) *cobra.Command {
	var artURL string
	var homepage string
	var country string

	cmd := &cobra.Command{
		Use:   "add <name> <stream-url>",
		Short: "Add a station to the end of the list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *stations.Store) error {
				id, err := store.Add(cmd.Context(), stations.Station{
					Name:      args[0],
					StreamURL: args[1],
					ArtURL:    artURL,
					Homepage:  homepage,
					Country:   country,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added station %q (id %d)\n", args[0], id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&artURL, "art", "", "Cover art URL for the station")
	cmd.Flags().StringVar(&homepage, "homepage", "", "Station homepage URL")
	cmd.Flags().StringVar(&country, "country", "", "Station country")
	return cmd
}

func newStationsRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a station by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid station id %q", args[0])
			}
			return ctx.withStore(func(store *stations.Store) error {
				if err := store.Remove(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed station %d\n", id)
				return nil
			})
		},
	}
}
