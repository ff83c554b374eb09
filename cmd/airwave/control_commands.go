package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"airwave/internal/ipc"
)

func newControlCommands(ctx *commandContext) []*cobra.Command {
	playPause := &cobra.Command{
		Use:   "play-pause",
		Short: "Toggle playback, starting the first station when idle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.sendToken(ipc.TokenPlayPause)
		},
	}

	next := &cobra.Command{
		Use:   "next-station",
		Short: "Switch to the next saved station",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.sendToken(ipc.TokenNextStation)
		},
	}

	prev := &cobra.Command{
		Use:   "prev-station",
		Short: "Switch to the previous saved station",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.sendToken(ipc.TokenPrevStation)
		},
	}

	identify := &cobra.Command{
		Use:   "identify",
		Short: "Fingerprint the current stream and show the matched track",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.sendToken(ipc.TokenIdentify); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Identification requested; the result appears in the daemon display output.")
			return nil
		},
	}

	return []*cobra.Command{playPause, next, prev, identify}
}
