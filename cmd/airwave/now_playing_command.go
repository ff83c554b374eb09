package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newNowPlayingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "now-playing",
		Short: "Print the track the daemon is currently displaying",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(cfg.NowPlayingFilePath())
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing playing (daemon not running?).")
					return nil
				}
				return fmt.Errorf("read now-playing file: %w", err)
			}
			line := strings.TrimSpace(string(data))
			if line == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing playing.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		},
	}
}
