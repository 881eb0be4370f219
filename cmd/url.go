package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newURLCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "url",
		Short: "Print the release URL for the requested version without downloading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			resolved, err := cfg.Release().Resolve(opts.version())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resolved.String())
			return nil
		},
	}
}
