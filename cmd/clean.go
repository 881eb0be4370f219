package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxbolgarin/gitb-install/internal/fetcher"
	"github.com/maxbolgarin/gitb-install/internal/output"
)

func newCleanCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove staging files left behind by an interrupted install",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			removed, err := fetcher.CleanStaging(cfg.TargetPath(opts.root))
			for _, path := range removed {
				output.PrintStream(cmd.OutOrStdout(), fmt.Sprintf("removed %s", path))
			}
			if err != nil {
				return fmt.Errorf("error cleaning up temporary files: %w", err)
			}
			if len(removed) == 0 {
				output.PrintWarning(cmd.OutOrStdout(), "No temporary files found")
				return nil
			}
			output.PrintSuccess(cmd.OutOrStdout(), "Temporary files cleaned up")
			return nil
		},
	}
}
