package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brandonbloom/cliharness/internal/version"
)

func newVersionCommand() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the cliharness version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "%s version %s\n", cmd.Root().DisplayName(), cmd.Root().Version); err != nil {
				return err
			}
			if !verbose {
				return nil
			}
			info := version.Read()
			_, err := fmt.Fprintf(out, "go: %s\nrevision: %s\n", info.GoVersion, info.Revision)
			return err
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include toolchain and VCS details")
	return cmd
}
