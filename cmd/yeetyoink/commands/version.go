package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionShort {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "yeetyoink %s\n", Version)
		fmt.Fprintf(cmd.OutOrStdout(), "  commit:  %s\n", Commit)
		fmt.Fprintf(cmd.OutOrStdout(), "  built:   %s\n", Date)
		fmt.Fprintf(cmd.OutOrStdout(), "  go:      %s\n", runtime.Version())
		fmt.Fprintf(cmd.OutOrStdout(), "  os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")
}
