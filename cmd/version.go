package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leftmike/litestore/litestore"
)

func addVersionCommand(rootCmd *cobra.Command) {
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number of Litestore",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), litestore.Version())
			},
		})
}
