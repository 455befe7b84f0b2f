package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/leftmike/litestore/repl"
)

func (st *state) addStoreCommands(rootCmd *cobra.Command) {
	var null bool

	createCmd := &cobra.Command{
		Use:   "create KEY [VALUE]",
		Short: "Create a new entry",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  st.runStore("create", &null),
	}
	createCmd.Flags().BoolVar(&null, "null", false, "create a null entry")

	updateCmd := &cobra.Command{
		Use:   "update KEY [VALUE]",
		Short: "Create or replace an entry",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  st.runStore("update", &null),
	}
	updateCmd.Flags().BoolVar(&null, "null", false, "update to a null entry")

	rootCmd.AddCommand(
		createCmd,
		updateCmd,
		&cobra.Command{
			Use:   "read KEY",
			Short: "Print an entry",
			Args:  cobra.ExactArgs(1),
			RunE:  st.runStore("read", nil),
		},
		&cobra.Command{
			Use:   "delete KEY",
			Short: "Delete an entry",
			Args:  cobra.ExactArgs(1),
			RunE:  st.runStore("delete", nil),
		},
		&cobra.Command{
			Use:   "keys [PATTERN]",
			Short: "List the keys matching a glob pattern",
			Args:  cobra.MaximumNArgs(1),
			RunE:  st.runStore("keys", nil),
		})
}

func (st *state) runStore(name string, null *bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ls, err := st.open(context.Background())
		if err != nil {
			return err
		}
		defer ls.Close()

		line := []string{name}
		if null != nil && *null {
			line = append(line, "--null")
		}
		line = append(line, "--")
		return repl.NewSession(ls, cmd.OutOrStdout()).Exec(append(line, args...))
	}
}

func (st *state) addShellCommand(rootCmd *cobra.Command) {
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "shell",
			Short: "Run an interactive session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ls, err := st.open(context.Background())
				if err != nil {
					return err
				}
				defer ls.Close()

				return repl.Interact(ls)
			},
		})
}
