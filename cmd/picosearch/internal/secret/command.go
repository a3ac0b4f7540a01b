package secret

import (
	"github.com/spf13/cobra"
)

func NewSecretCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Resolve or store secrets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		newGetCommand(),
		newSetCommand(),
		newDeleteCommand(),
	)

	return cmd
}

func newGetCommand() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:     "get <name>",
		Short:   "Resolve a secret through the remote store and environment",
		Example: `picosearch secret get smart-openai-endpoint`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getCmd(cmd.Context(), cmd.OutOrStdout(), args[0], reveal)
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print the full value instead of a masked one")

	return cmd
}

func newSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "set <name> <value>",
		Short:   "Store a secret in the OS keyring",
		Example: `picosearch secret set smart-openai-key sk-...`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setCmd(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a secret from the OS keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return deleteCmd(cmd.OutOrStdout(), args[0])
		},
	}
}
