package status

import (
	"github.com/spf13/cobra"
)

func NewStatusCommand() *cobra.Command {
	var checkSecrets bool

	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"s"},
		Short:   "Show picosearch status",
		Run: func(cmd *cobra.Command, _ []string) {
			statusCmd(cmd.Context(), checkSecrets)
		},
	}

	cmd.Flags().BoolVar(&checkSecrets, "check-secrets", true, "Resolve the model and search secrets")

	return cmd
}
