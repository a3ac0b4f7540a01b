package agent

import (
	"github.com/spf13/cobra"
)

func NewAgentCommand() *cobra.Command {
	var opts agentOptions

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Chat with the search agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return agentCmd(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.debug, "debug", "d", false, "Enable debug logging")
	cmd.Flags().StringVarP(&opts.message, "message", "m", "", "Send a single message (non-interactive mode)")
	cmd.Flags().StringVarP(&opts.threadID, "thread", "t", "", "Conversation thread id (default from config)")
	cmd.Flags().StringVarP(&opts.model, "model", "", "", "Deployment or model to use")
	cmd.Flags().BoolVar(&opts.demo, "demo", false, "Run the configured demo query once and exit")

	cmd.MarkFlagsMutuallyExclusive("message", "demo")

	return cmd
}
