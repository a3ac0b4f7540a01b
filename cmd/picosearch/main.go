// picosearch - conversational web search agent
// License: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sipeed/picosearch/cmd/picosearch/internal"
	"github.com/sipeed/picosearch/cmd/picosearch/internal/agent"
	"github.com/sipeed/picosearch/cmd/picosearch/internal/secret"
	"github.com/sipeed/picosearch/cmd/picosearch/internal/status"
	"github.com/sipeed/picosearch/cmd/picosearch/internal/version"
	"github.com/sipeed/picosearch/pkg/config"
)

func NewPicosearchCommand() *cobra.Command {
	var configPath string

	short := fmt.Sprintf("%s picosearch - conversational search agent v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:           "picosearch",
		Short:         short,
		Example:       "picosearch agent\npicosearch agent -m \"What do you know about LangGraph?\"",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if configPath == "" {
				return nil
			}
			if strings.TrimSpace(configPath) == "" {
				return fmt.Errorf("--config requires a path")
			}
			return os.Setenv(config.EnvPicoSearchConfig, configPath)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.json (overrides $PICOSEARCH_CONFIG)")

	cmd.AddCommand(
		agent.NewAgentCommand(),
		secret.NewSecretCommand(),
		status.NewStatusCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewPicosearchCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
