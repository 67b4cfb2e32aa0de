// Package sessionscmder provides the sessions command group for managing
// stored conversations on the assistant backend.
package sessionscmder

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Kirito123l/emission-agent/pkg/client"
	"github.com/Kirito123l/emission-agent/pkg/config"
	"github.com/Kirito123l/emission-agent/pkg/identity"
	"github.com/Kirito123l/emission-agent/pkg/logger"
)

const sessionsLongDesc string = `Manage stored conversations.

Sessions live on the assistant backend, scoped to this installation's
user ID. Use subcommands to list them, inspect their history, rename
or delete them, or start a fresh one:
  emission sessions list
  emission sessions history <session-id>
  emission sessions rename <session-id> <title>
  emission sessions delete <session-id>
  emission sessions new`

const sessionsShortDesc string = "Manage stored conversations"

// commander holds the flags and dependencies shared by all sessions
// subcommands.
type commander struct {
	apiTarget string
	configDir string
	debug     bool

	logger *zap.Logger
}

func NewSessionsCmd() *cobra.Command {
	cmder := &commander{}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: sessionsShortDesc,
		Long:  sessionsLongDesc,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.ClientFlags, []string{
				config.FlagAPITarget,
			})
			cmder.apiTarget = v.GetString("client.api_target")
			return nil
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &cmder.apiTarget)

	cmd.AddCommand(newListCmd(cmder))
	cmd.AddCommand(newHistoryCmd(cmder))
	cmd.AddCommand(newRenameCmd(cmder))
	cmd.AddCommand(newDeleteCmd(cmder))
	cmd.AddCommand(newNewCmd(cmder))

	return cmd
}

// apiClient builds the backend client with the persisted identity.
func (c *commander) apiClient() (*client.Client, error) {
	c.logger = logger.NewLogger(c.debug)

	userID, err := identity.Load(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading identity: %w", err)
	}

	return client.New(c.apiTarget, userID, c.logger), nil
}

// formatTimestamp renders a backend RFC3339 timestamp for display.
func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04")
}
