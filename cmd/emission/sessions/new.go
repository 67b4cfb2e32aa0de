package sessionscmder

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kirito123l/emission-agent/pkg/cliui"
	"github.com/Kirito123l/emission-agent/pkg/dotdir"
)

const newLongDesc string = `Create a fresh conversation and make it the active one.

The next "emission chat" resumes the new session.

Examples:
  emission sessions new`

func newNewCmd(cmder *commander) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create a fresh conversation",
		Long:  newLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.runNew()
		},
	}
}

func (c *commander) runNew() error {
	api, err := c.apiClient()
	if err != nil {
		return err
	}

	sessionID, err := api.NewSession(context.Background())
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	ddm := dotdir.NewManager()
	if err := ddm.SaveSessionState(&dotdir.SessionState{
		SessionID: sessionID,
		UpdatedAt: time.Now().UTC(),
	}, c.configDir); err != nil {
		return fmt.Errorf("saving session state: %w", err)
	}

	fmt.Printf("  %s Created session %s\n", cliui.SuccessMark, cliui.NameStyle.Render(sessionID))
	return nil
}
