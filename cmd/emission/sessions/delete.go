package sessionscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kirito123l/emission-agent/pkg/cliui"
	"github.com/Kirito123l/emission-agent/pkg/dotdir"
)

const deleteLongDesc string = `Delete a conversation and its messages.

If the deleted conversation is the active one, the local session
pointer is cleared so the next chat starts fresh.

Examples:
  emission sessions delete 4f7c0d1e-...`

func newDeleteCmd(cmder *commander) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a conversation",
		Long:  deleteLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return cmder.runDelete(args[0])
		},
	}
}

func (c *commander) runDelete(sessionID string) error {
	api, err := c.apiClient()
	if err != nil {
		return err
	}

	if err := api.DeleteSession(context.Background(), sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	ddm := dotdir.NewManager()
	state, err := ddm.LoadSessionState(c.configDir)
	if err == nil && state != nil && state.SessionID == sessionID {
		_ = ddm.ClearSessionState(c.configDir)
	}

	fmt.Printf("  %s Deleted %s\n", cliui.SuccessMark, cliui.NameStyle.Render(sessionID))
	return nil
}
