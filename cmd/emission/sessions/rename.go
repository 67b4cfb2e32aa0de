package sessionscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kirito123l/emission-agent/pkg/cliui"
)

const renameLongDesc string = `Change a conversation's title.

Examples:
  emission sessions rename 4f7c0d1e-... "Q3 fleet emissions"`

func newRenameCmd(cmder *commander) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <session-id> <title>",
		Short: "Change a conversation's title",
		Long:  renameLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return cmder.runRename(args[0], args[1])
		},
	}
}

func (c *commander) runRename(sessionID, title string) error {
	api, err := c.apiClient()
	if err != nil {
		return err
	}

	if err := api.RenameSession(context.Background(), sessionID, title); err != nil {
		return fmt.Errorf("renaming session: %w", err)
	}

	fmt.Printf("  %s Renamed %s to %q\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(sessionID),
		title,
	)
	return nil
}
