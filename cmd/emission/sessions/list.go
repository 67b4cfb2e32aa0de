package sessionscmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kirito123l/emission-agent/pkg/cliui"
)

const listLongDesc string = `List stored conversations, most recently updated first.

Examples:
  emission sessions list`

func newListCmd(cmder *commander) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored conversations",
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.runList()
		},
	}
}

func (c *commander) runList() error {
	api, err := c.apiClient()
	if err != nil {
		return err
	}

	sessions, err := api.Sessions(context.Background())
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No conversations yet. Start one with \"emission chat\"."))
		return nil
	}

	fmt.Println()
	for _, sess := range sessions {
		fmt.Printf("  %s  %s\n",
			cliui.NameStyle.Render(sess.SessionID),
			sess.Title,
		)
		fmt.Printf("      %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%d messages, updated %s",
				sess.MessageCount, formatTimestamp(sess.UpdatedAt))),
		)
	}
	fmt.Println()

	return nil
}
