package sessionscmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kirito123l/emission-agent/pkg/cliui"
	"github.com/Kirito123l/emission-agent/pkg/message"
	"github.com/Kirito123l/emission-agent/pkg/render"
)

const historyLongDesc string = `Show the stored messages of one conversation.

Assistant turns that carried charts or calculation tables are rendered
the same way the live stream renders them.

Examples:
  emission sessions history 4f7c0d1e-...`

func newHistoryCmd(cmder *commander) *cobra.Command {
	plain := false

	cmd := &cobra.Command{
		Use:   "history <session-id>",
		Short: "Show a conversation's messages",
		Long:  historyLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return cmder.runHistory(args[0], plain)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Disable markdown rendering of replies")
	return cmd
}

func (c *commander) runHistory(sessionID string, plain bool) error {
	api, err := c.apiClient()
	if err != nil {
		return err
	}

	messages, err := api.History(context.Background(), sessionID)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	sink := render.NewTerminalSink(os.Stdout, render.WithMarkdown(!plain))

	fmt.Println()
	for _, msg := range messages {
		switch msg.Role {
		case "user":
			fmt.Printf("%s%s\n", cliui.KeyStyle.Render("you> "), msg.Content)

		case "assistant":
			fmt.Print(cliui.DimStyle.Render("assistant> "))
			turn := message.New(msg.MessageID)
			for _, ev := range msg.Events() {
				render.Dispatch(sink, turn.Apply(ev))
			}
			sink.RenderReply(msg.Content)
			fmt.Println()
		}
		fmt.Println()
	}

	return nil
}
