// Package chatcmder provides the chat command for talking to the emission
// assistant backend.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Kirito123l/emission-agent/pkg/chat"
	"github.com/Kirito123l/emission-agent/pkg/client"
	"github.com/Kirito123l/emission-agent/pkg/cliui"
	"github.com/Kirito123l/emission-agent/pkg/config"
	"github.com/Kirito123l/emission-agent/pkg/dotdir"
	"github.com/Kirito123l/emission-agent/pkg/identity"
	"github.com/Kirito123l/emission-agent/pkg/logger"
	"github.com/Kirito123l/emission-agent/pkg/message"
	"github.com/Kirito123l/emission-agent/pkg/render"
	"github.com/Kirito123l/emission-agent/pkg/render/nop"
	"github.com/Kirito123l/emission-agent/pkg/session"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

type chatCommander struct {
	apiTarget string
	sessionID string
	filePath  string
	timeout   uint
	noStream  bool
	plain     bool
	quiet     bool
	fresh     bool
	configDir string
	debug     bool

	logger *zap.Logger
}

const chatLongDesc string = `Chat with the emission factor assistant.

With a message argument, sends a single turn and exits. Without one,
starts an interactive session: type your message and press Enter,
/exit or Ctrl+D to quit.

The conversation resumes the last active session unless --new or
--session is given. Attach a route or fleet spreadsheet to the next
message with --file; the assistant answers with a calculation table
and a downloadable result.

Examples:
  emission chat "emission curve for a 2019 diesel light truck"
  emission chat --file route.csv "total emissions for this route"
  emission chat --session 4f7c… --no-stream`

const chatShortDesc string = "Chat with the emission factor assistant"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.ClientFlags, []string{
				config.FlagAPITarget,
				config.FlagTimeout,
			})

			cmder.apiTarget = v.GetString("client.api_target")
			cmder.timeout = v.GetUint("client.timeout_seconds")
			if !cmd.Flags().Changed("no-stream") {
				cmder.noStream = !v.GetBool("client.streaming")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			var oneShot string
			if len(args) == 1 {
				oneShot = args[0]
			}
			if cmder.quiet && oneShot == "" {
				return errors.New("--quiet requires a message argument")
			}
			return cmder.run(oneShot)
		},
	}

	config.AddStringFlag(cmd, config.ClientFlags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddUintFlag(cmd, config.ClientFlags, config.FlagTimeout, &cmder.timeout)
	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Resume a specific session ID")
	cmd.Flags().StringVarP(&cmder.filePath, "file", "f", "", "Attach a route or fleet spreadsheet to the next message")
	cmd.Flags().BoolVar(&cmder.noStream, "no-stream", false, "Use the single-shot endpoint instead of streaming")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Disable markdown rendering of replies")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Print only the final reply text, for scripting")
	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Start a new conversation instead of resuming")

	return cmd
}

func (c *chatCommander) run(oneShot string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	userID, err := identity.Load(c.configDir)
	if err != nil {
		return fmt.Errorf("loading identity: %w", err)
	}

	api := client.New(c.apiTarget, userID, c.logger,
		client.WithTimeout(time.Duration(c.timeout)*time.Second),
	)

	sessCtx, ddm, err := c.restoreSession()
	if err != nil {
		return err
	}
	sessCtx.PendingAttachment = c.filePath

	var sink render.Sink = render.NewTerminalSink(os.Stdout, render.WithMarkdown(!c.plain))
	if c.quiet {
		sink = nop.NewSink()
	}

	if oneShot != "" {
		if err := c.send(api, sessCtx, sink, oneShot); err != nil {
			return err
		}
		if !c.quiet {
			fmt.Println()
		}
		return c.persistSession(ddm, sessCtx)
	}

	c.printBanner(sessCtx)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" && sessCtx.PendingAttachment == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		if err := c.send(api, sessCtx, sink, input); err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		fmt.Println()
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return c.persistSession(ddm, sessCtx)
}

// restoreSession builds the session context from flags and the persisted
// active-session pointer.
func (c *chatCommander) restoreSession() (*session.Context, *dotdir.Manager, error) {
	ddm := dotdir.NewManager()
	sessCtx := &session.Context{}

	switch {
	case c.sessionID != "":
		sessCtx.ActiveSessionID = c.sessionID

	case c.fresh:
		if err := ddm.ClearSessionState(c.configDir); err != nil {
			return nil, nil, err
		}

	default:
		state, err := ddm.LoadSessionState(c.configDir)
		if err != nil {
			return nil, nil, fmt.Errorf("loading session state: %w", err)
		}
		if state != nil {
			sessCtx.ActiveSessionID = state.SessionID
		}
	}

	return sessCtx, ddm, nil
}

// persistSession writes the active session pointer back so the next
// invocation resumes this conversation.
func (c *chatCommander) persistSession(ddm *dotdir.Manager, sessCtx *session.Context) error {
	if sessCtx.ActiveSessionID == "" {
		return nil
	}
	return ddm.SaveSessionState(&dotdir.SessionState{
		SessionID: sessCtx.ActiveSessionID,
		UpdatedAt: time.Now().UTC(),
	}, c.configDir)
}

func (c *chatCommander) printBanner(sessCtx *session.Context) {
	fmt.Println()
	if sessCtx.ActiveSessionID != "" {
		fmt.Printf("  %s Resuming session %s\n",
			cliui.SuccessMark,
			cliui.DimStyle.Render(sessCtx.ActiveSessionID),
		)
	} else {
		fmt.Printf("  %s New conversation\n", cliui.DimStyle.Render("●"))
	}

	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Backend:"),
		cliui.NameStyle.Render(c.apiTarget),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))
}

// send runs one chat turn over the configured transport.
func (c *chatCommander) send(api *client.Client, sessCtx *session.Context, sink render.Sink, input string) error {
	filePath := sessCtx.PendingAttachment
	sessCtx.ClearAttachment()

	if !c.quiet {
		fmt.Print(assistantPrompt)
	}

	msg := message.New(uuid.NewString())
	coord := session.NewCoordinator(sessCtx)

	var outcome *message.Outcome
	if c.noStream {
		reply, err := api.Chat(context.Background(), input, sessCtx.ActiveSessionID, filePath)
		if err != nil {
			return err
		}
		for _, ev := range reply.Events() {
			render.Dispatch(sink, msg.Apply(ev))
			if coord.Observe(ev) {
				sink.RefreshSessions()
			}
		}
		outcome = msg.Outcome()
	} else {
		body, err := api.ChatStream(context.Background(), input, sessCtx.ActiveSessionID, filePath)
		if err != nil {
			return err
		}
		defer body.Close()

		proc := chat.NewProcessor(c.logger)
		outcome = proc.Run(context.Background(), body, msg, sink, coord)
	}

	if outcome != nil && outcome.Failed() {
		return errors.New(outcome.Reason)
	}

	// The terminal sink re-renders the accumulated markdown; in quiet mode
	// the raw reply text is the only output.
	if term, ok := sink.(*render.TerminalSink); ok {
		term.RenderReply(msg.Text())
	} else {
		fmt.Println(msg.Text())
	}
	return nil
}
