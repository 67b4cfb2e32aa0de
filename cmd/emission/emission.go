// Package emissioncmder
package emissioncmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/Kirito123l/emission-agent/cmd/emission/chat"
	configcmder "github.com/Kirito123l/emission-agent/cmd/emission/config"
	filescmder "github.com/Kirito123l/emission-agent/cmd/emission/files"
	servecmder "github.com/Kirito123l/emission-agent/cmd/emission/serve"
	sessionscmder "github.com/Kirito123l/emission-agent/cmd/emission/sessions"
	versioncmder "github.com/Kirito123l/emission-agent/cmd/emission/version"
)

const emissionLongDesc string = `Emission is a terminal client for the vehicle emission-factor assistant.

Chat with the assistant, stream answers with charts and calculation
tables, and manage stored conversations:
  emission chat        Start an interactive chat
  emission sessions    List and manage conversations
  emission files       Preview uploads, fetch results and templates
  emission serve       Run the bundled stub backend locally`

const emissionShortDesc string = "Emission - Emission Factor Assistant CLI"

func NewEmissionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emission",
		Short: emissionShortDesc,
		Long:  emissionLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .emission/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(sessionscmder.NewSessionsCmd())
	cmd.AddCommand(filescmder.NewFilesCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
