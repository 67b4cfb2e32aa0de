// Package filescmder provides the files command group: previewing uploads,
// downloading generated results, and fetching input templates.
package filescmder

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Kirito123l/emission-agent/pkg/client"
	"github.com/Kirito123l/emission-agent/pkg/config"
	"github.com/Kirito123l/emission-agent/pkg/identity"
	"github.com/Kirito123l/emission-agent/pkg/logger"
)

const filesLongDesc string = `Work with spreadsheet inputs and generated results.

  emission files preview <path>          Inspect a route or fleet file before sending
  emission files download <file-id>      Fetch a generated result by ID
  emission files download --message ...  Fetch the result attached to a message
  emission files template <route|fleet>  Download an input template`

const filesShortDesc string = "Work with spreadsheet inputs and results"

type commander struct {
	apiTarget string
	configDir string
	debug     bool

	logger *zap.Logger
}

func NewFilesCmd() *cobra.Command {
	cmder := &commander{}

	cmd := &cobra.Command{
		Use:   "files",
		Short: filesShortDesc,
		Long:  filesLongDesc,
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

	cmd.AddCommand(newPreviewCmd(cmder))
	cmd.AddCommand(newDownloadCmd(cmder))
	cmd.AddCommand(newTemplateCmd(cmder))

	return cmd
}

func (c *commander) apiClient() (*client.Client, error) {
	c.logger = logger.NewLogger(c.debug)

	userID, err := identity.Load(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading identity: %w", err)
	}

	return client.New(c.apiTarget, userID, c.logger), nil
}
