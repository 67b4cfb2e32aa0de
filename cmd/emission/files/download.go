package filescmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kirito123l/emission-agent/pkg/cliui"
)

const downloadLongDesc string = `Download a generated result file.

By default the file is fetched by the ID the assistant reported. With
--session and --message it is fetched by the assistant message that
produced it instead.

The file is written to the current directory under its server-side
name unless --output is given.

Examples:
  emission files download 9c2e41a7-...
  emission files download --session 4f7c... --message a81b... -o result.csv`

func newDownloadCmd(cmder *commander) *cobra.Command {
	var sessionID, messageID, output string

	cmd := &cobra.Command{
		Use:   "download [file-id]",
		Short: "Download a generated result file",
		Long:  downloadLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			fileID := ""
			if len(args) == 1 {
				fileID = args[0]
			}

			if fileID == "" && (sessionID == "" || messageID == "") {
				return fmt.Errorf("provide a file ID, or both --session and --message")
			}
			return cmder.runDownload(fileID, sessionID, messageID, output)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session that produced the file")
	cmd.Flags().StringVar(&messageID, "message", "", "Assistant message that produced the file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (defaults to the server-side filename)")

	return cmd
}

func (c *commander) runDownload(fileID, sessionID, messageID, output string) error {
	api, err := c.apiClient()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(".", ".emission-download-*")
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	var serverName string
	err = cliui.Step(os.Stdout, "Downloading result", func() error {
		var dlErr error
		if fileID != "" {
			serverName, dlErr = api.DownloadFile(context.Background(), fileID, tmp)
		} else {
			serverName, dlErr = api.DownloadMessageFile(context.Background(), sessionID, messageID, tmp)
		}
		return dlErr
	})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("downloading file: %w", err)
	}

	dest := output
	if dest == "" {
		dest = serverName
	}
	if dest == "" {
		dest = "result.csv"
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}

	fmt.Printf("  %s Saved %s\n", cliui.SuccessMark, cliui.NameStyle.Render(dest))
	return nil
}
