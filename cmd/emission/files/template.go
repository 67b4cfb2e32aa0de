package filescmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kirito123l/emission-agent/pkg/cliui"
)

const templateLongDesc string = `Download an input template.

Templates show the column layout the assistant expects:
  route    Per-segment route file (distance, average speed, road type)
  fleet    Vehicle fleet file (type, model year, fuel, annual mileage)

Examples:
  emission files template route
  emission files template fleet -o my_fleet.csv`

func newTemplateCmd(cmder *commander) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:       "template <route|fleet>",
		Short:     "Download an input template",
		Long:      templateLongDesc,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"route", "fleet"},
		RunE: func(_ *cobra.Command, args []string) error {
			return cmder.runTemplate(args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (defaults to the server-side filename)")
	return cmd
}

func (c *commander) runTemplate(templateType, output string) error {
	api, err := c.apiClient()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(".", ".emission-template-*")
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	serverName, err := api.DownloadTemplate(context.Background(), templateType, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("downloading template: %w", err)
	}

	dest := output
	if dest == "" {
		dest = serverName
	}
	if dest == "" {
		dest = templateType + "_template.csv"
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}

	fmt.Printf("  %s Saved %s\n", cliui.SuccessMark, cliui.NameStyle.Render(dest))
	return nil
}
