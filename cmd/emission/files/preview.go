package filescmder

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Kirito123l/emission-agent/pkg/cliui"
)

const previewLongDesc string = `Inspect a route or fleet spreadsheet before sending it to the assistant.

The backend parses the file and returns its columns and first rows, so
malformed files surface before a chat turn is spent on them.

Examples:
  emission files preview route.csv`

func newPreviewCmd(cmder *commander) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <path>",
		Short: "Inspect a spreadsheet before sending",
		Long:  previewLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return cmder.runPreview(args[0])
		},
	}
}

func (c *commander) runPreview(path string) error {
	api, err := c.apiClient()
	if err != nil {
		return err
	}

	preview, err := api.PreviewFile(context.Background(), path)
	if err != nil {
		return fmt.Errorf("previewing file: %w", err)
	}

	fmt.Printf("\n  %s %s\n\n",
		cliui.KeyStyle.Render("File:"),
		cliui.NameStyle.Render(preview.Filename),
	)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(cliui.DimStyle).
		Headers(preview.Columns...)
	for _, row := range preview.Rows {
		cells := make([]string, len(preview.Columns))
		for i, col := range preview.Columns {
			cells[i] = fmt.Sprint(row[col])
		}
		t.Row(cells...)
	}
	fmt.Println(t.Render())

	fmt.Printf("  %s\n\n", cliui.DimStyle.Render(fmt.Sprintf("%d rows shown", preview.RowCount)))
	return nil
}
