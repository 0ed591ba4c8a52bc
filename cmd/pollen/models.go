package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"

	"github.com/germanamz/pollen/pkg/pollinations"
)

const modelsSummary = `List the text models offered by Pollinations. The Name column is the value
to pass as --model; models in the anonymous tier work without an API key.`

// descriptionWidth is the display width of the Description column.
const descriptionWidth = 30

const visionColumn = 4

func runModels(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f := newFlags("models", modelsSummary, stderr)
	if err := f.fs.Parse(args); err != nil {
		return err
	}

	s, err := f.load(stderr)
	if err != nil {
		return err
	}

	models, err := s.client.ListModels(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, modelsTable(models))

	return nil
}

func modelsTable(models []pollinations.ModelDescriptor) string {
	rows := make([][]string, 0, len(models))
	for _, m := range models {
		rows = append(rows, []string{
			m.Name,
			shortDescription(m.Description),
			m.Provider,
			m.Tier,
			strconv.FormatBool(m.Vision),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("Name", "Description", "Provider", "Tier", "Vision").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == visionColumn && row < len(models) && models[row].Vision:
				return visionStyle
			default:
				return cellStyle
			}
		})

	return t.String()
}

// shortDescription flattens d onto one line and truncates it to the
// Description column width.
func shortDescription(d string) string {
	return runewidth.Truncate(strings.Join(strings.Fields(d), " "), descriptionWidth, "...")
}
