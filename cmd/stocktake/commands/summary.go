package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/garyjia/stocktake/internal/domain/entity"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func summaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary FILE",
		Short: "Print per-area item counts and quantities of an item list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := a.importRun(cmd, args[0])
			if err != nil {
				return err
			}

			renderSummary(cmd.OutOrStdout(), run.Areas, run.Total)
			return nil
		},
	}
}

func renderSummary(w io.Writer, areas []entity.AreaSummary, total entity.AreaSummary) {
	row := func(s entity.AreaSummary, name string) []string {
		return []string{
			name,
			strconv.Itoa(s.TotalItems),
			strconv.Itoa(s.TotalQuantity),
			strconv.Itoa(s.ZeroCountItems),
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Area", "Items", "Quantity", "Not counted").
		StyleFunc(func(r, c int) lipgloss.Style {
			if r == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, s := range areas {
		t.Row(row(s, s.Area)...)
	}
	t.Row(row(total, "Total")...)

	fmt.Fprintln(w, t.Render())
}
