package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"wallet/internal/core"
)

// ErrNoExpenses is returned when there is nothing to plot.
var ErrNoExpenses = core.NewValidationError("no expenses to chart")

var palette = []drawing.Color{
	drawing.ColorFromHex("2563eb"), // blue-600
	drawing.ColorFromHex("dc2626"), // red-600
	drawing.ColorFromHex("16a34a"), // green-600
	drawing.ColorFromHex("d97706"), // amber-600
	drawing.ColorFromHex("7c3aed"), // violet-600
	drawing.ColorFromHex("0891b2"), // cyan-600
	drawing.ColorFromHex("db2777"), // pink-600
	drawing.ColorFromHex("4b5563"), // gray-600
}

// RenderExpenseChart writes a PNG pie chart of expense totals per category.
// Slices follow category name order.
func RenderExpenseChart(w io.Writer, expenses map[string]decimal.Decimal) error {
	values := make([]chart.Value, 0, len(expenses))
	for i, category := range core.SortedCategories(expenses) {
		amount := expenses[category]
		if !amount.IsPositive() {
			continue
		}
		f, _ := amount.Float64()
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %s", category, core.FormatAmount(amount)),
			Value: f,
			Style: chart.Style{FillColor: palette[i%len(palette)]},
		})
	}
	if len(values) == 0 {
		return ErrNoExpenses
	}

	pie := chart.PieChart{
		Title:  "Expenses by Category",
		Width:  640,
		Height: 640,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10, Bottom: 10},
		},
		Values: values,
	}

	if err := pie.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("chart render failed: %w", err)
	}
	return nil
}

// WriteExpenseChart renders the chart to dir/<username>-expenses.png and
// returns the file path.
func WriteExpenseChart(dir, username string, expenses map[string]decimal.Decimal) (string, error) {
	var buf bytes.Buffer
	if err := RenderExpenseChart(&buf, expenses); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create chart directory: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(username)+"-expenses.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write chart: %w", err)
	}
	return path, nil
}
