// Package charts renders summary graphics for the UI.
package charts

import (
	"bytes"
	"fmt"

	chart "github.com/wcharczuk/go-chart/v2"

	"tripexpense/internal/core"
)

// Generator renders trip summaries as PNG images.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// CategoryBreakdown draws a bar chart of spend per category. Returns
// (nil, nil) when there is nothing to draw.
func (g *Generator) CategoryBreakdown(ov core.TripOverview) ([]byte, error) {
	if len(ov.ByCategory) == 0 {
		return nil, nil
	}

	bars := make([]chart.Value, 0, len(ov.ByCategory))
	for _, ca := range ov.ByCategory {
		bars = append(bars, chart.Value{
			Label: ca.Name,
			Value: ca.Amount.Decimal(),
		})
	}

	graph := chart.BarChart{
		Title:    "Spend by category",
		Width:    900,
		Height:   420,
		BarWidth: 48,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render category chart: %w", err)
	}
	return buf.Bytes(), nil
}
