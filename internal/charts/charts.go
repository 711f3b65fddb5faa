// Package charts renders summary totals as PNG images.
package charts

import (
	"bytes"
	"errors"
	"fmt"

	"expensebot/internal/core"

	"github.com/wcharczuk/go-chart/v2"
)

// ErrNoData is returned when there is nothing positive to plot.
var ErrNoData = errors.New("no data to chart")

// Generator renders charts with a fixed currency symbol for labels.
type Generator struct {
	Currency string
	Width    int
	Height   int
}

func NewGenerator(currency string) *Generator {
	return &Generator{Currency: currency, Width: 800, Height: 600}
}

// CategoryPie renders the category totals of s, largest slice first.
func (g *Generator) CategoryPie(s core.SummaryResult) ([]byte, error) {
	totals := positive(s.CategoryTotals.Sorted())
	if len(totals) == 0 {
		return nil, ErrNoData
	}

	var sum float64
	for _, t := range totals {
		sum += t.Amount
	}
	values := make([]chart.Value, 0, len(totals))
	for _, t := range totals {
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: %s (%.1f%%)", t.Name, core.FormatCurrency(g.Currency, t.Amount), t.Amount*100/sum),
			Value: t.Amount,
			Style: chart.Style{FontSize: 12, FontColor: chart.ColorBlack},
		})
	}

	pie := chart.PieChart{
		Title:      "Expenses by Category: " + s.Period.Label(),
		Width:      g.Width,
		Height:     g.Height,
		Values:     values,
		Background: background(),
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := pie.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render category pie chart: %w", err)
	}
	return buffer.Bytes(), nil
}

// UserBar renders one bar per user, largest first.
func (g *Generator) UserBar(s core.SummaryResult) ([]byte, error) {
	totals := positive(s.UserTotals.Sorted())
	if len(totals) == 0 {
		return nil, ErrNoData
	}

	bars := make([]chart.Value, 0, len(totals))
	for _, t := range totals {
		bars = append(bars, chart.Value{
			Label: t.Name,
			Value: t.Amount,
			Style: chart.Style{
				StrokeColor: chart.ColorBlue,
				FillColor:   chart.ColorBlue.WithAlpha(160),
			},
		})
	}

	barWidth := 60
	if w := (g.Width - 100) / (2 * len(bars)); w < barWidth {
		barWidth = w
	}
	if barWidth < 5 {
		barWidth = 5
	}

	graph := chart.BarChart{
		Title:      "Expenses by User: " + s.Period.Label(),
		TitleStyle: chart.Style{FontSize: 14, FontColor: chart.ColorBlack},
		Width:      g.Width,
		Height:     g.Height,
		BarWidth:   barWidth,
		Background: background(),
		YAxis: chart.YAxis{
			// An explicit range keeps a single bar from producing a zero-height axis.
			Range: &chart.ContinuousRange{Min: 0, Max: totals[0].Amount * 1.1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%s%.0f", g.Currency, f)
				}
				return ""
			},
			Style: chart.Style{FontSize: 12, FontColor: chart.ColorBlack},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render user bar chart: %w", err)
	}
	return buffer.Bytes(), nil
}

func background() chart.Style {
	return chart.Style{
		Padding:   chart.Box{Top: 50, Left: 50, Right: 50, Bottom: 50},
		FillColor: chart.ColorWhite,
	}
}

func positive(t core.Totals) core.Totals {
	out := t[:0:0]
	for _, v := range t {
		if v.Amount > 0 {
			out = append(out, v)
		}
	}
	return out
}
