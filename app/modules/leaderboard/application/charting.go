package leaderboardservice

import (
	"bytes"
	"fmt"

	leaderboarddomain "github.com/Black-And-White-Club/keyquest/app/modules/leaderboard/domain"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ChartPalette colours the leaderboard chart.
type ChartPalette struct {
	Background drawing.Color
	TextColor  drawing.Color
	// TierColors is indexed by tier short label; unknown tiers use Bar.
	TierColors map[string]drawing.Color
	Bar        drawing.Color
}

// DefaultPalette is the dark control-room theme.
func DefaultPalette() ChartPalette {
	return ChartPalette{
		Background: drawing.ColorFromHex("0b1020"),
		TextColor:  drawing.ColorFromHex("e2e8f0"),
		Bar:        drawing.ColorFromHex("38bdf8"),
		TierColors: map[string]drawing.Color{
			"Elite":      drawing.ColorFromHex("facc15"),
			"Expert":     drawing.ColorFromHex("cbd5e1"),
			"Apprentice": drawing.ColorFromHex("f97316"),
			"At risk":    drawing.ColorFromHex("ef4444"),
		},
	}
}

const (
	chartBarWidth   = 48
	chartBarSpacing = 24
	maxLabelRunes   = 14
)

// GenerateStandingsChart produces a PNG bar chart of total score per team,
// one bar per standing in rank order.
func GenerateStandingsChart(standings []leaderboarddomain.Standing, maxTotal int, palette ChartPalette) ([]byte, error) {
	if len(standings) == 0 {
		return renderNoDataPlaceholder(palette)
	}

	bars := make([]chart.Value, 0, len(standings))
	for _, s := range standings {
		color, ok := palette.TierColors[s.Tier.ShortLabel]
		if !ok {
			color = palette.Bar
		}
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%d. %s", s.Rank, truncate(s.TeamName, maxLabelRunes)),
			Value: float64(s.TotalScore),
			Style: chart.Style{
				FillColor:   color,
				StrokeColor: color,
				StrokeWidth: 0,
			},
		})
	}

	width := len(bars)*(chartBarWidth+chartBarSpacing) + 160
	if width < 800 {
		width = 800
	}

	graph := chart.BarChart{
		Title:      "Leaderboard",
		TitleStyle: chart.Style{FontColor: palette.TextColor},
		Width:      width,
		Height:     420,
		BarWidth:   chartBarWidth,
		BarSpacing: chartBarSpacing,
		Background: chart.Style{
			FillColor: palette.Background,
			Padding:   chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16},
		},
		Canvas: chart.Style{FillColor: palette.Background},
		XAxis:  chart.Style{FontColor: palette.TextColor, FontSize: 9},
		YAxis: chart.YAxis{
			Style: chart.Style{FontColor: palette.TextColor},
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxTotal)},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func renderNoDataPlaceholder(palette ChartPalette) ([]byte, error) {
	const (
		width  = 400
		height = 200
		msg    = "No results yet"
	)

	graph := chart.Chart{
		Width:  width,
		Height: height,
		Background: chart.Style{
			FillColor: palette.Background,
		},
		Canvas: chart.Style{
			FillColor: palette.Background,
		},
		Elements: []chart.Renderable{
			func(r chart.Renderer, cb chart.Box, chartDefaults chart.Style) {
				r.SetFontColor(palette.TextColor)
				r.SetFontSize(12.0)
				tb := r.MeasureText(msg)
				x := (cb.Width() - tb.Width()) / 2
				y := (cb.Height() + tb.Height()) / 2
				r.Text(msg, x, y)
			},
		},
	}
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
