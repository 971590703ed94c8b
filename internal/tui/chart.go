package tui

import (
	"fmt"
	"math"
	"strings"

	"hedera-pulse/internal/domain"
)

const (
	minChartWidth  = 16
	minChartHeight = 3
)

// RenderLineChart draws series as a text line chart of the given outer size.
// Values are scaled between the series min and max; the x axis is labelled
// with the first and last timestamps.
func RenderLineChart(series domain.Series, width, height int) string {
	if len(series) == 0 {
		return "no data"
	}
	if width < minChartWidth {
		width = minChartWidth
	}
	if height < minChartHeight {
		height = minChartHeight
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, m := range series {
		if math.IsNaN(m.Value) {
			continue
		}
		lo = math.Min(lo, m.Value)
		hi = math.Max(hi, m.Value)
	}
	if lo > hi {
		lo, hi = 0, 0
	}

	hiLabel, loLabel := FormatValue(hi), FormatValue(lo)
	labelW := max(len(hiLabel), len(loLabel))
	plotW := max(width-labelW-2, 2)

	values := resample(series, plotW)
	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", plotW))
	}

	// halves keep hi-lo finite for values near ±MaxFloat64
	span := hi/2 - lo/2
	rowOf := func(v float64) int {
		if span == 0 {
			return height / 2
		}
		scaled := (v/2 - lo/2) / span * float64(height-1)
		if math.IsNaN(scaled) || math.IsInf(scaled, 0) {
			return height / 2
		}
		return height - 1 - min(max(int(math.Round(scaled)), 0), height-1)
	}

	prev := -1
	for col, v := range values {
		row := rowOf(v)
		if prev >= 0 && row != prev {
			step := 1
			if row < prev {
				step = -1
			}
			for r := prev + step; r != row; r += step {
				grid[r][col] = '│'
			}
		}
		grid[row][col] = '•'
		prev = row
	}

	var b strings.Builder
	for r, line := range grid {
		label, tick := "", '│'
		switch r {
		case 0:
			label, tick = hiLabel, '┤'
		case height - 1:
			label, tick = loLabel, '┤'
		}
		fmt.Fprintf(&b, "%*s %c%s\n", labelW, label, tick, string(line))
	}
	fmt.Fprintf(&b, "%s└%s\n", strings.Repeat(" ", labelW+1), strings.Repeat("─", plotW))
	b.WriteString(xLabels(series, labelW+2, plotW))
	return b.String()
}

// resample maps the series onto at most n columns, keeping the first and last points.
func resample(series domain.Series, n int) []float64 {
	if len(series) <= n {
		out := make([]float64, len(series))
		for i, m := range series {
			out[i] = m.Value
		}
		return out
	}
	out := make([]float64, n)
	for i := range out {
		idx := i * (len(series) - 1) / (n - 1)
		out[i] = series[idx].Value
	}
	return out
}

func xLabels(series domain.Series, indent, plotW int) string {
	first := series[0].Timestamp
	last := series[len(series)-1].Timestamp
	pad := strings.Repeat(" ", indent)
	if len(series) == 1 || first == last {
		return pad + first
	}
	gap := plotW - len(first) - len(last)
	if gap < 1 {
		return pad + first + " → " + last
	}
	return pad + first + strings.Repeat(" ", gap) + last
}

// FormatValue renders large counts compactly (5000000 -> 5.00M).
func FormatValue(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%.2e", v)
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case abs >= 1e4:
		return fmt.Sprintf("%.1fk", v/1e3)
	case v == math.Trunc(v):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
