package chart

import (
	"math"
	"strconv"

	"gonum.org/v1/plot"
)

// percentTicks labels a fraction axis in percent.
type percentTicks struct{}

func (percentTicks) Ticks(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = formatPercent(ticks[i].Value)
		}
	}
	return ticks
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e4)/1e2, 'f', -1, 64) + "%"
}
