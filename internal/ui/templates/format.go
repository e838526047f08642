package templates

import (
	"math"

	"github.com/dustin/go-humanize"
)

// FormatUSD renders a salary as whole dollars with thousands separators.
func FormatUSD(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return "$" + humanize.Comma(int64(math.Round(v)))
}

func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}
