// Package format renders engine values for display.
package format

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

type magnitude struct {
	scale  float64
	suffix string
}

// Display values are never digit-grouped.
const (
	twoDecimals = "####.##"
	whole       = "####."
)

var magnitudes = []magnitude{
	{1e9, "G"},
	{1e6, "M"},
	{1e3, "K"},
}

// RP renders research points: two decimals with a K/M/G suffix from one
// thousand upwards, a whole number below that.
func RP(rp float64) string {
	for _, m := range magnitudes {
		if rp >= m.scale {
			return humanize.FormatFloat(twoDecimals, rp/m.scale) + m.suffix
		}
	}
	return humanize.FormatFloat(whole, rp)
}

// Rate renders a research rate as "<n> RP/s" with two decimals, switching to
// a K suffix from one thousand upwards.
func Rate(rate float64) string {
	if rate >= 1e3 {
		return humanize.FormatFloat(twoDecimals, rate/1e3) + "K RP/s"
	}
	return humanize.FormatFloat(twoDecimals, rate) + " RP/s"
}

// Elapsed renders seconds as m:ss. Minutes are unbounded.
func Elapsed(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// Count renders an integer with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}
