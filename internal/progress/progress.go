// Package progress renders operator-facing batch output: the progress bar,
// per-contact lines and the cooldown countdown.
package progress

import (
	"strconv"
	"strings"
)

const DefaultWidth = 30

// Bar renders "[█████-----] 50%" for index of total. It has no state.
func Bar(index, total, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	pct := 0.0
	if total > 0 {
		pct = float64(index) * 100 / float64(total)
	}
	pct = min(max(pct, 0), 100)
	filled := int(pct / 100 * float64(width))

	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(strings.Repeat("█", filled))
	b.WriteString(strings.Repeat("-", width-filled))
	b.WriteString("] ")
	b.WriteString(strconv.Itoa(int(pct)))
	b.WriteByte('%')
	return b.String()
}
