package template

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"blkmsg/internal/config"
)

// Report is the pre-batch audit of one template.
type Report struct {
	Path  string
	Chars int
	// Rate is the sustained chars/sec needed to type it within the typing cap.
	Rate float64
	// TooFast is advisory: it never removes the template from the batch.
	TooFast bool
	// Err is set when the template is missing, unreadable or empty.
	Err error
}

// Health is the result of Check.
type Health struct {
	Reports []Report
	// Usable lists the paths that passed, in configured order.
	Usable []string
}

// Check verifies every configured template exists and is non-empty and
// estimates its typing rate against maxTyping. It fails with
// config.ErrConfiguration only when no template is usable.
func Check(paths []string, maxTyping time.Duration, tooFast float64) (Health, error) {
	var h Health
	for _, p := range paths {
		r := Report{Path: p}
		b, err := os.ReadFile(p)
		switch {
		case err != nil:
			r.Err = err
		case strings.TrimSpace(string(b)) == "":
			r.Err = fmt.Errorf("%s is empty", p)
		default:
			r.Chars = utf8.RuneCount(b)
			if secs := maxTyping.Seconds(); secs > 0 {
				r.Rate = float64(r.Chars) / secs
			}
			r.TooFast = tooFast > 0 && r.Rate > tooFast
			h.Usable = append(h.Usable, p)
		}
		h.Reports = append(h.Reports, r)
	}
	if len(h.Usable) == 0 {
		return h, fmt.Errorf("%w: no usable template among %d configured", config.ErrConfiguration, len(paths))
	}
	return h, nil
}
