package progress

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"blkmsg/internal/contact"
	"blkmsg/internal/dispatch"
	"blkmsg/internal/template"
)

const rule = "══════════════════════════════════════════════════"

// Console writes one line per batch event plus a self-overwriting countdown
// line. It implements dispatch.Observer and pacing.Countdown.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	width int
	// length of the countdown line currently on screen
	pending int
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w, width: DefaultWidth}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
	fmt.Fprintf(c.w, format, args...)
}

func (c *Console) Banner(title, batchID string) {
	c.printf("\n%s\n      %s\n      batch %s\n%s\n\n", rule, title, batchID, rule)
}

// Health prints the template audit.
func (c *Console) Health(h template.Health) {
	var b strings.Builder
	b.WriteString("[Audit] Checking template speeds...\n")
	for _, r := range h.Reports {
		name := filepath.Base(r.Path)
		if r.Err != nil {
			fmt.Fprintf(&b, "   • %s: MISSING (%v)\n", name, r.Err)
			continue
		}
		status := "OK"
		if r.TooFast {
			status = "FAST"
		}
		fmt.Fprintf(&b, "   • %s: %d chars -> ~%.1f chars/sec | %s\n", name, r.Chars, r.Rate, status)
	}
	b.WriteString(rule + "\n")
	c.printf("%s", b.String())
}

func (c *Console) Attempt(st dispatch.BatchState, r contact.Recipient, tpl string) {
	c.printf("   [%d/%d] Sending to %s (%s) via %s...\n", st.Index, st.Total, r.Name, r.DialNumber, filepath.Base(tpl))
}

func (c *Console) Outcome(st dispatch.BatchState, res dispatch.Result) {
	if res.Outcome == dispatch.OutcomeSent {
		c.printf("      SENT\n   Progress: %s\n", Bar(st.Index, st.Total, c.width))
		return
	}
	c.printf("      FAILED\n      Reason: %v\n", res.Err)
}

// Tick redraws the countdown line in place.
func (c *Console) Tick(remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	line := fmt.Sprintf("\r   Cooldown: %ds... ", remaining)
	fmt.Fprint(c.w, line)
	c.pending = len(line)
}

// Clear erases the countdown line.
func (c *Console) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Console) clearLocked() {
	if c.pending == 0 {
		return
	}
	fmt.Fprint(c.w, "\r"+strings.Repeat(" ", c.pending)+"\r")
	c.pending = 0
}

func (c *Console) Finished(sum dispatch.Summary) {
	verb := "finished"
	if sum.Canceled {
		verb = "interrupted"
	}
	c.printf("\n   Broadcast %s: %d sent, %d failed, %d pending of %d.\n", verb, sum.Sent, sum.Failed, sum.Pending(), sum.Total)
}
