package progress

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"blkmsg/internal/contact"
	"blkmsg/internal/dispatch"
)

func TestBar(t *testing.T) {
	t.Parallel()
	tests := []struct {
		index, total, width int
		want                string
	}{
		{index: 0, total: 4, width: 4, want: "[----] 0%"},
		{index: 1, total: 4, width: 4, want: "[█---] 25%"},
		{index: 1, total: 3, width: 30, want: "[" + strings.Repeat("█", 10) + strings.Repeat("-", 20) + "] 33%"},
		{index: 2, total: 3, width: 30, want: "[" + strings.Repeat("█", 20) + strings.Repeat("-", 10) + "] 66%"},
		{index: 3, total: 3, width: 10, want: "[" + strings.Repeat("█", 10) + "] 100%"},
		{index: 5, total: 3, width: 2, want: "[██] 100%"},
		{index: 1, total: 0, width: 2, want: "[--] 0%"},
	}
	for _, tt := range tests {
		if got := Bar(tt.index, tt.total, tt.width); got != tt.want {
			t.Fatalf("Bar(%d,%d,%d) = %q, want %q", tt.index, tt.total, tt.width, got, tt.want)
		}
	}
}

func TestConsoleCountdownIsClearedBeforeNextLine(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Tick(3)
	c.Tick(2)
	c.Attempt(dispatch.BatchState{Index: 2, Total: 3}, contact.Recipient{Name: "Ravi", DialNumber: "91"}, "/tmp/t2.md")

	out := buf.String()
	if !strings.Contains(out, "\r   Cooldown: 2s... ") {
		t.Fatalf("countdown not drawn: %q", out)
	}
	clearSeq := "\r" + strings.Repeat(" ", len("\r   Cooldown: 2s... ")) + "\r"
	if !strings.Contains(out, clearSeq+"   [2/3] Sending to Ravi (91) via t2.md...\n") {
		t.Fatalf("countdown not erased before next line: %q", out)
	}
}

func TestConsoleOutcome(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Outcome(dispatch.BatchState{Index: 1, Total: 2}, dispatch.Result{Outcome: dispatch.OutcomeSent})
	c.Outcome(dispatch.BatchState{Index: 2, Total: 2}, dispatch.Result{Outcome: dispatch.OutcomeFailed, Err: errors.New("timed out")})

	out := buf.String()
	if !strings.Contains(out, "SENT\n   Progress: [") || !strings.Contains(out, "] 50%") {
		t.Fatalf("sent line missing: %q", out)
	}
	if !strings.Contains(out, "FAILED\n      Reason: timed out") {
		t.Fatalf("failure line missing: %q", out)
	}
}
