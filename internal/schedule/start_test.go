package schedule

import (
	"context"
	"testing"
	"time"

	logx "blkmsg/pkg/logx"
)

func TestParseVariants(t *testing.T) {
	t.Parallel()
	utc := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		spec string
		want time.Time
	}{
		{name: "hhmm later today", spec: "09:15", want: time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)},
		{name: "hhmm tomorrow", spec: "08:00", want: time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)},
		{name: "cron", spec: "0 18 * * 1-5", want: time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)},
		{name: "descriptor", spec: "@daily", want: time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse(tt.spec, "UTC")
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.spec, err)
			}
			if got := s.Next(utc); !got.Equal(tt.want) {
				t.Fatalf("Next = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()
	for _, spec := range []string{"25:00", "tomorrow", "* * *"} {
		if _, err := Parse(spec, ""); err == nil {
			t.Fatalf("Parse(%q): expected error", spec)
		}
	}
	if _, err := Parse("09:00", "Mars/Olympus"); err == nil {
		t.Fatal("expected timezone error")
	}
}

type stepClock struct {
	now   time.Time
	slept time.Duration
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.slept += d
	c.now = c.now.Add(d)
	return nil
}

func TestWaitSleepsUntilNext(t *testing.T) {
	t.Parallel()
	s, err := Parse("09:00", "UTC")
	if err != nil {
		t.Fatal(err)
	}
	clk := &stepClock{now: time.Date(2026, 3, 10, 8, 59, 30, 0, time.UTC)}
	at, err := s.Wait(context.Background(), clk, logx.Nop())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if clk.slept != 30*time.Second || !at.Equal(clk.now) {
		t.Fatalf("slept %v, at %v, now %v", clk.slept, at, clk.now)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Wait(ctx, clk, logx.Nop()); err != context.Canceled {
		t.Fatalf("canceled Wait err = %v", err)
	}
}
