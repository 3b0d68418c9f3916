package pacing

import (
	"context"
	"time"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

// seqRand replays vals (mod n) and records every bound it was asked for.
type seqRand struct {
	vals  []int
	i     int
	calls []int
}

func (r *seqRand) IntN(n int) int {
	r.calls = append(r.calls, n)
	v := 0
	if len(r.vals) > 0 {
		v = r.vals[r.i%len(r.vals)]
		r.i++
	}
	return v % n
}

// fakeField records injections; lag is added to the clock on every SendKeys.
type fakeField struct {
	clock    *fakeClock
	lag      time.Duration
	chunks   []string
	newlines int
	typed    []byte
}

func (f *fakeField) SendKeys(_ context.Context, text string) error {
	f.chunks = append(f.chunks, text)
	f.typed = append(f.typed, text...)
	if f.clock != nil {
		f.clock.now = f.clock.now.Add(f.lag)
	}
	return nil
}

func (f *fakeField) SoftNewline(context.Context) error {
	f.newlines++
	f.typed = append(f.typed, '\n')
	return nil
}

type countdownRec struct {
	ticks   []int
	cleared int
}

func (c *countdownRec) Tick(n int) { c.ticks = append(c.ticks, n) }
func (c *countdownRec) Clear()     { c.cleared++ }
