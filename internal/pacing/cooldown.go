package pacing

import (
	"context"
	"time"
)

// Countdown receives the remaining seconds of a cooldown.
type Countdown interface {
	Tick(remaining int)
	Clear()
}

// Cooldown spaces consecutive sends by a random whole number of seconds.
type Cooldown struct {
	Min, Max int

	clock Clock
	rand  Rand
	out   Countdown
}

func NewCooldown(minSeconds, maxSeconds int, clock Clock, rnd Rand, out Countdown) *Cooldown {
	if clock == nil {
		clock = SystemClock()
	}
	if rnd == nil {
		rnd = NewRand()
	}
	return &Cooldown{Min: minSeconds, Max: maxSeconds, clock: clock, rand: rnd, out: out}
}

// Wait blocks for a random delay in [Min, Max] seconds, reporting every
// second to the countdown. It returns the chosen delay; nothing happens
// when last is true.
func (c *Cooldown) Wait(ctx context.Context, last bool) (int, error) {
	if last {
		return 0, nil
	}
	delay := IntRange(c.rand, c.Min, c.Max)
	if c.out != nil {
		defer c.out.Clear()
	}
	for left := delay; left > 0; left-- {
		if c.out != nil {
			c.out.Tick(left)
		}
		if err := c.clock.Sleep(ctx, time.Second); err != nil {
			return delay, err
		}
	}
	return delay, nil
}
