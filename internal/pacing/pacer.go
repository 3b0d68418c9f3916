// Package pacing renders text into a chat field over a target duration and
// spaces consecutive sends apart.
package pacing

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	logx "blkmsg/pkg/logx"
)

// Field is the part of a UI element the pacer types into.
type Field interface {
	SendKeys(ctx context.Context, text string) error
	// SoftNewline inserts a line break without submitting (modifier+Enter).
	SoftNewline(ctx context.Context) error
}

// Config controls the pacer.
type Config struct {
	// MaxDuration caps the typing time of a single message.
	MaxDuration time.Duration
	// PerChar is the natural typing speed used for short messages.
	PerChar time.Duration
	// NewlineSettle is the pause after each soft newline.
	NewlineSettle time.Duration
}

// Plan is the pacing budget of one message.
type Plan struct {
	TotalChars int
	Target     time.Duration
}

// Stats describes one Type run.
type Stats struct {
	Chunks   int
	Newlines int
	Sleeps   int
	Elapsed  time.Duration
}

// Pacer types text with a closed-loop schedule: when injection falls behind,
// chunks grow so lost time is recovered; when on schedule it types single
// keystrokes and sleeps up to the next target timestamp.
type Pacer struct {
	cfg   Config
	clock Clock
	rand  Rand
	log   logx.Logger
}

func NewPacer(cfg Config, clock Clock, rnd Rand, log logx.Logger) *Pacer {
	if clock == nil {
		clock = SystemClock()
	}
	if rnd == nil {
		rnd = NewRand()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Pacer{cfg: cfg, clock: clock, rand: rnd, log: log}
}

// Plan returns min(MaxDuration, chars*PerChar) for text.
func (p *Pacer) Plan(text string) Plan {
	n := utf8.RuneCountInString(text)
	target := time.Duration(n) * p.cfg.PerChar
	if p.cfg.MaxDuration > 0 && target > p.cfg.MaxDuration {
		target = p.cfg.MaxDuration
	}
	return Plan{TotalChars: n, Target: target}
}

// Type injects text into f so the whole run takes about target.
//
// Line breaks are sent as soft newlines and count as one character of
// progress. Driver errors are returned as-is; ctx is checked before every
// chunk and interrupts any pending sleep.
func (p *Pacer) Type(ctx context.Context, f Field, text string, target time.Duration) (Stats, error) {
	var st Stats
	total := utf8.RuneCountInString(text)
	if total == 0 {
		return st, nil
	}

	start := p.clock.Now()
	at := func(done int) time.Duration {
		return time.Duration(float64(target) * float64(done) / float64(total))
	}

	lines := strings.Split(text, "\n")
	processed := 0
	for i, line := range lines {
		runes := []rune(line)
		for idx := 0; idx < len(runes); {
			if err := ctx.Err(); err != nil {
				return st, err
			}
			size := p.chunkSize(p.clock.Now().Sub(start), at(processed))
			if rest := len(runes) - idx; size > rest {
				size = rest
			}

			if err := f.SendKeys(ctx, string(runes[idx:idx+size])); err != nil {
				return st, err
			}
			st.Chunks++
			idx += size
			processed += size

			// Only sleep when ahead; skipping the sleep is what lets
			// larger chunks actually recover lost time.
			if wait := at(processed) - p.clock.Now().Sub(start); wait > 0 {
				st.Sleeps++
				if err := p.clock.Sleep(ctx, wait); err != nil {
					return st, err
				}
			}
		}

		if i < len(lines)-1 {
			if err := f.SoftNewline(ctx); err != nil {
				return st, err
			}
			st.Newlines++
			processed++
			if err := p.clock.Sleep(ctx, p.cfg.NewlineSettle); err != nil {
				return st, err
			}
		}
	}

	st.Elapsed = p.clock.Now().Sub(start)
	p.log.Debug("typing finished",
		logx.Int("chars", total),
		logx.Int("chunks", st.Chunks),
		logx.Duration("target", target),
		logx.Duration("elapsed", st.Elapsed),
	)
	return st, nil
}

// chunkSize picks how many characters the next injection carries.
func (p *Pacer) chunkSize(elapsed, expected time.Duration) int {
	switch {
	case elapsed > expected+time.Second:
		return IntRange(p.rand, 3, 6)
	case elapsed > expected:
		return IntRange(p.rand, 2, 3)
	default:
		return 1
	}
}
