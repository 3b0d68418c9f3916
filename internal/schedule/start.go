// Package schedule holds the optional delayed start of a batch.
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"blkmsg/internal/pacing"
	logx "blkmsg/pkg/logx"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Start is the next time a batch may begin.
type Start struct {
	raw   string
	sched cron.Schedule
	loc   *time.Location
}

// Parse accepts a 5-field cron expression, a descriptor such as "@daily", or
// a wall-clock "HH:MM" (every day at that time). tz is an IANA zone name;
// empty means local time.
func Parse(spec, tz string) (*Start, error) {
	spec = strings.TrimSpace(spec)
	loc := time.Local
	if tz = strings.TrimSpace(tz); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("timezone %q: %w", tz, err)
		}
		loc = l
	}

	expr := spec
	if h, m, ok := parseHHMM(spec); ok {
		expr = fmt.Sprintf("%d %d * * *", m, h)
	}
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("start_at %q: %w", spec, err)
	}
	return &Start{raw: spec, sched: sched, loc: loc}, nil
}

func (s *Start) String() string { return s.raw }

// Next returns the first start time strictly after now.
func (s *Start) Next(now time.Time) time.Time {
	return s.sched.Next(now.In(s.loc))
}

// Wait blocks until the next start time, logging the target once.
func (s *Start) Wait(ctx context.Context, clock pacing.Clock, log logx.Logger) (time.Time, error) {
	now := clock.Now()
	at := s.Next(now)
	log.Info("waiting for scheduled start", logx.String("start_at", s.raw), logx.String("at", at.Format(time.RFC3339)), logx.Duration("in", at.Sub(now).Round(time.Second)))
	if err := clock.Sleep(ctx, at.Sub(now)); err != nil {
		return at, err
	}
	return at, nil
}

func parseHHMM(s string) (hour, minute int, ok bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
