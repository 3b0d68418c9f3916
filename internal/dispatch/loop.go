// Package dispatch runs a batch of sends through the chat UI, one contact at
// a time: search, compose, type, send, then cool down. A failing contact is
// recorded, the session is reloaded, and the batch moves on.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"blkmsg/internal/contact"
	"blkmsg/internal/driver"
	"blkmsg/internal/pacing"
	logx "blkmsg/pkg/logx"
)

// Config controls the UI interaction of the loop.
type Config struct {
	URL             string
	SearchSelector  string
	ComposeSelector string

	LoginTimeout       time.Duration
	InteractionTimeout time.Duration
	RecoveryPause      time.Duration
	SendSettle         time.Duration

	// SearchKeyDelay spaces the digits typed into the search box. 0 disables throttling.
	SearchKeyDelay time.Duration
	SearchSettle   time.Duration
}

// Templates picks and renders the message for a contact.
type Templates interface {
	Choose() string
	Render(path, name string) (string, error)
}

// Typist is the typing pacer.
type Typist interface {
	Plan(text string) pacing.Plan
	Type(ctx context.Context, f pacing.Field, text string, target time.Duration) (pacing.Stats, error)
}

// Cooler is the inter-send cooldown.
type Cooler interface {
	Wait(ctx context.Context, last bool) (int, error)
}

// Observer is told about every attempt and outcome. It must not block.
type Observer interface {
	Attempt(st BatchState, r contact.Recipient, template string)
	Outcome(st BatchState, res Result)
}

type Deps struct {
	Driver    driver.Driver
	Templates Templates
	Typist    Typist
	Cooldown  Cooler
	Clock     pacing.Clock
	Observer  Observer
	Log       logx.Logger
}

type Loop struct {
	cfg  Config
	deps Deps
	log  logx.Logger
}

func New(cfg Config, deps Deps) *Loop {
	if deps.Clock == nil {
		deps.Clock = pacing.SystemClock()
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	log := deps.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Loop{cfg: cfg, deps: deps, log: log}
}

// Connect opens the chat app and waits for the search box, i.e. for the
// operator to finish logging in.
func (l *Loop) Connect(ctx context.Context) error {
	if err := l.deps.Driver.Navigate(ctx, l.cfg.URL); err != nil {
		return fmt.Errorf("open %s: %w", l.cfg.URL, err)
	}
	l.log.Info("waiting for login", logx.Duration("timeout", l.cfg.LoginTimeout))
	if _, err := l.deps.Driver.WaitUntilPresent(ctx, l.cfg.SearchSelector, l.cfg.LoginTimeout); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	l.log.Info("connected")
	return nil
}

// Run processes recipients strictly in order. Per-contact failures never stop
// the batch; only ctx cancellation does, in which case the in-flight contact
// is recorded as failed and the rest stay pending.
func (l *Loop) Run(ctx context.Context, batchID string, recipients []contact.Recipient) Summary {
	sum := Summary{BatchID: batchID, Total: len(recipients), StartedAt: l.deps.Clock.Now()}
	log := l.log.With(logx.String("batch", batchID))
	log.Info("batch started", logx.Int("total", sum.Total))

	st := BatchState{Total: sum.Total}
	for i, r := range recipients {
		if ctx.Err() != nil {
			sum.Canceled = true
			break
		}
		st.Index = i + 1
		clog := log.With(logx.Int("index", st.Index), logx.String("number", r.DialNumber))

		res := l.send(ctx, st, r, clog)
		st.LastOutcome = res.Outcome

		if res.Outcome == OutcomeFailed {
			sum.Failed++
			clog.Warn("send failed", logx.Err(res.Err))
			l.deps.Observer.Outcome(st, res)
			sum.Results = append(sum.Results, res)
			if ctx.Err() != nil {
				sum.Canceled = true
				break
			}
			if l.recoverSession(ctx, clog) {
				sum.Recoveries++
			}
			continue
		}

		sum.Sent++
		clog.Info("sent", logx.String("template", res.Template), logx.Int("chunks", res.Typing.Chunks), logx.Duration("typing", res.Typing.Elapsed))
		l.deps.Observer.Outcome(st, res)

		waited, err := l.deps.Cooldown.Wait(ctx, st.Index == st.Total)
		res.Cooldown = waited
		sum.Results = append(sum.Results, res)
		if err != nil {
			sum.Canceled = true
			break
		}
	}

	sum.FinishedAt = l.deps.Clock.Now()
	fields := []logx.Field{
		logx.Int("total", sum.Total),
		logx.Int("sent", sum.Sent),
		logx.Int("failed", sum.Failed),
		logx.Int("pending", sum.Pending()),
		logx.Duration("dur", sum.FinishedAt.Sub(sum.StartedAt)),
	}
	switch {
	case sum.Canceled:
		log.Warn("batch interrupted", fields...)
	case sum.Failed > 0:
		log.Warn("batch finished with failures", fields...)
	default:
		log.Info("batch finished", fields...)
	}
	return sum
}

// send walks one contact through the state machine.
func (l *Loop) send(ctx context.Context, st BatchState, r contact.Recipient, log logx.Logger) Result {
	tpl := l.deps.Templates.Choose()
	res := Result{Index: st.Index, Recipient: r, Template: tpl}
	l.deps.Observer.Attempt(st, r, tpl)

	fail := func(stage Stage, err error) Result {
		res.Outcome = OutcomeFailed
		res.Err = &ContactError{Stage: stage, Recipient: r, Err: err}
		return res
	}

	msg, err := l.deps.Templates.Render(tpl, r.Name)
	if err != nil {
		return fail(StageRendering, err)
	}
	plan := l.deps.Typist.Plan(msg)
	// The chat UI refuses to send a blank message.
	if plan.TotalChars == 0 || strings.TrimSpace(msg) == "" {
		return fail(StageRendering, ErrEmptyMessage)
	}

	log.Debug("searching")
	if err := l.search(ctx, r.DialNumber); err != nil {
		return fail(StageSearching, err)
	}

	log.Debug("composing")
	field, err := l.deps.Driver.WaitUntilPresent(ctx, l.cfg.ComposeSelector, l.cfg.InteractionTimeout)
	if err != nil {
		return fail(StageComposing, err)
	}

	log.Debug("typing", logx.Int("chars", plan.TotalChars), logx.Duration("target", plan.Target))
	stats, err := l.deps.Typist.Type(ctx, field, msg, plan.Target)
	res.Typing = stats
	if err != nil {
		return fail(StageTyping, err)
	}

	log.Debug("sending")
	if err := l.deps.Clock.Sleep(ctx, l.cfg.SendSettle); err != nil {
		return fail(StageSending, err)
	}
	if err := field.SendSpecialKey(ctx, driver.KeyEnter); err != nil {
		return fail(StageSending, err)
	}
	res.Outcome = OutcomeSent
	return res
}

// search types the number into the search box at a fixed pace and submits it.
// The live filter of the UI lags behind fast input, so digits are throttled;
// this is not the human-typing pacer.
func (l *Loop) search(ctx context.Context, number string) error {
	box, err := l.deps.Driver.Locate(ctx, l.cfg.SearchSelector)
	if err != nil {
		return err
	}
	if err := box.Clear(ctx); err != nil {
		return err
	}

	lim := rate.NewLimiter(rate.Inf, 1)
	if l.cfg.SearchKeyDelay > 0 {
		lim = rate.NewLimiter(rate.Every(l.cfg.SearchKeyDelay), 1)
	}
	for _, ch := range number {
		now := l.deps.Clock.Now()
		if err := l.deps.Clock.Sleep(ctx, lim.ReserveN(now, 1).DelayFrom(now)); err != nil {
			return err
		}
		if err := box.SendKeys(ctx, string(ch)); err != nil {
			return err
		}
	}

	if err := l.deps.Clock.Sleep(ctx, l.cfg.SearchSettle); err != nil {
		return err
	}
	return box.SendSpecialKey(ctx, driver.KeyEnter)
}

// recoverSession reloads the landing page so stale UI state does not leak into the
// next contact. It reports whether the reload succeeded.
func (l *Loop) recoverSession(ctx context.Context, log logx.Logger) bool {
	if err := l.deps.Driver.Navigate(ctx, l.cfg.URL); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Error("session recovery failed", logx.Err(err))
		}
		return false
	}
	_ = l.deps.Clock.Sleep(ctx, l.cfg.RecoveryPause)
	log.Debug("session recovered", logx.Duration("pause", l.cfg.RecoveryPause))
	return true
}

type nopObserver struct{}

func (nopObserver) Attempt(BatchState, contact.Recipient, string) {}
func (nopObserver) Outcome(BatchState, Result)                    {}
