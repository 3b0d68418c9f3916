// Package app wires the configured components into one broadcast run.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"blkmsg/internal/config"
	"blkmsg/internal/contact"
	"blkmsg/internal/dispatch"
	"blkmsg/internal/driver"
	"blkmsg/internal/driver/chrome"
	"blkmsg/internal/notify"
	"blkmsg/internal/pacing"
	"blkmsg/internal/progress"
	"blkmsg/internal/report"
	"blkmsg/internal/runtime/supervisor"
	"blkmsg/internal/template"
	logx "blkmsg/pkg/logx"
)

const title = "WHATSAPP BLK MSG"

// ErrSession marks a browser session that could not be started or logged in.
var ErrSession = errors.New("session unavailable")

type App struct {
	cfgm *config.Manager
	set  *config.Settings

	log  logx.Logger
	logs *logx.Service
	tg   *notify.Telegram
	con  *progress.Console

	batchID string

	// newDriver builds the UI driver; replaced in tests.
	newDriver func(cfg chrome.Config, log logx.Logger) driver.Driver
	clock     pacing.Clock
	rand      pacing.Rand
}

// New loads the config at cfgPath and builds the logging stack. Console
// progress goes to out.
func New(cfgPath string, out io.Writer) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	set, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	cfg := cfgm.Get()

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "notify"))

	var tg *notify.Telegram
	if t := set.Telegram; t != nil {
		tg, err = notify.New(notify.Config{Token: t.Token, ChatID: t.ChatID, ThreadID: t.ThreadID}, bootLog)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrConfiguration, err)
		}
	}

	logCfg := logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    cfg.Logging.Telegram.Enabled && tg != nil,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
	var sender logx.Sender
	if tg != nil {
		sender = tg
	}
	logSvc, log := logx.New(logCfg, sender)

	batchID := uuid.NewString()
	log = log.With(logx.String("comp", "app"), logx.String("batch", batchID))
	cfgm.SetLogger(log)
	log.Info("config loaded", logx.String("path", cfgm.Path()))

	return &App{
		cfgm:    cfgm,
		set:     set,
		log:     log,
		logs:    logSvc,
		tg:      tg,
		con:     progress.NewConsole(out),
		batchID: batchID,
		newDriver: func(cfg chrome.Config, log logx.Logger) driver.Driver {
			return chrome.New(cfg, log)
		},
		clock: pacing.SystemClock(),
		rand:  pacing.NewRand(),
	}, nil
}

func (a *App) BatchID() string { return a.batchID }

// Close flushes the log sinks.
func (a *App) Close() error {
	return a.logs.Close()
}

// Run executes one batch. Errors are returned only for fatal setup problems
// (errors.Is config.ErrConfiguration or ErrSession); per-contact failures are
// reported in the summary.
func (a *App) Run(ctx context.Context) (dispatch.Summary, error) {
	set := a.set
	a.con.Banner(title, a.batchID)

	health, err := template.Check(set.TemplatePaths, set.MaxTypingDuration, set.TooFastRate)
	a.con.Health(health)
	for _, r := range health.Reports {
		if r.Err != nil {
			a.log.Warn("template unusable", logx.String("path", r.Path), logx.Err(r.Err))
		} else if r.TooFast {
			a.log.Warn("template types faster than human pace", logx.String("path", r.Path), logx.Float64("rate", r.Rate))
		}
	}
	if err != nil {
		return dispatch.Summary{}, err
	}

	contacts, err := contact.ReadCSVFile(set.ContactsPath)
	if err != nil {
		return dispatch.Summary{}, fmt.Errorf("%w: contacts: %v", config.ErrConfiguration, err)
	}
	recipients := contact.Normalizer{CountryCode: set.CountryCode}.Recipients(contacts)
	a.log.Info("contacts loaded", logx.String("path", set.ContactsPath), logx.Int("count", len(recipients)))

	store := template.NewStore(set.WatchTemplates, a.log.With(logx.String("comp", "templates")))
	sup := supervisor.New(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))))
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := sup.Stop(stopCtx); err != nil {
			a.log.Warn("supervisor stop", logx.Err(err))
		}
	}()
	if set.WatchTemplates {
		usable := health.Usable
		sup.GoRestart("template-watch", func(ctx context.Context) error {
			return store.Watch(ctx, usable)
		}, time.Second, 30*time.Second)
	}

	sel := template.NewSelector(health.Usable, store, set.Placeholder, a.rand)
	a.log.Info("templates ready", logx.Int("usable", len(sel.Paths())), logx.Bool("cached", store.Caching()))
	pacer := pacing.NewPacer(pacing.Config{
		MaxDuration:   set.MaxTypingDuration,
		PerChar:       set.PerChar,
		NewlineSettle: set.NewlineSettle,
	}, a.clock, a.rand, a.log.With(logx.String("comp", "pacer")))
	cooldown := pacing.NewCooldown(set.CooldownMin, set.CooldownMax, a.clock, a.rand, a.con)

	drv := a.newDriver(chrome.Config{
		ProfileDir: set.ProfileDir,
		Headless:   set.Headless,
	}, a.log.With(logx.String("comp", "driver")))
	if err := drv.Start(ctx); err != nil {
		return dispatch.Summary{}, fmt.Errorf("%w: start browser: %v", ErrSession, err)
	}
	defer func() {
		if err := drv.Stop(); err != nil {
			a.log.Warn("browser stop", logx.Err(err))
		}
	}()

	loop := dispatch.New(dispatch.Config{
		URL:                set.URL,
		SearchSelector:     set.SearchSelector,
		ComposeSelector:    set.ComposeSelector,
		LoginTimeout:       set.LoginTimeout,
		InteractionTimeout: set.InteractionTimeout,
		RecoveryPause:      set.RecoveryPause,
		SendSettle:         set.SendSettle,
		SearchKeyDelay:     set.SearchKeyDelay,
		SearchSettle:       set.SearchSettle,
	}, dispatch.Deps{
		Driver:    drv,
		Templates: sel,
		Typist:    pacer,
		Cooldown:  cooldown,
		Clock:     a.clock,
		Observer:  a.con,
		Log:       a.log.With(logx.String("comp", "dispatch")),
	})
	if err := loop.Connect(ctx); err != nil {
		return dispatch.Summary{}, fmt.Errorf("%w: %v", ErrSession, err)
	}

	if set.Start != nil {
		// A canceled wait falls through: Run then records every contact as pending.
		if _, err := set.Start.Wait(ctx, a.clock, a.log); err != nil {
			a.log.Warn("scheduled start interrupted", logx.Err(err))
		}
	}

	sum := loop.Run(ctx, a.batchID, recipients)
	a.con.Finished(sum)
	a.log.Info("batch finished",
		logx.Int("sent", sum.Sent),
		logx.Int("failed", sum.Failed),
		logx.Int("pending", sum.Pending()),
		logx.Int("recoveries", sum.Recoveries),
		logx.Bool("canceled", sum.Canceled))

	residual := ""
	if set.ReportDir != "" {
		pending := recipients[len(sum.Results):]
		residual, err = report.WriteResidual(set.ReportDir, sum, pending)
		if err != nil {
			a.log.Error("residual report", logx.Err(err))
		} else if residual != "" {
			a.log.Info("residual report written", logx.String("path", residual))
		}
	}

	if a.tg != nil && set.Telegram.Summary {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if err := a.tg.SendText(nctx, report.Summary(sum, residual)); err != nil {
			a.log.Warn("telegram summary", logx.Err(err))
		}
		cancel()
	}
	return sum, nil
}
