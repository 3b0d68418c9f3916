package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"blkmsg/internal/schedule"
)

// ErrConfiguration marks fatal setup problems (no usable template, contact
// source missing, invalid values). Nothing has touched the UI when it is returned.
var ErrConfiguration = errors.New("configuration error")

const (
	DefaultURL             = "https://web.whatsapp.com"
	DefaultProfileDir      = "./blkmsg_profile"
	DefaultSearchSelector  = `//div[@contenteditable="true"][@data-tab="3"]`
	DefaultComposeSelector = `//div[@contenteditable="true"][@data-tab="10"]`
	DefaultCountryCode     = "91"
	DefaultPlaceholder     = "{name}"
	DefaultTooFastRate     = 15.0
	DefaultCooldownMin     = 5
	DefaultCooldownMax     = 15
)

// Settings is the resolved, typed view of Config.
type Settings struct {
	URL                string
	ProfileDir         string
	Headless           bool
	SearchSelector     string
	ComposeSelector    string
	LoginTimeout       time.Duration
	InteractionTimeout time.Duration
	RecoveryPause      time.Duration
	SendSettle         time.Duration

	ContactsPath string
	CountryCode  string

	TemplatePaths  []string
	Placeholder    string
	WatchTemplates bool

	MaxTypingDuration time.Duration
	PerChar           time.Duration
	TooFastRate       float64
	NewlineSettle     time.Duration

	SearchKeyDelay time.Duration
	SearchSettle   time.Duration

	CooldownMin int
	CooldownMax int

	// Start is nil when the batch starts immediately.
	Start *schedule.Start

	ReportDir string

	Telegram *TelegramConfig
}

// Resolve validates cfg and applies defaults.
// Every error wraps ErrConfiguration.
func (c *Config) Resolve() (*Settings, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrConfiguration)
	}
	s := &Settings{
		URL:             orDefault(c.Session.URL, DefaultURL),
		ProfileDir:      orDefault(c.Session.ProfileDir, DefaultProfileDir),
		Headless:        c.Session.Headless,
		SearchSelector:  orDefault(c.Session.Selectors.Search, DefaultSearchSelector),
		ComposeSelector: orDefault(c.Session.Selectors.Compose, DefaultComposeSelector),
		ContactsPath:    strings.TrimSpace(c.Contacts.Path),
		CountryCode:     orDefault(c.Contacts.CountryCode, DefaultCountryCode),
		Placeholder:     orDefault(c.Templates.Placeholder, DefaultPlaceholder),
		WatchTemplates:  c.Templates.Watch,
		TooFastRate:     c.Typing.TooFastRate,
		CooldownMin:     c.Cooldown.MinSeconds,
		CooldownMax:     c.Cooldown.MaxSeconds,
		ReportDir:       strings.TrimSpace(c.Report.Dir),
		Telegram:        c.Telegram,
	}

	durations := []struct {
		path string
		raw  string
		def  time.Duration
		dst  *time.Duration
	}{
		{"session.login_timeout", c.Session.LoginTimeout, 60 * time.Second, &s.LoginTimeout},
		{"session.interaction_timeout", c.Session.InteractionTimeout, 60 * time.Second, &s.InteractionTimeout},
		{"session.recovery_pause", c.Session.RecoveryPause, 5 * time.Second, &s.RecoveryPause},
		{"session.send_settle", c.Session.SendSettle, 500 * time.Millisecond, &s.SendSettle},
		{"typing.max_duration", c.Typing.MaxDuration, 12 * time.Second, &s.MaxTypingDuration},
		{"typing.per_char", c.Typing.PerChar, 150 * time.Millisecond, &s.PerChar},
		{"typing.newline_settle", c.Typing.NewlineSettle, 50 * time.Millisecond, &s.NewlineSettle},
		{"search.key_delay", c.Search.KeyDelay, 50 * time.Millisecond, &s.SearchKeyDelay},
		{"search.settle", c.Search.Settle, 1500 * time.Millisecond, &s.SearchSettle},
	}
	for _, d := range durations {
		v, err := ParseDurationOrDefault(d.path, d.raw, d.def)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		*d.dst = v
	}

	if s.ContactsPath == "" {
		return nil, fmt.Errorf("%w: contacts.path is required", ErrConfiguration)
	}
	for _, p := range c.Templates.Paths {
		if p = strings.TrimSpace(p); p != "" {
			s.TemplatePaths = append(s.TemplatePaths, p)
		}
	}
	if len(s.TemplatePaths) == 0 {
		return nil, fmt.Errorf("%w: templates.paths is empty", ErrConfiguration)
	}
	for _, r := range s.CountryCode {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%w: contacts.country_code must be digits, got %q", ErrConfiguration, s.CountryCode)
		}
	}

	if s.TooFastRate <= 0 {
		s.TooFastRate = DefaultTooFastRate
	}
	if s.CooldownMin == 0 && s.CooldownMax == 0 {
		s.CooldownMin, s.CooldownMax = DefaultCooldownMin, DefaultCooldownMax
	}
	if s.CooldownMin < 0 || s.CooldownMax < s.CooldownMin {
		return nil, fmt.Errorf("%w: cooldown window [%d,%d] is invalid", ErrConfiguration, s.CooldownMin, s.CooldownMax)
	}

	if spec := strings.TrimSpace(c.Schedule.StartAt); spec != "" {
		st, err := schedule.Parse(spec, c.Schedule.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: schedule: %v", ErrConfiguration, err)
		}
		s.Start = st
	}

	if t := s.Telegram; t != nil {
		if tok := strings.TrimSpace(os.Getenv("BLKMSG_TELEGRAM_TOKEN")); tok != "" {
			cp := *t
			cp.Token = tok
			s.Telegram = &cp
		}
		if strings.TrimSpace(s.Telegram.Token) == "" || s.Telegram.ChatID == 0 {
			return nil, fmt.Errorf("%w: telegram requires token and chat_id", ErrConfiguration)
		}
	}
	return s, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
