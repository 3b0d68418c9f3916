package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func minimal() *Config {
	return &Config{
		Contacts:  ContactsConfig{Path: "contacts.csv"},
		Templates: TemplatesConfig{Paths: []string{"t1.md", " ", "t2.md"}},
	}
}

func TestResolveDefaults(t *testing.T) {
	t.Parallel()
	s, err := minimal().Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.URL != DefaultURL || s.CountryCode != "91" || s.Placeholder != "{name}" {
		t.Fatalf("string defaults = %q %q %q", s.URL, s.CountryCode, s.Placeholder)
	}
	if len(s.TemplatePaths) != 2 {
		t.Fatalf("TemplatePaths = %v, blank entries must be dropped", s.TemplatePaths)
	}
	durations := map[string][2]time.Duration{
		"login":       {s.LoginTimeout, 60 * time.Second},
		"interaction": {s.InteractionTimeout, 60 * time.Second},
		"recovery":    {s.RecoveryPause, 5 * time.Second},
		"send settle": {s.SendSettle, 500 * time.Millisecond},
		"max typing":  {s.MaxTypingDuration, 12 * time.Second},
		"per char":    {s.PerChar, 150 * time.Millisecond},
		"newline":     {s.NewlineSettle, 50 * time.Millisecond},
		"key delay":   {s.SearchKeyDelay, 50 * time.Millisecond},
		"search":      {s.SearchSettle, 1500 * time.Millisecond},
	}
	for name, d := range durations {
		if d[0] != d[1] {
			t.Fatalf("%s = %v, want %v", name, d[0], d[1])
		}
	}
	if s.Start != nil {
		t.Fatalf("Start = %v, want immediate start", s.Start)
	}
	if s.CooldownMin != 5 || s.CooldownMax != 15 || s.TooFastRate != 15 {
		t.Fatalf("cooldown [%d,%d] rate %v", s.CooldownMin, s.CooldownMax, s.TooFastRate)
	}
}

func TestResolveInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"no contacts", func(c *Config) { c.Contacts.Path = "" }},
		{"no templates", func(c *Config) { c.Templates.Paths = []string{"  "} }},
		{"bad duration", func(c *Config) { c.Typing.MaxDuration = "twelve" }},
		{"negative duration", func(c *Config) { c.Session.RecoveryPause = "-1s" }},
		{"inverted cooldown", func(c *Config) { c.Cooldown = CooldownConfig{MinSeconds: 9, MaxSeconds: 3} }},
		{"country code", func(c *Config) { c.Contacts.CountryCode = "+91" }},
		{"bad schedule", func(c *Config) { c.Schedule.StartAt = "someday" }},
		{"telegram without chat", func(c *Config) { c.Telegram = &TelegramConfig{Token: "x"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := minimal()
			tt.mutate(c)
			if _, err := c.Resolve(); !errors.Is(err, ErrConfiguration) {
				t.Fatalf("Resolve err = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestResolveTelegramTokenFromEnv(t *testing.T) {
	t.Setenv("BLKMSG_TELEGRAM_TOKEN", "env-token")
	c := minimal()
	c.Telegram = &TelegramConfig{ChatID: 42}
	s, err := c.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Telegram.Token != "env-token" {
		t.Fatalf("token = %q", s.Telegram.Token)
	}
	if c.Telegram.Token != "" {
		t.Fatalf("Resolve mutated the parsed config")
	}
}

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestManagerLoadYAMLAndJSON(t *testing.T) {
	t.Parallel()
	yml := writeConfig(t, "blkmsg.yaml", `
contacts: {path: c.csv, country_code: "44"}
templates:
  paths: [a.md]
typing: {max_duration: 20s}
cooldown: {min_seconds: 1, max_seconds: 2}
`)
	js := writeConfig(t, "blkmsg.conf", `{"contacts":{"path":"c.csv","country_code":"44"},"templates":{"paths":["a.md"]},"typing":{"max_duration":"20s"},"cooldown":{"min_seconds":1,"max_seconds":2}}`)

	for _, p := range []string{yml, js} {
		s, err := NewManager(p).Load()
		if err != nil {
			t.Fatalf("Load(%s): %v", filepath.Base(p), err)
		}
		if s.CountryCode != "44" || s.MaxTypingDuration != 20*time.Second || s.CooldownMax != 2 {
			t.Fatalf("Load(%s) = %+v", filepath.Base(p), s)
		}
	}
}

func TestManagerParseStrict(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"unknown field": "contacts: {path: c.csv}\nnope: true\n",
		"trailing json": `{"contacts":{"path":"c.csv"}}{"x":1}`,
		"bad yaml":      "contacts: [unclosed\n",
	}
	for name, body := range tests {
		ext := ".yaml"
		if body[0] == '{' {
			ext = ".json"
		}
		p := writeConfig(t, "cfg"+ext, body)
		if _, err := NewManager(p).Parse(); !errors.Is(err, ErrConfiguration) {
			t.Fatalf("%s: err = %v, want ErrConfiguration", name, err)
		}
	}
	if _, err := NewManager(filepath.Join(t.TempDir(), "missing.yaml")).Parse(); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("missing file: err = %v", err)
	}
}
