package config

// Config is the on-disk configuration (YAML or JSON).
//
// All durations are Go duration strings (e.g. "50ms", "1.5s", "1m").
// Omitted fields fall back to the defaults listed on each block; Resolve
// applies them and returns the typed Settings used by the components.
type Config struct {
	Session   SessionConfig   `json:"session"`
	Contacts  ContactsConfig  `json:"contacts"`
	Templates TemplatesConfig `json:"templates"`
	Typing    TypingConfig    `json:"typing"`
	Search    SearchConfig    `json:"search"`
	Cooldown  CooldownConfig  `json:"cooldown"`
	Schedule  ScheduleConfig  `json:"schedule"`
	Report    ReportConfig    `json:"report"`
	Logging   LoggingConfig   `json:"logging"`
	Telegram  *TelegramConfig `json:"telegram,omitempty"`
}

// SessionConfig controls the browser session.
//
// Defaults:
//   - url: "https://web.whatsapp.com"
//   - profile_dir: "./blkmsg_profile"
//   - login_timeout: "60s"
//   - interaction_timeout: "60s"
//   - recovery_pause: "5s"
//   - send_settle: "500ms"
type SessionConfig struct {
	URL                string          `json:"url,omitempty"`
	ProfileDir         string          `json:"profile_dir,omitempty"`
	Headless           bool            `json:"headless,omitempty"`
	LoginTimeout       string          `json:"login_timeout,omitempty"`
	InteractionTimeout string          `json:"interaction_timeout,omitempty"`
	RecoveryPause      string          `json:"recovery_pause,omitempty"`
	SendSettle         string          `json:"send_settle,omitempty"`
	Selectors          SelectorsConfig `json:"selectors,omitempty"`
}

// SelectorsConfig holds the XPath selectors of the chat UI.
type SelectorsConfig struct {
	Search  string `json:"search,omitempty"`
	Compose string `json:"compose,omitempty"`
}

type ContactsConfig struct {
	Path string `json:"path"`
	// CountryCode is prepended to 10-digit numbers. Default: "91".
	CountryCode string `json:"country_code,omitempty"`
}

type TemplatesConfig struct {
	Paths []string `json:"paths"`
	// Placeholder is replaced with the recipient name. Default: "{name}".
	Placeholder string `json:"placeholder,omitempty"`
	// Watch invalidates cached template content on file changes.
	// When false, templates are re-read from disk on every send.
	Watch bool `json:"watch,omitempty"`
}

// TypingConfig controls the typing pacer.
//
// Defaults:
//   - max_duration: "12s"
//   - per_char: "150ms"
//   - too_fast_rate: 15 (chars/sec, advisory only)
//   - newline_settle: "50ms"
type TypingConfig struct {
	MaxDuration   string  `json:"max_duration,omitempty"`
	PerChar       string  `json:"per_char,omitempty"`
	TooFastRate   float64 `json:"too_fast_rate,omitempty"`
	NewlineSettle string  `json:"newline_settle,omitempty"`
}

// SearchConfig controls number entry into the search box.
//
// Defaults: key_delay "50ms", settle "1.5s".
type SearchConfig struct {
	KeyDelay string `json:"key_delay,omitempty"`
	Settle   string `json:"settle,omitempty"`
}

// CooldownConfig is the inter-send delay window in whole seconds.
// Defaults: min 5, max 15.
type CooldownConfig struct {
	MinSeconds int `json:"min_seconds,omitempty"`
	MaxSeconds int `json:"max_seconds,omitempty"`
}

// ScheduleConfig delays the batch start after setup succeeds.
//
// start_at is a 5-field cron expression, a descriptor ("@daily") or "HH:MM".
// Empty starts immediately. timezone is an IANA name; empty means local.
type ScheduleConfig struct {
	StartAt  string `json:"start_at,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// ReportConfig controls the residual (failed contacts) report.
// An empty dir disables it.
type ReportConfig struct {
	Dir string `json:"dir,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// TelegramConfig is the optional operator notification target.
//
// The token may be left empty and supplied via BLKMSG_TELEGRAM_TOKEN.
type TelegramConfig struct {
	Token    string `json:"token,omitempty"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
	// Summary sends the batch summary when the run finishes.
	Summary bool `json:"summary"`
}
