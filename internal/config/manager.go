package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	logx "blkmsg/pkg/logx"
)

// Manager loads the config file once per run.
//
// Values are read at startup and passed into components at construction;
// nothing reads the manager mid-batch.
type Manager struct {
	path string

	mu  sync.RWMutex
	cfg *Config

	log logx.Logger
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

func (m *Manager) SetLogger(log logx.Logger) { m.log = log }

func (m *Manager) Path() string { return m.path }

func (m *Manager) Parse() (*Config, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	jb, format, err := coerceToJSONBytes(m.path, b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %s decode: %v", ErrConfiguration, format, err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("%w: trailing data", ErrConfiguration)
		}
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if !m.log.IsZero() {
		m.log.Debug("config parsed", logx.String("path", m.path), logx.String("format", format))
	}
	return &cfg, nil
}

// Load parses and resolves the config file.
func (m *Manager) Load() (*Settings, error) {
	cfg, err := m.Parse()
	if err != nil {
		return nil, err
	}
	s, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}
