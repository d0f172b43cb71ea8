package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/MimeLyc/chameleon-localizer/internal/locale"
)

// RuntimeSettings are the knobs the UI may change between jobs.
type RuntimeSettings struct {
	APIBaseURL     string `json:"api_base_url"`
	Variant        string `json:"variant"`
	TargetLanguage string `json:"target_language"`
}

func (s RuntimeSettings) Validate() error {
	if _, err := ParseVariant(s.Variant); err != nil {
		return err
	}
	if strings.TrimSpace(s.TargetLanguage) == "" {
		return fmt.Errorf("target_language is required")
	}
	if _, err := locale.Parse(s.TargetLanguage); err != nil {
		return fmt.Errorf("invalid target_language: %w", err)
	}
	base := strings.TrimSpace(s.APIBaseURL)
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("api_base_url must be an http(s) URL")
	}
	return nil
}

func (c *Config) RuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		APIBaseURL:     c.Backend.BaseURL,
		Variant:        string(c.Pipeline.Variant),
		TargetLanguage: c.Pipeline.TargetLanguage.String(),
	}
}

func WithRuntimeSettings(settings RuntimeSettings) Option {
	return func(c *Config) {
		c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(settings.APIBaseURL), "/")
		if v, err := ParseVariant(settings.Variant); err == nil {
			c.Pipeline.Variant = v
		}
		if tag, err := locale.Parse(settings.TargetLanguage); err == nil {
			c.Pipeline.TargetLanguage = tag
		}
	}
}

// RuntimeSettingsStore keeps the current settings in memory only; they
// reset to the environment defaults on restart.
type RuntimeSettingsStore struct {
	mu      sync.RWMutex
	current RuntimeSettings
}

func NewRuntimeSettingsStore(initial RuntimeSettings) (*RuntimeSettingsStore, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	return &RuntimeSettingsStore{current: initial}, nil
}

func (s *RuntimeSettingsStore) GetRuntimeSettings() (RuntimeSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

func (s *RuntimeSettingsStore) UpdateRuntimeSettings(next RuntimeSettings) (RuntimeSettings, error) {
	if err := next.Validate(); err != nil {
		return RuntimeSettings{}, err
	}
	next.APIBaseURL = strings.TrimRight(strings.TrimSpace(next.APIBaseURL), "/")

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return next, nil
}
