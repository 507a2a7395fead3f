package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	baseURL := strings.TrimSpace(cfg.Service.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("service.base_url must not be empty")
	}
	if parsed, err := url.Parse(baseURL); err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("service.base_url %q is not a valid URL", cfg.Service.BaseURL)
	}
	for _, entry := range []struct {
		key  string
		path string
	}{
		{"service.transcript_path", cfg.Service.TranscriptPath},
		{"service.upload_path", cfg.Service.UploadPath},
		{"service.presentation_path", cfg.Service.PresentationPath},
	} {
		if strings.TrimSpace(entry.path) == "" {
			return nil, fmt.Errorf("%s must not be empty", entry.key)
		}
		if !strings.HasPrefix(strings.TrimSpace(entry.path), "/") {
			return nil, fmt.Errorf("%s must start with '/'", entry.key)
		}
	}

	endpoint := strings.TrimSpace(cfg.Engine.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("engine.endpoint must not be empty")
	}
	if parsed, err := url.Parse(endpoint); err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("engine.endpoint %q is not a valid URL", cfg.Engine.Endpoint)
	} else if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, fmt.Errorf("engine.endpoint must use ws:// or wss://")
	}
	if strings.TrimSpace(cfg.Engine.LanguageCode) == "" {
		return nil, fmt.Errorf("engine.language_code must not be empty")
	}

	if cfg.Capture.MaxDurationMS <= 0 {
		return nil, fmt.Errorf("capture.max_duration_ms must be > 0")
	}
	if cfg.Capture.TickIntervalMS <= 0 {
		return nil, fmt.Errorf("capture.tick_interval_ms must be > 0")
	}
	if cfg.Capture.TickIntervalMS > cfg.Capture.MaxDurationMS {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("capture.tick_interval_ms=%d exceeds capture.max_duration_ms=%d; no ticks will fire before the ceiling", cfg.Capture.TickIntervalMS, cfg.Capture.MaxDurationMS)})
	}

	if cfg.Notify.TimeoutMS < 0 {
		return nil, fmt.Errorf("notify.timeout_ms must be >= 0")
	}
	if cfg.Browse.DelayMS < 0 {
		return nil, fmt.Errorf("browse.delay_ms must be >= 0")
	}
	if cfg.Browse.Enable && len(cfg.BrowseCmd.Argv) == 0 {
		return nil, fmt.Errorf("browse_cmd must not be empty when browse.enable=true")
	}

	return warnings, nil
}
