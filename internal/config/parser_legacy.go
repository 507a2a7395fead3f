package config

import (
	"fmt"
	"strconv"
	"strings"
)

// parseLegacy reads the historical key=value format. Each non-empty,
// non-comment line is `key = value` with dotted section keys.
func parseLegacy(content string, base Config) (Config, []Warning, error) {
	cfg := base
	warnings := make([]Warning, 0)

	lines := strings.Split(content, "\n")
	for idx, rawLine := range lines {
		lineNo := idx + 1
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Config{}, nil, fmt.Errorf("line %d: expected key=value, got %q", lineNo, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			return Config{}, nil, fmt.Errorf("line %d: empty key", lineNo)
		}

		if err := applyLegacyKey(&cfg, key, value); err != nil {
			return Config{}, nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func applyLegacyKey(cfg *Config, key, value string) error {
	switch key {
	case "service.base_url":
		cfg.Service.BaseURL = unquoteLegacy(value)
	case "service.transcript_path":
		cfg.Service.TranscriptPath = unquoteLegacy(value)
	case "service.upload_path":
		cfg.Service.UploadPath = unquoteLegacy(value)
	case "service.presentation_path":
		cfg.Service.PresentationPath = unquoteLegacy(value)
	case "engine.endpoint":
		cfg.Engine.Endpoint = unquoteLegacy(value)
	case "engine.language_code":
		cfg.Engine.LanguageCode = unquoteLegacy(value)
	case "engine.model":
		cfg.Engine.Model = unquoteLegacy(value)
	case "engine.interim_results":
		return setLegacyBool(&cfg.Engine.InterimResults, key, value)
	case "audio.input":
		cfg.Audio.Input = unquoteLegacy(value)
	case "audio.fallback":
		cfg.Audio.Fallback = unquoteLegacy(value)
	case "capture.max_duration_ms":
		return setLegacyInt(&cfg.Capture.MaxDurationMS, key, value)
	case "capture.tick_interval_ms":
		return setLegacyInt(&cfg.Capture.TickIntervalMS, key, value)
	case "notify.enable":
		return setLegacyBool(&cfg.Notify.Enable, key, value)
	case "notify.timeout_ms":
		return setLegacyInt(&cfg.Notify.TimeoutMS, key, value)
	case "browse.enable":
		return setLegacyBool(&cfg.Browse.Enable, key, value)
	case "browse.delay_ms":
		return setLegacyInt(&cfg.Browse.DelayMS, key, value)
	case "browse_cmd":
		raw := unquoteLegacy(value)
		argv, err := parseArgv(raw)
		if err != nil {
			return fmt.Errorf("invalid browse_cmd: %w", err)
		}
		cfg.BrowseCmd = CommandConfig{Raw: raw, Argv: argv}
	case "debug.audio_dump":
		return setLegacyBool(&cfg.Debug.EnableAudioDump, key, value)
	case "debug.engine_dump":
		return setLegacyBool(&cfg.Debug.EnableEngineDump, key, value)
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

func setLegacyBool(dst *bool, key, value string) error {
	parsed, err := strconv.ParseBool(strings.ToLower(unquoteLegacy(value)))
	if err != nil {
		return fmt.Errorf("%s expects a boolean, got %q", key, value)
	}
	*dst = parsed
	return nil
}

func setLegacyInt(dst *int, key, value string) error {
	parsed, err := strconv.Atoi(unquoteLegacy(value))
	if err != nil {
		return fmt.Errorf("%s expects an integer, got %q", key, value)
	}
	*dst = parsed
	return nil
}

func unquoteLegacy(value string) string {
	if len(value) >= 2 {
		first := value[0]
		last := value[len(value)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}
