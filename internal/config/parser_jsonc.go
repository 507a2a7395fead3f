package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Service *jsoncService `json:"service"`
	Engine  *jsoncEngine  `json:"engine"`
	Audio   *jsoncAudio   `json:"audio"`
	Capture *jsoncCapture `json:"capture"`
	Notify  *jsoncNotify  `json:"notify"`
	Browse  *jsoncBrowse  `json:"browse"`

	BrowseCmd *string     `json:"browse_cmd"`
	Debug     *jsoncDebug `json:"debug"`
}

type jsoncService struct {
	BaseURL          *string `json:"base_url"`
	TranscriptPath   *string `json:"transcript_path"`
	UploadPath       *string `json:"upload_path"`
	PresentationPath *string `json:"presentation_path"`
}

type jsoncEngine struct {
	Endpoint       *string `json:"endpoint"`
	LanguageCode   *string `json:"language_code"`
	Model          *string `json:"model"`
	InterimResults *bool   `json:"interim_results"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncCapture struct {
	MaxDurationMS  *int `json:"max_duration_ms"`
	TickIntervalMS *int `json:"tick_interval_ms"`
}

type jsoncNotify struct {
	Enable    *bool `json:"enable"`
	TimeoutMS *int  `json:"timeout_ms"`
}

type jsoncBrowse struct {
	Enable  *bool `json:"enable"`
	DelayMS *int  `json:"delay_ms"`
}

type jsoncDebug struct {
	AudioDump  *bool `json:"audio_dump"`
	EngineDump *bool `json:"engine_dump"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.Service != nil {
		if payload.Service.BaseURL != nil {
			cfg.Service.BaseURL = strings.TrimSpace(*payload.Service.BaseURL)
		}
		if payload.Service.TranscriptPath != nil {
			cfg.Service.TranscriptPath = strings.TrimSpace(*payload.Service.TranscriptPath)
		}
		if payload.Service.UploadPath != nil {
			cfg.Service.UploadPath = strings.TrimSpace(*payload.Service.UploadPath)
		}
		if payload.Service.PresentationPath != nil {
			cfg.Service.PresentationPath = strings.TrimSpace(*payload.Service.PresentationPath)
		}
	}

	if payload.Engine != nil {
		if payload.Engine.Endpoint != nil {
			cfg.Engine.Endpoint = strings.TrimSpace(*payload.Engine.Endpoint)
		}
		if payload.Engine.LanguageCode != nil {
			cfg.Engine.LanguageCode = *payload.Engine.LanguageCode
		}
		if payload.Engine.Model != nil {
			cfg.Engine.Model = *payload.Engine.Model
		}
		if payload.Engine.InterimResults != nil {
			cfg.Engine.InterimResults = *payload.Engine.InterimResults
		}
	}

	if payload.Audio != nil {
		if payload.Audio.Input != nil {
			cfg.Audio.Input = *payload.Audio.Input
		}
		if payload.Audio.Fallback != nil {
			cfg.Audio.Fallback = *payload.Audio.Fallback
		}
	}

	if payload.Capture != nil {
		if payload.Capture.MaxDurationMS != nil {
			cfg.Capture.MaxDurationMS = *payload.Capture.MaxDurationMS
		}
		if payload.Capture.TickIntervalMS != nil {
			cfg.Capture.TickIntervalMS = *payload.Capture.TickIntervalMS
		}
	}

	if payload.Notify != nil {
		if payload.Notify.Enable != nil {
			cfg.Notify.Enable = *payload.Notify.Enable
		}
		if payload.Notify.TimeoutMS != nil {
			cfg.Notify.TimeoutMS = *payload.Notify.TimeoutMS
		}
	}

	if payload.Browse != nil {
		if payload.Browse.Enable != nil {
			cfg.Browse.Enable = *payload.Browse.Enable
		}
		if payload.Browse.DelayMS != nil {
			cfg.Browse.DelayMS = *payload.Browse.DelayMS
		}
	}

	if payload.BrowseCmd != nil {
		raw := *payload.BrowseCmd
		argv, err := parseArgv(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid browse_cmd: %w", err)
		}
		cfg.BrowseCmd = CommandConfig{Raw: raw, Argv: argv}
	}

	if payload.Debug != nil {
		if payload.Debug.AudioDump != nil {
			cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
		}
		if payload.Debug.EngineDump != nil {
			cfg.Debug.EnableEngineDump = *payload.Debug.EngineDump
		}
	}

	return warnings, nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
