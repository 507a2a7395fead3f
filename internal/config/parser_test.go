package config

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseValidLegacyConfig(t *testing.T) {
	input := `
# comment
service.base_url = http://slides.local:5000
engine.endpoint = "ws://127.0.0.1:8090/listen"
audio.input = "Blue Yeti"
notify.enable = false
capture.max_duration_ms = 240000
`

	cfg, warnings, err := Parse(input, Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Service.BaseURL != "http://slides.local:5000" {
		t.Fatalf("unexpected service.base_url: %s", cfg.Service.BaseURL)
	}
	if cfg.Engine.Endpoint != "ws://127.0.0.1:8090/listen" {
		t.Fatalf("unexpected engine.endpoint: %s", cfg.Engine.Endpoint)
	}
	if cfg.Audio.Input != "Blue Yeti" {
		t.Fatalf("unexpected audio.input: %s", cfg.Audio.Input)
	}
	if cfg.Notify.Enable {
		t.Fatal("expected notify.enable=false")
	}
	if cfg.Capture.MaxDurationMS != 240000 {
		t.Fatalf("unexpected capture.max_duration_ms: %d", cfg.Capture.MaxDurationMS)
	}
	if len(warnings) == 0 || !strings.Contains(warnings[0].Message, "deprecated") {
		t.Fatalf("expected legacy deprecation warning, got %v", warnings)
	}
}

func TestParseEmptyContentKeepsDefaults(t *testing.T) {
	cfg, _, err := Parse("   \n\t  ", Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("expected defaults, got %#v", cfg)
	}
}

func TestParseUnknownKeyFails(t *testing.T) {
	_, _, err := Parse(`foo.bar = 1`, Default())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unknown key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseLineNumberOnError(t *testing.T) {
	_, _, err := Parse("\n\nthis is bad", Default())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected line number in error, got %v", err)
	}
}

func TestParseLegacyBooleanRejectsGarbage(t *testing.T) {
	_, _, err := Parse(`browse.enable = maybe`, Default())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "expects a boolean") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseLegacyIntegerRejectsGarbage(t *testing.T) {
	_, _, err := Parse(`notify.timeout_ms = soon`, Default())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "expects an integer") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseCommandArgvQuoted(t *testing.T) {
	cfg, _, err := Parse(`browse_cmd = "mycmd --profile 'work stuff'"`, Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	got := strings.Join(cfg.BrowseCmd.Argv, "|")
	want := "mycmd|--profile|work stuff"
	if got != want {
		t.Fatalf("unexpected argv parse: got %q want %q", got, want)
	}
}

func TestParseSingleQuotedStrings(t *testing.T) {
	cfg, _, err := Parse(`
audio.fallback = 'USB Desktop Mic'
browse_cmd = 'firefox --new-tab'
`, Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Audio.Fallback != "USB Desktop Mic" {
		t.Fatalf("unexpected audio.fallback: %q", cfg.Audio.Fallback)
	}
	if strings.Join(cfg.BrowseCmd.Argv, "|") != "firefox|--new-tab" {
		t.Fatalf("unexpected browse argv: %#v", cfg.BrowseCmd.Argv)
	}
}

func TestParseLegacyValidatesResult(t *testing.T) {
	_, _, err := Parse(`engine.endpoint = http://not-a-socket`, Default())
	if err == nil {
		t.Fatal("expected validation error for non-websocket endpoint")
	}
	if !strings.Contains(err.Error(), "ws://") {
		t.Fatalf("unexpected error: %v", err)
	}
}
