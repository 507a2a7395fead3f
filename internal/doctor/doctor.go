// Package doctor runs runtime readiness diagnostics for config, the slide
// service, the speech engine, audio, and the browse command.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/podium/internal/audio"
	"github.com/rbright/podium/internal/config"
	"github.com/rbright/podium/internal/engine"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	checks = append(checks, checkService(cfg.Config))
	checks = append(checks, checkEngine(cfg.Config))
	checks = append(checks, checkAudioSelection(cfg.Config))

	if cfg.Config.Browse.Enable {
		checks = append(checks, checkCommand(cfg.Config.BrowseCmd.Argv, "browse_cmd"))
	}

	return Report{Checks: checks}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkService probes the slide service base URL for reachability. Any
// decoded HTTP response counts: the service has no health route.
func checkService(cfg config.Config) Check {
	base := strings.TrimSpace(cfg.Service.BaseURL)
	if base == "" {
		return Check{Name: "service.reachable", Pass: false, Message: "service.base_url is empty"}
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	url := strings.TrimRight(base, "/") + "/"
	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return Check{Name: "service.reachable", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Check{Name: "service.reachable", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
	}
	return Check{Name: "service.reachable", Pass: true, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, url)}
}

// checkEngine validates the configured speech engine endpoint.
func checkEngine(cfg config.Config) Check {
	capability := engine.Probe(engine.StreamConfig{Endpoint: cfg.Engine.Endpoint})
	if !capability.Available {
		return Check{Name: "engine.endpoint", Pass: false, Message: capability.Reason}
	}
	return Check{Name: "engine.endpoint", Pass: true, Message: fmt.Sprintf("configured %q", cfg.Engine.Endpoint)}
}
