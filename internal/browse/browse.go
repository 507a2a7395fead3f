// Package browse opens the generated presentation in the user's browser.
package browse

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/podium/internal/config"
)

const openTimeout = 5 * time.Second

// Opener launches the configured browse command with the presentation URL
// appended to its argv.
type Opener struct {
	config config.Config
	logger *slog.Logger
}

// NewOpener constructs a browse opener from runtime config.
func NewOpener(cfg config.Config, logger *slog.Logger) *Opener {
	return &Opener{config: cfg, logger: logger}
}

// Open launches the presentation URL. Disabled browse is a silent no-op so
// the submission flow never depends on a desktop environment.
func (o *Opener) Open(ctx context.Context, url string) error {
	if !o.config.Browse.Enable {
		return nil
	}
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("presentation URL cannot be empty")
	}

	argv := append(append([]string{}, o.config.BrowseCmd.Argv...), url)

	openCtx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()
	if err := runCommand(openCtx, argv); err != nil {
		return fmt.Errorf("open presentation: %w", err)
	}

	if o.logger != nil {
		o.logger.Info("presentation opened", "url", url)
	}
	return nil
}

// runCommand executes argv and waits for completion.
func runCommand(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
