package browse

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/podium/internal/config"
)

func writeArgvCaptureScript(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "capture-argv.sh")
	outputPath := filepath.Join(dir, "argv.txt")
	script := `#!/usr/bin/env bash
set -euo pipefail
echo "$@" > "` + outputPath + `"
`
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path, outputPath
}

func writeFailScript(t *testing.T, message string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "fail.sh")
	script := "#!/usr/bin/env bash\nset -euo pipefail\necho " + "\"" + message + "\"" + " >&2\nexit 1\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestOpenPassesURLAsFinalArgument(t *testing.T) {
	scriptPath, outputPath := writeArgvCaptureScript(t)

	cfg := config.Default()
	cfg.BrowseCmd = config.CommandConfig{Argv: []string{scriptPath, "--new-tab"}}

	opener := NewOpener(cfg, nil)
	err := opener.Open(context.Background(), "http://svc.test/presentation/42")
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	require.Equal(t, "--new-tab http://svc.test/presentation/42\n", string(data))
}

func TestOpenDisabledIsNoop(t *testing.T) {
	scriptPath, outputPath := writeArgvCaptureScript(t)

	cfg := config.Default()
	cfg.Browse.Enable = false
	cfg.BrowseCmd = config.CommandConfig{Argv: []string{scriptPath}}

	opener := NewOpener(cfg, nil)
	require.NoError(t, opener.Open(context.Background(), "http://svc.test/presentation/42"))

	_, statErr := os.Stat(outputPath)
	require.True(t, os.IsNotExist(statErr))
}

func TestOpenRejectsEmptyURL(t *testing.T) {
	opener := NewOpener(config.Default(), nil)
	err := opener.Open(context.Background(), "   ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "URL cannot be empty")
}

func TestOpenReturnsErrorWhenCommandFails(t *testing.T) {
	failScript := writeFailScript(t, "no display")

	cfg := config.Default()
	cfg.BrowseCmd = config.CommandConfig{Argv: []string{failScript}}

	opener := NewOpener(cfg, nil)
	err := opener.Open(context.Background(), "http://svc.test/presentation/42")
	require.Error(t, err)
	require.Contains(t, err.Error(), "open presentation")
}

func TestRunCommandRejectsEmptyArgv(t *testing.T) {
	err := runCommand(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "argv cannot be empty")
}
