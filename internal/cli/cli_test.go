package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shredder/internal/batch"
	"shredder/internal/config"
	"shredder/internal/logging"
	"shredder/pkg/shred"
)

type cliResult struct {
	code   int
	stdout string
	stderr string
}

// runCLI executes the command tree against a private config file.
func runCLI(t *testing.T, cfg *config.Config, stdin string, args ...string) cliResult {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if cfg != nil {
		require.NoError(t, cfg.SaveTo(cfgPath))
	}
	return runCLIWithConfig(t, cfgPath, stdin, args...)
}

func runCLIWithConfig(t *testing.T, cfgPath, stdin string, args ...string) cliResult {
	t.Helper()
	logger, _ := logging.NewTestLogger()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), NewRootCommand(logger),
		append(args, "--config="+cfgPath),
		strings.NewReader(stdin), &stdout, &stderr)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Passes = 1
	cfg.GitCheck = "off"
	return &cfg
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func assertGone(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "%s still exists", path)
}

func assertExists(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.NoError(t, err, "%s should still exist", path)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"not found", &shred.Error{Kind: shred.KindNotFound}, ExitNotFound},
		{"not writable", &shred.Error{Kind: shred.KindNotWritable}, ExitNotWritable},
		{"io", &shred.Error{Kind: shred.KindIO}, ExitIO},
		{"delete failed", &shred.Error{Kind: shred.KindDeleteFailed}, ExitDeleteFailed},
		{"unexpected kind", &shred.Error{Kind: shred.KindUnexpected}, ExitUnexpected},
		{"wrapped kind", &reportedError{err: fmt.Errorf("batch: %w", &shred.Error{Kind: shred.KindIO})}, ExitIO},
		{"usage", usagef("bad flag"), ExitUsage},
		{"plan", &reportedError{err: &batch.PlanError{Path: "/x", Err: errors.New("nope")}}, ExitUsage},
		{"other", errors.New("boom"), ExitUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestRm_Yes(t *testing.T) {
	file := writeFile(t, filepath.Join(t.TempDir(), "secret.txt"), "classified")

	res := runCLI(t, testConfig(), "", "rm", "-y", file)

	assert.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "shredded "+file)
	assert.Contains(t, res.stdout, "1 shredded, 0 failed")
	assertGone(t, file)
}

func TestRoot_DefaultsToRm(t *testing.T) {
	file := writeFile(t, filepath.Join(t.TempDir(), "secret.txt"), "classified")

	res := runCLI(t, testConfig(), "", "-y", "-n", "2", file)

	assert.Equal(t, ExitOK, res.code, res.stderr)
	assertGone(t, file)
}

func TestRoot_NoArgsPrintsHelp(t *testing.T) {
	res := runCLI(t, testConfig(), "")

	assert.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "Shredded files cannot be recovered")
}

func TestRm_Confirmation(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		removed bool
	}{
		{"accept", "y\n", true},
		{"accept word", "YES\n", true},
		{"decline", "n\n", false},
		{"empty", "\n", false},
		{"eof", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := writeFile(t, filepath.Join(t.TempDir(), "secret.txt"), "classified")

			res := runCLI(t, testConfig(), tt.answer, "rm", file)

			assert.Equal(t, ExitOK, res.code, res.stderr)
			assert.Contains(t, res.stdout, "This action cannot be undone")
			assert.Contains(t, res.stdout, "secret.txt (10B)")
			if tt.removed {
				assertGone(t, file)
			} else {
				assert.Contains(t, res.stdout, "Aborted")
				assertExists(t, file)
			}
		})
	}
}

func TestRm_ConfirmDisabledInConfig(t *testing.T) {
	file := writeFile(t, filepath.Join(t.TempDir(), "secret.txt"), "classified")
	cfg := testConfig()
	cfg.Confirm = false

	res := runCLI(t, cfg, "", "rm", file)

	assert.Equal(t, ExitOK, res.code, res.stderr)
	assert.NotContains(t, res.stdout, "cannot be undone")
	assertGone(t, file)
}

func TestRm_NotFound(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.txt")

	res := runCLI(t, testConfig(), "", "rm", "-y", missing)

	assert.Equal(t, ExitNotFound, res.code)
	assert.Contains(t, res.stderr, "failed")
	assert.Contains(t, res.stderr, "hint: check the path; nothing was modified")
	assert.NotContains(t, res.stderr, "Error:", "per-file failures are not repeated")
}

func TestRm_PartialFailureKeepsGoing(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, filepath.Join(dir, "good.txt"), "data")
	missing := filepath.Join(dir, "missing.txt")

	res := runCLI(t, testConfig(), "", "rm", "-y", missing, good)

	assert.Equal(t, ExitNotFound, res.code)
	assert.Contains(t, res.stdout, "1 shredded, 1 failed")
	assertGone(t, good)
}

func TestRm_Directory(t *testing.T) {
	dir := t.TempDir()
	tree := filepath.Join(dir, "tree")
	a := writeFile(t, filepath.Join(tree, "a.txt"), "a")
	b := writeFile(t, filepath.Join(tree, "sub", "b.txt"), "b")

	t.Run("without recursive", func(t *testing.T) {
		res := runCLI(t, testConfig(), "", "rm", "-y", tree)

		assert.Equal(t, ExitUsage, res.code)
		assert.Contains(t, res.stderr, "skipping")
		assertExists(t, a)
	})

	t.Run("recursive keep dirs", func(t *testing.T) {
		res := runCLI(t, testConfig(), "", "rm", "-y", "-r", "--keep-dirs", "-j", "2", tree)

		assert.Equal(t, ExitOK, res.code, res.stderr)
		assertGone(t, a)
		assertGone(t, b)
		assertExists(t, filepath.Join(tree, "sub"))
	})

	t.Run("recursive prunes", func(t *testing.T) {
		writeFile(t, filepath.Join(tree, "sub", "c.txt"), "c")

		res := runCLI(t, testConfig(), "", "rm", "-y", "-r", tree)

		assert.Equal(t, ExitOK, res.code, res.stderr)
		assert.Contains(t, res.stdout, "2 empty directories removed")
		assertGone(t, tree)
	})
}

func TestRm_InvalidFlags(t *testing.T) {
	file := writeFile(t, filepath.Join(t.TempDir(), "secret.txt"), "classified")

	for _, args := range [][]string{
		{"rm", "-y", "--jobs", "0", file},
		{"rm", "-y", "--passes", "1000000", file},
		{"rm", "-y", "--block-size", "-1", file},
		{"rm", "-y", "--git-check", "sometimes", file},
		{"rm", "-y", "--no-such-flag", file},
	} {
		res := runCLI(t, testConfig(), "", args...)
		assert.Equal(t, ExitUsage, res.code, "args %v: %s", args, res.stderr)
	}
	assertExists(t, file)
}

func TestRm_BrokenConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("passes: [\n"), 0o600))
	file := writeFile(t, filepath.Join(t.TempDir(), "secret.txt"), "classified")

	res := runCLIWithConfig(t, cfgPath, "", "rm", "-y", file)

	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.stderr, "Error:")
	assertExists(t, file)
}

func TestCheck(t *testing.T) {
	res := runCLI(t, testConfig(), "", "check")

	assert.Equal(t, ExitOK, res.code)
	assert.Equal(t, "available\n", res.stdout)
}

func TestVersion(t *testing.T) {
	res := runCLI(t, nil, "", "version")

	assert.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stdout, "shredder version "+config.AppVersion)
}

func TestConfigCommands(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	res := runCLIWithConfig(t, cfgPath, "", "config", "path")
	assert.Equal(t, ExitOK, res.code)
	assert.Equal(t, cfgPath+"\n", res.stdout)

	res = runCLIWithConfig(t, cfgPath, "", "config", "init")
	assert.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Config file created")
	assertExists(t, cfgPath)

	res = runCLIWithConfig(t, cfgPath, "", "config", "init")
	assert.Equal(t, ExitOK, res.code)
	assert.Contains(t, res.stderr, "already exists")

	res = runCLIWithConfig(t, cfgPath, "", "config", "show")
	assert.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "passes: 3")
	assert.Contains(t, res.stdout, "git_check: warn")
}
