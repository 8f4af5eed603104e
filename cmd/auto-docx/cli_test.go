package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/autodocx/internal/capture"
	"github.com/hpungsan/autodocx/internal/config"
	"github.com/hpungsan/autodocx/internal/console"
	"github.com/hpungsan/autodocx/internal/errors"
	"github.com/hpungsan/autodocx/internal/ops"
	"github.com/hpungsan/autodocx/internal/runner"
	"github.com/hpungsan/autodocx/internal/source"
)

type stubExecutor struct {
	capture *capture.Capture
}

func (s stubExecutor) Run(context.Context, *source.Source) (*capture.Capture, error) {
	return s.capture, nil
}

// stubRuns makes every run return c and records the timeout it was given.
func stubRuns(t *testing.T, c *capture.Capture) *time.Duration {
	t.Helper()
	var timeout time.Duration
	orig := newExecutor
	newExecutor = func(*console.Console, io.Reader) ops.ExecutorFactory {
		return func(_ string, d time.Duration) ops.Executor {
			timeout = d
			return stubExecutor{capture: c}
		}
	}
	t.Cleanup(func() { newExecutor = orig })
	return &timeout
}

// runApp runs the CLI with args (program name excluded) and returns stdout,
// stderr and the exit code.
func runApp(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newCLIApp(strings.NewReader(""), &stdout, &stderr)
	err := app.Run(reorderArgs(append([]string{"auto-docx"}, args...)))
	code := 0
	if err != nil {
		code = exitCode(err)
	}
	return stdout.String(), stderr.String(), code
}

// setupWorkspace points the preference file at a temp dir and writes a script.
func setupWorkspace(t *testing.T) (dir, script, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	cfgPath = filepath.Join(dir, "prefs.json")
	t.Setenv(config.PathEnv, cfgPath)
	script = filepath.Join(dir, "lab.py")
	require.NoError(t, os.WriteFile(script, []byte("print('hi')\n"), 0644))
	return dir, script, cfgPath
}

func TestReorderArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", []string{"auto-docx"}, []string{"auto-docx"}},
		{"flags first", []string{"auto-docx", "-o", "out.docx", "a.py"}, []string{"auto-docx", "-o", "out.docx", "--", "a.py"}},
		{"flags after path", []string{"auto-docx", "a.py", "--timeout", "10", "-v"}, []string{"auto-docx", "--timeout", "10", "-v", "--", "a.py"}},
		{"interspersed", []string{"auto-docx", "-r", "42", "a.py", "--save-roll"}, []string{"auto-docx", "-r", "42", "--save-roll", "--", "a.py"}},
		{"equals form", []string{"auto-docx", "a.py", "--env=ml"}, []string{"auto-docx", "--env=ml", "--", "a.py"}},
		{"value looks like flag", []string{"auto-docx", "a.py", "--timeout", "-5"}, []string{"auto-docx", "--timeout", "-5", "--", "a.py"}},
		{"double dash", []string{"auto-docx", "--no-source", "--", "-odd.py"}, []string{"auto-docx", "--no-source", "--", "-odd.py"}},
		{"flags only", []string{"auto-docx", "--list-envs"}, []string{"auto-docx", "--list-envs"}},
		{"dangling value flag", []string{"auto-docx", "a.py", "--python"}, []string{"auto-docx", "--python", "--", "a.py"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reorderArgs(tt.in))
		})
	}
}

func TestCLIGenerate(t *testing.T) {
	dir, script, cfgPath := setupWorkspace(t)
	c := &capture.Capture{}
	c.Append(capture.Text{Content: "hi"})
	timeout := stubRuns(t, c)

	stdout, stderr, code := runApp(t, script, "-r", "21CS042", "--save-roll", "--timeout", "10", "--python", "/fake/python")
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, stdout, "Running lab.py")
	assert.Contains(t, stdout, "Document generated: "+filepath.Join(dir, "lab.docx"))
	assert.Contains(t, stdout, "Status: Success")
	assert.Equal(t, 10*time.Second, *timeout)

	_, err := os.Stat(filepath.Join(dir, "lab.docx"))
	require.NoError(t, err)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "21CS042", cfg.RollNo)
}

func TestCLIGenerate_OutputFlag(t *testing.T) {
	dir, script, _ := setupWorkspace(t)
	stubRuns(t, &capture.Capture{})
	out := filepath.Join(dir, "custom.docx")

	_, stderr, code := runApp(t, "--no-source", script, "-o", out, "--python", "/fake/python")
	require.Equal(t, 0, code, stderr)

	_, err := os.Stat(out)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "lab.docx"))
	assert.True(t, os.IsNotExist(err))
}

func TestCLIGenerate_FailedRunExitsZero(t *testing.T) {
	_, script, _ := setupWorkspace(t)
	c := &capture.Capture{}
	c.Fail(errors.NewExecutionTimeout(3*time.Second), -1)
	stubRuns(t, c)

	stdout, _, code := runApp(t, script, "--python", "/fake/python")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Status: Failed (execution timed out after 3s)")
}

func TestCLIGenerate_Verbose(t *testing.T) {
	_, script, _ := setupWorkspace(t)
	stubRuns(t, &capture.Capture{RunID: "01JABCDEFGHJKMNPQRSTVWXYZ0"})

	_, stderr, code := runApp(t, script, "-v", "--python", "/fake/python")
	require.Equal(t, 0, code)
	assert.Contains(t, stderr, "[INFO] python: /fake/python")
	assert.Contains(t, stderr, "[INFO] run 01JABCDEFGHJKMNPQRSTVWXYZ0")
	assert.Contains(t, stderr, "[INFO] 0 items captured, 0 images")
}

func TestCLIGenerate_SaveWithoutValue(t *testing.T) {
	_, script, cfgPath := setupWorkspace(t)
	stubRuns(t, &capture.Capture{})

	_, stderr, code := runApp(t, script, "--save-env", "--python", "/fake/python")
	require.Equal(t, 0, code)
	assert.Contains(t, stderr, "warning: --save-env given without --env")

	_, err := os.Stat(cfgPath)
	assert.True(t, os.IsNotExist(err))
}

func TestCLIGenerate_MalformedConfigWarns(t *testing.T) {
	_, script, cfgPath := setupWorkspace(t)
	require.NoError(t, os.WriteFile(cfgPath, []byte("{not json"), 0600))
	stubRuns(t, &capture.Capture{})

	_, stderr, code := runApp(t, script, "--python", "/fake/python")
	assert.Equal(t, 0, code)
	assert.Contains(t, stderr, "warning: [CONFIG_ERROR]")
}

func TestCLIErrors(t *testing.T) {
	dir, script, _ := setupWorkspace(t)
	stubRuns(t, &capture.Capture{})
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0644))

	tests := []struct {
		name   string
		args   []string
		code   int
		stderr string
	}{
		{"no script", nil, 2, "[INVALID_REQUEST]"},
		{"two scripts", []string{script, script}, 2, "expected one script path"},
		{"zero timeout", []string{script, "--timeout", "0"}, 2, "--timeout must be a positive"},
		{"negative timeout", []string{script, "--timeout", "-1"}, 2, "--timeout must be a positive"},
		{"unknown flag", []string{script, "--bogus"}, 2, "[INVALID_REQUEST]"},
		{"missing source", []string{filepath.Join(dir, "nope.py"), "--python", "/fake/python"}, 3, "[SOURCE_NOT_FOUND]"},
		{"unsupported source", []string{txt, "--python", "/fake/python"}, 4, "[UNSUPPORTED_SOURCE_TYPE]"},
		{"write error", []string{script, "-o", filepath.Join(dir, "missing", "x.docx"), "--python", "/fake/python"}, 6, "[WRITE_ERROR]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runApp(t, tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, stderr, tt.stderr)
		})
	}
}

func TestCLIVersion(t *testing.T) {
	stdout, _, code := runApp(t, "--version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "auto-docx version dev")
}

func TestCLIHelp(t *testing.T) {
	stdout, _, code := runApp(t, "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "auto-docx <script_path>")
	assert.Contains(t, stdout, "--list-envs")
}

func TestNewExecutor_Stdin(t *testing.T) {
	con := console.New(io.Discard, io.Discard, false)

	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	defer pr.Close()
	defer pw.Close()

	r, ok := newExecutor(con, pr)("/usr/bin/python3", time.Second).(*runner.Runner)
	require.True(t, ok)
	assert.Equal(t, pr, r.Stdin, "piped stdin is forwarded")
	assert.False(t, r.Interactive)

	r, ok = newExecutor(con, strings.NewReader("42\n"))("/usr/bin/python3", time.Second).(*runner.Runner)
	require.True(t, ok)
	assert.Nil(t, r.Stdin)
	assert.False(t, r.Interactive)
}
