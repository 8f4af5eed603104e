// Package pyenv discovers Python interpreters available on the system.
package pyenv

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/autodocx/internal/errors"
)

// Environment sources, as shown by --list-envs.
const (
	SourceSystem = "system"
	SourceConda  = "conda"
	SourceVenv   = "venv"
)

// probeConcurrency limits concurrent `python --version` probes.
const probeConcurrency = 4

// Env is a discovered interpreter environment.
type Env struct {
	Name    string `json:"name"`
	Python  string `json:"python"`
	Source  string `json:"source"`
	Version string `json:"version,omitempty"`
}

// Discoverer enumerates interpreter environments. The zero value is not
// usable; use NewDiscoverer.
type Discoverer struct {
	HomeDir       string
	LookPath      func(file string) (string, error)
	ProbeVersions bool
	Timeout       time.Duration // per external command
}

// NewDiscoverer returns a Discoverer for the current user.
func NewDiscoverer() *Discoverer {
	home, _ := os.UserHomeDir()
	return &Discoverer{
		HomeDir:  home,
		LookPath: exec.LookPath,
		Timeout:  5 * time.Second,
	}
}

// DefaultPython returns the interpreter used when none is configured:
// python3, then python, from PATH.
func DefaultPython() (string, error) {
	return defaultPython(exec.LookPath)
}

func defaultPython(lookPath func(string) (string, error)) (string, error) {
	names := []string{"python3", "python"}
	if runtime.GOOS == "windows" {
		names = []string{"python", "python3"}
	}
	for _, name := range names {
		if p, err := lookPath(name); err == nil {
			return p, nil
		}
	}
	return "", errors.NewInterpreterNotFound("", nil)
}

// Discover lists environments in a stable order: the default interpreter
// first, then conda environments, then virtualenvs under ~/.virtualenvs and
// ~/venvs. Paths are de-duplicated case-insensitively. Discovery problems
// (no conda, unreadable directories) are skipped silently.
func (d *Discoverer) Discover(ctx context.Context) ([]Env, error) {
	var envs []Env
	seen := make(map[string]bool)
	add := func(name, python, src string) {
		if python == "" {
			return
		}
		if abs, err := filepath.Abs(python); err == nil {
			python = abs
		}
		key := strings.ToLower(python)
		if seen[key] {
			return
		}
		seen[key] = true
		envs = append(envs, Env{Name: name, Python: python, Source: src})
	}

	if p, err := defaultPython(d.LookPath); err == nil {
		add("current", p, SourceSystem)
	}

	for _, dir := range d.condaEnvDirs(ctx) {
		if p := pythonIn(dir, SourceConda); p != "" {
			add(filepath.Base(dir), p, SourceConda)
		}
	}

	if d.HomeDir != "" {
		for _, base := range []string{".virtualenvs", "venvs"} {
			entries, err := os.ReadDir(filepath.Join(d.HomeDir, base))
			if err != nil {
				continue
			}
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				dir := filepath.Join(d.HomeDir, base, e.Name())
				if p := pythonIn(dir, SourceVenv); p != "" {
					add(e.Name(), p, SourceVenv)
				}
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("environment discovery")
	}

	if d.ProbeVersions {
		d.probeVersions(ctx, envs)
	}
	return envs, nil
}

// condaEnvDirs asks conda for its environment directories.
func (d *Discoverer) condaEnvDirs(ctx context.Context) []string {
	conda, err := d.LookPath("conda")
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout())
	defer cancel()

	out, err := exec.CommandContext(ctx, conda, "env", "list", "--json").Output()
	if err != nil {
		return nil
	}
	return parseCondaEnvs(out)
}

func parseCondaEnvs(data []byte) []string {
	var listing struct {
		Envs []string `json:"envs"`
	}
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil
	}
	return listing.Envs
}

// probeVersions fills in Env.Version concurrently. Interpreters that fail
// to answer keep an empty version.
func (d *Discoverer) probeVersions(ctx context.Context, envs []Env) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)

	for i := range envs {
		g.Go(func() error {
			envs[i].Version = d.pythonVersion(gctx, envs[i].Python)
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Discoverer) pythonVersion(ctx context.Context, python string) string {
	ctx, cancel := context.WithTimeout(ctx, d.timeout())
	defer cancel()

	// Python 2 prints the version on stderr.
	out, err := exec.CommandContext(ctx, python, "--version").CombinedOutput()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(out)), "Python"))
}

func (d *Discoverer) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return 5 * time.Second
}

// pythonIn returns the interpreter inside an environment directory, or "".
func pythonIn(dir, src string) string {
	var candidates []string
	switch {
	case runtime.GOOS != "windows":
		candidates = []string{filepath.Join(dir, "bin", "python")}
	case src == SourceConda:
		candidates = []string{filepath.Join(dir, "python.exe")}
	default:
		candidates = []string{filepath.Join(dir, "Scripts", "python.exe")}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// Select resolves an environment identifier: a decimal index into envs
// (as printed by --list-envs), otherwise an exact name match.
func Select(identifier string, envs []Env) (Env, bool) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Env{}, false
	}
	if isDigits(identifier) {
		if idx, err := strconv.Atoi(identifier); err == nil && idx >= 0 && idx < len(envs) {
			return envs[idx], true
		}
	}
	for _, e := range envs {
		if e.Name == identifier {
			return e, true
		}
	}
	return Env{}, false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
