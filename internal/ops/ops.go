// Package ops implements the auto-docx operations: generating a document
// from a source file, and listing interpreter environments.
package ops

import (
	"context"
	"time"

	"github.com/hpungsan/autodocx/internal/capture"
	"github.com/hpungsan/autodocx/internal/pyenv"
	"github.com/hpungsan/autodocx/internal/source"
)

// Executor runs a source and returns its ordered capture.
// runner.Runner is the production implementation.
type Executor interface {
	Run(ctx context.Context, src *source.Source) (*capture.Capture, error)
}

// ExecutorFactory builds an Executor for the resolved interpreter.
type ExecutorFactory func(python string, timeout time.Duration) Executor

// discoverEnvs lists interpreter environments. Tests replace it.
var discoverEnvs = func(ctx context.Context, probeVersions bool) ([]pyenv.Env, error) {
	d := pyenv.NewDiscoverer()
	d.ProbeVersions = probeVersions
	return d.Discover(ctx)
}

// defaultPython resolves the auto-detected interpreter. Tests replace it.
var defaultPython = pyenv.DefaultPython
