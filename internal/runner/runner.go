// Package runner executes a script or notebook under a Python interpreter
// and captures its output in emission order.
package runner

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/autodocx/internal/capture"
	"github.com/hpungsan/autodocx/internal/errors"
	"github.com/hpungsan/autodocx/internal/pyenv"
	"github.com/hpungsan/autodocx/internal/source"
)

// DefaultTimeout bounds a whole run when Runner.Timeout is zero.
const DefaultTimeout = 300 * time.Second

// waitDelay is how long Wait keeps reading output after the child exits
// (or is killed) before closing the pipe.
const waitDelay = 2 * time.Second

//go:embed bootstrap.py
var bootstrapSource []byte

// Runner executes sources under a Python interpreter.
type Runner struct {
	Python      string        // interpreter path; empty auto-detects python3/python
	Timeout     time.Duration // wall-clock bound for the whole run
	Stdin       io.Reader     // passed to the child when non-nil
	Interactive bool          // Stdin is a terminal; the child stays in its foreground group
	Echo        io.Writer     // receives program output live; nil discards
	Logger      *log.Logger   // verbose diagnostics; nil discards
}

// Run executes src and returns its capture.
//
// Timeouts and non-zero exits are not errors: they are recorded in
// Capture.Failure with the partial output kept. Errors are returned only
// when the run cannot start, or when ctx is cancelled (CANCELLED); a
// cancelled run still returns the partial capture.
func (r *Runner) Run(ctx context.Context, src *source.Source) (*capture.Capture, error) {
	python, err := r.interpreter()
	if err != nil {
		return nil, err
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	runID := newRunID()
	workDir, err := os.MkdirTemp("", "auto-docx-"+runID+"-")
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create work directory: %w", err))
	}
	defer os.RemoveAll(workDir)

	args, err := prepare(workDir, src)
	if err != nil {
		return nil, err
	}
	r.logf("run %s: %s %s (%s, timeout %s)", runID, python, src.Path, src.Kind, timeout)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	col := newCollector(r.Echo)
	cmd := exec.CommandContext(runCtx, python, args...)
	cmd.Dir = src.Dir()
	cmd.Env = append(os.Environ(),
		"PYTHONUNBUFFERED=1",
		"PYTHONIOENCODING=utf-8",
		"MPLBACKEND=Agg",
	)
	cmd.Stdout = col
	cmd.Stderr = col
	if r.Stdin != nil {
		cmd.Stdin = r.Stdin
	}
	configureProcess(cmd, r.Interactive)
	cmd.WaitDelay = waitDelay

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, errors.NewInterpreterNotFound(python, err)
	}
	waitErr := cmd.Wait()
	r.logf("run %s: finished in %s", runID, time.Since(start).Round(time.Millisecond))

	var (
		failure  *errors.DocxError
		exitCode int
		status   string
	)
	switch {
	case ctx.Err() != nil:
		c := assemble(src, col, false)
		c.RunID = runID
		return c, errors.NewCancelled("execution")
	case timedOut(runCtx, waitErr):
		failure = errors.NewExecutionTimeout(timeout)
		exitCode = -1
	case waitErr != nil:
		var exitErr *exec.ExitError
		switch {
		case stderrors.As(waitErr, &exitErr):
			exitCode = exitErr.ExitCode()
			failure = errors.NewExecutionError(exitCode)
			if !col.hasTrace() {
				status = fmt.Sprintf("Process exited with status %d", exitCode)
			}
		case stderrors.Is(waitErr, exec.ErrWaitDelay):
			// The interpreter exited cleanly but a child kept the output pipe open.
			r.logf("run %s: output pipe held open after exit", runID)
		default:
			return nil, errors.NewInternal(fmt.Errorf("waiting for interpreter: %w", waitErr))
		}
	}

	c := assemble(src, col, failure == nil)
	c.RunID = runID
	if status != "" {
		c.Append(capture.Text{Content: status})
	}
	c.Fail(failure, exitCode)
	return c, nil
}

// timedOut reports whether the run was ended by its deadline. A child that
// exited cleanly is not a timeout even if the deadline passed before Wait
// returned.
func timedOut(runCtx context.Context, waitErr error) bool {
	return waitErr != nil && stderrors.Is(runCtx.Err(), context.DeadlineExceeded)
}

func (r *Runner) interpreter() (string, error) {
	if p := strings.TrimSpace(r.Python); p != "" {
		return p, nil
	}
	return pyenv.DefaultPython()
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}

// prepare writes the bootstrap (and the notebook cell plan) into workDir
// and returns the interpreter arguments.
func prepare(workDir string, src *source.Source) ([]string, error) {
	bootstrapPath := filepath.Join(workDir, "bootstrap.py")
	if err := os.WriteFile(bootstrapPath, bootstrapSource, 0600); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to write bootstrap: %w", err))
	}

	args := []string{"-u", bootstrapPath, "--images", filepath.Join(workDir, "images")}
	if src.Kind != source.KindNotebook {
		return append(args, "--script", src.Path), nil
	}

	cellsPath := filepath.Join(workDir, "cells.json")
	if err := writeCellPlan(cellsPath, src); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to write cell plan: %w", err))
	}
	return append(args, "--cells", cellsPath), nil
}

type cellPlan struct {
	Notebook string         `json:"notebook"`
	Cells    []cellPlanItem `json:"cells"`
}

type cellPlanItem struct {
	Index  int    `json:"index"`
	Source string `json:"source"`
}

func writeCellPlan(path string, src *source.Source) error {
	plan := cellPlan{Notebook: src.Path, Cells: []cellPlanItem{}}
	for _, c := range src.CodeCells() {
		plan.Cells = append(plan.Cells, cellPlanItem{Index: c.Index, Source: c.Content})
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// assemble builds the capture from the collected segments.
//
// Scripts produce a single segment. For notebooks, markdown cells are
// placed at their notebook position between the code cell outputs. When the
// run did not complete, cells after the last one that started executing are
// left out, since execution never reached them.
func assemble(src *source.Source, col *collector, complete bool) *capture.Capture {
	segments := col.finish()
	c := &capture.Capture{}

	byCell := make(map[int][]capture.Item, len(segments))
	for _, seg := range segments {
		if seg.cell == preambleCell {
			c.Append(seg.items...)
			continue
		}
		byCell[seg.cell] = append(byCell[seg.cell], seg.items...)
	}
	if src.Kind != source.KindNotebook {
		return c
	}

	reached := col.startedCell()
	for _, cell := range src.Cells {
		if !complete && cell.Index > reached {
			break
		}
		switch cell.Type {
		case source.CellMarkdown:
			if strings.TrimSpace(cell.Content) != "" {
				c.Append(capture.Markdown{Content: cell.Content})
			}
		case source.CellCode:
			c.Append(byCell[cell.Index]...)
		}
	}
	return c
}

// newRunID returns a ULID naming the run in its capture, logs and temp
// directory.
func newRunID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
