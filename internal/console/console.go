// Package console writes user-facing status lines, warnings and verbose
// diagnostics.
package console

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/hpungsan/autodocx/internal/pyenv"
)

// Console routes output to stdout (results) and stderr (diagnostics).
type Console struct {
	Out io.Writer
	Err io.Writer

	verbose bool
	logger  *log.Logger

	warn    *color.Color
	fail    *color.Color
	ok      *color.Color
	heading *color.Color
}

// New returns a Console. Colors are used only when errOut is a terminal.
func New(out, errOut io.Writer, verbose bool) *Console {
	logOut := io.Discard
	if verbose {
		logOut = errOut
	}
	c := &Console{
		Out:     out,
		Err:     errOut,
		verbose: verbose,
		logger:  log.New(logOut, "[INFO] ", 0),
		warn:    color.New(color.FgYellow, color.Bold),
		fail:    color.New(color.FgRed, color.Bold),
		ok:      color.New(color.FgGreen),
		heading: color.New(color.Bold),
	}
	if !IsTerminal(errOut) || !IsTerminal(out) {
		for _, col := range []*color.Color{c.warn, c.fail, c.ok, c.heading} {
			col.DisableColor()
		}
	}
	return c
}

// IsTerminal reports whether v is a file attached to a terminal.
func IsTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	// A nil or closed file reports ^uintptr(0), which does not fit an int.
	fd, err := safecast.Conv[int](f.Fd())
	return err == nil && term.IsTerminal(fd)
}

// Verbose reports whether verbose logging is on.
func (c *Console) Verbose() bool {
	return c.verbose
}

// Logger returns the verbose logger. It discards output unless verbose.
func (c *Console) Logger() *log.Logger {
	return c.logger
}

// Infof logs a verbose line.
func (c *Console) Infof(format string, args ...any) {
	c.logger.Printf(format, args...)
}

// Warnf prints "warning: ..." to stderr.
func (c *Console) Warnf(format string, args ...any) {
	fmt.Fprintf(c.Err, "%s %s\n", c.warn.Sprint("warning:"), fmt.Sprintf(format, args...))
}

// Errorf prints "error: ..." to stderr.
func (c *Console) Errorf(format string, args ...any) {
	fmt.Fprintf(c.Err, "%s %s\n", c.fail.Sprint("error:"), fmt.Sprintf(format, args...))
}

// Printf writes to stdout.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// Heading prints a bold banner line to stdout.
func (c *Console) Heading(text string) {
	fmt.Fprintln(c.Out, c.heading.Sprint(text))
}

// Status prints a labelled result line. Successful results are green and
// failed ones red.
func (c *Console) Status(label, value string, success bool) {
	col := c.ok
	if !success {
		col = c.fail
	}
	fmt.Fprintf(c.Out, "%s %s\n", label, col.Sprint(value))
}

// Cause prints the wrapped cause chain of err, one per line, when verbose.
func (c *Console) Cause(err error) {
	if !c.verbose || err == nil {
		return
	}
	for cause := unwrap(err); cause != nil; cause = unwrap(cause) {
		fmt.Fprintf(c.Err, "  caused by: %v\n", cause)
	}
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

// EnvTable writes one line per environment:
//
//	[idx] name (source) version: path
//
// Names are padded to a common display width.
func (c *Console) EnvTable(envs []pyenv.Env) {
	if len(envs) == 0 {
		fmt.Fprintln(c.Out, "No Python environments found.")
		return
	}

	nameWidth := 0
	for _, env := range envs {
		nameWidth = max(nameWidth, runewidth.StringWidth(env.Name))
	}
	idxWidth := len(strconv.Itoa(len(envs) - 1))

	for i, env := range envs {
		idx := strconv.Itoa(i)
		var sb strings.Builder
		sb.WriteString("[" + idx + "]")
		sb.WriteString(strings.Repeat(" ", idxWidth-len(idx)+1))
		sb.WriteString(runewidth.FillRight(env.Name, nameWidth))
		sb.WriteString(" (" + env.Source + ")")
		if env.Version != "" {
			sb.WriteString(" " + env.Version)
		}
		sb.WriteString(": " + env.Python)
		fmt.Fprintln(c.Out, sb.String())
	}
}
