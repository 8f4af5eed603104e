package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/autodocx/internal/config"
	"github.com/hpungsan/autodocx/internal/console"
	"github.com/hpungsan/autodocx/internal/errors"
	"github.com/hpungsan/autodocx/internal/ops"
	"github.com/hpungsan/autodocx/internal/runner"
)

const usageText = `auto-docx <script_path> [-o|--output PATH] [--no-source] [--timeout SECONDS]
       [-v|--verbose] [-r|--roll-no ROLL] [--save-roll]
       [--list-envs] [--env ENV] [--save-env] [--python PATH] [-h|--help]`

// valueFlags are the flags that consume the next argument.
var valueFlags = map[string]bool{
	"o": true, "output": true,
	"timeout": true,
	"r": true, "roll-no": true,
	"env":    true,
	"python": true,
}

// newExecutor builds the executor for a run. Tests replace it.
//
// Stdin reaches the child when it is a file (terminal, pipe or redirect);
// other readers would tie Wait to a copy that may never finish.
var newExecutor = func(con *console.Console, stdin io.Reader) ops.ExecutorFactory {
	var passthrough io.Reader
	if f, ok := stdin.(*os.File); ok && f != nil {
		passthrough = f
	}
	interactive := console.IsTerminal(stdin)
	return func(python string, timeout time.Duration) ops.Executor {
		return &runner.Runner{
			Python:      python,
			Timeout:     timeout,
			Stdin:       passthrough,
			Interactive: interactive,
			Echo:        con.Out,
			Logger:      con.Logger(),
		}
	}
}

// newCLIApp creates the CLI application.
func newCLIApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Usage: "print the version"}

	app := &cli.App{
		Name:            "auto-docx",
		Usage:           "Run a Python script or notebook and write its output to a Word document",
		UsageText:       usageText,
		Version:         Version,
		HideHelpCommand: true,
		Reader:          stdin,
		Writer:          stdout,
		ErrWriter:       stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output .docx path (default: next to the script)"},
			&cli.BoolFlag{Name: "no-source", Usage: "Leave the source code out of the document"},
			&cli.IntFlag{Name: "timeout", Value: int(ops.DefaultTimeout / time.Second), Usage: "Execution timeout in seconds"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Print diagnostic details"},
			&cli.StringFlag{Name: "roll-no", Aliases: []string{"r"}, Usage: "Roll number shown under the title"},
			&cli.BoolFlag{Name: "save-roll", Usage: "Remember --roll-no for future runs"},
			&cli.BoolFlag{Name: "list-envs", Usage: "List available Python environments and exit"},
			&cli.StringFlag{Name: "env", Usage: "Python environment to use (index or name from --list-envs)"},
			&cli.BoolFlag{Name: "save-env", Usage: "Remember --env for future runs"},
			&cli.StringFlag{Name: "python", Usage: "Path to a Python interpreter (overrides --env)"},
		},
		Action: func(c *cli.Context) error {
			con := console.New(stdout, stderr, c.Bool("verbose"))

			cfgPath, err := config.DefaultPath()
			if err != nil {
				con.Warnf("preferences unavailable: %v", err)
			}
			cfg := config.DefaultConfig()
			if cfgPath != "" {
				loaded, err := config.Load(cfgPath)
				if err != nil {
					con.Warnf("%s; using defaults", errors.Format(err))
				}
				cfg = loaded
			}

			if c.Bool("list-envs") {
				return listEnvs(c, con, cfg)
			}
			return generate(c, con, cfg, cfgPath, stdin)
		},
	}
	app.OnUsageError = func(_ *cli.Context, err error, _ bool) error {
		return outputError(console.New(stdout, stderr, false), errors.NewInvalidRequest(err.Error()))
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func listEnvs(c *cli.Context, con *console.Console, cfg *config.Config) error {
	out, err := ops.ListEnvs(c.Context, cfg, ops.ListEnvsInput{ProbeVersions: true})
	if err != nil {
		return outputError(con, err)
	}
	con.EnvTable(out.Envs)
	if out.Saved != "" {
		con.Printf("\nSaved environment: %s\n", out.Saved)
	}
	return nil
}

func generate(c *cli.Context, con *console.Console, cfg *config.Config, cfgPath string, stdin io.Reader) error {
	switch c.NArg() {
	case 0:
		return outputError(con, errors.NewInvalidRequest("script path is required (see --help)"))
	case 1:
	default:
		return outputError(con, errors.NewInvalidRequest(
			fmt.Sprintf("expected one script path, got %d: %s", c.NArg(), strings.Join(c.Args().Slice(), " "))))
	}
	if c.Int("timeout") <= 0 {
		return outputError(con, errors.NewInvalidRequest("--timeout must be a positive number of seconds"))
	}

	input := ops.GenerateInput{
		SourcePath: c.Args().First(),
		OutputPath: c.String("output"),
		NoSource:   c.Bool("no-source"),
		Timeout:    time.Duration(c.Int("timeout")) * time.Second,
		RollNo:     c.String("roll-no"),
		SaveRoll:   c.Bool("save-roll"),
		Env:        c.String("env"),
		SaveEnv:    c.Bool("save-env"),
		Python:     c.String("python"),
		ConfigPath: cfgPath,
	}

	con.Heading(fmt.Sprintf("Running %s", filepath.Base(input.SourcePath)))
	out, err := ops.Generate(c.Context, cfg, newExecutor(con, stdin), con, input)
	if err != nil {
		return outputError(con, err)
	}

	con.Printf("\nDocument generated: %s\n", out.OutputPath)
	if out.Succeeded() {
		con.Status("Status:", "Success", true)
	} else {
		con.Status("Status:", "Failed ("+out.Failure.Message+")", false)
	}
	if out.RunID != "" {
		con.Infof("run %s", out.RunID)
	}
	con.Infof("%d items captured, %d images", out.Items, out.Images)
	return nil
}

// outputError prints err and returns the exit status for it.
func outputError(con *console.Console, err error) error {
	con.Errorf("%s", errors.Format(err))
	con.Cause(err)
	return cli.Exit("", errors.ExitCode(err))
}

// reorderArgs moves flags ahead of positional arguments so that flags may
// follow the script path, which the flag parser otherwise treats as the
// end of options. Everything after "--" stays positional.
func reorderArgs(args []string) []string {
	if len(args) < 2 {
		return args
	}
	flags := []string{}
	positional := []string{}
	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		if arg == "--" {
			positional = append(positional, rest[i+1:]...)
			break
		}
		if len(arg) < 2 || arg[0] != '-' {
			positional = append(positional, arg)
			continue
		}
		flags = append(flags, arg)
		name := strings.TrimLeft(arg, "-")
		if strings.Contains(name, "=") {
			continue
		}
		if valueFlags[name] && i+1 < len(rest) {
			i++
			flags = append(flags, rest[i])
		}
	}

	out := make([]string, 0, len(args)+1)
	out = append(out, args[0])
	out = append(out, flags...)
	if len(positional) > 0 {
		out = append(out, "--")
		out = append(out, positional...)
	}
	return out
}
