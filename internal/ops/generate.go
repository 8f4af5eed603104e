package ops

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hpungsan/autodocx/internal/capture"
	"github.com/hpungsan/autodocx/internal/config"
	"github.com/hpungsan/autodocx/internal/console"
	"github.com/hpungsan/autodocx/internal/docx"
	"github.com/hpungsan/autodocx/internal/errors"
	"github.com/hpungsan/autodocx/internal/source"
)

// DefaultTimeout bounds a run when GenerateInput.Timeout is zero.
const DefaultTimeout = 300 * time.Second

// GenerateInput contains parameters for the Generate operation.
type GenerateInput struct {
	SourcePath string        // required, .py or .ipynb
	OutputPath string        // optional, default: <source dir>/<stem>.docx
	NoSource   bool          // omit the Source Code section
	Timeout    time.Duration // optional, default: DefaultTimeout; negative is invalid

	RollNo   string // optional, overrides the saved roll number
	SaveRoll bool   // persist RollNo
	Env      string // optional, environment index or name
	SaveEnv  bool   // persist the selected environment
	Python   string // optional, explicit interpreter; wins over Env

	ConfigPath string // where --save-* writes; empty disables saving
}

// GenerateOutput contains the result of the Generate operation.
type GenerateOutput struct {
	RunID      string           `json:"run_id,omitempty"`
	OutputPath string           `json:"output_path"`
	SourcePath string           `json:"source_path"`
	Kind       string           `json:"kind"`
	Python     string           `json:"python"`
	Env        string           `json:"env,omitempty"`
	RollNo     string           `json:"roll_no,omitempty"`
	Items      int              `json:"items"`
	Images     int              `json:"images"`
	Failure    *capture.Failure `json:"failure,omitempty"`
	Saved      bool             `json:"saved"` // preferences were written
}

// Succeeded reports whether the source ran to completion.
func (o *GenerateOutput) Succeeded() bool {
	return o.Failure == nil
}

// Generate runs a source and writes its document.
//
// An execution timeout or error still produces a document and is reported in
// GenerateOutput.Failure, not as an error. Preferences are saved only after
// the document was written; a failed save is a warning.
func Generate(ctx context.Context, cfg *config.Config, newExecutor ExecutorFactory, con *console.Console, input GenerateInput) (*GenerateOutput, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if strings.TrimSpace(input.SourcePath) == "" {
		return nil, errors.NewInvalidRequest("script path is required")
	}
	timeout := input.Timeout
	if timeout < 0 {
		return nil, errors.NewInvalidRequest("timeout must be a positive number of seconds")
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	src, err := source.Load(input.SourcePath)
	if err != nil {
		return nil, err
	}
	con.Infof("source: %s (%s)", src.Path, src.Kind)

	outputPath, err := resolveOutputPath(src, input.OutputPath)
	if err != nil {
		return nil, err
	}

	envID := strings.TrimSpace(input.Env)
	rollNo := strings.TrimSpace(input.RollNo)
	if input.SaveEnv && envID == "" {
		con.Warnf("--save-env given without --env; nothing saved")
	}
	if input.SaveRoll && rollNo == "" {
		con.Warnf("--save-roll given without --roll-no; nothing saved")
	}

	python, envName, err := resolveInterpreter(ctx, con, cfg, strings.TrimSpace(input.Python), envID)
	if err != nil {
		return nil, err
	}
	if rollNo == "" {
		rollNo = strings.TrimSpace(cfg.RollNo)
	}

	c, err := newExecutor(python, timeout).Run(ctx, src)
	if err != nil {
		return nil, err
	}
	if c.Failure != nil {
		con.Infof("execution failed: %s", c.Failure.Message)
	}

	data, err := docx.Build(docx.Header{Title: src.Title(), RollNo: rollNo}, src.DisplayText(), c, !input.NoSource)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("building document: %w", err))
	}
	if err := docx.WriteFile(outputPath, data); err != nil {
		return nil, err
	}
	con.Infof("wrote %s (%d bytes)", outputPath, len(data))

	out := &GenerateOutput{
		RunID:      c.RunID,
		OutputPath: outputPath,
		SourcePath: src.Path,
		Kind:       src.Kind.String(),
		Python:     python,
		Env:        envName,
		RollNo:     rollNo,
		Items:      len(c.Items),
		Images:     countImages(c),
		Failure:    c.Failure,
	}

	overlay := &config.Config{}
	if input.SaveEnv && envName != "" {
		overlay.Env = envName
	}
	if input.SaveRoll && strings.TrimSpace(input.RollNo) != "" {
		overlay.RollNo = strings.TrimSpace(input.RollNo)
	}
	if (overlay.Env != "" || overlay.RollNo != "") && input.ConfigPath != "" {
		if err := config.Save(input.ConfigPath, config.Merge(cfg, overlay)); err != nil {
			con.Warnf("preferences not saved: %s", errors.Format(err))
		} else {
			out.Saved = true
			con.Infof("saved preferences to %s", input.ConfigPath)
		}
	}
	return out, nil
}

// resolveInterpreter applies the precedence --python > --env > saved env >
// auto-detect. An explicit --env is always resolved, so an unknown name fails
// even when --python overrides it.
func resolveInterpreter(ctx context.Context, con *console.Console, cfg *config.Config, python, envID string) (string, string, error) {
	var envName string
	if envID != "" {
		env, err := resolveEnv(ctx, envID)
		if err != nil {
			return "", "", err
		}
		envName = env.Name
		if python == "" {
			python = env.Python
		}
	}
	if python != "" {
		con.Infof("python: %s", python)
		return python, envName, nil
	}

	if saved := strings.TrimSpace(cfg.Env); saved != "" {
		env, err := resolveEnv(ctx, saved)
		if err != nil {
			return "", "", err
		}
		con.Infof("python: %s (saved env %s)", env.Python, env.Name)
		return env.Python, env.Name, nil
	}

	p, err := defaultPython()
	if err != nil {
		return "", "", err
	}
	con.Infof("python: %s (auto-detected)", p)
	return p, "", nil
}

// resolveOutputPath defaults to the source's directory and stem.
func resolveOutputPath(src *source.Source, output string) (string, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		output = filepath.Join(src.Dir(), src.Title()+".docx")
	}
	if err := ValidateOutputPath(output, src.Path); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(output)
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid output path %q: %v", output, err))
	}
	return abs, nil
}

func countImages(c *capture.Capture) int {
	n := 0
	for _, it := range c.Items {
		if _, ok := it.(capture.Image); ok {
			n++
		}
	}
	return n
}
