package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/autodocx/internal/config"
	"github.com/hpungsan/autodocx/internal/errors"
	"github.com/hpungsan/autodocx/internal/pyenv"
)

// ListEnvsInput contains parameters for the ListEnvs operation.
type ListEnvsInput struct {
	ProbeVersions bool // run `python --version` for every environment
}

// ListEnvsOutput contains the result of the ListEnvs operation.
type ListEnvsOutput struct {
	Envs  []pyenv.Env `json:"envs"`
	Saved string      `json:"saved,omitempty"` // env preference from the config file
}

// ListEnvs discovers the interpreter environments, in --list-envs order.
func ListEnvs(ctx context.Context, cfg *config.Config, input ListEnvsInput) (*ListEnvsOutput, error) {
	envs, err := discoverEnvs(ctx, input.ProbeVersions)
	if err != nil {
		return nil, err
	}
	out := &ListEnvsOutput{Envs: envs}
	if cfg != nil {
		out.Saved = strings.TrimSpace(cfg.Env)
	}
	return out, nil
}

// resolveEnv selects an environment by index or name.
func resolveEnv(ctx context.Context, identifier string) (pyenv.Env, error) {
	envs, err := discoverEnvs(ctx, false)
	if err != nil {
		return pyenv.Env{}, err
	}
	env, ok := pyenv.Select(identifier, envs)
	if !ok {
		return pyenv.Env{}, errors.NewEnvNotFound(identifier)
	}
	return env, nil
}
