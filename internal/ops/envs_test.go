package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/autodocx/internal/config"
	"github.com/hpungsan/autodocx/internal/errors"
	"github.com/hpungsan/autodocx/internal/pyenv"
)

func TestListEnvs(t *testing.T) {
	var probed bool
	orig := discoverEnvs
	discoverEnvs = func(_ context.Context, probe bool) ([]pyenv.Env, error) {
		probed = probe
		return testEnvs, nil
	}
	t.Cleanup(func() { discoverEnvs = orig })

	out, err := ListEnvs(context.Background(), &config.Config{Env: " ml "}, ListEnvsInput{ProbeVersions: true})
	require.NoError(t, err)
	assert.True(t, probed)
	assert.Equal(t, testEnvs, out.Envs)
	assert.Equal(t, "ml", out.Saved)
}

func TestListEnvs_Cancelled(t *testing.T) {
	orig := discoverEnvs
	discoverEnvs = func(context.Context, bool) ([]pyenv.Env, error) {
		return nil, errors.NewCancelled("environment discovery")
	}
	t.Cleanup(func() { discoverEnvs = orig })

	_, err := ListEnvs(context.Background(), nil, ListEnvsInput{})
	assert.True(t, errors.Is(err, errors.ErrCancelled))
}

func TestResolveEnv(t *testing.T) {
	stubEnvs(t, testEnvs)

	env, err := resolveEnv(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "web", env.Name)

	env, err = resolveEnv(context.Background(), "ml")
	require.NoError(t, err)
	assert.Equal(t, "/opt/conda/envs/ml/bin/python", env.Python)

	_, err = resolveEnv(context.Background(), "7")
	assert.True(t, errors.Is(err, errors.ErrEnvNotFound))
	assert.Equal(t, 5, errors.ExitCode(err))
}
