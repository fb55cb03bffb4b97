package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInitAndPath(t *testing.T) {
	env := newTestEnv(t)
	env.ctx.ConfigDir = filepath.Join(t.TempDir(), "faw")

	require.NoError(t, (&InitConfigCmd{}).Run(env.ctx))
	assert.Contains(t, env.out.String(), "Created:")

	env.out.Reset()
	require.NoError(t, (&InitConfigCmd{}).Run(env.ctx))
	assert.Contains(t, env.out.String(), "already initialized")

	env.out.Reset()
	require.NoError(t, (&PathConfigCmd{File: true}).Run(env.ctx))
	assert.Equal(t, filepath.Join(env.ctx.ConfigDir, "config.json")+"\n", env.out.String())
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := newTestEnv(t)
	env.ctx.Config.Database = "postgres://faw:s3cret@db:5432/faw"
	env.ctx.Config.RedisURL = "redis://localhost:6379/0"

	require.NoError(t, (&ShowConfigCmd{}).Run(env.ctx))
	out := env.out.String()
	assert.Contains(t, out, "database=postgres://faw:***@db:5432/faw\n")
	assert.Contains(t, out, "redis_url=redis://localhost:6379/0\n")
	assert.NotContains(t, out, "s3cret")
}
