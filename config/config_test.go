package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	standup "github.com/chimerakang/standup-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "standup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
base_url: https://standup.example.com
required_org: acme
redirect_on_failure: true
poll_interval: 500ms
paths:
  generate: /v2/generate
cache:
  path: /tmp/standup-test/cache.db
  ttl: 5m
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://standup.example.com", c.BaseURL)
	assert.Equal(t, "acme", c.RequiredOrg)
	assert.True(t, c.RedirectOnFailure)
	assert.Equal(t, 500*time.Millisecond, c.PollInterval)
	assert.Equal(t, "/v2/generate", c.Paths.Generate)
	assert.Equal(t, standup.DefaultTaskPath, c.Paths.Task)
	assert.Equal(t, 5*time.Minute, c.Cache.TTL)

	cc := c.Client()
	assert.Equal(t, "/tmp/standup-test/cache.db", cc.CachePath)
	assert.Equal(t, standup.DefaultWhoAmIPath, cc.WhoAmIPath)
	assert.Equal(t, standup.DefaultErrorRoute, cc.ErrorRoute)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "base_url: https://file.example.com\n")
	t.Setenv("STANDUP_BASE_URL", "https://env.example.com")
	t.Setenv("STANDUP_CACHE_TTL", "1m")
	t.Setenv("STANDUP_USE_FIXTURES", "true")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", c.BaseURL)
	assert.Equal(t, time.Minute, c.Cache.TTL)
	assert.True(t, c.UseFixtures)
}

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, standup.DefaultPollInterval, c.PollInterval)
	assert.Equal(t, standup.DefaultCacheTTL, c.Cache.TTL)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
