package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSource(env, file map[string]string) *source {
	return &source{
		file: file,
		environ: func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		},
	}
}

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		expected  string
		wantPanic bool
	}{
		{
			name:     "primary key set",
			env:      map[string]string{"SOURCE_API_TOKEN": "new"},
			expected: "new",
		},
		{
			name:     "fallback key set",
			env:      map[string]string{"RAINDROP_API_TOKEN": "old"},
			expected: "old",
		},
		{
			name:     "primary wins over fallback",
			env:      map[string]string{"SOURCE_API_TOKEN": "new", "RAINDROP_API_TOKEN": "old"},
			expected: "new",
		},
		{
			name:      "empty counts as missing",
			env:       map[string]string{"SOURCE_API_TOKEN": ""},
			wantPanic: true,
		},
		{
			name:      "missing",
			env:       map[string]string{},
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testSource(tt.env, nil)
			if tt.wantPanic {
				assert.Panics(t, func() { src.requireEnv("SOURCE_API_TOKEN", "RAINDROP_API_TOKEN") })
				return
			}
			assert.Equal(t, tt.expected, src.requireEnv("SOURCE_API_TOKEN", "RAINDROP_API_TOKEN"))
		})
	}
}

func TestRequireEnvInt64(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		expected  int64
		wantPanic bool
	}{
		{name: "snowflake", value: "123456789012345678", expected: 123456789012345678},
		{name: "padded", value: " 42 ", expected: 42},
		{name: "not a number", value: "general", wantPanic: true},
		{name: "missing", value: "", wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := map[string]string{}
			if tt.value != "" {
				env["DISCORD_CHANNEL_ID"] = tt.value
			}
			src := testSource(env, nil)
			if tt.wantPanic {
				assert.Panics(t, func() { src.requireEnvInt64("STREAM_CHANNEL_ID", "DISCORD_CHANNEL_ID") })
				return
			}
			assert.Equal(t, tt.expected, src.requireEnvInt64("STREAM_CHANNEL_ID", "DISCORD_CHANNEL_ID"))
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{name: "valid duration", value: "5s", def: time.Second, expected: 5 * time.Second},
		{name: "invalid duration uses default", value: "invalid", def: 10 * time.Second, expected: 10 * time.Second},
		{name: "missing variable uses default", value: "", def: 15 * time.Second, expected: 15 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testSource(map[string]string{"TEST_DURATION": tt.value}, nil)
			assert.Equal(t, tt.expected, src.mustDuration(tt.def, "TEST_DURATION"))
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{name: "true value", value: "true", def: false, expected: true},
		{name: "false value", value: "false", def: true, expected: false},
		{name: "invalid value uses default", value: "invalid", def: true, expected: true},
		{name: "missing variable uses default", value: "", def: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testSource(map[string]string{"TEST_BOOL": tt.value}, nil)
			assert.Equal(t, tt.expected, src.mustBool(tt.def, "TEST_BOOL"))
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := load(testSource(map[string]string{"RAINDROP_API_TOKEN": "tok"}, nil))

	assert.Equal(t, "tok", cfg.SourceAPIToken)
	assert.Equal(t, "https://api.raindrop.io/rest/v1", cfg.SourceAPIURL)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 15*time.Second, cfg.NotifyTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, BackendFile, cfg.StateBackend)
	assert.Equal(t, "last_bookmark_id.txt", cfg.StateFile)
	assert.Equal(t, ":8080", cfg.ListenPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.PrettyLog)
	assert.False(t, cfg.StreamEnabled())
	assert.False(t, cfg.WebhookEnabled())
}

func TestLoadSinks(t *testing.T) {
	cfg := load(testSource(map[string]string{
		"SOURCE_API_TOKEN":   "tok",
		"DISCORD_TOKEN":      "bot",
		"DISCORD_CHANNEL_ID": "987",
		"SLACK_TOKEN":        "xoxb",
		"SLACK_CHANNEL_ID":   "C123",
	}, nil))

	assert.True(t, cfg.StreamEnabled())
	assert.Equal(t, int64(987), cfg.StreamChannelID)
	assert.True(t, cfg.WebhookEnabled())
	assert.Equal(t, "C123", cfg.WebhookChannelID)
}

func TestLoadPanics(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing source token", env: map[string]string{}},
		{name: "stream token without channel", env: map[string]string{"SOURCE_API_TOKEN": "t", "STREAM_BOT_TOKEN": "b"}},
		{name: "webhook token without channel", env: map[string]string{"SOURCE_API_TOKEN": "t", "WEBHOOK_TOKEN": "w"}},
		{name: "unknown backend", env: map[string]string{"SOURCE_API_TOKEN": "t", "STATE_BACKEND": "sqlite"}},
		{name: "zero interval", env: map[string]string{"SOURCE_API_TOKEN": "t", "POLL_INTERVAL_SECONDS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { load(testSource(tt.env, nil)) })
		})
	}
}

func TestListenPortCanBeDisabled(t *testing.T) {
	cfg := load(testSource(map[string]string{"SOURCE_API_TOKEN": "t", "LISTEN_PORT": ""}, nil))
	assert.Empty(t, cfg.ListenPort)
}

func TestConfigFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dropwatch.yaml")
	doc := `
source_api_token: from-file
POLL_INTERVAL_SECONDS: 30
STATE_BACKEND: redis
ALLOWED_CIDRS:
  - 10.0.0.0/8
  - 127.0.0.1
LOG_LEVEL: warn
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	file, err := readFile(path)
	require.NoError(t, err)

	cfg := load(testSource(map[string]string{"LOG_LEVEL": "debug"}, file))

	assert.Equal(t, "from-file", cfg.SourceAPIToken)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, BackendRedis, cfg.StateBackend)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.AllowedCIDRS)
	assert.Equal(t, "debug", cfg.LogLevel, "environment must win over the file")
}

func TestReadFileRejectsNesting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis:\n  addr: x\n"), 0o600))

	_, err := readFile(path)
	assert.Error(t, err)
}

func TestRedacted(t *testing.T) {
	cfg := &Config{SourceAPIToken: "secret", WebhookToken: "xoxb", RedisUser: "u"}
	r := cfg.Redacted()

	assert.Equal(t, "***REDACTED***", r.SourceAPIToken)
	assert.Equal(t, "***REDACTED***", r.WebhookToken)
	assert.Equal(t, "***REDACTED***", r.RedisUser)
	assert.Empty(t, r.StreamBotToken)
	assert.Equal(t, "secret", cfg.SourceAPIToken, "receiver must be untouched")
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(` "a" , 'b' ,`))
}
