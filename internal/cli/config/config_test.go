package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("state", "", "")
	flags.String("assume-user", "", "")
	flags.String("base-url", "", "")
	flags.BoolP("verbose", "v", false, "")
	flags.StringP("output", "o", "", "")
	return flags
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "playground.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.StatePath))
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Empty(t, cfg.AssumeUser)
	assert.Equal(t, 8765, cfg.GetUIConfig().Port)
	assert.True(t, cfg.GetUIConfig().AutoOpen)
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())

	d := cfg.TabDefaults()
	assert.Equal(t, "Query", d.NameBase)
	assert.Equal(t, "yaml", string(d.Language))
	assert.NotEmpty(t, d.Content)
}

func TestLoadConfig_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		env      map[string]string
		args     []string
		wantUser string
		wantURL  string
		wantPort int
	}{
		{
			name:     "file over defaults",
			file:     "assume_user: from-file\nui:\n  port: 9000\n",
			wantUser: "from-file",
			wantURL:  DefaultBaseURL,
			wantPort: 9000,
		},
		{
			name:     "env over file",
			file:     "assume_user: from-file\nbase_url: http://file/\n",
			env:      map[string]string{"PLAYGROUND_ASSUME_USER": "from-env", "PLAYGROUND_UI__PORT": "9100"},
			wantUser: "from-env",
			wantURL:  "http://file/",
			wantPort: 9100,
		},
		{
			name:     "flags over env",
			file:     "assume_user: from-file\n",
			env:      map[string]string{"PLAYGROUND_ASSUME_USER": "from-env", "PLAYGROUND_BASE_URL": "http://env/"},
			args:     []string{"--assume-user", "  from-flag  ", "--base-url", "http://flag/"},
			wantUser: "from-flag",
			wantURL:  "http://flag/",
			wantPort: 8765,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			dir := t.TempDir()
			t.Chdir(dir)
			writeConfig(t, dir, tt.file)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			flags := newFlagSet()
			require.NoError(t, flags.Parse(tt.args))

			cfg, err := LoadConfig("", flags)
			require.NoError(t, err)

			assert.Equal(t, tt.wantUser, cfg.AssumeUser)
			assert.Equal(t, tt.wantURL, cfg.BaseURL)
			assert.Equal(t, tt.wantPort, cfg.GetUIConfig().Port)
			assert.Equal(t, filepath.Join(dir, "playground.yaml"), GetConfigFileUsed())
		})
	}
}

func TestLoadConfig_StatePathResolution(t *testing.T) {
	ResetConfig()
	root := t.TempDir()
	writeConfig(t, root, "state_path: data/ws.db\n")
	sub := filepath.Join(root, "nested", "deeper")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	t.Chdir(sub)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "data", "ws.db"), cfg.StatePath)

	flags := newFlagSet()
	require.NoError(t, flags.Parse([]string{"--state", "local.db"}))
	cfg, err = LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sub, "local.db"), cfg.StatePath)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		errPart string
	}{
		{name: "bad output", file: "output: xml\n", errPart: "invalid output format"},
		{name: "bad language", file: "defaults:\n  language: cobol\n", errPart: "defaults.language"},
		{name: "bad port", file: "ui:\n  port: 70000\n", errPart: "ui.port"},
		{name: "broken yaml", file: "ui: [\n", errPart: "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			dir := t.TempDir()
			path := writeConfig(t, dir, tt.file)

			_, err := LoadConfig(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	ResetConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestTabDefaults_SQL(t *testing.T) {
	cfg := &Config{Defaults: DefaultsConfig{Language: "sql", Engine: "movies", Name: "Tab"}}
	d := cfg.TabDefaults()
	assert.Equal(t, "sql", string(d.Language))
	assert.Contains(t, d.Content, "SELECT")
	assert.Equal(t, "movies", d.Engine)
	assert.Equal(t, "Tab", d.NameBase)
}

func TestLogger_Context(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	var buf bytes.Buffer
	logger := NewLogger(&buf, true)
	ctx := WithLogger(context.Background(), logger)
	GetLogger(ctx).Debug("hello")
	assert.Contains(t, buf.String(), "hello")

	buf.Reset()
	NewLogger(&buf, false).Info("quiet")
	assert.Empty(t, buf.String())
}
