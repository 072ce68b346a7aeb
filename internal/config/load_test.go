package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearLimnEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LIMN_ADDR", "LIMN_ENGINE_URL", "LIMN_ENGINE_API_KEY", "LIMN_ENGINE_MODEL",
		"LIMN_LANGUAGE", "LIMN_AUDIO_INPUT", "LIMN_PROFILE_URL", "LIMN_PROFILE_API_KEY",
		"LIMN_USER_ID",
	} {
		t.Setenv(key, "")
	}
}

func TestResolvePathPrefersExplicit(t *testing.T) {
	path, err := ResolvePath("/tmp/custom.yaml")
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.yaml", path)
}

func TestResolvePathUsesXDGConfigHome(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	path, err := ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "limn", "config.yaml"), path)
}

func TestResolvePathFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", home)

	path, err := ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "limn", "config.yaml"), path)
}

func TestLoadMissingFileUsesDefaultsWithWarning(t *testing.T) {
	clearLimnEnv(t)

	loaded, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadParsesYAMLOverDefaults(t *testing.T) {
	clearLimnEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: "127.0.0.1:9999"
engine:
  url: "wss://stt.example.com/v1/listen"
  model: "nova"
recognition:
  language: "fr-FR"
profile:
  user_id: "user-123"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "127.0.0.1:9999", loaded.Config.Server.Addr)
	require.Equal(t, "wss://stt.example.com/v1/listen", loaded.Config.Engine.URL)
	require.Equal(t, "nova", loaded.Config.Engine.Model)
	require.Equal(t, "fr-FR", loaded.Config.Recognition.Language)
	require.Equal(t, "user-123", loaded.Config.Profile.UserID)
	// Untouched sections keep defaults.
	require.Equal(t, Default().Audio, loaded.Config.Audio)
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	clearLimnEnv(t)
	t.Setenv("LIMN_ENGINE_URL", "wss://override.example.com/listen")
	t.Setenv("LIMN_ENGINE_API_KEY", "secret-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  url: \"ws://file.example.com/listen\"\n"), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "wss://override.example.com/listen", loaded.Config.Engine.URL)
	require.Equal(t, "secret-key", loaded.Config.Engine.APIKey)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	clearLimnEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [broken"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
}

func TestValidateRejectsBadEngineURL(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty addr", mutate: func(c *Config) { c.Server.Addr = " " }, wantErr: "server.addr"},
		{name: "empty engine url", mutate: func(c *Config) { c.Engine.URL = "" }, wantErr: "engine.url"},
		{name: "http engine url", mutate: func(c *Config) { c.Engine.URL = "http://example.com" }, wantErr: "ws:// or wss://"},
		{name: "hostless engine url", mutate: func(c *Config) { c.Engine.URL = "ws:///listen" }, wantErr: "host"},
		{name: "empty language", mutate: func(c *Config) { c.Recognition.Language = "" }, wantErr: "recognition.language"},
		{name: "ftp profile url", mutate: func(c *Config) { c.Profile.BaseURL = "ftp://example.com" }, wantErr: "profile.base_url"},
		{name: "relative health path", mutate: func(c *Config) { c.Profile.HealthPath = "health" }, wantErr: "profile.health_path"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnsWhenUserIDMissing(t *testing.T) {
	cfg := Default()
	cfg.Profile.UserID = ""

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "profile.user_id")

	cfg.Profile.UserID = "user-1"
	warnings, err = Validate(cfg)
	require.NoError(t, err)
	require.Empty(t, warnings)
}
