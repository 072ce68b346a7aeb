package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
// A .env file in the working directory and LIMN_* environment variables
// override file values; secrets are expected to arrive this way.
func Load(explicitPath string) (Loaded, error) {
	// Missing .env is the common case, not an error.
	_ = godotenv.Load()

	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	cfg := Default()
	exists := true
	var warnings []Warning

	content, err := os.ReadFile(resolvedPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
		}
	case errors.Is(err, os.ErrNotExist):
		exists = false
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		})
	default:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	applyEnvOverrides(&cfg)

	validateWarnings, err := Validate(cfg)
	if err != nil {
		return Loaded{}, err
	}
	warnings = append(warnings, validateWarnings...)

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   exists,
	}, nil
}

// applyEnvOverrides layers LIMN_* environment values over file values.
func applyEnvOverrides(cfg *Config) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"LIMN_ADDR", &cfg.Server.Addr},
		{"LIMN_ENGINE_URL", &cfg.Engine.URL},
		{"LIMN_ENGINE_API_KEY", &cfg.Engine.APIKey},
		{"LIMN_ENGINE_MODEL", &cfg.Engine.Model},
		{"LIMN_LANGUAGE", &cfg.Recognition.Language},
		{"LIMN_AUDIO_INPUT", &cfg.Audio.Input},
		{"LIMN_PROFILE_URL", &cfg.Profile.BaseURL},
		{"LIMN_PROFILE_API_KEY", &cfg.Profile.APIKey},
		{"LIMN_USER_ID", &cfg.Profile.UserID},
	}

	for _, o := range overrides {
		if value := strings.TrimSpace(os.Getenv(o.key)); value != "" {
			*o.target = value
		}
	}
}
