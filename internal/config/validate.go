package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return nil, fmt.Errorf("server.addr must not be empty")
	}

	engineURL := strings.TrimSpace(cfg.Engine.URL)
	if engineURL == "" {
		return nil, fmt.Errorf("engine.url must not be empty")
	}
	parsed, err := url.Parse(engineURL)
	if err != nil {
		return nil, fmt.Errorf("engine.url is not a valid URL: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, fmt.Errorf("engine.url must use ws:// or wss://, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("engine.url must include a host")
	}

	if strings.TrimSpace(cfg.Recognition.Language) == "" {
		return nil, fmt.Errorf("recognition.language must not be empty")
	}

	profileURL := strings.TrimSpace(cfg.Profile.BaseURL)
	if profileURL != "" {
		parsed, err := url.Parse(profileURL)
		if err != nil {
			return nil, fmt.Errorf("profile.base_url is not a valid URL: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return nil, fmt.Errorf("profile.base_url must use http:// or https://, got %q", parsed.Scheme)
		}
	}
	if healthPath := strings.TrimSpace(cfg.Profile.HealthPath); healthPath != "" && !strings.HasPrefix(healthPath, "/") {
		return nil, fmt.Errorf("profile.health_path must start with '/'")
	}

	if strings.TrimSpace(cfg.Profile.UserID) == "" {
		warnings = append(warnings, Warning{
			Message: "profile.user_id is not set; dictated prompts will not be saved to a profile",
		})
	}

	return warnings, nil
}
