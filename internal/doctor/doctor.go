// Package doctor runs readiness diagnostics for config, the control
// socket, audio capture, the recognition engine, and the profile backend.
package doctor

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/limnhq/limn/internal/audio"
	"github.com/limnhq/limn/internal/config"
	"github.com/limnhq/limn/internal/profile"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{
		checkConfig(cfg),
		checkRuntimeDir(),
		checkEngineURL(cfg.Config.Engine.URL),
		checkEngineReachable(cfg.Config.Engine.URL),
		checkAudioSelection(ctx, cfg.Config),
		checkProfileBackend(ctx, cfg.Config),
	}
	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("no file at %q, using defaults", cfg.Path)
	}
	if len(cfg.Warnings) > 0 {
		notes := make([]string, 0, len(cfg.Warnings))
		for _, warning := range cfg.Warnings {
			notes = append(notes, warning.Message)
		}
		message = message + " (" + strings.Join(notes, "; ") + ")"
	}
	return Check{Name: "config", Pass: true, Message: message}
}

func checkRuntimeDir() Check {
	if strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")) == "" {
		return Check{Name: "runtime.dir", Pass: false, Message: "XDG_RUNTIME_DIR is not set; control socket unavailable"}
	}
	return Check{Name: "runtime.dir", Pass: true, Message: "XDG_RUNTIME_DIR is set"}
}

func checkEngineURL(raw string) Check {
	parsed, err := url.Parse(raw)
	if err != nil {
		return Check{Name: "engine.url", Pass: false, Message: fmt.Sprintf("invalid engine.url: %v", err)}
	}
	if (parsed.Scheme != "ws" && parsed.Scheme != "wss") || parsed.Host == "" {
		return Check{Name: "engine.url", Pass: false, Message: fmt.Sprintf("engine.url must be ws:// or wss:// with a host, got %q", raw)}
	}
	return Check{Name: "engine.url", Pass: true, Message: fmt.Sprintf("configured %q", raw)}
}

// checkEngineReachable probes the engine host at the TCP level; the
// websocket handshake itself is left to a real session.
func checkEngineReachable(raw string) Check {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return Check{Name: "engine.reachable", Pass: false, Message: "engine.url is not probeable"}
	}

	host := parsed.Host
	if parsed.Port() == "" {
		port := "80"
		if parsed.Scheme == "wss" {
			port = "443"
		}
		host = net.JoinHostPort(parsed.Hostname(), port)
	}

	conn, err := net.DialTimeout("tcp", host, probeTimeout)
	if err != nil {
		return Check{Name: "engine.reachable", Pass: false, Message: fmt.Sprintf("dial %s: %v", host, err)}
	}
	conn.Close()
	return Check{Name: "engine.reachable", Pass: true, Message: fmt.Sprintf("reached %s", host)}
}

// checkAudioSelection runs live device selection to surface selection
// and fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func checkProfileBackend(ctx context.Context, cfg config.Config) Check {
	if strings.TrimSpace(cfg.Profile.BaseURL) == "" {
		return Check{Name: "profile.health", Pass: true, Message: "profile backend not configured, prompt commit disabled"}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	client := profile.NewClient(cfg.Profile.BaseURL, cfg.Profile.APIKey, cfg.Profile.HealthPath, nil)
	if err := client.Health(ctx); err != nil {
		return Check{Name: "profile.health", Pass: false, Message: err.Error()}
	}
	return Check{Name: "profile.health", Pass: true, Message: fmt.Sprintf("healthy at %s%s", cfg.Profile.BaseURL, cfg.Profile.HealthPath)}
}
