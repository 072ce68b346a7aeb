// Package app wires configuration, logging, the recognition engine,
// the session controller, and both command surfaces (HTTP and the
// control socket) behind the limn command dispatch.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/limnhq/limn/internal/audio"
	"github.com/limnhq/limn/internal/cli"
	"github.com/limnhq/limn/internal/config"
	"github.com/limnhq/limn/internal/doctor"
	"github.com/limnhq/limn/internal/ipc"
	"github.com/limnhq/limn/internal/logging"
	"github.com/limnhq/limn/internal/present"
	"github.com/limnhq/limn/internal/profile"
	"github.com/limnhq/limn/internal/recog"
	"github.com/limnhq/limn/internal/session"
	"github.com/limnhq/limn/internal/version"
)

const forwardTimeout = 220 * time.Millisecond

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("limn"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("limn"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, warning := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", warning.Message)
		logger.Warn("config warning", "message", warning.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStart:
		return r.forwardOrFail(ctx, "start")
	case cli.CommandStop:
		return r.forwardOrFail(ctx, "stop")
	case cli.CommandReset:
		return r.forwardOrFail(ctx, "reset")
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, "status")
	if !handled {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	printSnapshot(r.Stdout, resp)
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, command)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: no running limn daemon (start one with `limn serve`)")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	printSnapshot(r.Stdout, resp)
	return 0
}

func printSnapshot(w io.Writer, resp ipc.Response) {
	status := resp.Status
	if status == "" {
		status = "idle"
	}
	fmt.Fprintln(w, status)
	if resp.Transcript != "" {
		fmt.Fprintf(w, "transcript: %s\n", resp.Transcript)
	}
	if resp.Confidence > 0 {
		fmt.Fprintf(w, "confidence: %.2f\n", resp.Confidence)
	}
	if resp.ErrorKind != "" {
		fmt.Fprintf(w, "error: %s: %s\n", resp.ErrorKind, resp.Message)
	}
}

// commandServe runs the capture daemon: session controller, HTTP API,
// and the control socket, until the context is cancelled.
func (r Runner) commandServe(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: limn daemon already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	var profiles *profile.Client
	var committer session.Committer
	if strings.TrimSpace(cfg.Profile.BaseURL) != "" {
		profiles = profile.NewClient(cfg.Profile.BaseURL, cfg.Profile.APIKey, cfg.Profile.HealthPath, logger)
		if userID := strings.TrimSpace(cfg.Profile.UserID); userID != "" {
			committer = promptCommitter(profiles, userID)
		} else {
			logger.Warn("profile.user_id is empty, prompt commit disabled")
		}
	}

	engine := recog.NewWSEngine(
		recog.EngineConfig{
			URL:       cfg.Engine.URL,
			APIKey:    cfg.Engine.APIKey,
			Model:     cfg.Engine.Model,
			Punctuate: cfg.Recognition.AutomaticPunctuation,
		},
		&recog.PulseSource{Input: cfg.Audio.Input, Fallback: cfg.Audio.Fallback, Logger: logger},
		logger,
	)

	controller := session.NewController(logger, engine, committer, session.Config{
		Language:      cfg.Recognition.Language,
		TrailingSpace: cfg.Transcript.TrailingSpace,
	})

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ipcDone := make(chan error, 1)
	go func() {
		ipcDone <- ipc.Serve(serveCtx, listener, controlHandler(controller))
	}()

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: present.NewHandler(controller, profiles, logger).Router(),
	}
	httpDone := make(chan error, 1)
	go func() {
		httpDone <- httpServer.ListenAndServe()
	}()

	logger.Info("daemon ready", "addr", cfg.Server.Addr, "socket", socketPath)

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-httpDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(r.Stderr, "error: http server failed: %v\n", err)
			logger.Error("http server failed", "error", err.Error())
			exitCode = 1
		}
	case err := <-ipcDone:
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: control socket failed: %v\n", err)
			logger.Error("control socket failed", "error", err.Error())
			exitCode = 1
		}
	}

	controller.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info("daemon stopped")
	return exitCode
}

// promptCommitter patches the user's pending art prompt on the profile
// backend whenever a listening session commits.
func promptCommitter(profiles *profile.Client, userID string) session.Committer {
	return session.CommitFunc(func(ctx context.Context, prompt string) error {
		_, err := profiles.UpdateProfile(ctx, userID, profile.Patch{PendingPrompt: &prompt})
		return err
	})
}

// controlHandler maps control-socket commands onto the controller and
// answers every command with the resulting snapshot.
func controlHandler(ctrl *session.Controller) ipc.HandlerFunc {
	return func(ctx context.Context, req ipc.Request) ipc.Response {
		switch req.Command {
		case "status":
		case "start":
			ctrl.Start(ctx)
		case "stop":
			ctrl.Stop()
		case "reset":
			ctrl.Reset()
		default:
			return ipc.Response{OK: false, Error: fmt.Sprintf("unknown command %q", req.Command)}
		}

		snap := ctrl.Snapshot()
		resp := ipc.Response{
			OK:         true,
			Status:     string(snap.Status),
			Transcript: snap.Transcript,
			Confidence: snap.Confidence,
		}
		if snap.Error != nil {
			resp.ErrorKind = string(snap.Error.Kind)
			resp.Message = snap.Error.Message
		}
		return resp
	}
}

func tryForward(ctx context.Context, socketPath string, command string) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) || isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
