package app

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/limnhq/limn/internal/ipc"
)

type runnerPaths struct {
	configPath string
	socketPath string
}

// setupRunnerEnv isolates XDG paths so runner tests never touch the
// real user environment or a live daemon.
func setupRunnerEnv(t *testing.T) runnerPaths {
	t.Helper()

	stateDir := t.TempDir()
	runtimeDir := t.TempDir()
	configDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", stateDir)
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)
	t.Setenv("XDG_CONFIG_HOME", configDir)

	configPath := filepath.Join(configDir, "limn", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0o755))
	require.NoError(t, os.WriteFile(configPath, []byte("engine:\n  url: ws://127.0.0.1:8090/v1/listen\n"), 0o644))

	return runnerPaths{
		configPath: configPath,
		socketPath: filepath.Join(runtimeDir, "limn.sock"),
	}
}

func TestExecuteHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "limn")
	require.Empty(t, stderr.String())
}

func TestExecuteUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"definitely-not-a-command"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "unknown command")
	require.Contains(t, stderr.String(), "Usage:")
}

func TestStatusIdleWhenNoDaemon(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "idle\n", stdout.String())
}

func TestStartFailsWithoutDaemon(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "start"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "no running limn daemon")
}

func TestCommandsForwardToRunningDaemon(t *testing.T) {
	paths := setupRunnerEnv(t)

	listener, err := net.Listen("unix", paths.socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	commands := make(chan string, 1)
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- ipc.Serve(ctx, listener, ipc.HandlerFunc(func(_ context.Context, req ipc.Request) ipc.Response {
			commands <- req.Command
			return ipc.Response{OK: true, Status: "listening", Transcript: "a red sun", Confidence: 0.92}
		}))
	}()

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "stop"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Equal(t, "stop", <-commands)
	require.Contains(t, stdout.String(), "listening")
	require.Contains(t, stdout.String(), "transcript: a red sun")
	require.Contains(t, stdout.String(), "confidence: 0.92")

	cancel()
	require.NoError(t, <-serveDone)
}

func TestControlHandlerUnknownCommand(t *testing.T) {
	resp := controlHandler(nil)(context.Background(), ipc.Request{Command: "dance"})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "unknown command")
}

func TestForwardReportsDaemonErrors(t *testing.T) {
	paths := setupRunnerEnv(t)

	listener, err := net.Listen("unix", paths.socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- ipc.Serve(ctx, listener, ipc.HandlerFunc(func(context.Context, ipc.Request) ipc.Response {
			return ipc.Response{OK: false, Error: "engine offline"}
		}))
	}()

	var stdout, stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "start"})
	require.Equal(t, 1, exitCode)
	require.Contains(t, stderr.String(), "engine offline")

	cancel()
	require.NoError(t, <-serveDone)
}

func TestTryForwardMissingSocket(t *testing.T) {
	_, handled, err := tryForward(context.Background(), filepath.Join(t.TempDir(), "absent.sock"), "status")
	require.NoError(t, err)
	require.False(t, handled)
}

func TestPrintSnapshotDefaultsToIdle(t *testing.T) {
	var buf bytes.Buffer
	printSnapshot(&buf, ipc.Response{OK: true})
	require.Equal(t, "idle\n", buf.String())

	buf.Reset()
	printSnapshot(&buf, ipc.Response{OK: true, Status: "idle", ErrorKind: "permission-denied", Message: "Microphone access was denied."})
	require.Contains(t, buf.String(), "error: permission-denied")
}
