package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Parsed
	}{
		{name: "no args defaults to help", args: nil, want: Parsed{Command: CommandHelp, ShowHelp: true}},
		{name: "serve", args: []string{"serve"}, want: Parsed{Command: CommandServe}},
		{name: "start", args: []string{"start"}, want: Parsed{Command: CommandStart}},
		{name: "stop", args: []string{"stop"}, want: Parsed{Command: CommandStop}},
		{name: "reset", args: []string{"reset"}, want: Parsed{Command: CommandReset}},
		{name: "status", args: []string{"status"}, want: Parsed{Command: CommandStatus}},
		{name: "devices", args: []string{"devices"}, want: Parsed{Command: CommandDevices}},
		{name: "doctor", args: []string{"doctor"}, want: Parsed{Command: CommandDoctor}},
		{name: "version flag", args: []string{"--version"}, want: Parsed{Command: CommandVersion}},
		{name: "help flag", args: []string{"-h"}, want: Parsed{Command: CommandHelp, ShowHelp: true}},
		{name: "config then command", args: []string{"--config", "/tmp/limn.yaml", "serve"}, want: Parsed{Command: CommandServe, ConfigPath: "/tmp/limn.yaml"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.args)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown command", args: []string{"dance"}},
		{name: "unknown flag", args: []string{"--loud"}},
		{name: "config missing path", args: []string{"--config"}},
		{name: "trailing args", args: []string{"serve", "extra"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.args)
			require.Error(t, err)
		})
	}
}

func TestHelpTextNamesEveryCommand(t *testing.T) {
	text := HelpText("limn")
	for cmd := range validCommands {
		require.Contains(t, text, string(cmd))
	}
	require.Contains(t, text, "--config")
}
