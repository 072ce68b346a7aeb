package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateIdle

	next, err := Transition(s, EventStarted)
	require.NoError(t, err)
	require.Equal(t, StateListening, next)

	next, err = Transition(next, EventStop)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionEngineEnd(t *testing.T) {
	next, err := Transition(StateListening, EventEnd)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionFailFromAnyStateGoesErrored(t *testing.T) {
	states := []State{StateIdle, StateListening, StateErrored}
	for _, state := range states {
		next, err := Transition(state, EventFail)
		require.NoError(t, err)
		require.Equal(t, StateErrored, next)
	}
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "idle stop invalid", state: StateIdle, event: EventStop, want: StateIdle, wantErr: true},
		{name: "idle end invalid", state: StateIdle, event: EventEnd, want: StateIdle, wantErr: true},
		{name: "idle reset invalid", state: StateIdle, event: EventReset, want: StateIdle, wantErr: true},
		{name: "listening started invalid", state: StateListening, event: EventStarted, want: StateListening, wantErr: true},
		{name: "listening reset invalid", state: StateListening, event: EventReset, want: StateListening, wantErr: true},
		{name: "errored started invalid", state: StateErrored, event: EventStarted, want: StateErrored, wantErr: true},
		{name: "errored stop invalid", state: StateErrored, event: EventStop, want: StateErrored, wantErr: true},
		{name: "errored reset valid", state: StateErrored, event: EventReset, want: StateIdle, wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid transition")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventStarted)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}
