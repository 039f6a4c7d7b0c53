package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomis52/activityboard/board"
	"github.com/nomis52/activityboard/clients/activitiesclient"
	"github.com/nomis52/activityboard/clients/activitiesclient/fakeapi"
)

func newController(t *testing.T) (*board.Controller, *fakeapi.Server) {
	t.Helper()
	fake := fakeapi.New(fakeapi.DefaultActivities()...)
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := activitiesclient.New(ts.URL, activitiesclient.WithLogger(logger))
	require.NoError(t, err)
	return board.New(client, board.WithLogger(logger)), fake
}

func TestRunCommand_List(t *testing.T) {
	ctrl, _ := newController(t)
	var out bytes.Buffer

	require.NoError(t, runCommand(context.Background(), ctrl, Args{Command: []string{"list"}}, nil, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ACTIVITY"))
	assert.True(t, strings.HasPrefix(lines[1], "Chess Club"))
	assert.Contains(t, lines[1], "10")
	assert.Contains(t, lines[1], "michael@mergington.edu, daniel@mergington.edu")
}

func TestRunCommand_Signup(t *testing.T) {
	ctrl, fake := newController(t)
	var out bytes.Buffer

	err := runCommand(context.Background(), ctrl, Args{Command: []string{"signup", "Gym Class", "new@mergington.edu"}}, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, "Signed up new@mergington.edu for Gym Class\n", out.String())

	gym, _ := fake.Collection().Get("Gym Class")
	assert.Contains(t, gym.Participants, "new@mergington.edu")

	err = runCommand(context.Background(), ctrl, Args{Command: []string{"signup", "Gym Class", "new@mergington.edu"}}, nil, &out)
	assert.ErrorIs(t, err, errRejected)
}

func TestRunCommand_Unregister(t *testing.T) {
	tests := []struct {
		name        string
		yes         bool
		input       string
		wantRemoved bool
		wantOutput  string
	}{
		{name: "confirmed", input: "y\n", wantRemoved: true, wantOutput: "Unregistered michael@mergington.edu from Chess Club"},
		{name: "declined", input: "n\n", wantOutput: "Cancelled"},
		{name: "no answer", input: "", wantOutput: "Cancelled"},
		{name: "skip prompt", yes: true, wantRemoved: true, wantOutput: "Unregistered michael@mergington.edu from Chess Club"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, fake := newController(t)
			var out bytes.Buffer
			args := Args{Yes: tt.yes, Command: []string{"unregister", "Chess Club", "michael@mergington.edu"}}

			require.NoError(t, runCommand(context.Background(), ctrl, args, strings.NewReader(tt.input), &out))

			assert.Contains(t, out.String(), tt.wantOutput)
			chess, _ := fake.Collection().Get("Chess Club")
			assert.Equal(t, !tt.wantRemoved, slices.Contains(chess.Participants, "michael@mergington.edu"))
		})
	}
}

func TestRunCommand_Errors(t *testing.T) {
	ctrl, _ := newController(t)

	for _, command := range [][]string{
		nil,
		{"bogus"},
		{"signup", "Chess Club"},
		{"unregister"},
	} {
		err := runCommand(context.Background(), ctrl, Args{Command: command}, nil, io.Discard)
		assert.Error(t, err, "command %v", command)
	}
}
