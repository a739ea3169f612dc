package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand(nil)

	assert.Equal(t, "poker", cmd.Use)
	for _, flag := range []string{"format", "server", "timeout"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}

	want := []string{"create", "join", "vote", "reveal", "reset", "show", "watch", "name", "whoami"}
	got := map[string]bool{}
	for _, sub := range cmd.Commands() {
		got[sub.Name()] = true
	}
	for _, name := range want {
		assert.True(t, got[name], "missing command %s", name)
	}
}

func TestNewRootCommand_Args(t *testing.T) {
	cmd := NewRootCommand(nil)

	vote, _, err := cmd.Find([]string{"vote"})
	require.NoError(t, err)
	assert.Error(t, vote.Args(vote, []string{"s-1"}))
	assert.NoError(t, vote.Args(vote, []string{"s-1", "5"}))
	assert.Contains(t, vote.Short, "coffee")

	whoami, _, err := cmd.Find([]string{"whoami"})
	require.NoError(t, err)
	assert.Error(t, whoami.Args(whoami, []string{"extra"}))
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
}
