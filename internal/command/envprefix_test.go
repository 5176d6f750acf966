package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripEnvPrefix(t *testing.T) {
	tests := []struct {
		name     string
		cmd      string
		args     []string
		wantEnv  []string
		wantCmd  string
		wantArgs []string
	}{
		{
			name:     "no assignments",
			cmd:      "git",
			args:     []string{"status"},
			wantEnv:  nil,
			wantCmd:  "git",
			wantArgs: []string{"status"},
		},
		{
			name:     "single assignment in cmd position",
			cmd:      "FOO=bar",
			args:     []string{"bash", "-c", "echo $FOO"},
			wantEnv:  []string{"FOO=bar"},
			wantCmd:  "bash",
			wantArgs: []string{"-c", "echo $FOO"},
		},
		{
			name:     "multiple assignments",
			cmd:      "A=1",
			args:     []string{"B=2", "env"},
			wantEnv:  []string{"A=1", "B=2"},
			wantCmd:  "env",
			wantArgs: []string{},
		},
		{
			name:     "flag with equals is not an assignment",
			cmd:      "grep",
			args:     []string{"--color=auto", "x"},
			wantEnv:  nil,
			wantCmd:  "grep",
			wantArgs: []string{"--color=auto", "x"},
		},
		{
			name:     "dash command stops scan",
			cmd:      "FOO=bar",
			args:     []string{"--flag=v", "rest"},
			wantEnv:  []string{"FOO=bar"},
			wantCmd:  "--flag=v",
			wantArgs: []string{"rest"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := StripEnvPrefix(tt.cmd, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEnv, inv.EnvVars)
			assert.Equal(t, tt.wantCmd, inv.Cmd)
			assert.Equal(t, tt.wantArgs, inv.Args)
		})
	}
}

func TestStripEnvPrefix_OnlyAssignments(t *testing.T) {
	_, err := StripEnvPrefix("FOO=bar", []string{"BAZ=qux"})
	assert.ErrorIs(t, err, ErrNoCommand)
}

func TestInvocation_Tokens_RoundTrip(t *testing.T) {
	inv, err := StripEnvPrefix("FOO=bar", []string{"BAZ=1", "git", "commit", "-m", "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"FOO=bar", "BAZ=1", "git", "commit", "-m", "x"}, inv.Tokens())
}
