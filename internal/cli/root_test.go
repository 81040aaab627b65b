package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "tfc", root.Use)
	assert.Contains(t, root.Long, "process-slot")

	for _, name := range []string{"run", "list", "types", "history"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestFlagDefaults(t *testing.T) {
	tests := []struct {
		command   string // "" is the root
		flag      string
		shorthand string
		def       string
	}{
		{"", "verbose", "v", "false"},
		{"", "format", "", "text"},
		{"run", "directory", "d", ""},
		{"run", "executable", "e", "python3"},
		{"run", "num-jobs", "j", "4"},
		{"run", "weights", "w", "1"},
		{"run", "config", "", "TestSystemCONFIG.yaml"},
		{"run", "db", "", ""},
		{"run", "metrics-file", "", ""},
		{"run", "poll-interval", "", "10ms"},
		{"run", "project-root", "", ""},
		{"list", "weights", "w", "1"},
		{"list", "config", "", "TestSystemCONFIG.yaml"},
		{"list", "project-root", "", ""},
		{"history", "db", "", ""},
		{"history", "unit", "", ""},
		{"history", "limit", "", "20"},
	}
	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			root := NewRootCommand()
			flag := root.PersistentFlags().Lookup(tt.flag)
			if tt.command != "" {
				sub, _, err := root.Find([]string{tt.command})
				require.NoError(t, err)
				flag = sub.Flags().Lookup(tt.flag)
			}
			require.NotNil(t, flag)
			assert.Equal(t, tt.shorthand, flag.Shorthand)
			assert.Equal(t, tt.def, flag.DefValue)
		})
	}
}

func TestFormatValidation(t *testing.T) {
	for format, valid := range map[string]bool{"text": true, "json": true, "xml": false, "": false, "TEXT": false} {
		assert.Equal(t, valid, isValidFormat(format), format)
	}
}

func TestInvalidFormatRejected(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "invalid", "types"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestVerboseLogsToStderr(t *testing.T) {
	cmd := NewRootCommand()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{"--verbose", "types", "ErrorCode"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, stderr.String(), "registered type")
	assert.NotContains(t, stdout.String(), "registered type")
	assert.Contains(t, stdout.String(), "ErrorCode:")
}
