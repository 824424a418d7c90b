package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestSyncCommand_RequiresSourceAndDest(t *testing.T) {
	cmd := &cobra.Command{Use: "lakemirror"}
	cmd.AddCommand(newSyncCmd())

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"sync"})

	require.Error(t, cmd.Execute())
}
