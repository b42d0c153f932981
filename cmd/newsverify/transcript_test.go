package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/newsverify/memory"
)

func TestTranscriptCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, memory.SaveConversation(path, []memory.Message{
		{Role: memory.RoleSystem, Content: "you are a checker"},
		{Role: "user", Content: "article text"},
	}))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"transcript", path})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "[0] SYSTEM\nyou are a checker\n\n[1] USER\narticle text\n", out.String())
}

func TestTranscriptCommand_Missing(t *testing.T) {
	rootCmd.SetArgs([]string{"transcript", filepath.Join(t.TempDir(), "nope.json")})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	assert.ErrorContains(t, rootCmd.Execute(), "no transcript")
}
