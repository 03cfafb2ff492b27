package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAgentConfig = `{
	"defaultAgent": "ada",
	"agents": [
		{"id": "ada", "name": "Ada", "provider": "gemini", "model": "gemini-2.0-flash", "role": "Engineer", "persona": "Minimalist", "description": "Terse helper"}
	]
}`

func writeAgentConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "agent_config.json")
	require.NoError(t, os.WriteFile(path, []byte(testAgentConfig), 0o644))
	return path
}

func TestResolveAgentConfigExplicitPath(t *testing.T) {
	path := writeAgentConfig(t, t.TempDir())
	out := &bytes.Buffer{}

	resolved, ok := resolveAgentConfig(path, strings.NewReader(""), out)
	assert.True(t, ok)
	assert.Equal(t, path, resolved)
	assert.Empty(t, out.String(), "no prompting when the path loads")
}

func TestResolveAgentConfigDefaultPath(t *testing.T) {
	dir := t.TempDir()
	writeAgentConfig(t, dir)
	t.Chdir(dir)

	resolved, ok := resolveAgentConfig("", strings.NewReader(""), &bytes.Buffer{})
	assert.True(t, ok)
	assert.Equal(t, "agent_config.json", resolved)
}

func TestResolveAgentConfigPromptsUntilValid(t *testing.T) {
	good := writeAgentConfig(t, t.TempDir())
	bad := filepath.Join(t.TempDir(), "still_missing.json")
	out := &bytes.Buffer{}

	in := strings.NewReader(bad + "\n" + good + "\n")
	resolved, ok := resolveAgentConfig(filepath.Join(t.TempDir(), "nope.json"), in, out)
	assert.True(t, ok)
	assert.Equal(t, good, resolved)

	output := out.String()
	assert.Contains(t, output, "Could not load agent configuration.")
	assert.Contains(t, output, "Please try again.")
	assert.Contains(t, output, "Configuration loaded successfully!")
}

func TestResolveAgentConfigEmptyInputGivesUp(t *testing.T) {
	out := &bytes.Buffer{}

	_, ok := resolveAgentConfig(filepath.Join(t.TempDir(), "nope.json"), strings.NewReader("\n"), out)
	assert.False(t, ok)
	assert.Contains(t, out.String(), "No path provided. Exiting...")
}

func TestResolveAgentConfigEndOfInputGivesUp(t *testing.T) {
	out := &bytes.Buffer{}

	_, ok := resolveAgentConfig(filepath.Join(t.TempDir(), "nope.json"), strings.NewReader(""), out)
	assert.False(t, ok)
	assert.Contains(t, out.String(), "No path provided. Exiting...")
}
