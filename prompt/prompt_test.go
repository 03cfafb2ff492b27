package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDeterministic(t *testing.T) {
	a := Build("Ada", "Software Engineer", "Minimalist")
	b := Build("Ada", "Software Engineer", "Minimalist")
	assert.Equal(t, a, b)
}

func TestBuildRendersIdentity(t *testing.T) {
	p := Build("Ada", "Software Engineer", "Minimalist")

	assert.Contains(t, p, "**Name:** Ada")
	assert.Contains(t, p, "**Primary Role:** Software Engineer")
	assert.Contains(t, p, "**Core Persona:** Minimalist")
	// Every identity field is reinforced beyond the header block.
	assert.Greater(t, strings.Count(p, "Ada"), 1)
	assert.Greater(t, strings.Count(p, "Software Engineer"), 1)
	assert.Greater(t, strings.Count(p, "Minimalist"), 1)
}

func TestBuildOperationalConstraints(t *testing.T) {
	p := Build("Ada", "Engineer", "Calm")

	assert.Contains(t, p, "Never break character")
	assert.Contains(t, p, "Do not refer to yourself as an AI")
	assert.Contains(t, p, "acknowledge it gracefully while staying in character")
	assert.False(t, strings.Contains(p, "{name}"), "unreplaced placeholder")
	assert.False(t, strings.Contains(p, "{role}"), "unreplaced placeholder")
	assert.False(t, strings.Contains(p, "{persona}"), "unreplaced placeholder")
}
