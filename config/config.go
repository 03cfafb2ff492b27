package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Provider identifies a supported model vendor. The set is closed: adding a
// vendor means adding a constant here and a client in the llm package.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
)

// Valid reports whether p names a recognized provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderBedrock:
		return true
	}
	return false
}

// AgentProfile is the static identity record for one persona/model pairing.
type AgentProfile struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Provider    Provider `json:"provider"`
	Model       string   `json:"model"`
	Role        string   `json:"role"`
	Persona     string   `json:"persona"`
	Description string   `json:"description"`
}

// MultiAgentConfig is the on-disk agent definition set. It is immutable once
// loaded; callers that want to observe on-disk edits call Load again.
type MultiAgentConfig struct {
	DefaultAgent string         `json:"defaultAgent"`
	Agents       []AgentProfile `json:"agents"`
}

// ConfigError reports an unreadable, malformed, or invalid agent
// configuration file.
type ConfigError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agent config %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("agent config %s: %s", e.Path, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// DefaultPath is used when no --agent_config flag is supplied.
const DefaultPath = "agent_config.json"

// Load reads and validates the multi-agent configuration at path, falling
// back to DefaultPath when path is empty. It re-reads from disk on every
// call and has no side effects beyond the file read.
func Load(path string) (*MultiAgentConfig, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Reason: "unreadable", Err: err}
	}

	var cfg MultiAgentConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Path: path, Reason: "malformed JSON", Err: err}
	}

	if err := cfg.validate(); err != nil {
		return nil, &ConfigError{Path: path, Reason: err.Error()}
	}
	return &cfg, nil
}

func (c *MultiAgentConfig) validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("'agents' must be a non-empty list")
	}
	seen := make(map[string]bool, len(c.Agents))
	for i, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("agent at index %d is missing 'id'", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate agent id %q", a.ID)
		}
		seen[a.ID] = true
		if a.Name == "" {
			return fmt.Errorf("agent %q is missing 'name'", a.ID)
		}
		if a.Provider == "" {
			return fmt.Errorf("agent %q is missing 'provider'", a.ID)
		}
		if !a.Provider.Valid() {
			return fmt.Errorf("agent %q has unrecognized provider %q", a.ID, a.Provider)
		}
		if a.Model == "" {
			return fmt.Errorf("agent %q is missing 'model'", a.ID)
		}
	}
	if c.DefaultAgent == "" {
		return fmt.Errorf("'defaultAgent' is required")
	}
	if !seen[c.DefaultAgent] {
		return fmt.Errorf("'defaultAgent' %q not found among agents", c.DefaultAgent)
	}
	return nil
}

// AgentByID returns the profile with the given id, or nil if absent.
func (c *MultiAgentConfig) AgentByID(id string) *AgentProfile {
	for i := range c.Agents {
		if c.Agents[i].ID == id {
			return &c.Agents[i]
		}
	}
	return nil
}

// Default returns the profile referenced by DefaultAgent. Validation
// guarantees it exists for any config produced by Load.
func (c *MultiAgentConfig) Default() *AgentProfile {
	return c.AgentByID(c.DefaultAgent)
}
