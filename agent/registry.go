package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m4xw311/machat/config"
	"github.com/m4xw311/machat/history"
	"github.com/m4xw311/machat/llm"
	"github.com/m4xw311/machat/prompt"
	"github.com/m4xw311/machat/retrieval"
)

var (
	// ErrNotInitialized is returned by registry operations invoked before
	// Initialize.
	ErrNotInitialized = errors.New("agent registry not initialized")
	// ErrNoActiveAgent is returned when no agent is currently selected.
	ErrNoActiveAgent = errors.New("no agent is currently active")
	// ErrAgentNotFound is returned for agent ids absent from the
	// configuration.
	ErrAgentNotFound = errors.New("agent not found")
)

// ClientFactory constructs a model client for a profile. The default
// resolves the profile's provider through llm.Resolve; tests substitute a
// stub.
type ClientFactory func(ctx context.Context, profile config.AgentProfile) (llm.Client, error)

// Registry owns the set of materialized agents for one session. Agents are
// loaded lazily on first reference and cached for the process lifetime, so
// repeated loads of the same id return the identical instance and any
// conversational state survives switching away and back.
//
// The registry is session-scoped state with a single owner; it is not safe
// for concurrent use.
type Registry struct {
	configPath  string
	store       *history.Store
	retriever   *retrieval.Retriever
	logger      *slog.Logger
	newClient   ClientFactory
	agents      map[string]*Agent
	currentID   string
	initialized bool
}

// NewRegistry creates a Registry reading agent definitions from configPath.
func NewRegistry(configPath string, store *history.Store, optFns ...func(r *Registry)) *Registry {
	r := &Registry{
		configPath: configPath,
		store:      store,
		logger:     slog.Default(),
		agents:     make(map[string]*Agent),
	}
	r.newClient = func(ctx context.Context, profile config.AgentProfile) (llm.Client, error) {
		factory, err := llm.Resolve(profile.Provider)
		if err != nil {
			return nil, err
		}
		return factory(ctx, profile.Model)
	}
	for _, fn := range optFns {
		fn(r)
	}
	return r
}

// WithRetriever attaches the optional retrieval augmenter to every agent the
// registry materializes.
func WithRetriever(ret *retrieval.Retriever) func(r *Registry) {
	return func(r *Registry) { r.retriever = ret }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) func(r *Registry) {
	return func(r *Registry) { r.logger = logger }
}

// WithClientFactory overrides model client construction.
func WithClientFactory(factory ClientFactory) func(r *Registry) {
	return func(r *Registry) { r.newClient = factory }
}

// Initialize loads the default agent from configuration and makes it
// current. It must be called before any other registry operation.
func (r *Registry) Initialize(ctx context.Context) error {
	cfg, err := config.Load(r.configPath)
	if err != nil {
		return err
	}
	r.initialized = true
	def := cfg.Default()
	if _, err := r.load(ctx, cfg, def.ID); err != nil {
		return err
	}
	r.currentID = def.ID
	return nil
}

// Load returns the materialized agent for id, constructing and caching it on
// first use. Repeated calls are idempotent cache hits.
func (r *Registry) Load(ctx context.Context, id string) (*Agent, error) {
	if !r.initialized {
		return nil, ErrNotInitialized
	}
	cfg, err := config.Load(r.configPath)
	if err != nil {
		return nil, err
	}
	return r.load(ctx, cfg, id)
}

func (r *Registry) load(ctx context.Context, cfg *config.MultiAgentConfig, id string) (*Agent, error) {
	if a, ok := r.agents[id]; ok {
		return a, nil
	}
	profile := cfg.AgentByID(id)
	if profile == nil {
		return nil, fmt.Errorf("%w: %q", ErrAgentNotFound, id)
	}

	client, err := r.newClient(ctx, *profile)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		profile:      *profile,
		systemPrompt: prompt.Build(profile.Name, profile.Role, profile.Persona),
		client:       client,
		store:        r.store,
		retriever:    r.retriever,
		logger:       r.logger,
	}
	r.agents[id] = a
	r.logger.Debug("agent materialized", "id", id, "provider", profile.Provider)
	return a, nil
}

// Switch makes the agent with the given id current, loading it if needed,
// and returns its profile. The previously current agent keeps its cached
// instance.
func (r *Registry) Switch(ctx context.Context, id string) (*config.AgentProfile, error) {
	if !r.initialized {
		return nil, ErrNotInitialized
	}
	cfg, err := config.Load(r.configPath)
	if err != nil {
		return nil, err
	}
	profile := cfg.AgentByID(id)
	if profile == nil {
		return nil, fmt.Errorf("%w: %q", ErrAgentNotFound, id)
	}
	if _, err := r.load(ctx, cfg, id); err != nil {
		return nil, err
	}
	r.currentID = id
	return profile, nil
}

// Current returns the active agent instance.
func (r *Registry) Current() (*Agent, error) {
	if !r.initialized {
		return nil, ErrNotInitialized
	}
	if r.currentID == "" {
		return nil, ErrNoActiveAgent
	}
	a, ok := r.agents[r.currentID]
	if !ok {
		return nil, ErrNoActiveAgent
	}
	return a, nil
}

// CurrentProfile returns the active agent's profile, re-read from
// configuration so on-disk edits to its fields are visible.
func (r *Registry) CurrentProfile() (*config.AgentProfile, error) {
	if !r.initialized {
		return nil, ErrNotInitialized
	}
	if r.currentID == "" {
		return nil, ErrNoActiveAgent
	}
	cfg, err := config.Load(r.configPath)
	if err != nil {
		return nil, err
	}
	profile := cfg.AgentByID(r.currentID)
	if profile == nil {
		return nil, fmt.Errorf("%w: current agent %q missing from configuration", ErrAgentNotFound, r.currentID)
	}
	return profile, nil
}

// CurrentID returns the id of the active agent, or "" before Initialize.
func (r *Registry) CurrentID() string { return r.currentID }

// ListAvailable returns all profiles from the configuration file, re-read
// on every call.
func (r *Registry) ListAvailable() ([]config.AgentProfile, error) {
	if !r.initialized {
		return nil, ErrNotInitialized
	}
	cfg, err := config.Load(r.configPath)
	if err != nil {
		return nil, err
	}
	return cfg.Agents, nil
}
