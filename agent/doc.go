// Package agent provides the multi-agent session core: the registry that
// resolves agent configurations into live, invocable agent instances, and
// the chat-turn logic those instances execute.
//
// # Architecture
//
// The package is organized around two types:
//
//   - Registry: owns the set of materialized agents for one session. It
//     reads profiles through the config package, renders system prompts
//     through the prompt package, and resolves model clients through the
//     llm package. Agents are created lazily on first reference and cached
//     for the process lifetime, so switching away from an agent and back
//     returns the identical instance.
//   - Agent: one materialized profile — rendered system prompt, bound model
//     client, and the shared conversation store. Its ChatStream method runs
//     a complete chat turn: context assembly (system prompt, optional
//     retrieval context, persisted history), streamed generation, and
//     persistence of the exchange.
//
// # Usage
//
//	registry := agent.NewRegistry(configPath, store)
//	if err := registry.Initialize(ctx); err != nil {
//	    // handle error
//	}
//
//	current, _ := registry.Current()
//	fragments, errCh := current.ChatStream(ctx, userID, threadID, input)
//	for f := range fragments {
//	    fmt.Print(f)
//	}
//	if err := <-errCh; err != nil {
//	    // report; the session continues
//	}
//
// # Error Conventions
//
// Registry misuse is reported through sentinel errors (ErrNotInitialized,
// ErrNoActiveAgent, ErrAgentNotFound) that callers match with errors.Is.
// Expected absence elsewhere in the system (an unknown conversation id, an
// empty history) is a sentinel return value, not an error; see the history
// package.
//
// The registry assumes single-session ownership: one caller, no concurrent
// access. A service exposing multiple sessions needs one Registry and store
// pairing per session.
package agent
