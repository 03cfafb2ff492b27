// Package term implements the interactive terminal session for machat.
//
// The Shell reads user input line by line, dispatches slash commands
// (/help, /new, /history, /load, /view, /agents, /switch, /current, /bye)
// to the agent registry and conversation store, and streams chat replies
// incrementally as the model produces them.
//
// It is deliberately thin: no state beyond the current thread id lives
// here, and every behavior it exposes is a call into the core packages.
// Input and output are injectable, which is how the tests script sessions.
package term
