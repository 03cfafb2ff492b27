package term

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/m4xw311/machat/agent"
	"github.com/m4xw311/machat/history"
)

const divider = "────────────────────────────────────────────────────────────"

// Shell is the interactive terminal session: a REPL that dispatches slash
// commands to the registry and conversation store and streams chat replies.
// It is a thin presentation layer; all behavior lives in the core packages.
type Shell struct {
	registry *agent.Registry
	store    *history.Store
	in       io.Reader
	out      io.Writer
	userID   string
	threadID string
}

// New creates a Shell bound to stdin/stdout with a fresh thread id.
func New(registry *agent.Registry, store *history.Store, userID string) *Shell {
	return &Shell{
		registry: registry,
		store:    store,
		in:       os.Stdin,
		out:      os.Stdout,
		userID:   userID,
		threadID: history.NewChatID(),
	}
}

// Run starts the interactive loop. It returns nil on /bye or end of input;
// a failed turn is reported and the loop continues. Lines are read without
// a length cap, so a large pasted input is an ordinary turn rather than a
// session-ending error.
func (s *Shell) Run(ctx context.Context) error {
	s.banner()

	reader := bufio.NewReader(s.in)
	for {
		fmt.Fprint(s.out, "You: ")
		line, readErr := reader.ReadString('\n')

		input := strings.TrimSpace(line)
		if input != "" {
			if strings.HasPrefix(input, "/") {
				if quit := s.dispatch(ctx, input); quit {
					return nil
				}
			} else {
				s.chat(ctx, input)
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				return nil
			}
			return readErr
		}
	}
}

// dispatch handles one slash command, returning true when the session
// should end.
func (s *Shell) dispatch(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	command, args := strings.ToLower(fields[0]), fields[1:]

	switch command {
	case "/help":
		s.printHelp()
	case "/new":
		s.threadID = history.NewChatID()
		fmt.Fprintf(s.out, "\nStarted new chat session: %s\n\n", s.threadID)
	case "/history":
		s.printHistory(ctx)
	case "/load":
		if len(args) == 0 {
			fmt.Fprintln(s.out, "\nPlease provide a chat ID. Usage: /load <chat_id>")
			break
		}
		s.loadChat(ctx, args[0])
	case "/view":
		s.viewChat(ctx)
	case "/agents":
		s.printAgents(ctx)
	case "/switch":
		if len(args) == 0 {
			fmt.Fprintln(s.out, "\nPlease provide an agent ID. Usage: /switch <agent_id>")
			break
		}
		s.switchAgent(ctx, args[0])
	case "/current":
		s.printCurrentAgent()
	case "/bye":
		fmt.Fprintln(s.out, "\nSee you later! Have a great day!")
		return true
	default:
		fmt.Fprintf(s.out, "\nUnknown command: %s\nType /help for available commands.\n\n", command)
	}
	return false
}

// chat runs one generation turn against the current agent, rendering
// fragments as they arrive.
func (s *Shell) chat(ctx context.Context, input string) {
	current, err := s.registry.Current()
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	fragments, errCh := current.ChatStream(ctx, s.userID, s.threadID, input)
	fmt.Fprintf(s.out, "%s: ", current.Profile().Name)
	for f := range fragments {
		fmt.Fprint(s.out, f)
	}
	fmt.Fprint(s.out, "\n\n")

	if err := <-errCh; err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		fmt.Fprintln(s.out, "Failed to get response from agent. Please try again.")
	}
}

func (s *Shell) banner() {
	profile, err := s.registry.CurrentProfile()
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, divider)
	fmt.Fprintf(s.out, "  %s — multi-agent chat in your terminal\n", profile.Name)
	fmt.Fprintln(s.out, divider)
	fmt.Fprintf(s.out, "Current Agent: %s (%s)\n", profile.Name, profile.ID)
	fmt.Fprintf(s.out, "Role: %s\n", profile.Role)
	fmt.Fprintf(s.out, "Provider: %s | Model: %s\n", profile.Provider, profile.Model)
	fmt.Fprintf(s.out, "Session: %s\n", s.threadID)
	fmt.Fprintf(s.out, "User: %s\n\n", s.userID)
	fmt.Fprintln(s.out, "Type '/bye' to quit.")
	fmt.Fprintln(s.out, "Type '/help' for available commands.")
	fmt.Fprintln(s.out)
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, "\nAvailable Commands:")
	fmt.Fprintln(s.out, divider)
	fmt.Fprintln(s.out, "  /help              - Show this help message")
	fmt.Fprintln(s.out, "  /new               - Start a new chat session")
	fmt.Fprintln(s.out, "  /history           - List all your past chats")
	fmt.Fprintln(s.out, "  /load <chat_id>    - Load a specific chat by ID")
	fmt.Fprintln(s.out, "  /view              - View current chat history")
	fmt.Fprintln(s.out, "  /agents            - List all available agents")
	fmt.Fprintln(s.out, "  /switch <agent_id> - Switch to a different agent")
	fmt.Fprintln(s.out, "  /current           - Show current agent info")
	fmt.Fprintln(s.out, "  /bye               - Exit the application")
	fmt.Fprintln(s.out, divider)
	fmt.Fprintln(s.out)
}

func (s *Shell) printHistory(ctx context.Context) {
	chats, err := s.store.ListConversations(ctx, s.userID)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if len(chats) == 0 {
		fmt.Fprintln(s.out, "\nNo chat history found.")
		fmt.Fprintln(s.out)
		return
	}

	fmt.Fprintln(s.out, "\nYour Chat History:")
	fmt.Fprintln(s.out, divider)
	for i, chat := range chats {
		fmt.Fprintf(s.out, "%d. %s (%d messages)\n", i+1, chat.Title, chat.MessageCount)
		fmt.Fprintf(s.out, "   ID: %s\n", chat.ID)
		fmt.Fprintf(s.out, "   Last updated: %s\n\n", chat.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(s.out, divider)
	fmt.Fprintln(s.out, "Use /load <chat_id> to continue a conversation")
	fmt.Fprintln(s.out)
}

func (s *Shell) loadChat(ctx context.Context, chatID string) {
	conversation, messages, err := s.store.GetConversation(ctx, chatID, s.userID)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if conversation == nil {
		fmt.Fprintf(s.out, "\nChat not found: %s\n\n", chatID)
		return
	}

	s.threadID = chatID
	fmt.Fprintf(s.out, "\nLoaded chat: %s\n", conversation.Title)
	fmt.Fprintf(s.out, "Messages: %d\n\n", len(messages))
	s.printMessages(messages)
}

func (s *Shell) viewChat(ctx context.Context) {
	conversation, messages, err := s.store.GetConversation(ctx, s.threadID, s.userID)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if conversation == nil || len(messages) == 0 {
		fmt.Fprintln(s.out, "\nNo messages in current chat yet.")
		fmt.Fprintln(s.out)
		return
	}

	fmt.Fprintf(s.out, "\nCurrent Chat: %s\n", conversation.Title)
	s.printMessages(messages)
}

func (s *Shell) printMessages(messages []history.Message) {
	if len(messages) == 0 {
		return
	}
	fmt.Fprintln(s.out, divider)
	for _, msg := range messages {
		speaker := "Agent"
		if msg.Role == agent.RoleUser {
			speaker = "You"
		}
		timestamp := msg.CreatedAt.Local().Format("15:04:05")
		content := history.ParseMessageContent(msg.Parts)
		fmt.Fprintf(s.out, "[%s] %s: %s\n\n", timestamp, speaker, content)
	}
	fmt.Fprintln(s.out, divider)
	fmt.Fprintln(s.out)
}

func (s *Shell) printAgents(ctx context.Context) {
	agents, err := s.registry.ListAvailable()
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	currentID := s.registry.CurrentID()

	fmt.Fprintln(s.out, "\nAvailable Agents:")
	fmt.Fprintln(s.out, divider)
	for i, a := range agents {
		marker := " "
		if a.ID == currentID {
			marker = "*"
		}
		fmt.Fprintf(s.out, "%s %d. %s (%s)\n", marker, i+1, a.Name, a.ID)
		fmt.Fprintf(s.out, "   Role: %s\n", a.Role)
		fmt.Fprintf(s.out, "   Persona: %s\n", a.Persona)
		fmt.Fprintf(s.out, "   Description: %s\n", a.Description)
		fmt.Fprintf(s.out, "   Provider: %s | Model: %s\n\n", a.Provider, a.Model)
	}
	fmt.Fprintln(s.out, divider)
	fmt.Fprintln(s.out, "Use /switch <agent_id> to change agents")
	fmt.Fprintln(s.out)
}

func (s *Shell) switchAgent(ctx context.Context, agentID string) {
	profile, err := s.registry.Switch(ctx, agentID)
	if err != nil {
		fmt.Fprintf(s.out, "\nFailed to switch agent: %v\n\n", err)
		return
	}
	fmt.Fprintf(s.out, "\nSwitched to agent: %s\n", profile.Name)
	fmt.Fprintf(s.out, "Role: %s\n", profile.Role)
	fmt.Fprintf(s.out, "Persona: %s\n", profile.Persona)
	fmt.Fprintf(s.out, "Description: %s\n\n", profile.Description)
}

func (s *Shell) printCurrentAgent() {
	profile, err := s.registry.CurrentProfile()
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "\nCurrent Agent:")
	fmt.Fprintln(s.out, divider)
	fmt.Fprintf(s.out, "  Name: %s\n", profile.Name)
	fmt.Fprintf(s.out, "  ID: %s\n", profile.ID)
	fmt.Fprintf(s.out, "  Role: %s\n", profile.Role)
	fmt.Fprintf(s.out, "  Persona: %s\n", profile.Persona)
	fmt.Fprintf(s.out, "  Description: %s\n", profile.Description)
	fmt.Fprintf(s.out, "  Provider: %s\n", profile.Provider)
	fmt.Fprintf(s.out, "  Model: %s\n", profile.Model)
	fmt.Fprintln(s.out, divider)
	fmt.Fprintln(s.out)
}
