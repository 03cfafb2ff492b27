package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/m4xw311/machat/agent"
	"github.com/m4xw311/machat/config"
	"github.com/m4xw311/machat/history"
	"github.com/m4xw311/machat/logging"
	"github.com/m4xw311/machat/retrieval"
	"github.com/m4xw311/machat/term"
)

func main() {
	os.Exit(run())
}

func run() int {
	agentConfigFlag := flag.String("agent_config", "", "Path to the agent configuration JSON file")
	ingestFlag := flag.Bool("ingest", false, "Embed history files into the retrieval index and exit")
	flag.Parse()

	// Credentials may live in a .env file; absence is fine.
	_ = godotenv.Load()

	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %+v\n", err)
		return 1
	}

	logger := logging.New(os.Stderr, settings.LogLevel, settings.LogFormat)
	slog.SetDefault(logger)

	ctx := context.Background()

	configPath, ok := resolveAgentConfig(*agentConfigFlag, os.Stdin, os.Stdout)
	if !ok {
		return 1
	}

	store, err := history.Open(settings.DatabasePath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening conversation store: %+v\n", err)
		return 1
	}
	defer store.Close()

	if *ingestFlag {
		return runIngest(ctx, settings, store, logger)
	}

	retriever := setupRetrieval(ctx, settings, store, logger)

	opts := []func(r *agent.Registry){agent.WithLogger(logger)}
	if retriever != nil {
		opts = append(opts, agent.WithRetriever(retriever))
	}
	registry := agent.NewRegistry(configPath, store, opts...)
	if err := registry.Initialize(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing agents: %+v\n", err)
		return 1
	}

	shell := term.New(registry, store, settings.UserID)
	if err := shell.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Session stopped with an error: %+v\n", err)
		return 1
	}
	return 0
}

// resolveAgentConfig validates that an agent configuration loads from path
// (or the default location), interactively prompting for a new path until
// one loads or the operator gives up.
func resolveAgentConfig(path string, in io.Reader, out io.Writer) (string, bool) {
	if path == "" {
		path = config.DefaultPath
	}
	_, err := config.Load(path)
	if err == nil {
		return path, true
	}

	fmt.Fprintln(out, "Could not load agent configuration.")
	fmt.Fprintf(out, "%v\n\n", err)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Enter the path to your agent_config.json file: ")
		if !scanner.Scan() {
			fmt.Fprintln(out, "\nNo path provided. Exiting...")
			return "", false
		}
		candidate := strings.TrimSpace(scanner.Text())
		if candidate == "" {
			fmt.Fprintln(out, "No path provided. Exiting...")
			return "", false
		}
		if _, err := config.Load(candidate); err != nil {
			fmt.Fprintf(out, "Failed to load config: %v\nPlease try again.\n\n", err)
			continue
		}
		fmt.Fprintln(out, "Configuration loaded successfully!")
		fmt.Fprintln(out)
		return candidate, true
	}
}

// setupRetrieval wires the optional retrieval augmenter. Retrieval is an
// enhancement: any setup failure disables it with a warning rather than
// blocking chat.
func setupRetrieval(ctx context.Context, settings *config.Settings, store *history.Store, logger *slog.Logger) *retrieval.Retriever {
	if !settings.Retrieval.Enabled {
		return nil
	}

	embedder, err := retrieval.NewGeminiEmbedder(ctx, settings.Retrieval.EmbeddingModel)
	if err != nil {
		logger.Warn("retrieval disabled", "error", err)
		return nil
	}
	index, err := retrieval.NewIndex(store.DB())
	if err != nil {
		logger.Warn("retrieval disabled", "error", err)
		return nil
	}
	return retrieval.New(embedder, index, settings.Retrieval.TopK, logger)
}

func runIngest(ctx context.Context, settings *config.Settings, store *history.Store, logger *slog.Logger) int {
	embedder, err := retrieval.NewGeminiEmbedder(ctx, settings.Retrieval.EmbeddingModel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating embedder: %+v\n", err)
		return 1
	}
	index, err := retrieval.NewIndex(store.DB())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing index: %+v\n", err)
		return 1
	}
	n, err := retrieval.Ingest(ctx, embedder, index, settings.Retrieval.IngestGlob, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingestion failed after %d documents: %+v\n", n, err)
		return 1
	}
	fmt.Printf("Ingestion complete. Indexed %d documents.\n", n)
	return 0
}
