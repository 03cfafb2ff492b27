// Package retrieval augments prompts with a similarity search over
// historical chat content. It is an enhancement, not a requirement: every
// failure on the search path degrades to an empty result with a log line,
// never an error into the chat turn.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Retriever embeds a query and searches the vector index for relevant
// historical snippets.
type Retriever struct {
	embedder Embedder
	index    *Index
	topK     int
	logger   *slog.Logger
}

// New creates a Retriever. topK is the default result budget used by
// Context; Search takes an explicit one.
func New(embedder Embedder, index *Index, topK int, logger *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, index: index, topK: topK, logger: logger}
}

// Search returns up to topK scored snippets relevant to query, most
// relevant first. Embedding or index failures are logged and yield an empty
// result.
func (r *Retriever) Search(ctx context.Context, query string, topK int) []Snippet {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("failed to generate query embedding", "error", err)
		return nil
	}
	hits, err := r.index.Search(ctx, vector, topK)
	if err != nil {
		r.logger.Warn("similarity search failed", "error", err)
		return nil
	}
	return hits
}

// Context renders the retrieval results for query as a block of text
// suitable for injection into a system prompt. It returns "" when nothing
// relevant is found.
func (r *Retriever) Context(ctx context.Context, query string) string {
	hits := r.Search(ctx, query, r.topK)
	if len(hits) == 0 {
		return ""
	}
	sections := make([]string, 0, len(hits))
	for _, h := range hits {
		sections = append(sections, fmt.Sprintf(
			"Document: %s\nRelevance Score: %.4f\nContent:\n%s",
			h.Source, h.Score, h.Content))
	}
	return strings.Join(sections, "\n\n---\n\n")
}
