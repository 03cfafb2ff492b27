package retrieval

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/m4xw311/machat/errors"
)

// ingestBatchSize bounds how many files are embedded between index writes.
const ingestBatchSize = 5

// Ingest embeds every file matching the doublestar glob pattern (e.g.
// "chat_history/**/*.txt") and adds the results to the index. Files that
// are empty or fail to embed are skipped with a log line. It returns the
// number of documents indexed.
func Ingest(ctx context.Context, embedder Embedder, index *Index, pattern string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid ingest pattern %q", pattern)
	}

	total := 0
	batch := make([]Document, 0, ingestBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := index.Add(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		logger.Info("indexed batch", "documents", len(batch))
		batch = batch[:0]
		return nil
	}

	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}
		content := string(data)
		if strings.TrimSpace(content) == "" {
			continue
		}

		vector, err := embedder.Embed(ctx, content)
		if err != nil {
			logger.Warn("skipping file, embedding failed", "path", path, "error", err)
			continue
		}

		batch = append(batch, Document{
			ID:      uuid.NewString(),
			Source:  filepath.Base(path),
			Content: content,
			Vector:  vector,
		})
		if len(batch) == ingestBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}
