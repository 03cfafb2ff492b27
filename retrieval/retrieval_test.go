package retrieval

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/m4xw311/machat/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// fakeEmbedder maps known texts to fixed vectors. Unknown text gets the
// zero-ish fallback so similarity stays low.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0.001, 0.001, 0.001}, nil
}

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	index, err := NewIndex(db)
	require.NoError(t, err)
	return index
}

func TestIndexSearchOrdersByScore(t *testing.T) {
	index := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, []Document{
		{ID: "d1", Source: "close.txt", Content: "close match", Vector: []float32{1, 0, 0}},
		{ID: "d2", Source: "closer.txt", Content: "closer match", Vector: []float32{0.9, 0.1, 0}},
		{ID: "d3", Source: "far.txt", Content: "unrelated", Vector: []float32{0, 0, 1}},
	}))

	hits, err := index.Search(ctx, []float32{0.9, 0.1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "closer.txt", hits[0].Source)
	assert.Equal(t, "close.txt", hits[1].Source)
	assert.Greater(t, hits[0].Score, hits[1].Score)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
}

func TestIndexSearchSkipsMismatchedDimensions(t *testing.T) {
	index := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, []Document{
		{ID: "d1", Source: "ok.txt", Content: "fits", Vector: []float32{1, 0, 0}},
		{ID: "d2", Source: "short.txt", Content: "wrong dims", Vector: []float32{1, 0}},
	}))

	hits, err := index.Search(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "ok.txt", hits[0].Source)
}

func TestIndexSearchDegenerateInputs(t *testing.T) {
	index := openTestIndex(t)
	ctx := context.Background()

	hits, err := index.Search(ctx, nil, 5)
	require.NoError(t, err)
	assert.Nil(t, hits)

	hits, err = index.Search(ctx, []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Nil(t, hits)
}

func TestIndexAddUpserts(t *testing.T) {
	index := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, []Document{
		{ID: "d1", Source: "a.txt", Content: "before", Vector: []float32{1, 0, 0}},
	}))
	require.NoError(t, index.Add(ctx, []Document{
		{ID: "d1", Source: "a.txt", Content: "after", Vector: []float32{1, 0, 0}},
	}))

	hits, err := index.Search(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "after", hits[0].Content)
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0.5, -1.25, 3.0, 0}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}

func TestRetrieverSearchSoftFailsOnEmbedError(t *testing.T) {
	index := openTestIndex(t)
	embedder := &fakeEmbedder{err: errors.New("quota exceeded")}
	r := New(embedder, index, 5, slog.Default())

	hits := r.Search(context.Background(), "anything", 5)
	assert.Nil(t, hits)
}

func TestRetrieverContextFormatsSnippets(t *testing.T) {
	index := openTestIndex(t)
	ctx := context.Background()
	require.NoError(t, index.Add(ctx, []Document{
		{ID: "d1", Source: "notes.txt", Content: "project kickoff notes", Vector: []float32{1, 0, 0}},
		{ID: "d2", Source: "log.txt", Content: "deployment log", Vector: []float32{0.8, 0.6, 0}},
	}))

	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"kickoff": {1, 0, 0},
	}}
	r := New(embedder, index, 2, slog.Default())

	block := r.Context(ctx, "kickoff")
	assert.Contains(t, block, "Document: notes.txt")
	assert.Contains(t, block, "Relevance Score: 1.0000")
	assert.Contains(t, block, "Content:\nproject kickoff notes")
	assert.Contains(t, block, "\n\n---\n\n")
	assert.Contains(t, block, "Document: log.txt")
}

func TestRetrieverContextEmptyIndex(t *testing.T) {
	index := openTestIndex(t)
	r := New(&fakeEmbedder{}, index, 5, nil)

	assert.Empty(t, r.Context(context.Background(), "anything"))
}

func TestIngestIndexesMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "chat_history", "2024"), 0o755))
	write := func(rel, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, rel), []byte(content), 0o644))
	}
	write(filepath.Join("chat_history", "a.txt"), "alpha session")
	write(filepath.Join("chat_history", "2024", "b.txt"), "beta session")
	write(filepath.Join("chat_history", "empty.txt"), "   \n")
	write(filepath.Join("chat_history", "ignored.md"), "not matched")

	index := openTestIndex(t)
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"alpha session": {1, 0, 0},
		"beta session":  {0, 1, 0},
	}}

	n, err := Ingest(context.Background(), embedder, index, "chat_history/**/*.txt", slog.Default())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := index.Search(context.Background(), []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a.txt", hits[0].Source)
}

func TestIngestSkipsFailedEmbeddings(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("content"), 0o644))

	index := openTestIndex(t)
	embedder := &fakeEmbedder{err: errors.New("embed down")}

	n, err := Ingest(context.Background(), embedder, index, "*.txt", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngestInvalidPattern(t *testing.T) {
	index := openTestIndex(t)

	_, err := Ingest(context.Background(), &fakeEmbedder{}, index, "[", nil)
	assert.Error(t, err)
}
