package retrieval

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"sort"

	"github.com/m4xw311/machat/errors"
	"github.com/viterin/vek/vek32"
)

const indexSchema = `
CREATE TABLE IF NOT EXISTS embeddings (
	id      TEXT PRIMARY KEY,
	source  TEXT NOT NULL,
	content TEXT NOT NULL,
	vector  BLOB NOT NULL
);
`

// Document is one embedded unit of historical content.
type Document struct {
	ID      string
	Source  string
	Content string
	Vector  []float32
}

// Snippet is a scored search hit. Score is cosine similarity, i.e.
// 1 - cosine distance: higher is more relevant.
type Snippet struct {
	Source  string
	Content string
	Score   float32
}

// Index stores embedding vectors in SQLite and answers brute-force cosine
// top-K queries. Collections here are small (one operator's chat history),
// so a linear scan beats maintaining an ANN structure.
type Index struct {
	db *sql.DB
}

// NewIndex prepares the embeddings table on the given database handle,
// typically the conversation store's connection.
func NewIndex(db *sql.DB) (*Index, error) {
	if _, err := db.Exec(indexSchema); err != nil {
		return nil, errors.Wrapf(err, "could not initialize embeddings table")
	}
	return &Index{db: db}, nil
}

// Add upserts documents with their vectors.
func (ix *Index) Add(ctx context.Context, docs []Document) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "could not begin transaction")
	}
	defer tx.Rollback()

	for _, d := range docs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO embeddings (id, source, content, vector)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				source = excluded.source,
				content = excluded.content,
				vector = excluded.vector`,
			d.ID, d.Source, d.Content, encodeVector(d.Vector)); err != nil {
			return errors.Wrapf(err, "could not insert embedding %s", d.ID)
		}
	}
	return errors.Wrapf(tx.Commit(), "could not commit embeddings")
}

// Search returns the topK documents most similar to vector, ordered by
// descending score. Vectors of mismatched dimension are skipped.
func (ix *Index) Search(ctx context.Context, vector []float32, topK int) ([]Snippet, error) {
	if topK <= 0 || len(vector) == 0 {
		return nil, nil
	}

	rows, err := ix.db.QueryContext(ctx, `SELECT source, content, vector FROM embeddings`)
	if err != nil {
		return nil, errors.Wrapf(err, "could not scan embeddings")
	}
	defer rows.Close()

	var hits []Snippet
	for rows.Next() {
		var source, content string
		var blob []byte
		if err := rows.Scan(&source, &content, &blob); err != nil {
			return nil, errors.Wrapf(err, "could not scan embedding row")
		}
		candidate := decodeVector(blob)
		if len(candidate) != len(vector) {
			continue
		}
		hits = append(hits, Snippet{
			Source:  source,
			Content: content,
			Score:   vek32.CosineSimilarity(vector, candidate),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "embedding scan failed")
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Vectors are serialized as little-endian float32 blobs.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
