package corpus

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Store is a SQLite-backed corpus store. Reads are safe for concurrent use;
// writes only happen in the seed command, before any reader exists.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens an existing corpus file for reading. The file must have been
// produced by a Store previously; a missing file is a load error rather
// than an empty corpus.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", ErrLoad, err)
	}

	// Reject files that are not a corpus (or are truncated) up front.
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	logger.Info("corpus opened",
		zap.String("path", path),
		zap.Int("documents", n),
	)

	return &Store{db: db, logger: logger}, nil
}

// Create opens (or creates) a corpus file for writing and ensures the schema
// exists. Used by the seed command only.
func Create(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id   TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			url  TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS embeddings (
			doc_id    TEXT PRIMARY KEY REFERENCES documents(id),
			embedding BLOB NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Put stores a document together with its embedding. An existing document
// with the same ID is replaced.
func (s *Store) Put(ctx context.Context, doc Document, embedding []float32) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents(id, text, name, url) VALUES (?, ?, ?, ?)`,
		doc.ID, doc.Text, doc.Meta.Name, doc.Meta.URL,
	); err != nil {
		return fmt.Errorf("inserting document %s: %w", doc.ID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings(doc_id, embedding) VALUES (?, ?)`,
		doc.ID, serializeFloat32(embedding),
	); err != nil {
		return fmt.Errorf("inserting embedding for %s: %w", doc.ID, err)
	}

	return tx.Commit()
}

// Count returns the number of documents in the corpus.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Get retrieves documents by their IDs. Missing IDs are skipped rather than
// failing the whole batch; callers that need strictness can compare lengths.
func (s *Store) Get(ctx context.Context, ids []string) ([]Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(
		`SELECT id, text, name, url FROM documents WHERE id IN (%s)`,
		strings.Join(placeholders, ","),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]Document, len(ids))
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Text, &doc.Meta.Name, &doc.Meta.URL); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		byID[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	// Preserve the caller's ordering (retrieval rank).
	docs := make([]Document, 0, len(byID))
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			docs = append(docs, doc)
		}
	}

	return docs, nil
}

// Embeddings loads every stored embedding. Called once at startup to build
// the vector index.
func (s *Store) Embeddings(ctx context.Context) ([]Embedding, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc_id, embedding FROM embeddings ORDER BY doc_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying embeddings: %v", ErrLoad, err)
	}
	defer rows.Close()

	var embs []Embedding
	for rows.Next() {
		var docID string
		var blob []byte
		if err := rows.Scan(&docID, &blob); err != nil {
			return nil, fmt.Errorf("%w: scanning embedding: %v", ErrLoad, err)
		}

		vec, err := deserializeFloat32(blob)
		if err != nil {
			return nil, fmt.Errorf("%w: embedding for %s: %v", ErrLoad, docID, err)
		}

		embs = append(embs, Embedding{DocID: docID, Vector: vec})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating embeddings: %v", ErrLoad, err)
	}

	return embs, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
