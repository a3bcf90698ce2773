// Package sqlitevec provides an index driver backed by sqlite-vec KNN search.
//
// The vec0 virtual table lives in an in-memory database populated from the
// corpus embeddings at construction, keeping the persisted corpus file
// untouched by the serving process.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/owlcave/wklp/pkg/corpus"
	"github.com/owlcave/wklp/pkg/index"
)

// Driver implements index.Driver using SQLite with sqlite-vec.
type Driver struct {
	db        *sql.DB
	dimension int
	size      int
	logger    *zap.Logger
}

// New creates a sqlite-vec index from the given corpus embeddings.
func New(embs []corpus.Embedding, logger *zap.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	dimension := 0
	for _, e := range embs {
		if dimension == 0 {
			dimension = len(e.Vector)
		}
		if len(e.Vector) == 0 || len(e.Vector) != dimension {
			return nil, fmt.Errorf("%w: document %s has dimension %d, want %d",
				index.ErrDimension, e.DocID, len(e.Vector), dimension)
		}
	}
	if dimension == 0 {
		return nil, fmt.Errorf("sqlite-vec index requires at least one embedding")
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// vec0 virtual tables use integer rowids, so we keep a mapping from
	// string document IDs to rowids alongside.
	if _, err := db.Exec(`
		CREATE TABLE vec_documents (
			rowid  INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE vec_embeddings USING vec0(embedding float[%d])`,
		dimension,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range embs {
		result, err := tx.Exec(`INSERT INTO vec_documents(doc_id) VALUES (?)`, e.DocID)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("inserting document %s: %w", e.DocID, err)
		}

		rowID, err := result.LastInsertId()
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("getting rowid for doc %s: %w", e.DocID, err)
		}

		if _, err := tx.Exec(
			`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
			rowID, serializeFloat32(e.Vector),
		); err != nil {
			db.Close()
			return nil, fmt.Errorf("inserting embedding for doc %s: %w", e.DocID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		db.Close()
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	logger.Info("sqlite-vec index built",
		zap.Int("documents", len(embs)),
		zap.Int("dimensions", dimension),
		zap.String("vec_version", vecVersion),
	)

	return &Driver{
		db:        db,
		dimension: dimension,
		size:      len(embs),
		logger:    logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Search finds the topK most similar documents to the given embedding.
func (d *Driver) Search(ctx context.Context, embedding []float32, topK int) ([]index.Result, error) {
	if topK <= 0 {
		return nil, nil
	}
	if len(embedding) != d.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d",
			index.ErrDimension, len(embedding), d.dimension)
	}

	// KNN query via vec0 MATCH, then JOIN back to get doc_id.
	rows, err := d.db.QueryContext(ctx, `
		SELECT
			doc.doc_id,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_documents doc ON doc.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, serializeFloat32(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var results []index.Result
	for rows.Next() {
		var docID string
		var distance float64
		if err := rows.Scan(&docID, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		results = append(results, index.Result{
			DocID: docID,
			// Convert distance to similarity score: lower distance = higher similarity
			Score: float32(1.0 / (1.0 + distance)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Size returns the number of indexed embeddings.
func (d *Driver) Size() int {
	return d.size
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

// Ensure Driver implements index.Driver
var _ index.Driver = (*Driver)(nil)
