package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore persists chunks in the chunk_vectors table and performs
// brute-force cosine search over all stored vectors. The table is created by
// the storage migrations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database whose schema is already migrated.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Add(ctx context.Context, chunks []Chunk) ([]string, error) {
	prepared, ids, err := prepare(chunks, uuid.NewString)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning insert transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunk_vectors (id, document_name, insert_date, kind, text_chunk, embedding)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range prepared {
		_, err := stmt.ExecContext(ctx, c.ID, c.Metadata.DocumentName,
			c.Metadata.InsertDate.UTC().Format(time.RFC3339Nano), string(c.Kind), c.Text, encodeFloat32s(c.Embedding))
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing insert: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, documentName string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chunk_vectors WHERE document_name = ?`, documentName)
	if err != nil {
		return 0, fmt.Errorf("deleting document %q: %w", documentName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Query scans only id and embedding to find the top-k candidates, then
// fetches the full rows for the winners.
func (s *SQLiteStore) Query(ctx context.Context, embedding []float32, k int) ([]ScoredChunk, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}

	best, err := s.scan(ctx, embedding, k)
	if err != nil {
		return nil, err
	}
	if len(best) == 0 {
		return nil, nil
	}

	ids := make([]any, len(best))
	for i, b := range best {
		ids[i] = b.ID
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_name, insert_date, kind, text_chunk, embedding
		FROM chunk_vectors WHERE id IN (?`+strings.Repeat(",?", len(ids)-1)+`)`, ids...)
	if err != nil {
		return nil, fmt.Errorf("fetching top-k chunks: %w", err)
	}
	byID, err := scanChunks(rows)
	if err != nil {
		return nil, err
	}

	out := make([]ScoredChunk, 0, len(best))
	for _, b := range best {
		c, ok := byID[b.ID]
		if !ok {
			// Deleted between the two queries.
			continue
		}
		out = append(out, ScoredChunk{Chunk: c, Score: b.Score})
	}
	return out, nil
}

func (s *SQLiteStore) scan(ctx context.Context, embedding []float32, k int) ([]idScore, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM chunk_vectors`)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	qn := norm(embedding)
	top := newTopK(k)

	// Reusable buffer for decoding embeddings to avoid per-row allocations.
	var buf []float32
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		buf, err = decodeFloat32sInto(buf, blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", id, err)
		}
		top.offer(id, cosine(embedding, buf, qn))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return top.result(), nil
}

// Iterate loads every row before calling fn so that fn may issue its own
// queries on the single pooled connection.
func (s *SQLiteStore) Iterate(ctx context.Context, fn func(Chunk) bool) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_name, insert_date, kind, text_chunk, embedding
		FROM chunk_vectors ORDER BY seq ASC`)
	if err != nil {
		return fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var all []Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return err
		}
		all = append(all, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating chunks: %w", err)
	}
	rows.Close()

	for _, c := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(c) {
			return nil
		}
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunk_vectors`).Scan(&count)
	return count, err
}

func scanChunks(rows *sql.Rows) (map[string]Chunk, error) {
	defer rows.Close()
	out := make(map[string]Chunk)
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

func scanChunk(rows *sql.Rows) (Chunk, error) {
	var c Chunk
	var insertDate, kind string
	var blob []byte
	if err := rows.Scan(&c.ID, &c.Metadata.DocumentName, &insertDate, &kind, &c.Text, &blob); err != nil {
		return Chunk{}, fmt.Errorf("scanning chunk: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, insertDate)
	if err != nil {
		return Chunk{}, fmt.Errorf("parsing insert_date for %s: %w", c.ID, err)
	}
	c.Metadata.InsertDate = t
	c.Kind = Kind(kind)
	c.Embedding, err = decodeFloat32s(blob)
	if err != nil {
		return Chunk{}, fmt.Errorf("decoding embedding for %s: %w", c.ID, err)
	}
	return c, nil
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32s deserializes little-endian bytes into a new float32 slice.
func decodeFloat32s(b []byte) ([]float32, error) {
	return decodeFloat32sInto(nil, b)
}

// decodeFloat32sInto decodes little-endian bytes into buf, growing it when
// needed. A length that is not a multiple of 4 means corruption.
func decodeFloat32sInto(buf []float32, b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	n := len(b) / 4
	if cap(buf) < n {
		buf = make([]float32, n)
	} else {
		buf = buf[:n]
	}
	for i := range buf {
		buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return buf, nil
}
