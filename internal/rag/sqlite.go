package rag

import (
	"container/heap"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteFileName is the database file created inside the persist directory.
const SQLiteFileName = "chunks.sqlite3"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	source     TEXT NOT NULL,
	content    TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	created_at TEXT NOT NULL
)`

// SQLiteIndex is the default VectorIndex. It stores float32 embeddings as
// little-endian blobs in a single SQLite file under dir and answers searches
// with a brute-force cosine scan.
//
// Equal scores keep insertion order.
type SQLiteIndex struct {
	mu  sync.Mutex
	dir string
	db  *sql.DB
}

var _ VectorIndex = (*SQLiteIndex)(nil)

// OpenSQLiteIndex opens (or creates) the index persisted in dir.
func OpenSQLiteIndex(dir string) (*SQLiteIndex, error) {
	s := &SQLiteIndex{dir: dir}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the persist directory.
func (s *SQLiteIndex) Dir() string {
	return s.dir
}

func (s *SQLiteIndex) open() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating persist directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(s.dir, SQLiteFileName))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return fmt.Errorf("creating schema: %w", err)
	}

	s.db = db
	return nil
}

// Add inserts records in a single transaction.
func (s *SQLiteIndex) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrIndexClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, source, content, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		if len(r.Embedding) == 0 {
			tx.Rollback()
			return fmt.Errorf("%w: record %s has no embedding", ErrInvalidDimension, r.ID)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Source, r.Content, encodeFloat32s(r.Embedding), now); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// seqScore holds only the row sequence and score during the scan phase of Search.
type seqScore struct {
	Seq   int64
	Score float32
}

// Search performs a brute-force cosine similarity scan and returns the top k.
func (s *SQLiteIndex) Search(ctx context.Context, query []float32, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrIndexClosed
	}

	queryNorm := norm(query)
	if queryNorm == 0 {
		return nil, fmt.Errorf("%w: zero query vector", ErrInvalidDimension)
	}

	// Phase 1: scan only seq + embedding to find top-k candidates.
	rows, err := s.db.QueryContext(ctx, `SELECT seq, embedding FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	h := &seqScoreHeap{}
	heap.Init(h)

	// Reusable buffer for decoding embeddings to avoid per-row allocations.
	var buf []float32

	for rows.Next() {
		var seq int64
		var blob []byte
		if err := rows.Scan(&seq, &blob); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		buf, err = decodeFloat32sInto(buf, blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for row %d: %w", seq, err)
		}
		if len(buf) != len(query) {
			return nil, fmt.Errorf("%w: index has %d dimensions, query has %d", ErrInvalidDimension, len(buf), len(query))
		}

		score := cosine(query, buf, queryNorm)
		if h.Len() < k {
			heap.Push(h, seqScore{Seq: seq, Score: score})
		} else if score > (*h)[0].Score {
			(*h)[0] = seqScore{Seq: seq, Score: score}
			heap.Fix(h, 0)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	rows.Close()

	if h.Len() == 0 {
		return nil, nil
	}

	// Phase 2: fetch full rows only for the winners.
	winners := make([]seqScore, h.Len())
	copy(winners, *h)
	sort.Slice(winners, func(i, j int) bool {
		if winners[i].Score != winners[j].Score {
			return winners[i].Score > winners[j].Score
		}
		return winners[i].Seq < winners[j].Seq
	})

	args := make([]any, len(winners))
	for i, w := range winners {
		args[i] = w.Seq
	}
	fullRows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, source, content FROM chunks WHERE seq IN (?`+strings.Repeat(",?", len(winners)-1)+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("fetching top-k records: %w", err)
	}
	defer fullRows.Close()

	bySeq := make(map[int64]Chunk, len(winners))
	for fullRows.Next() {
		var seq int64
		var c Chunk
		if err := fullRows.Scan(&seq, &c.ID, &c.Source, &c.Content); err != nil {
			return nil, fmt.Errorf("scanning full record: %w", err)
		}
		bySeq[seq] = c
	}
	if err := fullRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating full records: %w", err)
	}

	results := make([]ScoredChunk, 0, len(winners))
	for _, w := range winners {
		if c, ok := bySeq[w.Seq]; ok {
			results = append(results, ScoredChunk{Chunk: c, Score: w.Score})
		}
	}
	return results, nil
}

// Count returns the number of stored chunks.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, ErrIndexClosed
	}

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count)
	return count, err
}

// Reset closes the database, deletes the whole persist directory and
// recreates an empty index in its place.
func (s *SQLiteIndex) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("closing database: %w", err)
		}
		s.db = nil
	}
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("removing persist directory: %w", err)
	}
	slog.Info("persist directory removed for rebuild", "dir", s.dir)

	return s.open()
}

// Close releases the database handle.
func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32sInto decodes little-endian bytes into buf, growing it if needed.
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

// norm returns the L2 norm of a vector.
func norm(v []float32) float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return float32(math.Sqrt(sum))
}

// cosine computes dot(a,b) / (aNorm * |b|). aNorm is the precomputed norm of a.
func cosine(a, b []float32, aNorm float32) float32 {
	var dot, bNormSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		bNormSq += float64(b[i]) * float64(b[i])
	}
	bNorm := math.Sqrt(bNormSq)
	if bNorm == 0 {
		return 0
	}
	return float32(dot / (float64(aNorm) * bNorm))
}

// seqScoreHeap is a min-heap of candidates. Among equal scores the later row
// sorts first so it is evicted before an earlier one.
type seqScoreHeap []seqScore

func (h seqScoreHeap) Len() int { return len(h) }
func (h seqScoreHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].Seq > h[j].Seq
}
func (h seqScoreHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *seqScoreHeap) Push(x any)   { *h = append(*h, x.(seqScore)) }
func (h *seqScoreHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
