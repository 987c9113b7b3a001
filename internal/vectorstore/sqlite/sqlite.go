package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"regexp"

	_ "modernc.org/sqlite"

	"ragchat/internal/domain"
	"ragchat/internal/vectorstore"
)

// Store is a file-backed vector store. Each logical table is one SQL
// table of (pos, id, content, title, embedding) rows plus an entry in a
// side table recording its embedding dimensionality. Search scans the
// table and ranks rows in-process.
type Store struct {
	db *sql.DB
}

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Open opens (creating if needed) the database file at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &domain.StoreError{Op: "open", Err: err}
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS vector_tables (
		name TEXT PRIMARY KEY,
		dims INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, &domain.StoreError{Op: "init", Err: err}
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// CreateOrReplace drops any existing table of the same name and writes
// the records in order. The whole rewrite happens in one transaction so
// a failed re-index never leaves a half-replaced table behind.
func (s *Store) CreateOrReplace(ctx context.Context, table string, records []vectorstore.Record, schema vectorstore.Schema) error {
	if !tableNameRe.MatchString(table) {
		return &domain.StoreError{Op: "create", Err: fmt.Errorf("invalid table name %q", table)}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StoreError{Op: "create", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %q`, table)); err != nil {
		return &domain.StoreError{Op: "create", Err: err}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE %q (
		pos INTEGER PRIMARY KEY,
		id TEXT NOT NULL,
		content TEXT NOT NULL,
		title TEXT NOT NULL,
		embedding BLOB NOT NULL
	)`, table)); err != nil {
		return &domain.StoreError{Op: "create", Err: err}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO vector_tables (name, dims) VALUES (?, ?)`,
		table, schema.Dims); err != nil {
		return &domain.StoreError{Op: "create", Err: err}
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %q (pos, id, content, title, embedding) VALUES (?, ?, ?, ?, ?)`, table))
	if err != nil {
		return &domain.StoreError{Op: "insert", Err: err}
	}
	defer stmt.Close()

	for pos, r := range records {
		if len(r.Embedding) != schema.Dims {
			return fmt.Errorf("%w: row %d has %d components, schema declares %d",
				domain.ErrDimensionMismatch, pos, len(r.Embedding), schema.Dims)
		}
		if _, err := stmt.ExecContext(ctx, pos, r.ID, r.Content, r.Title, encodeVector(r.Embedding)); err != nil {
			return &domain.StoreError{Op: "insert", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StoreError{Op: "create", Err: err}
	}
	return nil
}

// Search returns up to limit row contents nearest to query by Euclidean
// distance, nearest first, ties in insertion order.
func (s *Store) Search(ctx context.Context, table string, query []float32, limit int) ([]domain.RetrievalResult, error) {
	if !tableNameRe.MatchString(table) {
		return nil, &domain.StoreError{Op: "search", Err: fmt.Errorf("invalid table name %q", table)}
	}

	var dims int
	err := s.db.QueryRowContext(ctx, `SELECT dims FROM vector_tables WHERE name = ?`, table).Scan(&dims)
	if err == sql.ErrNoRows {
		return nil, &domain.StoreError{Op: "search", Err: fmt.Errorf("table %q does not exist", table)}
	}
	if err != nil {
		return nil, &domain.StoreError{Op: "search", Err: err}
	}
	if len(query) != dims {
		return nil, fmt.Errorf("%w: query has %d components, table %q declares %d",
			domain.ErrDimensionMismatch, len(query), table, dims)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT content, embedding FROM %q ORDER BY pos`, table))
	if err != nil {
		return nil, &domain.StoreError{Op: "search", Err: err}
	}
	defer rows.Close()

	var records []vectorstore.Record
	for rows.Next() {
		var content string
		var blob []byte
		if err := rows.Scan(&content, &blob); err != nil {
			return nil, &domain.StoreError{Op: "search", Err: err}
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, &domain.StoreError{Op: "search", Err: err}
		}
		records = append(records, vectorstore.Record{Content: content, Embedding: vec})
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "search", Err: err}
	}

	return vectorstore.RankNearest(records, query, limit), nil
}

// encodeVector packs a vector as little-endian float32 words.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}
