package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/0x5457/gql-index/internal/errs"
	"github.com/0x5457/gql-index/internal/models"
	"github.com/0x5457/gql-index/internal/storage"
	_ "modernc.org/sqlite"
)

// Store keeps the metadata document and vector rows in one SQLite database.
// Writes replace both inside a single transaction.
type Store struct {
	db   *sql.DB
	path string
}

var _ storage.Backend = (*Store)(nil)

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS index_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		doc TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS index_vectors (
		row INTEGER PRIMARY KEY,
		embedding BLOB NOT NULL
	);`)
	return err
}

func (s *Store) Location() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Exists() bool {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM index_meta`).Scan(&n); err != nil {
		return false
	}
	return n == 1
}

func (s *Store) Read() (*models.IndexMetadata, models.VectorBlock, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	meta, err := readMeta(tx, s.path)
	if err != nil {
		return nil, nil, err
	}

	rows, err := tx.Query(`SELECT row, embedding FROM index_vectors ORDER BY row`)
	if err != nil {
		return nil, nil, errs.Wrap(errs.ErrCorruptIndex, s.path, "", err)
	}
	defer func() { _ = rows.Close() }()
	var vectors models.VectorBlock
	for rows.Next() {
		var idx int
		var blob []byte
		if err := rows.Scan(&idx, &blob); err != nil {
			return nil, nil, errs.Wrap(errs.ErrCorruptIndex, s.path, "", err)
		}
		if idx != len(vectors) {
			return nil, nil, errs.New(errs.ErrCorruptIndex, s.path, "", "vector row %d missing", len(vectors))
		}
		v, err := storage.DecodeVector(blob)
		if err != nil {
			return nil, nil, errs.Wrap(errs.ErrCorruptIndex, s.path, "", err)
		}
		vectors = append(vectors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errs.Wrap(errs.ErrCorruptIndex, s.path, "", err)
	}
	if err := storage.Validate(s.path, meta, vectors); err != nil {
		return nil, nil, err
	}
	return meta, vectors, nil
}

func readMeta(tx *sql.Tx, location string) (*models.IndexMetadata, error) {
	var doc string
	if err := tx.QueryRow(`SELECT doc FROM index_meta WHERE id = 1`).Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.Wrap(errs.ErrIndexNotFound, location, "", err)
		}
		return nil, errs.Wrap(errs.ErrCorruptIndex, location, "", err)
	}
	var meta models.IndexMetadata
	if err := json.Unmarshal([]byte(doc), &meta); err != nil {
		return nil, errs.New(errs.ErrCorruptIndex, location, "", "invalid metadata JSON: %w", err)
	}
	return &meta, nil
}

func (s *Store) Write(meta *models.IndexMetadata, vectors models.VectorBlock) error {
	out := *meta
	out.Count = len(out.Items)
	out.Dim = vectors.Dim()
	out.VectorFile = ""
	if err := storage.Validate(s.path, &out, vectors); err != nil {
		return fmt.Errorf("refusing to write: %w", err)
	}
	doc, err := json.Marshal(&out)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM index_vectors; DELETE FROM index_meta;`); err != nil {
		_ = tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO index_vectors(row, embedding) VALUES(?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()
	for i, v := range vectors {
		if _, err := stmt.Exec(i, storage.EncodeVector(v)); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if _, err := tx.Exec(`INSERT INTO index_meta(id, doc) VALUES(1, ?)`, string(doc)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	meta.Count = out.Count
	meta.Dim = out.Dim
	return nil
}
