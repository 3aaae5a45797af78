package sqlvec

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/0x5457/gql-index/internal/errs"
	"github.com/0x5457/gql-index/internal/models"
	"github.com/0x5457/gql-index/internal/storage"
	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

// Store keeps vectors in a sqlite-vec vec0 virtual table next to the
// metadata document. The vec0 table is recreated on every write because its
// dimension is fixed at creation.
type Store struct {
	db   *sql.DB
	path string
}

var _ storage.Backend = (*Store)(nil)

func New(path string) (*Store, error) {
	// enable sqlite-vec for all future connections
	sqlite_vec.Auto()
	db, err := sql.Open("sqlite3", path)
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
	);`)
	return err
}

func (s *Store) Location() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// Version reports the loaded sqlite-vec extension version.
func (s *Store) Version() (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT vec_version()`).Scan(&v)
	return v, err
}

func (s *Store) Exists() bool {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM index_meta`).Scan(&n); err != nil || n != 1 {
		return false
	}
	var name string
	err := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='vec_fields'`).
		Scan(&name)
	return err == nil
}

func (s *Store) Read() (*models.IndexMetadata, models.VectorBlock, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var doc string
	if err := tx.QueryRow(`SELECT doc FROM index_meta WHERE id = 1`).Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, errs.Wrap(errs.ErrIndexNotFound, s.path, "", err)
		}
		return nil, nil, errs.Wrap(errs.ErrCorruptIndex, s.path, "", err)
	}
	var meta models.IndexMetadata
	if err := json.Unmarshal([]byte(doc), &meta); err != nil {
		return nil, nil, errs.New(errs.ErrCorruptIndex, s.path, "", "invalid metadata JSON: %w", err)
	}

	// vec0 rowids are 1-based
	rows, err := tx.Query(`SELECT rowid, embedding FROM vec_fields ORDER BY rowid`)
	if err != nil {
		return nil, nil, errs.Wrap(errs.ErrCorruptIndex, s.path, "", err)
	}
	defer func() { _ = rows.Close() }()
	var vectors models.VectorBlock
	for rows.Next() {
		var rid int64
		var blob []byte
		if err := rows.Scan(&rid, &blob); err != nil {
			return nil, nil, errs.Wrap(errs.ErrCorruptIndex, s.path, "", err)
		}
		if rid != int64(len(vectors)+1) {
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
	if err := storage.Validate(s.path, &meta, vectors); err != nil {
		return nil, nil, err
	}
	return &meta, vectors, nil
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
	dim := out.Dim
	if dim == 0 {
		dim = 1 // vec0 needs a positive width even for an empty index
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DROP TABLE IF EXISTS vec_fields`); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf(`CREATE VIRTUAL TABLE vec_fields USING vec0(
		embedding float32[%d]
	)`, dim)); err != nil {
		_ = tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO vec_fields(rowid, embedding) VALUES(?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() { _ = stmt.Close() }()
	for i, v := range vectors {
		blob, err := sqlite_vec.SerializeFloat32(v)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := stmt.Exec(i+1, blob); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO index_meta(id, doc) VALUES(1, ?)`, string(doc)); err != nil {
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
