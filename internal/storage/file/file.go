package file

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/0x5457/gql-index/internal/errs"
	"github.com/0x5457/gql-index/internal/models"
	"github.com/0x5457/gql-index/internal/storage"
	"github.com/google/uuid"
)

const (
	MetadataFile = "metadata.json"
	vectorPrefix = "vectors-"
	vectorSuffix = ".f32"
)

// Store keeps an index as two files in a directory: metadata.json and a
// little-endian float32 vector file whose name is recorded in the metadata.
// A write lays down a fresh vector file first and then renames a new
// metadata document over the old one, which is the commit point.
type Store struct {
	dir string
}

var _ storage.Backend = (*Store)(nil)

func New(dir string) *Store { return &Store{dir: dir} }

func (s *Store) Location() string { return s.dir }

func (s *Store) Close() error { return nil }

func (s *Store) Exists() bool {
	meta, err := s.readMetadata()
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(s.dir, meta.VectorFile))
	return err == nil
}

func (s *Store) Read() (*models.IndexMetadata, models.VectorBlock, error) {
	meta, vectors, err := s.read()
	if errors.Is(err, fs.ErrNotExist) && !errors.Is(err, errs.ErrIndexNotFound) {
		// a concurrent writer may have replaced the pair between our two reads
		meta, vectors, err = s.read()
	}
	return meta, vectors, err
}

func (s *Store) read() (*models.IndexMetadata, models.VectorBlock, error) {
	meta, err := s.readMetadata()
	if err != nil {
		return nil, nil, err
	}
	path := filepath.Join(s.dir, meta.VectorFile)
	vectors, err := readVectors(path, len(meta.Items), meta.Dim)
	if err != nil {
		return nil, nil, errs.Wrap(errs.ErrCorruptIndex, s.dir, "", err)
	}
	if err := storage.Validate(s.dir, meta, vectors); err != nil {
		return nil, nil, err
	}
	return meta, vectors, nil
}

func (s *Store) readMetadata() (*models.IndexMetadata, error) {
	path := filepath.Join(s.dir, MetadataFile)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrIndexNotFound, s.dir, "", err)
		}
		return nil, errs.Wrap(errs.ErrCorruptIndex, s.dir, "", err)
	}
	var meta models.IndexMetadata
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, errs.New(errs.ErrCorruptIndex, s.dir, "", "invalid metadata JSON %s: %w", path, err)
	}
	if !validVectorName(meta.VectorFile) {
		return nil, errs.New(errs.ErrCorruptIndex, s.dir, "", "invalid vector file name %q", meta.VectorFile)
	}
	return &meta, nil
}

func (s *Store) Write(meta *models.IndexMetadata, vectors models.VectorBlock) error {
	out := *meta
	out.Count = len(out.Items)
	out.Dim = vectors.Dim()
	if err := storage.Validate(s.dir, &out, vectors); err != nil {
		return fmt.Errorf("refusing to write: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("cannot create index dir %s: %w", s.dir, err)
	}

	previous := ""
	if old, err := s.readMetadata(); err == nil {
		previous = old.VectorFile
	}

	out.VectorFile = vectorPrefix + uuid.NewString() + vectorSuffix
	vecPath := filepath.Join(s.dir, out.VectorFile)
	if err := writeFileSync(vecPath, func(w io.Writer) error {
		for _, row := range vectors {
			if err := binary.Write(w, binary.LittleEndian, row); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = os.Remove(vecPath)
		return fmt.Errorf("cannot write vectors: %w", err)
	}

	mb, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		_ = os.Remove(vecPath)
		return err
	}
	tmp := filepath.Join(s.dir, MetadataFile+".tmp-"+uuid.NewString())
	if err := writeFileSync(tmp, func(w io.Writer) error {
		_, err := w.Write(mb)
		return err
	}); err != nil {
		_ = os.Remove(tmp)
		_ = os.Remove(vecPath)
		return fmt.Errorf("cannot write metadata: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, MetadataFile)); err != nil {
		_ = os.Remove(tmp)
		_ = os.Remove(vecPath)
		return fmt.Errorf("cannot commit metadata: %w", err)
	}

	meta.Count = out.Count
	meta.Dim = out.Dim
	meta.VectorFile = out.VectorFile
	s.removeStale(out.VectorFile, previous)
	return nil
}

// removeStale deletes vector files other than the live one. Failures leave
// garbage behind but never affect the committed index.
func (s *Store) removeStale(live, previous string) {
	if previous != "" && previous != live {
		_ = os.Remove(filepath.Join(s.dir, previous))
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if name != live && validVectorName(name) {
			_ = os.Remove(filepath.Join(s.dir, name))
		}
	}
}

func validVectorName(name string) bool {
	return strings.HasPrefix(name, vectorPrefix) && strings.HasSuffix(name, vectorSuffix) &&
		filepath.Base(name) == name
}

func writeFileSync(path string, write func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readVectors(path string, rows, dim int) (models.VectorBlock, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open vector file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("cannot stat vector file %s: %w", path, err)
	}
	expected := int64(rows) * int64(dim) * 4
	if st.Size() != expected {
		return nil, fmt.Errorf("vector file size mismatch: got %d want %d (rows=%d dim=%d)",
			st.Size(), expected, rows, dim)
	}

	flat := make([]float32, rows*dim)
	if err := binary.Read(bufio.NewReader(f), binary.LittleEndian, flat); err != nil {
		return nil, fmt.Errorf("cannot read vectors from %s: %w", path, err)
	}
	block := make(models.VectorBlock, rows)
	for i := range block {
		block[i] = flat[i*dim : (i+1)*dim : (i+1)*dim]
	}
	return block, nil
}
