package storage

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/0x5457/gql-index/internal/errs"
	"github.com/0x5457/gql-index/internal/models"
	"github.com/gofrs/flock"
)

// Backend persists one index: the metadata document and the vector block.
// Write replaces any previous index as a single unit, so Read observes
// either the old pair or the new pair and never a mix.
type Backend interface {
	Exists() bool
	Read() (*models.IndexMetadata, models.VectorBlock, error)
	Write(meta *models.IndexMetadata, vectors models.VectorBlock) error
	// Location describes where the index lives, for error messages.
	Location() string
	Close() error
}

// Validate checks that metadata and vectors agree. Violations are reported
// as corrupt-index errors.
func Validate(location string, meta *models.IndexMetadata, vectors models.VectorBlock) error {
	if meta == nil {
		return errs.New(errs.ErrCorruptIndex, location, "", "missing metadata")
	}
	if len(meta.Items) != vectors.Rows() {
		return errs.New(errs.ErrCorruptIndex, location, "",
			"%d items but %d vector rows", len(meta.Items), vectors.Rows())
	}
	if meta.Count != 0 && meta.Count != len(meta.Items) {
		return errs.New(errs.ErrCorruptIndex, location, "",
			"count %d does not match %d items", meta.Count, len(meta.Items))
	}
	dim := vectors.Dim()
	if meta.Dim != 0 && vectors.Rows() > 0 && meta.Dim != dim {
		return errs.New(errs.ErrCorruptIndex, location, "", "dim %d, vectors have %d", meta.Dim, dim)
	}
	for i, row := range vectors {
		if len(row) != dim {
			return errs.New(errs.ErrCorruptIndex, location, "", "row %d has %d columns, expected %d", i, len(row), dim)
		}
	}
	return nil
}

// LockFile is the name of the rebuild lock inside a data directory.
const LockFile = ".index.lock"

// AcquireDirLock takes an exclusive cross-process lock on dir, polling until
// timeout. The returned func releases it.
func AcquireDirLock(dir string, timeout time.Duration) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return func() {}, fmt.Errorf("cannot create data dir %s: %w", dir, err)
	}
	lockPath := filepath.Join(dir, LockFile)
	l := flock.New(lockPath)
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return func() {}, fmt.Errorf("cannot acquire index lock: %w", err)
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return func() {}, fmt.Errorf("another rebuild is in progress (lock: %s)", lockPath)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// EncodeVector packs v as little-endian float32 bytes.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

// DecodeVector unpacks little-endian float32 bytes.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob size %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
