// Package errs defines the error kinds surfaced by the index and search
// pipeline. Callers match kinds with errors.Is.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrParse            = errors.New("schema parse error")
	ErrModelMismatch    = errors.New("embedding model mismatch")
	ErrIndexNotFound    = errors.New("index not found")
	ErrCorruptIndex     = errors.New("corrupt index")
	ErrEmbeddingBackend = errors.New("embedding backend error")
)

// IndexError attaches the data directory and schema source to a failure so
// that it can be acted on without further digging.
type IndexError struct {
	Kind    error
	DataDir string
	Source  string
	Err     error
}

func (e *IndexError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.DataDir != "" {
		fmt.Fprintf(&b, " (data dir %s", e.DataDir)
		if e.Source != "" {
			fmt.Fprintf(&b, ", source %s", e.Source)
		}
		b.WriteString(")")
	} else if e.Source != "" {
		fmt.Fprintf(&b, " (source %s)", e.Source)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *IndexError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap returns err classified as kind. A nil err yields nil. An err that is
// already an *IndexError of the same kind gets the missing context filled in
// instead of another layer.
func Wrap(kind error, dataDir, source string, err error) error {
	if err == nil {
		return nil
	}
	if ie, ok := err.(*IndexError); ok && ie.Kind == kind {
		out := *ie
		if out.DataDir == "" {
			out.DataDir = dataDir
		}
		if out.Source == "" {
			out.Source = source
		}
		return &out
	}
	return &IndexError{Kind: kind, DataDir: dataDir, Source: source, Err: err}
}

// New returns a classified error with a formatted cause.
func New(kind error, dataDir, source, format string, args ...any) error {
	return &IndexError{Kind: kind, DataDir: dataDir, Source: source, Err: fmt.Errorf(format, args...)}
}

// ModelMismatch reports an index persisted under a different embedding model.
func ModelMismatch(dataDir, stored, configured string) error {
	return New(ErrModelMismatch, dataDir, "",
		"index built with %q, store configured for %q", stored, configured)
}
