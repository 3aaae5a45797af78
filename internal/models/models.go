package models

import (
	"path/filepath"
	"slices"
	"sort"
)

// Argument is one declared argument of a schema field.
type Argument struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// FieldDescriptor describes a single field of an object type in a schema.
// Type strings keep their list and non-null wrappers, e.g. "[Product!]!".
type FieldDescriptor struct {
	TypeName    string     `json:"type_name"`
	FieldName   string     `json:"field_name"`
	Args        []Argument `json:"args,omitempty"`
	ReturnType  string     `json:"return_type"`
	Description string     `json:"description,omitempty"`
	Summary     string     `json:"summary"`
}

type SourceKind string

const (
	SourceFile     SourceKind = "file"
	SourceEndpoint SourceKind = "endpoint"
)

// SchemaSource identifies where schema text came from. Only header names are
// kept for endpoint sources so that secrets never reach disk.
type SchemaSource struct {
	Kind    SourceKind `json:"kind"`
	Path    string     `json:"path,omitempty"`
	URL     string     `json:"url,omitempty"`
	Headers []string   `json:"headers,omitempty"`
}

// FileSource returns a file source with the path resolved to an absolute path.
func FileSource(path string) SchemaSource {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return SchemaSource{Kind: SourceFile, Path: path}
}

// EndpointSource returns an endpoint source holding the sorted, de-duplicated
// header names.
func EndpointSource(url string, headerNames []string) SchemaSource {
	names := slices.Clone(headerNames)
	sort.Strings(names)
	names = slices.Compact(names)
	if len(names) == 0 {
		names = nil
	}
	return SchemaSource{Kind: SourceEndpoint, URL: url, Headers: names}
}

func (s SchemaSource) Equal(o SchemaSource) bool {
	if s.Kind != o.Kind {
		return false
	}
	switch s.Kind {
	case SourceFile:
		return s.Path == o.Path
	case SourceEndpoint:
		return s.URL == o.URL && slices.Equal(s.Headers, o.Headers)
	default:
		return s.Path == o.Path && s.URL == o.URL && slices.Equal(s.Headers, o.Headers)
	}
}

func (s SchemaSource) String() string {
	switch s.Kind {
	case SourceFile:
		return s.Path
	case SourceEndpoint:
		return s.URL
	default:
		return "unknown source"
	}
}

// FlatSchema is the flattened form of a schema: the ordered field list plus
// the facts the template synthesizer needs about the schema.
type FlatSchema struct {
	QueryType string            `json:"query_type"`
	LeafTypes []string          `json:"leaf_types,omitempty"`
	Fields    []FieldDescriptor `json:"fields"`
}

const DefaultQueryType = "Query"

// IndexMetadata is persisted next to the vector block. Items are positionally
// aligned with the vector rows.
type IndexMetadata struct {
	EmbeddingModel string            `json:"embedding_model"`
	SchemaSHA      string            `json:"schema_sha"`
	SchemaSource   *SchemaSource     `json:"schema_source,omitempty"`
	QueryType      string            `json:"query_type,omitempty"`
	LeafTypes      []string          `json:"leaf_types,omitempty"`
	Items          []FieldDescriptor `json:"items"`
	Count          int               `json:"count"`
	Dim            int               `json:"dim"`
	// VectorFile names the vector artifact paired with this document by the
	// file backend. Other backends leave it empty.
	VectorFile string `json:"vector_file,omitempty"`
}

// RootType returns the designated query type, defaulting to "Query" for
// metadata written without one.
func (m *IndexMetadata) RootType() string {
	if m.QueryType == "" {
		return DefaultQueryType
	}
	return m.QueryType
}

// VectorBlock is a row-major matrix with one unit-length row per item.
type VectorBlock [][]float32

func (v VectorBlock) Rows() int { return len(v) }

// Dim returns the column count, or 0 for an empty block.
func (v VectorBlock) Dim() int {
	if len(v) == 0 {
		return 0
	}
	return len(v[0])
}

// SearchHit is a raw nearest-neighbour result.
type SearchHit struct {
	TypeName  string  `json:"type"`
	FieldName string  `json:"field"`
	Summary   string  `json:"summary"`
	Score     float32 `json:"score"`
	Index     int     `json:"-"`
}

// FieldHit is a search result annotated for agents.
type FieldHit struct {
	Type          string  `json:"type"`
	Field         string  `json:"field"`
	Summary       string  `json:"summary"`
	Score         float32 `json:"score"`
	SchemaSHA     string  `json:"schema_sha,omitempty"`
	QueryTemplate string  `json:"query_template,omitempty"`
	SelectionHint string  `json:"selection_hint,omitempty"`
}

// Rebuild reasons reported by the index lifecycle.
type RebuildReason string

const (
	ReasonNone          RebuildReason = ""
	ReasonForced        RebuildReason = "forced"
	ReasonMissing       RebuildReason = "missing"
	ReasonUnreadable    RebuildReason = "unreadable"
	ReasonSchemaChanged RebuildReason = "schema changed"
	ReasonSourceChanged RebuildReason = "source changed"
)
