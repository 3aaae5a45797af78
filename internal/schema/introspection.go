package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/0x5457/gql-index/internal/logging"
	"github.com/0x5457/gql-index/internal/models"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"go.uber.org/zap"
)

// IntrospectionQuery is the standard introspection query with descriptions.
const IntrospectionQuery = `query IntrospectionQuery {
  __schema {
    queryType { name }
    mutationType { name }
    subscriptionType { name }
    types { ...FullType }
  }
}

fragment FullType on __Type {
  kind
  name
  description
  fields(includeDeprecated: true) {
    name
    description
    args { ...InputValue }
    type { ...TypeRef }
    isDeprecated
    deprecationReason
  }
  inputFields { ...InputValue }
  interfaces { ...TypeRef }
  enumValues(includeDeprecated: true) {
    name
    description
    isDeprecated
    deprecationReason
  }
  possibleTypes { ...TypeRef }
}

fragment InputValue on __InputValue {
  name
  description
  type { ...TypeRef }
  defaultValue
}

fragment TypeRef on __Type {
  kind
  name
  ofType {
    kind
    name
    ofType {
      kind
      name
      ofType {
        kind
        name
        ofType {
          kind
          name
          ofType {
            kind
            name
            ofType {
              kind
              name
              ofType { kind name }
            }
          }
        }
      }
    }
  }
}
`

// IntrospectionProvider introspects a live endpoint and renders the result
// as SDL. The text is fetched once and reused until Refresh.
type IntrospectionProvider struct {
	endpoint *Endpoint
	logger   *zap.Logger

	mu   sync.Mutex
	text string
}

func NewIntrospectionProvider(endpoint *Endpoint, logger *zap.Logger) *IntrospectionProvider {
	return &IntrospectionProvider{endpoint: endpoint, logger: logging.OrNop(logger)}
}

func (p *IntrospectionProvider) Source() models.SchemaSource { return p.endpoint.Source() }

func (p *IntrospectionProvider) Refresh() {
	p.mu.Lock()
	p.text = ""
	p.mu.Unlock()
}

func (p *IntrospectionProvider) Fetch(ctx context.Context) (string, models.SchemaSource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.text != "" {
		return p.text, p.Source(), nil
	}

	start := time.Now()
	resp, err := p.endpoint.Post(ctx, &Request{Query: IntrospectionQuery, OperationName: "IntrospectionQuery"})
	if err != nil {
		return "", models.SchemaSource{}, fmt.Errorf("introspection failed: %w", err)
	}
	if len(resp.Errors) > 0 {
		return "", models.SchemaSource{}, fmt.Errorf("introspection failed: %s", joinRaw(resp.Errors))
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return "", models.SchemaSource{}, fmt.Errorf("introspection response from %s has no data", p.endpoint.URL())
	}
	var data struct {
		Schema *introSchema `json:"__schema"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return "", models.SchemaSource{}, fmt.Errorf("invalid introspection data: %w", err)
	}
	if data.Schema == nil {
		return "", models.SchemaSource{}, fmt.Errorf("introspection response from %s has no __schema", p.endpoint.URL())
	}
	text, err := introspectionToSDL(data.Schema)
	if err != nil {
		return "", models.SchemaSource{}, err
	}
	p.text = text
	p.logger.Info("schema introspected",
		zap.String("url", p.endpoint.URL()),
		zap.Int("types", len(data.Schema.Types)),
		zap.Duration("took", time.Since(start)))
	return text, p.Source(), nil
}

func joinRaw(msgs []json.RawMessage) string {
	parts := make([]string, len(msgs))
	for i, m := range msgs {
		parts[i] = string(m)
	}
	return strings.Join(parts, "; ")
}

type introSchema struct {
	QueryType        *introNamed `json:"queryType"`
	MutationType     *introNamed `json:"mutationType"`
	SubscriptionType *introNamed `json:"subscriptionType"`
	Types            []introType `json:"types"`
}

type introNamed struct {
	Name string `json:"name"`
}

type introType struct {
	Kind          string            `json:"kind"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Fields        []introField      `json:"fields"`
	InputFields   []introInputValue `json:"inputFields"`
	Interfaces    []introTypeRef    `json:"interfaces"`
	EnumValues    []introEnumValue  `json:"enumValues"`
	PossibleTypes []introTypeRef    `json:"possibleTypes"`
}

type introField struct {
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	Args              []introInputValue `json:"args"`
	Type              introTypeRef      `json:"type"`
	IsDeprecated      bool              `json:"isDeprecated"`
	DeprecationReason *string           `json:"deprecationReason"`
}

type introInputValue struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Type         introTypeRef `json:"type"`
	DefaultValue *string      `json:"defaultValue"`
}

type introEnumValue struct {
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	IsDeprecated      bool    `json:"isDeprecated"`
	DeprecationReason *string `json:"deprecationReason"`
}

type introTypeRef struct {
	Kind   string        `json:"kind"`
	Name   string        `json:"name"`
	OfType *introTypeRef `json:"ofType"`
}

var builtinScalars = map[string]bool{"String": true, "Int": true, "Float": true, "Boolean": true, "ID": true}

// introspectionToSDL renders an introspected schema as SDL. Built-in scalars
// and introspection types are left out; definitions are sorted by name.
func introspectionToSDL(s *introSchema) (string, error) {
	doc := &ast.SchemaDocument{}
	if ops := rootOperations(s); len(ops) > 0 {
		doc.Schema = ast.SchemaDefinitionList{{OperationTypes: ops}}
	}

	types := make([]introType, 0, len(s.Types))
	for _, t := range s.Types {
		if strings.HasPrefix(t.Name, "__") || builtinScalars[t.Name] {
			continue
		}
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })

	for _, t := range types {
		def, err := definition(t)
		if err != nil {
			return "", err
		}
		doc.Definitions = append(doc.Definitions, def)
	}

	var b strings.Builder
	formatter.NewFormatter(&b).FormatSchemaDocument(doc)
	return b.String(), nil
}

// rootOperations returns a schema block only when a root type has a
// non-default name.
func rootOperations(s *introSchema) ast.OperationTypeDefinitionList {
	roots := []struct {
		op    ast.Operation
		typ   *introNamed
		usual string
	}{
		{ast.Query, s.QueryType, "Query"},
		{ast.Mutation, s.MutationType, "Mutation"},
		{ast.Subscription, s.SubscriptionType, "Subscription"},
	}
	custom := false
	var ops ast.OperationTypeDefinitionList
	for _, r := range roots {
		if r.typ == nil || r.typ.Name == "" {
			continue
		}
		if r.typ.Name != r.usual {
			custom = true
		}
		ops = append(ops, &ast.OperationTypeDefinition{Operation: r.op, Type: r.typ.Name})
	}
	if !custom {
		return nil
	}
	return ops
}

func definition(t introType) (*ast.Definition, error) {
	def := &ast.Definition{
		Kind:        ast.DefinitionKind(t.Kind),
		Name:        t.Name,
		Description: t.Description,
	}
	switch def.Kind {
	case ast.Scalar:
	case ast.Object, ast.Interface:
		for _, ref := range t.Interfaces {
			def.Interfaces = append(def.Interfaces, ref.Name)
		}
		for _, f := range t.Fields {
			fd, err := fieldDefinition(f)
			if err != nil {
				return nil, fmt.Errorf("type %s: %w", t.Name, err)
			}
			def.Fields = append(def.Fields, fd)
		}
	case ast.InputObject:
		for _, in := range t.InputFields {
			typ, err := in.Type.astType()
			if err != nil {
				return nil, fmt.Errorf("input %s.%s: %w", t.Name, in.Name, err)
			}
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Name:         in.Name,
				Description:  in.Description,
				Type:         typ,
				DefaultValue: literal(in.DefaultValue),
			})
		}
	case ast.Enum:
		for _, v := range t.EnumValues {
			def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{
				Name:        v.Name,
				Description: v.Description,
				Directives:  deprecated(v.IsDeprecated, v.DeprecationReason),
			})
		}
	case ast.Union:
		for _, ref := range t.PossibleTypes {
			def.Types = append(def.Types, ref.Name)
		}
	default:
		return nil, fmt.Errorf("type %s has unknown kind %q", t.Name, t.Kind)
	}
	return def, nil
}

func fieldDefinition(f introField) (*ast.FieldDefinition, error) {
	typ, err := f.Type.astType()
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.Name, err)
	}
	fd := &ast.FieldDefinition{
		Name:        f.Name,
		Description: f.Description,
		Type:        typ,
		Directives:  deprecated(f.IsDeprecated, f.DeprecationReason),
	}
	for _, a := range f.Args {
		at, err := a.Type.astType()
		if err != nil {
			return nil, fmt.Errorf("field %s argument %s: %w", f.Name, a.Name, err)
		}
		fd.Arguments = append(fd.Arguments, &ast.ArgumentDefinition{
			Name:         a.Name,
			Description:  a.Description,
			Type:         at,
			DefaultValue: literal(a.DefaultValue),
		})
	}
	return fd, nil
}

func (r *introTypeRef) astType() (*ast.Type, error) {
	switch r.Kind {
	case "NON_NULL":
		if r.OfType == nil {
			return nil, fmt.Errorf("NON_NULL type without ofType")
		}
		inner, err := r.OfType.astType()
		if err != nil {
			return nil, err
		}
		inner.NonNull = true
		return inner, nil
	case "LIST":
		if r.OfType == nil {
			return nil, fmt.Errorf("LIST type without ofType")
		}
		elem, err := r.OfType.astType()
		if err != nil {
			return nil, err
		}
		return &ast.Type{Elem: elem}, nil
	default:
		if r.Name == "" {
			return nil, fmt.Errorf("unnamed %s type reference", r.Kind)
		}
		return &ast.Type{NamedType: r.Name}, nil
	}
}

// literal wraps a default value as reported by introspection, which is
// already printed GraphQL. EnumValue values are written out verbatim.
func literal(v *string) *ast.Value {
	if v == nil {
		return nil
	}
	return &ast.Value{Kind: ast.EnumValue, Raw: *v}
}

func deprecated(is bool, reason *string) ast.DirectiveList {
	if !is {
		return nil
	}
	d := &ast.Directive{Name: "deprecated"}
	if reason != nil && *reason != "" {
		d.Arguments = ast.ArgumentList{{
			Name:  "reason",
			Value: &ast.Value{Kind: ast.StringValue, Raw: *reason},
		}}
	}
	return ast.DirectiveList{d}
}
