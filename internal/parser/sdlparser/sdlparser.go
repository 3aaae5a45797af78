package sdlparser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/0x5457/gql-index/internal/errs"
	"github.com/0x5457/gql-index/internal/models"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// SourceName labels parse errors.
const SourceName = "schema.graphql"

type Parser struct{}

func New() *Parser { return &Parser{} }

// Flatten parses SDL and returns every field of every object type, with
// types and fields sorted by name. Interfaces, unions, enums, input types
// and introspection types are skipped.
func (p *Parser) Flatten(schemaText string) (*models.FlatSchema, error) {
	schema, err := Load(schemaText)
	if err != nil {
		return nil, err
	}
	return flatten(schema), nil
}

// Load parses and validates SDL.
func Load(schemaText string) (*ast.Schema, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: SourceName, Input: schemaText})
	if err != nil {
		return nil, errs.Wrap(errs.ErrParse, "", "", err)
	}
	return schema, nil
}

func flatten(schema *ast.Schema) *models.FlatSchema {
	flat := &models.FlatSchema{QueryType: models.DefaultQueryType}
	if schema.Query != nil {
		flat.QueryType = schema.Query.Name
	}

	names := make([]string, 0, len(schema.Types))
	for name := range schema.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := schema.Types[name]
		if def.BuiltIn || isMeta(name) {
			continue
		}
		switch def.Kind {
		case ast.Scalar, ast.Enum:
			flat.LeafTypes = append(flat.LeafTypes, name)
		case ast.Object:
			flat.Fields = append(flat.Fields, objectFields(def)...)
		}
	}
	return flat
}

func objectFields(def *ast.Definition) []models.FieldDescriptor {
	fields := make([]*ast.FieldDefinition, 0, len(def.Fields))
	for _, f := range def.Fields {
		if isMeta(f.Name) {
			continue
		}
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

	out := make([]models.FieldDescriptor, 0, len(fields))
	for _, f := range fields {
		fd := models.FieldDescriptor{
			TypeName:    def.Name,
			FieldName:   f.Name,
			ReturnType:  f.Type.String(),
			Description: strings.TrimSpace(f.Description),
		}
		for _, a := range f.Arguments {
			fd.Args = append(fd.Args, models.Argument{Name: a.Name, Type: a.Type.String()})
		}
		fd.Summary = Summary(fd)
		out = append(out, fd)
	}
	return out
}

// Signature renders "Type.field(arg: T, ...) -> R", without parentheses
// when the field has no arguments.
func Signature(fd models.FieldDescriptor) string {
	var b strings.Builder
	b.WriteString(fd.TypeName)
	b.WriteByte('.')
	b.WriteString(fd.FieldName)
	if len(fd.Args) > 0 {
		b.WriteByte('(')
		for i, a := range fd.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", a.Name, a.Type)
		}
		b.WriteByte(')')
	}
	b.WriteString(" -> ")
	b.WriteString(fd.ReturnType)
	return b.String()
}

// Summary is the single-line text that gets embedded: the signature plus
// the field description when there is one.
func Summary(fd models.FieldDescriptor) string {
	sig := Signature(fd)
	if fd.Description == "" {
		return sig
	}
	return sig + " | desc: " + strings.Join(strings.Fields(fd.Description), " ")
}

func isMeta(name string) bool { return strings.HasPrefix(name, "__") }
