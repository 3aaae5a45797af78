// Package synth drafts GraphQL query text for search hits. Templates are
// starting points for an agent to refine; they are not validated.
package synth

import (
	"sort"
	"strings"
	"unicode"

	"github.com/0x5457/gql-index/internal/models"
)

// Budgets for root-field templates and non-root fragments.
const (
	RootDepth      = 2
	RootFanout     = 6
	FragmentDepth  = 1
	FragmentFanout = 5
	minFanout      = 2
)

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "to": true, "for": true,
	"with": true, "and": true, "or": true, "in": true, "on": true, "by": true,
	"from": true, "about": true, "show": true, "list": true, "all": true,
	"get": true, "fetch": true, "find": true,
}

var builtinScalars = map[string]bool{"String": true, "Int": true, "Float": true, "Boolean": true, "ID": true}

// Tokenize lowercases text, splits it into letter and digit runs and drops
// stopwords. Repeated tokens are kept.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := words[:0]
	for _, w := range words {
		if !stopwords[w] {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// BaseType strips list and non-null wrappers: "[Product!]!" -> "Product".
func BaseType(t string) string {
	return strings.Trim(t, "[]! ")
}

// Catalog indexes the stored field descriptors by owning type.
type Catalog struct {
	rootType string
	leaf     map[string]bool
	items    []models.FieldDescriptor
	byType   map[string][]models.FieldDescriptor
}

func NewCatalog(meta *models.IndexMetadata) *Catalog {
	c := &Catalog{
		rootType: meta.RootType(),
		leaf:     make(map[string]bool, len(meta.LeafTypes)),
		items:    meta.Items,
		byType:   make(map[string][]models.FieldDescriptor),
	}
	for _, name := range meta.LeafTypes {
		c.leaf[name] = true
	}
	for _, fd := range meta.Items {
		c.byType[fd.TypeName] = append(c.byType[fd.TypeName], fd)
	}
	return c
}

func (c *Catalog) RootType() string { return c.rootType }

// IsScalar reports whether a type is selected without a sub-selection.
func (c *Catalog) IsScalar(typeName string) bool {
	return builtinScalars[typeName] || c.leaf[typeName]
}

// Field returns the descriptor for a hit, by stored position when it is in
// range and by name otherwise.
func (c *Catalog) Field(hit models.SearchHit) (models.FieldDescriptor, bool) {
	if hit.Index >= 0 && hit.Index < len(c.items) {
		fd := c.items[hit.Index]
		if fd.TypeName == hit.TypeName && fd.FieldName == hit.FieldName {
			return fd, true
		}
	}
	for _, fd := range c.byType[hit.TypeName] {
		if fd.FieldName == hit.FieldName {
			return fd, true
		}
	}
	return models.FieldDescriptor{}, false
}

type candidate struct {
	fd     models.FieldDescriptor
	base   string
	scalar bool
	score  int
}

func (c *Catalog) rank(typeName string, tokens []string) []candidate {
	fields := c.byType[typeName]
	cands := make([]candidate, len(fields))
	for i, fd := range fields {
		base := BaseType(fd.ReturnType)
		cand := candidate{fd: fd, base: base, scalar: c.IsScalar(base)}
		cand.score = tokenScore(tokens, fd.FieldName, fd.Summary)
		if fd.FieldName == "id" || fd.FieldName == "name" {
			cand.score += 2
		}
		if cand.scalar {
			cand.score++
		}
		cands[i] = cand
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.scalar != b.scalar {
			return a.scalar
		}
		return a.fd.FieldName < b.fd.FieldName
	})
	return cands
}

// tokenScore counts tokens that occur anywhere in the field name or summary.
func tokenScore(tokens []string, name, summary string) int {
	haystack := strings.ToLower(name + " " + summary)
	score := 0
	for _, t := range tokens {
		if strings.Contains(haystack, t) {
			score++
		}
	}
	return score
}

// SelectionSet renders "{ a b c { d } }" for typeName. Object fields recurse
// with one less depth and half the fanout; they are dropped when the
// recursion produces nothing. ok is false when nothing could be selected.
func (c *Catalog) SelectionSet(typeName string, tokens []string, depth, fanout int) (string, bool) {
	var parts []string
	for _, cand := range c.rank(typeName, tokens) {
		if len(parts) >= fanout {
			break
		}
		if cand.scalar {
			parts = append(parts, cand.fd.FieldName)
			continue
		}
		if depth <= 0 {
			continue
		}
		nested, ok := c.SelectionSet(cand.base, tokens, depth-1, max(minFanout, fanout/2))
		if ok {
			parts = append(parts, cand.fd.FieldName+" "+nested)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return "{ " + strings.Join(parts, " ") + " }", true
}

// QueryTemplate renders a full operation for a root field, with argument
// placeholders of the form name: <Type>.
func (c *Catalog) QueryTemplate(fd models.FieldDescriptor, tokens []string) string {
	var b strings.Builder
	b.WriteString("query { ")
	b.WriteString(fd.FieldName)
	b.WriteString(formatArgs(fd.Args))
	if base := BaseType(fd.ReturnType); !c.IsScalar(base) {
		if sel, ok := c.SelectionSet(base, tokens, RootDepth, RootFanout); ok {
			b.WriteByte(' ')
			b.WriteString(sel)
		}
	}
	b.WriteString(" }")
	return b.String()
}

// Fragment renders "field { ... }" for a non-root field returning an
// object. ok is false for scalar fields and empty selections.
func (c *Catalog) Fragment(fd models.FieldDescriptor, tokens []string) (string, bool) {
	base := BaseType(fd.ReturnType)
	if c.IsScalar(base) {
		return "", false
	}
	sel, ok := c.SelectionSet(base, tokens, FragmentDepth, FragmentFanout)
	if !ok {
		return "", false
	}
	return fd.FieldName + " " + sel, true
}

func formatArgs(args []models.Argument) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Name + ": <" + a.Type + ">"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Annotate turns a raw hit into an agent-facing result: root fields get a
// query template, other object-valued fields a selection hint.
func Annotate(hit models.SearchHit, c *Catalog, tokens []string, schemaSHA string) models.FieldHit {
	out := models.FieldHit{
		Type:      hit.TypeName,
		Field:     hit.FieldName,
		Summary:   hit.Summary,
		Score:     hit.Score,
		SchemaSHA: schemaSHA,
	}
	fd, ok := c.Field(hit)
	if !ok {
		return out
	}
	if fd.TypeName == c.rootType {
		out.QueryTemplate = c.QueryTemplate(fd, tokens)
	} else if frag, ok := c.Fragment(fd, tokens); ok {
		out.SelectionHint = frag
	}
	return out
}
