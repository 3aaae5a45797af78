// Package testutil holds schema fixtures and embedder doubles shared by
// package tests.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/0x5457/gql-index/internal/embeddings"
)

// CatalogSDL is a small shop schema with a root query type, nested objects,
// a custom scalar and an enum.
const CatalogSDL = `
scalar DateTime

enum Availability {
  IN_STOCK
  SOLD_OUT
}

type Query {
  "Look up a single product by its identifier."
  product(id: ID!): Product
  "List products, optionally filtered by category."
  products(categoryId: ID, first: Int = 10): [Product!]!
  category(id: ID!): Category
}

type Product {
  id: ID!
  name: String!
  "Current price in cents."
  price: Int
  availability: Availability!
  createdAt: DateTime
  category: Category
  reviews: [Review!]!
}

type Category {
  id: ID!
  name: String!
  products: [Product!]!
}

type Review {
  id: ID!
  rating: Int!
  body: String
  author: User
}

type User {
  id: ID!
  name: String!
}

interface Node {
  id: ID!
}

input ProductFilter {
  name: String
}
`

// ProductSDL is the minimal product/category schema.
const ProductSDL = `
type Query {
  product(id: ID!): Product
}

type Product {
  id: ID!
  name: String!
  category: Category
}

type Category {
  id: ID!
  name: String!
}
`

// CountingEmbedder wraps an embedder and counts batch calls so tests can
// observe how many rebuilds ran.
type CountingEmbedder struct {
	embeddings.Embedder
	batches atomic.Int64
	texts   atomic.Int64

	mu   sync.Mutex
	fail error
}

func NewCountingEmbedder(inner embeddings.Embedder) *CountingEmbedder {
	return &CountingEmbedder{Embedder: inner}
}

func (c *CountingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	fail := c.fail
	c.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	c.batches.Add(1)
	c.texts.Add(int64(len(texts)))
	return c.Embedder.EmbedTexts(ctx, texts)
}

// EmbedQuery is not counted.
func (c *CountingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.Embedder.EmbedQuery(ctx, text)
}

// Batches returns the number of successful EmbedTexts calls.
func (c *CountingEmbedder) Batches() int { return int(c.batches.Load()) }

// Texts returns the number of texts embedded through EmbedTexts.
func (c *CountingEmbedder) Texts() int { return int(c.texts.Load()) }

// FailWith makes subsequent EmbedTexts calls return err; nil restores normal
// behaviour.
func (c *CountingEmbedder) FailWith(err error) {
	c.mu.Lock()
	c.fail = err
	c.mu.Unlock()
}
