package constants

import "time"

const (
	DefaultEmbedURL      = "http://localhost:8000/embed"
	DefaultEmbedModel    = "text-embedding-3-small"
	DefaultEmbedProvider = "openai"
	DefaultLocalDim      = 64
	DefaultDataDir       = "data"
	DefaultSchemaPath    = "schema.graphql"
	DefaultStoreBackend  = "file"
	DefaultTransport     = "stdio"
	DefaultAddress       = ":8080"
	DefaultTimeout       = 30 * time.Second

	DefaultSearchLimit = 5
	MaxSearchLimit     = 20

	ServerName    = "gql-index/mcp"
	ServerVersion = "0.1.0"
)

const DefaultInstructions = "Use search_schema to discover GraphQL fields related to the user's request " +
	"before writing a query. Prefer results on the root query type and start from their query_template; " +
	"fill in the <Type> placeholders with real argument values. Non-root results carry a selection_hint " +
	"to splice into a parent selection. Validate or execute the final query with run_query."
