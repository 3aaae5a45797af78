package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/0x5457/gql-index/internal/constants"
	"github.com/0x5457/gql-index/internal/indexer"
	"github.com/0x5457/gql-index/internal/logging"
	"github.com/0x5457/gql-index/internal/models"
	"github.com/0x5457/gql-index/internal/schema"
	"github.com/0x5457/gql-index/internal/search"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// ServerOptions contains configuration for the MCP server
type ServerOptions struct {
	// Instructions are sent to clients during initialization.
	Instructions string
	Logger       *zap.Logger
}

// Server holds the services behind the MCP tools
type Server struct {
	search   *search.Service
	indexer  indexer.Indexer
	executor schema.Executor
	logger   *zap.Logger
	server   *server.MCPServer
}

// New returns an MCP server exposing search_schema, ensure_index and
// run_query. Nil services are allowed; their tools then report an error when
// called.
func New(
	svc *search.Service,
	idx indexer.Indexer,
	exec schema.Executor,
	opts ServerOptions,
) *server.MCPServer {
	instructions := opts.Instructions
	if instructions == "" {
		instructions = constants.DefaultInstructions
	}

	srv := &Server{
		search:   svc,
		indexer:  idx,
		executor: exec,
		logger:   logging.OrNop(opts.Logger),
		server: server.NewMCPServer(
			constants.ServerName,
			constants.ServerVersion,
			server.WithToolCapabilities(true),
			server.WithInstructions(instructions),
			server.WithRecovery(),
		),
	}

	srv.server.AddTool(newSearchSchemaTool(), srv.handleSearchSchema)
	srv.server.AddTool(newEnsureIndexTool(), srv.handleEnsureIndex)
	srv.server.AddTool(newRunQueryTool(), srv.handleRunQuery)

	return srv.server
}

// Tool definitions
func newSearchSchemaTool() mcp.Tool {
	return mcp.NewTool(
		"search_schema",
		mcp.WithDescription(
			"Semantic search over the GraphQL schema. Returns matching fields with "+
				"a ready-to-edit query_template for root fields and a selection_hint for the rest.",
		),
		mcp.WithString("query", mcp.Description("Natural language description of the data you need"), mcp.Required()),
		mcp.WithNumber(
			"limit",
			mcp.Description(fmt.Sprintf("Maximum number of results (1-%d)", constants.MaxSearchLimit)),
			mcp.DefaultNumber(constants.DefaultSearchLimit),
			mcp.Min(1),
			mcp.Max(constants.MaxSearchLimit),
		),
	)
}

func newEnsureIndexTool() mcp.Tool {
	return mcp.NewTool(
		"ensure_index",
		mcp.WithDescription("Make sure the schema index is current, rebuilding it when the schema changed"),
		mcp.WithBoolean("force", mcp.Description("Rebuild even if the index is current"), mcp.DefaultBool(false)),
	)
}

func newRunQueryTool() mcp.Tool {
	return mcp.NewTool(
		"run_query",
		mcp.WithDescription(
			"Validate a GraphQL query against the schema, or execute it when an endpoint is configured",
		),
		mcp.WithString("query", mcp.Description("GraphQL query document"), mcp.Required()),
		mcp.WithObject("variables", mcp.Description("Variable values keyed by name")),
	)
}

// searchResult is the structured payload of search_schema.
type searchResult struct {
	Results []models.FieldHit `json:"results"`
}

// indexSummary is the structured payload of ensure_index. Field descriptors
// are left out; they can run to thousands of entries.
type indexSummary struct {
	EmbeddingModel string               `json:"embedding_model"`
	SchemaSHA      string               `json:"schema_sha"`
	SchemaSource   *models.SchemaSource `json:"schema_source,omitempty"`
	QueryType      string               `json:"query_type"`
	Count          int                  `json:"count"`
	Dim            int                  `json:"dim"`
}

func summarize(meta *models.IndexMetadata) indexSummary {
	return indexSummary{
		EmbeddingModel: meta.EmbeddingModel,
		SchemaSHA:      meta.SchemaSHA,
		SchemaSource:   meta.SchemaSource,
		QueryType:      meta.RootType(),
		Count:          meta.Count,
		Dim:            meta.Dim,
	}
}

// Tool handlers
func (srv *Server) handleSearchSchema(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", constants.DefaultSearchLimit)

	if srv.search == nil {
		return mcp.NewToolResultError("search service not initialized"), nil
	}

	hits, err := srv.search.Search(ctx, query, search.ClampLimit(limit))
	if err != nil {
		srv.logger.Warn("search_schema failed", zap.String("query", query), zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
	if hits == nil {
		hits = []models.FieldHit{}
	}
	return mcp.NewToolResultStructuredOnly(searchResult{Results: hits}), nil
}

func (srv *Server) handleEnsureIndex(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	force := req.GetBool("force", false)

	if srv.indexer == nil {
		return mcp.NewToolResultError("indexer not initialized"), nil
	}

	meta, err := srv.indexer.EnsureIndex(ctx, force)
	if err != nil {
		srv.logger.Warn("ensure_index failed", zap.Bool("force", force), zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(summarize(meta)), nil
}

func (srv *Server) handleRunQuery(
	ctx context.Context,
	req mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query must not be empty"), nil
	}

	var variables map[string]any
	if raw, ok := req.GetArguments()["variables"]; ok && raw != nil {
		v, ok := raw.(map[string]any)
		if !ok {
			return mcp.NewToolResultError("variables must be an object"), nil
		}
		variables = v
	}

	if srv.executor == nil {
		return mcp.NewToolResultError("query executor not initialized"), nil
	}

	result, err := srv.executor.Run(ctx, query, variables)
	if err != nil {
		srv.logger.Warn("run_query failed", zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultStructuredOnly(result), nil
}
