package cmdsfx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/0x5457/gql-index/internal/config"
	"github.com/0x5457/gql-index/internal/constants"
	"github.com/0x5457/gql-index/internal/indexer"
	"github.com/0x5457/gql-index/internal/logging"
	"github.com/0x5457/gql-index/internal/search"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportSSE   = "sse"
)

// CommandRunner provides methods to run different application commands
type CommandRunner struct {
	config        *config.Config
	searchService *search.Service
	indexer       indexer.Indexer
	mcpServer     *server.MCPServer
	logger        *zap.Logger
	out           io.Writer
}

// Params represents dependencies for command runner
type Params struct {
	fx.In

	Config        *config.Config
	SearchService *search.Service   `optional:"true"`
	Indexer       indexer.Indexer   `optional:"true"`
	MCPServer     *server.MCPServer `optional:"true"`
	Logger        *zap.Logger       `optional:"true"`
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(params Params) *CommandRunner {
	return &CommandRunner{
		config:        params.Config,
		searchService: params.SearchService,
		indexer:       params.Indexer,
		mcpServer:     params.MCPServer,
		logger:        logging.OrNop(params.Logger),
		out:           os.Stdout,
	}
}

// SetOutput redirects command output, e.g. to a buffer in tests
func (r *CommandRunner) SetOutput(w io.Writer) { r.out = w }

// RunIndex makes sure the index is current and reports what it holds
func (r *CommandRunner) RunIndex(ctx context.Context, force bool) error {
	if r.indexer == nil {
		return errors.New("indexer not available")
	}

	start := time.Now()
	meta, err := r.indexer.EnsureIndex(ctx, force)
	if err != nil {
		return err
	}

	source := "unknown source"
	if meta.SchemaSource != nil {
		source = meta.SchemaSource.String()
	}
	r.logger.Debug("index command finished", zap.Duration("elapsed", time.Since(start)))
	_, err = fmt.Fprintf(r.out, "Indexed %d fields from %s using %s (schema sha %s)\n",
		meta.Count, source, meta.EmbeddingModel, meta.SchemaSHA)
	return err
}

// RunSearch executes a schema search and prints the hits as JSON
func (r *CommandRunner) RunSearch(ctx context.Context, query string, limit int) error {
	if r.searchService == nil {
		return errors.New("search service not available")
	}

	hits, err := r.searchService.Search(ctx, query, limit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(hits)
}

// RunMCPServer serves MCP on the given transport until ctx is cancelled or
// the transport fails
func (r *CommandRunner) RunMCPServer(ctx context.Context, transport, address string) error {
	if r.mcpServer == nil {
		return errors.New("MCP server not available")
	}

	addr := address
	if addr == "" {
		addr = constants.DefaultAddress
	}

	switch transport {
	case TransportStdio:
		return server.ServeStdio(r.mcpServer)
	case TransportHTTP:
		httpSrv := server.NewStreamableHTTPServer(r.mcpServer)
		r.logger.Info("serving MCP over streamable http", zap.String("address", addr))
		return serveUntilDone(ctx, func() error { return httpSrv.Start(addr) }, httpSrv.Shutdown)
	case TransportSSE:
		// SSE server exposes two endpoints under /mcp
		sseSrv := server.NewSSEServer(r.mcpServer,
			server.WithBaseURL(""),
			server.WithStaticBasePath("/mcp"),
		)
		r.logger.Info("serving MCP over sse", zap.String("address", addr))
		return serveUntilDone(ctx, func() error { return sseSrv.Start(addr) }, sseSrv.Shutdown)
	default:
		return fmt.Errorf(
			"unsupported transport: %s (supported: stdio, http, sse)",
			transport,
		)
	}
}

func serveUntilDone(
	ctx context.Context,
	start func() error,
	shutdown func(context.Context) error,
) error {
	errCh := make(chan error, 1)
	go func() { errCh <- start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdown(stopCtx)
	}
}

// Module provides command runner
var Module = fx.Module("commands",
	fx.Provide(NewCommandRunner),
)
