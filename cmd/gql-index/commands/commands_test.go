package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/0x5457/gql-index/internal/config"
	"github.com/0x5457/gql-index/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchema(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.graphql")
	require.NoError(t, os.WriteFile(path, []byte(testutil.ProductSDL), 0o644))
	return path
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(new(nopWriter))
	root.SetErr(new(nopWriter))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return root.ExecuteContext(ctx)
}

type nopWriter struct{}

func (*nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestParseToolArgs(t *testing.T) {
	args, err := parseToolArgs([]string{
		"query=product by id",
		"limit=3",
		"force=true",
		`variables={"id": "1"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, "product by id", args["query"])
	assert.Equal(t, 3, args["limit"])
	assert.Equal(t, true, args["force"])
	assert.Equal(t, map[string]any{"id": "1"}, args["variables"])

	_, err = parseToolArgs([]string{"novalue"})
	assert.Error(t, err)
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "gql-index.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
data_dir = "from-file"
[schema]
path = "file.graphql"
[embedding]
provider = "local"
`), 0o644))

	root := NewRootCommand()
	cmd, _, err := root.Find([]string{"index"})
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags([]string{
		"--config", cfgPath,
		"--data-dir", filepath.Join(dir, "data"),
		"--header", "Authorization: Bearer x",
		"--header", "X-Tenant: acme",
		"--timeout", "5s",
		"--backend", "sqlite",
	}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.DataDir)
	assert.Equal(t, "file.graphql", cfg.SchemaPath)
	assert.Equal(t, config.ProviderLocal, cfg.EmbedProvider)
	assert.Equal(t, config.BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, map[string]string{"Authorization": "Bearer x", "X-Tenant": "acme"}, cfg.Headers)
}

func TestLoadConfigRejectsBadHeader(t *testing.T) {
	root := NewRootCommand()
	cmd, _, err := root.Find([]string{"search"})
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags([]string{"--header", "no-colon"}))

	_, err = loadConfig(cmd)
	assert.Error(t, err)
}

func TestForwardedArgs(t *testing.T) {
	root := NewRootCommand()
	cmd, _, err := root.Find([]string{"mcp-client", "search"})
	require.NoError(t, err)
	require.NoError(t, cmd.ParseFlags([]string{
		"--schema", "s.graphql",
		"--header", "A: 1",
		"--header", "B: 2",
		"--limit", "3",
	}))

	assert.Equal(t, []string{"--schema", "s.graphql", "--header", "A: 1", "--header", "B: 2"}, forwardedArgs(cmd))
}

func TestIndexCommand(t *testing.T) {
	schemaPath := writeSchema(t)
	dataDir := filepath.Join(t.TempDir(), "data")

	require.NoError(t, run(t, "index",
		"--schema", schemaPath,
		"--data-dir", dataDir,
		"--provider", "local",
	))
	assert.DirExists(t, dataDir)
}

func TestSearchCommand(t *testing.T) {
	schemaPath := writeSchema(t)

	require.NoError(t, run(t, "search", "category name",
		"--schema", schemaPath,
		"--data-dir", filepath.Join(t.TempDir(), "data"),
		"--provider", "local",
		"--backend", "memory",
		"--limit", "2",
	))
}

func TestMCPClientInProcess(t *testing.T) {
	schemaPath := writeSchema(t)
	common := []string{
		"--transport", "inproc",
		"--schema", schemaPath,
		"--data-dir", filepath.Join(t.TempDir(), "data"),
		"--provider", "local",
	}

	require.NoError(t, run(t, append([]string{"mcp-client", "list-tools"}, common...)...))
	require.NoError(t, run(t, append([]string{"mcp-client", "search", "product"}, common...)...))
	require.NoError(t, run(t, append([]string{"mcp-client", "ensure", "--force"}, common...)...))
	require.NoError(t, run(t, append([]string{
		"mcp-client", "query", `query($id: ID!) { product(id: $id) { name } }`,
		"--variables", `{"id": "1"}`,
	}, common...)...))
}

func TestUnknownTransport(t *testing.T) {
	err := run(t, "mcp-client", "list-tools", "--transport", "pigeon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transport")
}
