package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/0x5457/gql-index/internal/constants"
	"github.com/pelletier/go-toml/v2"
)

const (
	ProviderOpenAI = "openai"
	ProviderAPI    = "api"
	ProviderLocal  = "local"

	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendSQLVec = "sqlvec"
	BackendMemory = "memory"
)

// Config is built once at startup and passed by pointer to constructors.
// Nothing mutates it afterwards.
type Config struct {
	DataDir     string
	SchemaPath  string
	EndpointURL string
	// Headers are sent with introspection and proxied queries. Only their
	// names are ever persisted.
	Headers map[string]string
	Timeout time.Duration

	EmbedProvider string
	EmbedModel    string
	EmbedURL      string
	EmbedAPIKey   string
	EmbedDim      int

	StoreBackend string

	LogLevel  string
	LogFormat string

	Transport    string
	Address      string
	Instructions string
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		DataDir:       constants.DefaultDataDir,
		SchemaPath:    constants.DefaultSchemaPath,
		Timeout:       constants.DefaultTimeout,
		EmbedProvider: constants.DefaultEmbedProvider,
		EmbedModel:    constants.DefaultEmbedModel,
		EmbedDim:      constants.DefaultLocalDim,
		StoreBackend:  constants.DefaultStoreBackend,
		LogLevel:      "info",
		LogFormat:     "console",
		Transport:     constants.DefaultTransport,
		Instructions:  constants.DefaultInstructions,
	}
}

// fileConfig mirrors the TOML layout:
//
//	data_dir = "data"
//	[schema]
//	path = "schema.graphql"
//	[embedding]
//	provider = "openai"
type fileConfig struct {
	DataDir string `toml:"data_dir"`
	Schema  struct {
		Path           string            `toml:"path"`
		Endpoint       string            `toml:"endpoint"`
		Headers        map[string]string `toml:"headers"`
		TimeoutSeconds int               `toml:"timeout_seconds"`
	} `toml:"schema"`
	Embedding struct {
		Provider string `toml:"provider"`
		Model    string `toml:"model"`
		URL      string `toml:"url"`
		APIKey   string `toml:"api_key"`
		Dim      int    `toml:"dim"`
	} `toml:"embedding"`
	Store struct {
		Backend string `toml:"backend"`
	} `toml:"store"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
	MCP struct {
		Transport    string `toml:"transport"`
		Address      string `toml:"address"`
		Instructions string `toml:"instructions"`
	} `toml:"mcp"`
}

// Load returns defaults overlaid with the TOML file at path (when non-empty)
// and then with environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.mergeEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&c.DataDir, fc.DataDir)
	setString(&c.SchemaPath, fc.Schema.Path)
	setString(&c.EndpointURL, fc.Schema.Endpoint)
	if len(fc.Schema.Headers) > 0 {
		c.Headers = fc.Schema.Headers
	}
	if fc.Schema.TimeoutSeconds > 0 {
		c.Timeout = time.Duration(fc.Schema.TimeoutSeconds) * time.Second
	}
	setString(&c.EmbedProvider, fc.Embedding.Provider)
	setString(&c.EmbedModel, fc.Embedding.Model)
	setString(&c.EmbedURL, fc.Embedding.URL)
	setString(&c.EmbedAPIKey, fc.Embedding.APIKey)
	if fc.Embedding.Dim > 0 {
		c.EmbedDim = fc.Embedding.Dim
	}
	setString(&c.StoreBackend, fc.Store.Backend)
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFormat, fc.Log.Format)
	setString(&c.Transport, fc.MCP.Transport)
	setString(&c.Address, fc.MCP.Address)
	setString(&c.Instructions, fc.MCP.Instructions)
	return nil
}

func (c *Config) mergeEnv(lookup func(string) (string, bool)) {
	env := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	env("GRAPHQL_SCHEMA_PATH", &c.SchemaPath)
	env("GRAPHQL_ENDPOINT_URL", &c.EndpointURL)
	env("GRAPHQL_EMBEDDER_DATA_DIR", &c.DataDir)
	env("GRAPHQL_EMBED_MODEL", &c.EmbedModel)
	env("GRAPHQL_EMBED_PROVIDER", &c.EmbedProvider)
	env("OPENAI_API_KEY", &c.EmbedAPIKey)
	env("OPENAI_BASE_URL", &c.EmbedURL)
	env("MCP_TRANSPORT", &c.Transport)
	env("MCP_INSTRUCTIONS", &c.Instructions)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// UsesEndpoint reports whether the schema is introspected from an endpoint.
func (c *Config) UsesEndpoint() bool { return c.EndpointURL != "" }

// LockDir is where rebuilds take the cross-process lock. The memory backend
// has nothing on disk to protect.
func (c *Config) LockDir() string {
	if c.StoreBackend == BackendMemory {
		return ""
	}
	return c.DataDir
}

// HeaderNames returns the sorted header names.
func (c *Config) HeaderNames() []string {
	names := make([]string, 0, len(c.Headers))
	for k := range c.Headers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (c *Config) Validate() error {
	var problems []error
	if c.DataDir == "" {
		problems = append(problems, errors.New("data dir must be specified"))
	}
	if c.EndpointURL == "" && c.SchemaPath == "" {
		problems = append(problems, errors.New("either a schema path or an endpoint url is required"))
	}
	if c.Timeout <= 0 {
		problems = append(problems, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	switch c.EmbedProvider {
	case ProviderOpenAI, ProviderAPI:
	case ProviderLocal:
		if c.EmbedDim <= 0 {
			problems = append(problems, fmt.Errorf("local embedder needs a positive dim, got %d", c.EmbedDim))
		}
	default:
		problems = append(problems, fmt.Errorf(
			"unsupported embed provider: %s (supported: openai, api, local)", c.EmbedProvider))
	}
	if c.EmbedModel == "" {
		problems = append(problems, errors.New("embedding model must be specified"))
	}
	switch c.StoreBackend {
	case BackendFile, BackendSQLite, BackendSQLVec, BackendMemory:
	default:
		problems = append(problems, fmt.Errorf(
			"unsupported store backend: %s (supported: file, sqlite, sqlvec, memory)", c.StoreBackend))
	}
	return errors.Join(problems...)
}

// ParseHeaders parses "Name: Value" lines.
func ParseHeaders(lines []string) (map[string]string, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(lines))
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (expected \"Name: Value\")", line)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}
