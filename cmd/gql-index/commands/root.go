package commands

import (
	"fmt"

	"github.com/0x5457/gql-index/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NewRootCommand assembles the gql-index command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gql-index",
		Short: "Semantic search over a GraphQL schema",
		Long: `gql-index flattens a GraphQL schema into one entry per object field,
embeds the entries and answers free-text searches with ready-to-edit query
templates. The index is rebuilt automatically when the schema changes.`,
		SilenceUsage: true,
	}

	bindConfigFlags(root.PersistentFlags())

	root.AddCommand(
		NewIndexCommand(),
		NewSearchCommand(),
		NewMCPServeCommand(),
		NewMCPClientCommand(),
	)
	return root
}

// configFlagNames lists the persistent flags that feed config.Config. The
// stdio MCP client forwards them to the server process it launches.
var configFlagNames = []string{
	"config", "schema", "endpoint", "header", "timeout", "data-dir",
	"provider", "model", "embed-url", "embed-dim", "backend",
	"log-level", "log-format",
}

func bindConfigFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "TOML config file")
	fs.String("schema", "", "GraphQL SDL file")
	fs.String("endpoint", "", "GraphQL endpoint to introspect (takes precedence over --schema)")
	fs.StringArray("header", nil, `header sent to the endpoint, "Name: Value" (repeatable)`)
	fs.Duration("timeout", 0, "endpoint request timeout")
	fs.String("data-dir", "", "directory holding the index")
	fs.String("provider", "", "embedding provider (openai, api, local)")
	fs.String("model", "", "embedding model")
	fs.String("embed-url", "", "embedding API base URL")
	fs.Int("embed-dim", 0, "vector dimension of the local embedder")
	fs.String("backend", "", "index storage backend (file, sqlite, sqlvec, memory)")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("log-format", "", "log format (console, json)")
}

// loadConfig layers defaults, the config file, the environment and finally
// any flags set on the command line.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	fs := cmd.Flags()
	path, _ := fs.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	str := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	str("schema", &cfg.SchemaPath)
	str("endpoint", &cfg.EndpointURL)
	str("data-dir", &cfg.DataDir)
	str("provider", &cfg.EmbedProvider)
	str("model", &cfg.EmbedModel)
	str("embed-url", &cfg.EmbedURL)
	str("backend", &cfg.StoreBackend)
	str("log-level", &cfg.LogLevel)
	str("log-format", &cfg.LogFormat)

	if fs.Changed("header") {
		lines, _ := fs.GetStringArray("header")
		headers, err := config.ParseHeaders(lines)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Headers = headers
	}
	if fs.Changed("timeout") {
		timeout, _ := fs.GetDuration("timeout")
		cfg.Timeout = timeout
	}
	if fs.Changed("embed-dim") {
		cfg.EmbedDim, _ = fs.GetInt("embed-dim")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// forwardedArgs renders the config flags set on cmd so a child process sees
// the same configuration.
func forwardedArgs(cmd *cobra.Command) []string {
	var args []string
	fs := cmd.Flags()
	for _, name := range configFlagNames {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if name == "header" {
			lines, _ := fs.GetStringArray("header")
			for _, line := range lines {
				args = append(args, "--header", line)
			}
			continue
		}
		args = append(args, "--"+name, f.Value.String())
	}
	return args
}
