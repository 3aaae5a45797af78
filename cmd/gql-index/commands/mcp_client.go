package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/0x5457/gql-index/internal/app/appfx"
	"github.com/0x5457/gql-index/internal/constants"
	appmcp "github.com/0x5457/gql-index/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const (
	transportStdio  = "stdio"
	transportHTTP   = "http"
	transportSSE    = "sse"
	transportInproc = "inproc"
)

// NewMCPClientCommand creates commands for connecting to and interacting with MCP servers
func NewMCPClientCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-client",
		Short: "MCP client commands",
		Long: `Commands for connecting to and interacting with MCP servers.
With the stdio transport the client launches "gql-index mcp" and forwards the
configuration flags to it.`,
	}

	cmd.AddCommand(
		newMCPCallCommand(),
		newMCPListToolsCommand(),
		newMCPSearchCommand(),
		newMCPEnsureCommand(),
		newMCPQueryCommand(),
	)

	cmd.PersistentFlags().
		StringP("transport", "t", transportStdio, "transport (stdio, http, sse, inproc)")
	cmd.PersistentFlags().
		StringP("address", "a", "", "server URL (http/sse), ignored for stdio/inproc")
	cmd.PersistentFlags().
		Duration("call-timeout", 2*time.Minute, "timeout for the whole client session")

	return cmd
}

func newMCPCallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool_name> [args...]",
		Short: "Call a specific MCP tool",
		Long: `Call a specific MCP tool with arguments.
Arguments should be provided as key=value pairs. Values that look like JSON
objects are decoded; numbers and booleans are converted.

Example:
  gql-index mcp-client call search_schema query="orders for a customer" limit=3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := parseToolArgs(args[1:])
			if err != nil {
				return err
			}
			return withClient(cmd, func(ctx context.Context, client *appmcp.Client) error {
				result, err := client.Call(ctx, args[0], toolArgs)
				if err != nil {
					return fmt.Errorf("call tool failed: %w", err)
				}
				return printJSON(result)
			})
		},
	}
}

func newMCPListToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-tools",
		Short: "List available MCP tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, client *appmcp.Client) error {
				tools, err := client.ListTools(ctx)
				if err != nil {
					return fmt.Errorf("failed to list tools: %w", err)
				}

				if len(tools) == 0 {
					fmt.Println("No tools available")
					return nil
				}

				fmt.Printf("Available MCP tools (%d):\n\n", len(tools))
				for i, tool := range tools {
					fmt.Printf("%d. %s\n", i+1, tool.Name)
					if tool.Description != "" {
						fmt.Printf("   Description: %s\n", tool.Description)
					}
					if len(tool.InputSchema.Properties) > 0 {
						fmt.Printf("   Parameters:\n")
						names := make([]string, 0, len(tool.InputSchema.Properties))
						for name := range tool.InputSchema.Properties {
							names = append(names, name)
						}
						slices.Sort(names)
						for _, name := range names {
							required := ""
							if slices.Contains(tool.InputSchema.Required, name) {
								required = " (required)"
							}
							desc := ""
							if propMap, ok := tool.InputSchema.Properties[name].(map[string]any); ok {
								desc, _ = propMap["description"].(string)
							}
							if desc != "" {
								fmt.Printf("     - %s%s: %s\n", name, required, desc)
							} else {
								fmt.Printf("     - %s%s\n", name, required)
							}
						}
					}
					fmt.Println()
				}
				return nil
			})
		},
	}
}

func newMCPSearchCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the schema through search_schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return callTool(cmd, "search_schema", map[string]any{
				"query": args[0],
				"limit": limit,
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", constants.DefaultSearchLimit, "number of results")
	return cmd
}

func newMCPEnsureCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Make sure the index is current through ensure_index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return callTool(cmd, "ensure_index", map[string]any{"force": force})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "rebuild even if the index is current")
	return cmd
}

func newMCPQueryCommand() *cobra.Command {
	var variables string

	cmd := &cobra.Command{
		Use:   "query <graphql>",
		Short: "Validate or execute a query through run_query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs := map[string]any{"query": args[0]}
			if variables != "" {
				var vars map[string]any
				if err := json.Unmarshal([]byte(variables), &vars); err != nil {
					return fmt.Errorf("invalid --variables: %w", err)
				}
				toolArgs["variables"] = vars
			}
			return callTool(cmd, "run_query", toolArgs)
		},
	}
	cmd.Flags().StringVar(&variables, "variables", "", `variables as a JSON object, e.g. '{"id": "1"}'`)
	return cmd
}

func callTool(cmd *cobra.Command, name string, args map[string]any) error {
	return withClient(cmd, func(ctx context.Context, client *appmcp.Client) error {
		result, err := client.Call(ctx, name, args)
		if err != nil {
			return fmt.Errorf("%s failed: %w", name, err)
		}
		return printJSON(result)
	})
}

func printJSON(v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("format result failed: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

// parseToolArgs turns key=value pairs into tool arguments.
func parseToolArgs(pairs []string) (map[string]any, error) {
	toolArgs := make(map[string]any, len(pairs))
	for _, arg := range pairs {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid argument format: %s (expected key=value)", arg)
		}

		// Try to parse as object, number, bool, or keep as string
		var obj map[string]any
		if strings.HasPrefix(strings.TrimSpace(value), "{") && json.Unmarshal([]byte(value), &obj) == nil {
			toolArgs[key] = obj
		} else if val, err := strconv.Atoi(value); err == nil {
			toolArgs[key] = val
		} else if val, err := strconv.ParseBool(value); err == nil {
			toolArgs[key] = val
		} else {
			toolArgs[key] = value
		}
	}
	return toolArgs, nil
}

func withClient(cmd *cobra.Command, fn func(context.Context, *appmcp.Client) error) error {
	transport, _ := cmd.Flags().GetString("transport")
	address, _ := cmd.Flags().GetString("address")
	timeout, _ := cmd.Flags().GetDuration("call-timeout")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client, cleanup, err := createMCPClient(ctx, cmd, transport, address)
	if err != nil {
		return fmt.Errorf("create MCP client failed: %w", err)
	}
	defer cleanup()
	defer client.Close() //nolint:errcheck

	return fn(ctx, client)
}

func createMCPClient(
	ctx context.Context,
	cmd *cobra.Command,
	transport, address string,
) (*appmcp.Client, func(), error) {
	noop := func() {}
	switch transport {
	case transportStdio:
		self, err := os.Executable()
		if err != nil {
			return nil, nil, fmt.Errorf("locate executable: %w", err)
		}
		args := append([]string{"mcp"}, forwardedArgs(cmd)...)
		client, err := appmcp.NewStdioClient(ctx, self, args...)
		return client, noop, err
	case transportHTTP:
		if address == "" {
			address = "http://127.0.0.1:8080/mcp"
		}
		client, err := appmcp.NewHTTPClient(ctx, address)
		return client, noop, err
	case transportSSE:
		if address == "" {
			address = "http://127.0.0.1:8080/mcp/sse"
		}
		client, err := appmcp.NewSSEClient(ctx, address)
		return client, noop, err
	case transportInproc:
		cfg, err := loadConfig(cmd)
		if err != nil {
			return nil, nil, err
		}
		var srv *server.MCPServer
		app := appfx.NewApp(cfg, fx.Populate(&srv))
		if err := app.Start(ctx); err != nil {
			return nil, nil, fmt.Errorf("initialize components failed: %w", err)
		}
		stop := func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
			defer cancel()
			_ = app.Stop(stopCtx)
		}
		client, err := appmcp.NewInProcessClient(ctx, srv)
		if err != nil {
			stop()
			return nil, nil, err
		}
		return client, stop, nil
	default:
		return nil, nil, fmt.Errorf(
			"unsupported transport: %s (supported: stdio, http, sse, inproc)",
			transport,
		)
	}
}
