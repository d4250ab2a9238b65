package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/deadwood/pkg/config"
)

// Server wraps the MCP server and registers the reachability tools.
type Server struct {
	server *mcp.Server
	config *config.Config
}

// NewServer creates a new MCP server. A nil cfg loads the project config
// or the defaults.
func NewServer(version string, cfg *config.Config) *Server {
	if version == "" {
		version = "dev"
	}
	if cfg == nil {
		cfg = config.LoadOrDefault()
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "deadwood",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, config: cfg}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// tool is one entry of the tool catalog.
type tool struct {
	name     string
	summary  string
	describe func() string
	add      func(s *Server, t *mcp.Tool)
}

// tools lists the registered tools in registration order.
var tools = []tool{
	{
		name:     "analyze_reachability",
		summary:  "Dead methods, unused fields and dead blocks",
		describe: describeReachability,
		add:      func(s *Server, t *mcp.Tool) { mcp.AddTool(s.server, t, s.handleAnalyzeReachability) },
	},
	{
		name:     "list_entry_points",
		summary:  "Analysis roots and the policies that selected them",
		describe: describeEntryPoints,
		add:      func(s *Server, t *mcp.Tool) { mcp.AddTool(s.server, t, s.handleListEntryPoints) },
	},
	{
		name:     "explain_method",
		summary:  "Reachability, call path and callees of one method",
		describe: describeExplain,
		add:      func(s *Server, t *mcp.Tool) { mcp.AddTool(s.server, t, s.handleExplainMethod) },
	},
}

func (s *Server) registerTools() {
	for _, t := range tools {
		t.add(s, &mcp.Tool{Name: t.name, Description: t.describe()})
	}
}
