package mcpserver

import (
	"bytes"
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/deadwood/internal/output"
	"github.com/panbanda/deadwood/internal/report"
	"github.com/panbanda/deadwood/internal/service/analysis"
	"github.com/panbanda/deadwood/pkg/config"
	"github.com/panbanda/deadwood/pkg/models"
)

// AnalyzeInput is the base input for all tools.
type AnalyzeInput struct {
	Path   string `json:"path,omitempty" jsonschema:"Unit file, directory or zip/jar archive to analyze. Defaults to the current directory."`
	Format string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// ReachabilityInput adds pipeline options.
type ReachabilityInput struct {
	AnalyzeInput
	Mode        string   `json:"mode,omitempty" jsonschema:"Reachability mode: union (default) searches from every entry point, simple from the first only."`
	EntryPoints []string `json:"entry_points,omitempty" jsonschema:"Entry point policies to enable: main, test, static-utility, main-constructor. Defaults to the configured set."`
	Reflection  string   `json:"reflection,omitempty" jsonschema:"Reflection strategy: names (default) or none."`
	NoBlocks    bool     `json:"no_blocks,omitempty" jsonschema:"Skip unreachable instruction detection."`
	Verbose     bool     `json:"verbose,omitempty" jsonschema:"Include entry points, reflective calls and field statistics in markdown output."`
	Limit       int      `json:"limit,omitempty" jsonschema:"Maximum rows per table in markdown output. 0 means no limit."`
}

func getPath(input AnalyzeInput) string {
	if input.Path == "" {
		return "."
	}
	return input.Path
}

func getFormat(input AnalyzeInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

// runConfig copies the server config and applies the tool overrides.
func (s *Server) runConfig(input ReachabilityInput) *config.Config {
	cfg := *s.config
	if input.Mode != "" {
		cfg.Analysis.Mode = input.Mode
	}
	if len(input.EntryPoints) > 0 {
		cfg.Analysis.EntryPoints = input.EntryPoints
	}
	if input.Reflection != "" {
		cfg.Analysis.Reflection = input.Reflection
	}
	if input.NoBlocks {
		cfg.Analysis.DeadBlocks = false
	}
	cfg.Cache.Enabled = false
	return &cfg
}

func (s *Server) analyze(ctx context.Context, input ReachabilityInput) (*models.Report, error) {
	cfg := s.runConfig(input)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	svc, err := analysis.New(analysis.WithConfig(cfg))
	if err != nil {
		return nil, err
	}
	res, err := svc.AnalyzePath(ctx, getPath(input.AnalyzeInput), analysis.Options{})
	if err != nil {
		return nil, err
	}
	return res.Report, nil
}

func formatOutput(data any, format output.Format) (string, error) {
	var buf bytes.Buffer
	if err := output.NewWriterFormatter(format, &buf, false).Output(data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) handleAnalyzeReachability(ctx context.Context, req *mcp.CallToolRequest, input ReachabilityInput) (*mcp.CallToolResult, any, error) {
	rep, err := s.analyze(ctx, input)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(report.Build(rep, report.Options{Verbose: input.Verbose, Limit: input.Limit}), getFormat(input.AnalyzeInput))
}

// entryPointsResult is the list_entry_points payload.
type entryPointsResult struct {
	EntryPoints []models.EntryPoint `json:"entry_points" toon:"entry_points"`
	Summary     models.Summary      `json:"summary" toon:"summary"`
	Warnings    []models.Warning    `json:"warnings,omitempty" toon:"warnings"`
}

func (s *Server) handleListEntryPoints(ctx context.Context, req *mcp.CallToolRequest, input ReachabilityInput) (*mcp.CallToolResult, any, error) {
	input.NoBlocks = true
	rep, err := s.analyze(ctx, input)
	if err != nil {
		return toolError(err.Error())
	}

	format := getFormat(input.AnalyzeInput)
	if format == output.FormatMarkdown {
		return toolResult(&output.Report{
			Title:    "Entry Points",
			Sections: []output.Renderable{report.EntryPoints(rep, input.Limit)},
		}, format)
	}
	return toolResult(entryPointsResult{
		EntryPoints: rep.EntryPoints,
		Summary:     rep.Summary,
		Warnings:    rep.Warnings,
	}, format)
}

// ExplainInput selects the method to explain.
type ExplainInput struct {
	AnalyzeInput
	Method string `json:"method" jsonschema:"Method key to explain, as owner.name+descriptor, e.g. com.example.Main.helper()V."`
}

func (s *Server) handleExplainMethod(ctx context.Context, req *mcp.CallToolRequest, input ExplainInput) (*mcp.CallToolResult, any, error) {
	if input.Method == "" {
		return toolError("method is required")
	}
	cfg := s.runConfig(ReachabilityInput{AnalyzeInput: input.AnalyzeInput})
	if err := cfg.Validate(); err != nil {
		return toolError(err.Error())
	}
	svc, err := analysis.New(analysis.WithConfig(cfg))
	if err != nil {
		return toolError(err.Error())
	}
	ex, err := svc.Explain(ctx, getPath(input.AnalyzeInput), input.Method)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(report.Explain(ex), getFormat(input.AnalyzeInput))
}
