package mcpserver

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.md
var promptFiles embed.FS

// prompt is an embedded markdown workflow. The file name is the prompt
// name and the frontmatter carries its description.
type prompt struct {
	name        string
	description string
	body        string
}

// loadPrompts reads every embedded prompt, sorted by name.
func loadPrompts() ([]prompt, error) {
	paths, err := fs.Glob(promptFiles, "prompts/*.md")
	if err != nil {
		return nil, err
	}
	out := make([]prompt, 0, len(paths))
	for _, p := range paths {
		content, err := promptFiles.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", p, err)
		}
		description, body := parseFrontmatter(content)
		out = append(out, prompt{
			name:        strings.TrimSuffix(path.Base(p), ".md"),
			description: description,
			body:        body,
		})
	}
	return out, nil
}

func (s *Server) registerPrompts() {
	prompts, err := loadPrompts()
	if err != nil {
		return
	}
	for _, p := range prompts {
		s.server.AddPrompt(&mcp.Prompt{
			Name:        p.name,
			Description: p.description,
			Arguments: []*mcp.PromptArgument{{
				Name:        "path",
				Description: "Unit file, directory or archive the workflow should analyze",
			}},
		}, p.handle)
	}
}

// handle returns the prompt body. A path argument pins every tool call of
// the workflow to that target.
func (p prompt) handle(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	text := p.body
	if req != nil && req.Params != nil {
		if target := req.Params.Arguments["path"]; target != "" {
			text += fmt.Sprintf("\nPass `path: %s` to every tool call.\n", target)
		}
	}
	return &mcp.GetPromptResult{
		Description: p.description,
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: text},
		}},
	}, nil
}

// parseFrontmatter splits a "---" delimited YAML header from the body.
// Content without a valid header is returned whole as the body.
func parseFrontmatter(content []byte) (description, body string) {
	text := string(content)
	rest, ok := strings.CutPrefix(text, "---\n")
	if !ok {
		return "", text
	}
	header, body, ok := strings.Cut(rest, "\n---\n")
	if !ok {
		return "", text
	}
	var fm struct {
		Description string `yaml:"description"`
	}
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return "", text
	}
	return fm.Description, strings.TrimPrefix(body, "\n")
}
