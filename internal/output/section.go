package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Section is a Renderable titled section with content, a bullet list and
// subsections.
type Section struct {
	Title    string       `json:"title,omitempty"`
	Content  string       `json:"content,omitempty"`
	Items    []string     `json:"items,omitempty"`
	Children []Renderable `json:"-"`
	Data     any          `json:"data,omitempty"`
}

func (s *Section) RenderData() any {
	if s.Data != nil {
		return s.Data
	}
	if len(s.Children) == 0 {
		return s
	}
	children := make([]any, len(s.Children))
	for i, c := range s.Children {
		children[i] = c.RenderData()
	}
	return map[string]any{
		"title":    s.Title,
		"content":  s.Content,
		"items":    s.Items,
		"sections": children,
	}
}

func (s *Section) RenderText(w io.Writer, colored bool) error {
	writeTitle(w, s.Title, "-", colored)
	if s.Content != "" {
		fmt.Fprintln(w, s.Content)
	}
	for _, item := range s.Items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
	for _, c := range s.Children {
		fmt.Fprintln(w)
		if err := c.RenderText(w, colored); err != nil {
			return err
		}
	}
	return nil
}

func (s *Section) RenderMarkdown(w io.Writer) error {
	if s.Title != "" {
		fmt.Fprintf(w, "## %s\n\n", s.Title)
	}
	if s.Content != "" {
		fmt.Fprintf(w, "%s\n\n", s.Content)
	}
	if len(s.Items) > 0 {
		for _, item := range s.Items {
			fmt.Fprintf(w, "- `%s`\n", item)
		}
		fmt.Fprintln(w)
	}
	for _, c := range s.Children {
		if err := c.RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}

// Report is a compound Renderable containing multiple sections and tables.
type Report struct {
	Title    string       `json:"title,omitempty"`
	Sections []Renderable `json:"-"`
	Data     any          `json:"data,omitempty"`
}

func (r *Report) RenderData() any {
	if r.Data != nil {
		return r.Data
	}
	parts := make([]any, len(r.Sections))
	for i, s := range r.Sections {
		parts[i] = s.RenderData()
	}
	return map[string]any{
		"title":    r.Title,
		"sections": parts,
	}
}

func (r *Report) RenderText(w io.Writer, colored bool) error {
	if r.Title != "" {
		if colored {
			color.New(color.Bold, color.FgCyan).Fprintln(w, r.Title)
		} else {
			fmt.Fprintln(w, r.Title)
		}
		fmt.Fprintln(w, strings.Repeat("=", len(r.Title)))
		fmt.Fprintln(w)
	}

	for i, s := range r.Sections {
		if err := s.RenderText(w, colored); err != nil {
			return err
		}
		if i < len(r.Sections)-1 {
			fmt.Fprintln(w)
		}
	}
	return nil
}

func (r *Report) RenderMarkdown(w io.Writer) error {
	if r.Title != "" {
		fmt.Fprintf(w, "# %s\n\n", r.Title)
	}
	for _, s := range r.Sections {
		if err := s.RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}
