package report

import (
	"embed"
	"html/template"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/panbanda/deadwood/pkg/models"
)

//go:embed template.html
var templateFS embed.FS

// Metadata describes one report run.
type Metadata struct {
	Target      string
	GeneratedAt time.Time
	Version     string
}

// HTMLData is the template input.
type HTMLData struct {
	Metadata Metadata
	Report   *models.Report
	Classes  []ClassGroup
}

// ClassGroup lists the dead methods of one class.
type ClassGroup struct {
	Class   string
	Methods []models.DeadMethod
}

// Renderer renders a standalone HTML page.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded template.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"num":     num,
		"percent": percent,
		"title":   cases.Title(language.English).String,
		"join":    strings.Join,
		"truncate": func(s string, n int) string {
			if len(s) > n {
				return s[:n] + "..."
			}
			return s
		},
		"ranges": joinRanges,
		"humanize": func(s string) string {
			return strings.ReplaceAll(s, "_", " ")
		},
	}

	content, err := templateFS.ReadFile("template.html")
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("report").Funcs(funcMap).Parse(string(content))
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render writes rep as HTML.
func (r *Renderer) Render(w io.Writer, rep *models.Report, meta Metadata) error {
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now()
	}
	data := HTMLData{
		Metadata: meta,
		Report:   rep,
		Classes:  groupByClass(rep),
	}
	return r.tmpl.Execute(w, data)
}

func groupByClass(rep *models.Report) []ClassGroup {
	index := make(map[string]int)
	var groups []ClassGroup
	for _, m := range rep.DeadMethods {
		i, ok := index[m.Owner]
		if !ok {
			i = len(groups)
			index[m.Owner] = i
			groups = append(groups, ClassGroup{Class: m.Owner})
		}
		groups[i].Methods = append(groups[i].Methods, m)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Class < groups[j].Class })
	return groups
}
