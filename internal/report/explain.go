package report

import (
	"sort"
	"strings"

	"github.com/panbanda/deadwood/internal/output"
	"github.com/panbanda/deadwood/pkg/analyzer/deadcode"
)

// Explain returns the renderable form of a method explanation. JSON and
// TOON output serialize ex itself.
func Explain(ex *deadcode.Explanation) *output.Report {
	status := "dead"
	switch {
	case ex.Reachable:
		status = "reachable"
	case ex.Excluded:
		status = "unreachable, never reported (static initializer, synthetic or bridge)"
	}

	overview := &output.Section{
		Title:   "Status",
		Content: status,
	}
	if len(ex.EntryPolicies) > 0 {
		overview.Items = append(overview.Items, "entry point: "+strings.Join(ex.EntryPolicies, ", "))
	}

	out := &output.Report{
		Title:    "Method " + ex.Method,
		Data:     ex,
		Sections: []output.Renderable{overview},
	}
	if len(ex.Path) > 0 {
		out.Sections = append(out.Sections, &output.Section{
			Title:   "Call Path",
			Content: strings.Join(ex.Path, " -> "),
		})
	}
	out.Sections = append(out.Sections,
		list("Callers", ex.Callers, "none"),
		callees(ex),
	)
	if len(ex.DeadRanges) > 0 {
		out.Sections = append(out.Sections, &output.Section{
			Title:   "Dead Instructions",
			Content: joinRanges(ex.DeadRanges),
			Items:   ex.DeadDetails,
		})
	}
	return out
}

func list(title string, items []string, empty string) *output.Section {
	s := &output.Section{Title: title, Items: items}
	if len(items) == 0 {
		s.Content = empty
	}
	return s
}

// callees lists every transitively reachable method except the explained
// one, sorted.
func callees(ex *deadcode.Explanation) *output.Section {
	keys := make([]string, 0, len(ex.Callees))
	for k := range ex.Callees {
		if k != ex.Method {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return list("Transitive Callees", keys, "none")
}
