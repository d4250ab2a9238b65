// Package report turns a models.Report into renderable output.
package report

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/panbanda/deadwood/internal/output"
	"github.com/panbanda/deadwood/pkg/models"
)

// Options controls which sections are built.
type Options struct {
	// Verbose adds entry points, reflection sites and field statistics.
	Verbose bool
	// Limit caps the rows of each table; 0 means no limit.
	Limit int
}

var printer = message.NewPrinter(language.English)

// num formats n with thousands separators.
func num(n int) string {
	return printer.Sprintf("%d", n)
}

func percent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// Build returns the renderable form of rep. JSON and TOON output serialize
// rep itself.
func Build(rep *models.Report, opts Options) *output.Report {
	out := &output.Report{
		Title: "Dead Code Report",
		Data:  rep,
	}

	out.Sections = append(out.Sections, Summary(rep))
	if w := Warnings(rep); w != nil {
		out.Sections = append(out.Sections, w)
	}
	out.Sections = append(out.Sections,
		DeadMethods(rep, opts.Limit),
		DeadFields(rep, opts.Limit),
		DeadBlocks(rep, opts.Limit),
	)
	if len(rep.DeadCycles) > 0 {
		out.Sections = append(out.Sections, DeadCycles(rep))
	}
	if opts.Verbose {
		out.Sections = append(out.Sections,
			EntryPoints(rep, opts.Limit),
			ReflectionSites(rep, opts.Limit),
			FieldStats(rep, opts.Limit),
		)
	}
	return out
}

// Summary renders the aggregate counts.
func Summary(rep *models.Report) *output.Table {
	s := rep.Summary
	rows := [][]string{
		{"Mode", s.Mode},
		{"Classes", num(s.TotalClasses)},
		{"Methods", num(s.TotalMethods)},
		{"Fields", num(s.TotalFields)},
		{"Entry points", num(s.EntryPoints)},
		{"Reachable methods", num(s.ReachableMethods)},
		{"Dead methods", fmt.Sprintf("%s (%s)", num(s.DeadMethods), percent(s.DeadMethodRatio))},
		{"Dead fields", num(s.DeadFields)},
		{"Dead blocks", fmt.Sprintf("%s (%s instructions)", num(s.DeadBlocks), num(s.DeadInstructions))},
		{"Reflective calls", num(s.ReflectionCalls)},
		{"Heuristic edges", num(s.HeuristicEdges)},
	}
	if s.DecodeFailures > 0 {
		rows = append(rows, []string{"Decode failures", num(s.DecodeFailures)})
	}
	return &output.Table{
		Title:   "Summary",
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
		Data:    s,
	}
}

// Warnings renders warnings and decode failures, or nil when there are none.
func Warnings(rep *models.Report) *output.Section {
	if len(rep.Warnings) == 0 && len(rep.DecodeFailures) == 0 {
		return nil
	}
	s := &output.Section{Title: "Warnings"}
	for _, w := range rep.Warnings {
		s.Items = append(s.Items, fmt.Sprintf("%s: %s", w.Code, w.Message))
	}
	if len(rep.DecodeFailures) > 0 {
		failures := &output.Section{Title: "Decode Failures"}
		for _, f := range rep.DecodeFailures {
			failures.Items = append(failures.Items, fmt.Sprintf("%s: %s", f.Unit, f.Message))
		}
		s.Children = append(s.Children, failures)
	}
	return s
}

// DeadMethods renders dead methods grouped by class.
func DeadMethods(rep *models.Report, limit int) *output.Table {
	byClass := rep.DeadMethodsByClass()
	classes := make([]string, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	index := make(map[string]models.DeadMethod, len(rep.DeadMethods))
	for _, m := range rep.DeadMethods {
		index[m.Key] = m
	}

	var rows [][]string
	for _, c := range classes {
		for i, key := range byClass[c] {
			m := index[key]
			class := c
			if i > 0 {
				class = ""
			}
			rows = append(rows, []string{class, m.Name + m.Descriptor, m.Access.MethodModifiers()})
		}
	}
	return limited(&output.Table{
		Title:   fmt.Sprintf("Dead Methods (%s)", num(len(rep.DeadMethods))),
		Headers: []string{"Class", "Method", "Modifiers"},
		Rows:    rows,
		Empty:   "No dead methods.",
		Data:    rep.DeadMethods,
	}, limit)
}

// DeadFields renders unused and write-only fields.
func DeadFields(rep *models.Report, limit int) *output.Table {
	rows := make([][]string, 0, len(rep.DeadFields))
	for _, f := range rep.DeadFields {
		rows = append(rows, []string{f.Owner, f.Signature()})
	}
	return limited(&output.Table{
		Title:   fmt.Sprintf("Dead Fields (%s)", num(len(rep.DeadFields))),
		Headers: []string{"Class", "Field"},
		Rows:    rows,
		Empty:   "No dead fields.",
		Data:    rep.DeadFields,
	}, limit)
}

// DeadBlocks renders unreachable instruction ranges of live methods.
func DeadBlocks(rep *models.Report, limit int) *output.Table {
	rows := make([][]string, 0, len(rep.DeadBlocks))
	for _, b := range rep.DeadBlocks {
		rows = append(rows, []string{b.Method, joinRanges(b.Ranges), num(len(b.Indices))})
	}
	return limited(&output.Table{
		Title:   fmt.Sprintf("Dead Blocks (%s)", num(len(rep.DeadBlocks))),
		Headers: []string{"Method", "Instructions", "Count"},
		Rows:    rows,
		Empty:   "No unreachable instructions in live methods.",
		Data:    rep.DeadBlocks,
	}, limit)
}

// joinRanges renders ranges as "2, 4-5".
func joinRanges(rs []models.InstructionRange) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

// DeadCycles renders clusters of dead methods that only call each other.
func DeadCycles(rep *models.Report) *output.Section {
	s := &output.Section{
		Title:   "Dead Recursive Clusters",
		Content: "Methods that reference each other but are unreachable from any entry point.",
		Data:    rep.DeadCycles,
	}
	for _, c := range rep.DeadCycles {
		s.Items = append(s.Items, strings.Join(c, " <-> "))
	}
	return s
}

// EntryPoints renders the roots with the policies that selected them.
func EntryPoints(rep *models.Report, limit int) *output.Table {
	rows := make([][]string, 0, len(rep.EntryPoints))
	for _, e := range rep.EntryPoints {
		rows = append(rows, []string{e.Key, strings.Join(e.Policies, ", ")})
	}
	return limited(&output.Table{
		Title:   fmt.Sprintf("Entry Points (%s)", num(len(rep.EntryPoints))),
		Headers: []string{"Method", "Policies"},
		Rows:    rows,
		Empty:   "No entry points.",
		Data:    rep.EntryPoints,
	}, limit)
}

// ReflectionSites renders reflective call records.
func ReflectionSites(rep *models.Report, limit int) *output.Table {
	rows := make([][]string, 0, len(rep.ReflectionSites))
	for _, r := range rep.ReflectionSites {
		rows = append(rows, []string{r.Method, string(r.Kind), r.Target})
	}
	return limited(&output.Table{
		Title:   fmt.Sprintf("Reflective Calls (%s)", num(len(rep.ReflectionSites))),
		Headers: []string{"Method", "Kind", "Target"},
		Rows:    rows,
		Empty:   "No reflective calls.",
		Data:    rep.ReflectionSites,
	}, limit)
}

// FieldStats renders per-class field usage counts.
func FieldStats(rep *models.Report, limit int) *output.Table {
	rows := make([][]string, 0, len(rep.FieldStats))
	for _, s := range rep.FieldStats {
		rows = append(rows, []string{s.Class, num(s.Total), num(s.Unused), num(s.ReadOnly), num(s.WriteOnly)})
	}
	return limited(&output.Table{
		Title:   "Field Usage",
		Headers: []string{"Class", "Fields", "Unused", "Read Only", "Write Only"},
		Rows:    rows,
		Empty:   "No fields.",
		Data:    rep.FieldStats,
	}, limit)
}

// limited truncates t to limit rows and notes how many were dropped.
func limited(t *output.Table, limit int) *output.Table {
	if limit <= 0 || len(t.Rows) <= limit {
		return t
	}
	dropped := len(t.Rows) - limit
	t.Rows = t.Rows[:limit]
	t.Footer = make([]string, len(t.Headers))
	t.Footer[0] = fmt.Sprintf("... %s more", num(dropped))
	return t
}
