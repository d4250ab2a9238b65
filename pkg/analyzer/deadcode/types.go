package deadcode

import (
	"sort"

	"github.com/panbanda/deadwood/pkg/analyzer/cfg"
	"github.com/panbanda/deadwood/pkg/models"
)

// Phase names reported through the progress tracker, in run order.
const (
	PhaseCallGraph    = "callgraph"
	PhaseEntryPoints  = "entrypoints"
	PhaseReflection   = "reflection"
	PhaseReachability = "reachability"
	PhaseDeadBlocks   = "deadblocks"
	PhaseFields       = "fields"
	PhaseAggregate    = "aggregate"
)

// Phases lists every phase in run order.
var Phases = []string{
	PhaseCallGraph,
	PhaseEntryPoints,
	PhaseReflection,
	PhaseReachability,
	PhaseDeadBlocks,
	PhaseFields,
	PhaseAggregate,
}

// Inputs gathers the per-phase results merged into a report.
type Inputs struct {
	Mode            string
	TotalClasses    int
	TotalMethods    int
	TotalFields     int
	ReachableCount  int
	DeadMethods     []*models.Method
	DeadFields      []models.DeadField
	DeadBlocks      map[string][]int
	DeadCycles      [][]string
	EntryPoints     []models.EntryPoint
	ReflectionSites []models.ReflectionSite
	ReflectionCalls int
	HeuristicEdges  int
	FieldStats      []models.ClassFieldStats
	Warnings        []models.Warning
	DecodeFailures  []models.DecodeFailure
}

// Aggregate merges phase results into a report. It only copies and counts;
// the report shares no slices or maps with in.
func Aggregate(in Inputs) *models.Report {
	r := &models.Report{
		DeadMethods: make([]models.DeadMethod, 0, len(in.DeadMethods)),
		DeadFields:  append(make([]models.DeadField, 0, len(in.DeadFields)), in.DeadFields...),
		DeadBlocks:  make([]models.DeadBlock, 0, len(in.DeadBlocks)),
		EntryPoints: make([]models.EntryPoint, 0, len(in.EntryPoints)),
	}

	for _, m := range in.DeadMethods {
		r.DeadMethods = append(r.DeadMethods, models.DeadMethod{
			Key:        m.Key(),
			Owner:      m.Owner,
			Name:       m.Name,
			Descriptor: m.Descriptor,
			Access:     m.Access,
		})
	}
	sort.Slice(r.DeadMethods, func(i, j int) bool { return r.DeadMethods[i].Key < r.DeadMethods[j].Key })

	deadInstructions := 0
	deadRanges := 0
	for method, indices := range in.DeadBlocks {
		sorted := append([]int(nil), indices...)
		sort.Ints(sorted)
		ranges := cfg.Ranges(sorted)
		deadInstructions += len(sorted)
		deadRanges += len(ranges)
		r.DeadBlocks = append(r.DeadBlocks, models.DeadBlock{Method: method, Indices: sorted, Ranges: ranges})
	}
	sort.Slice(r.DeadBlocks, func(i, j int) bool { return r.DeadBlocks[i].Method < r.DeadBlocks[j].Method })

	for _, cycle := range in.DeadCycles {
		r.DeadCycles = append(r.DeadCycles, append([]string(nil), cycle...))
	}
	for _, ep := range in.EntryPoints {
		ep.Policies = append([]string(nil), ep.Policies...)
		r.EntryPoints = append(r.EntryPoints, ep)
	}
	r.ReflectionSites = append(r.ReflectionSites, in.ReflectionSites...)
	r.FieldStats = append(r.FieldStats, in.FieldStats...)
	r.Warnings = append(r.Warnings, in.Warnings...)
	r.DecodeFailures = append(r.DecodeFailures, in.DecodeFailures...)

	r.Summary = models.Summary{
		Mode:             in.Mode,
		TotalClasses:     in.TotalClasses,
		TotalMethods:     in.TotalMethods,
		TotalFields:      in.TotalFields,
		EntryPoints:      len(r.EntryPoints),
		ReachableMethods: in.ReachableCount,
		DeadMethods:      len(r.DeadMethods),
		DeadFields:       len(r.DeadFields),
		DeadBlocks:       deadRanges,
		DeadInstructions: deadInstructions,
		ReflectionCalls:  in.ReflectionCalls,
		HeuristicEdges:   in.HeuristicEdges,
		DecodeFailures:   len(r.DecodeFailures),
	}
	if in.TotalMethods > 0 {
		r.Summary.DeadMethodRatio = float64(len(r.DeadMethods)) / float64(in.TotalMethods)
	}
	return r
}
