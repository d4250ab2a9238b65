package models

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// WarningCode identifies a non-fatal analysis condition.
type WarningCode string

const (
	// WarningNoEntryPoints means no entry point was found and every method
	// is provisionally dead.
	WarningNoEntryPoints WarningCode = "no_entry_points"
	// WarningDecodeFailures means some units were skipped.
	WarningDecodeFailures WarningCode = "decode_failures"
)

// Warning is a non-fatal condition surfaced with the report.
type Warning struct {
	Code    WarningCode `json:"code" toon:"code"`
	Message string      `json:"message" toon:"message"`
}

// DecodeFailure records a unit that could not be decoded.
type DecodeFailure struct {
	Unit    string `json:"unit" toon:"unit"`
	Message string `json:"message" toon:"message"`
}

// DeadMethod is a method not reachable from any entry point.
type DeadMethod struct {
	Key        string      `json:"key" toon:"key"`
	Owner      string      `json:"owner" toon:"owner"`
	Name       string      `json:"name" toon:"name"`
	Descriptor string      `json:"descriptor" toon:"descriptor"`
	Access     AccessFlags `json:"access" toon:"access"`
}

// DeadFieldReason explains why a field is reported.
type DeadFieldReason string

const (
	FieldUnused    DeadFieldReason = "unused"
	FieldWriteOnly DeadFieldReason = "write_only"
)

// DeadField is a field that is never read.
type DeadField struct {
	Key        string          `json:"key" toon:"key"`
	Owner      string          `json:"owner" toon:"owner"`
	Name       string          `json:"name" toon:"name"`
	Descriptor string          `json:"descriptor" toon:"descriptor"`
	Access     AccessFlags     `json:"access" toon:"access"`
	Reason     DeadFieldReason `json:"reason" toon:"reason"`
}

// Signature renders the field as "private count: I", tagging write-only
// fields.
func (f DeadField) Signature() string {
	sig := f.Name + ": " + f.Descriptor
	if mods := f.Access.FieldModifiers(); mods != "" {
		sig = mods + " " + sig
	}
	if f.Reason == FieldWriteOnly {
		sig += " [WRITE-ONLY]"
	}
	return sig
}

// InstructionRange is an inclusive run of instruction indices.
type InstructionRange struct {
	Start int `json:"start" toon:"start"`
	End   int `json:"end" toon:"end"`
}

// Len returns the number of instructions in the range.
func (r InstructionRange) Len() int {
	return r.End - r.Start + 1
}

func (r InstructionRange) String() string {
	if r.Start == r.End {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// DeadBlock lists the unreachable instructions of one live method.
type DeadBlock struct {
	Method  string             `json:"method" toon:"method"`
	Indices []int              `json:"indices" toon:"indices"`
	Ranges  []InstructionRange `json:"ranges" toon:"ranges"`
}

// EntryPoint is a method treated as a root, with the policies that chose it.
type EntryPoint struct {
	Key      string   `json:"key" toon:"key"`
	Owner    string   `json:"owner" toon:"owner"`
	Policies []string `json:"policies" toon:"policies"`
}

// ReflectionSite is a reflective call record found in a method.
type ReflectionSite struct {
	Method string         `json:"method" toon:"method"`
	Kind   ReflectionKind `json:"kind" toon:"kind"`
	Target string         `json:"target" toon:"target"`
}

// ClassFieldStats counts field usage for one class.
type ClassFieldStats struct {
	Class     string `json:"class" toon:"class"`
	Total     int    `json:"total" toon:"total"`
	Unused    int    `json:"unused" toon:"unused"`
	ReadOnly  int    `json:"read_only" toon:"read_only"`
	WriteOnly int    `json:"write_only" toon:"write_only"`
}

// Summary holds the aggregate counts of a report.
type Summary struct {
	Mode             string  `json:"mode" toon:"mode"`
	TotalClasses     int     `json:"total_classes" toon:"total_classes"`
	TotalMethods     int     `json:"total_methods" toon:"total_methods"`
	TotalFields      int     `json:"total_fields" toon:"total_fields"`
	EntryPoints      int     `json:"entry_points" toon:"entry_points"`
	ReachableMethods int     `json:"reachable_methods" toon:"reachable_methods"`
	DeadMethods      int     `json:"dead_methods" toon:"dead_methods"`
	DeadFields       int     `json:"dead_fields" toon:"dead_fields"`
	DeadBlocks       int     `json:"dead_blocks" toon:"dead_blocks"`
	DeadInstructions int     `json:"dead_instructions" toon:"dead_instructions"`
	ReflectionCalls  int     `json:"reflection_calls" toon:"reflection_calls"`
	HeuristicEdges   int     `json:"heuristic_edges" toon:"heuristic_edges"`
	DecodeFailures   int     `json:"decode_failures" toon:"decode_failures"`
	DeadMethodRatio  float64 `json:"dead_method_ratio" toon:"dead_method_ratio"`
}

// Report is the final result of an analysis run. It is built once by the
// aggregator and shares no memory with the analysis state.
type Report struct {
	Summary         Summary           `json:"summary" toon:"summary"`
	DeadMethods     []DeadMethod      `json:"dead_methods" toon:"dead_methods"`
	DeadFields      []DeadField       `json:"dead_fields" toon:"dead_fields"`
	DeadBlocks      []DeadBlock       `json:"dead_blocks" toon:"dead_blocks"`
	DeadCycles      [][]string        `json:"dead_cycles,omitempty" toon:"dead_cycles"`
	EntryPoints     []EntryPoint      `json:"entry_points" toon:"entry_points"`
	ReflectionSites []ReflectionSite  `json:"reflection_sites,omitempty" toon:"reflection_sites"`
	FieldStats      []ClassFieldStats `json:"field_stats,omitempty" toon:"field_stats"`
	Warnings        []Warning         `json:"warnings,omitempty" toon:"warnings"`
	DecodeFailures  []DecodeFailure   `json:"decode_failures,omitempty" toon:"decode_failures"`
}

// HasFindings reports whether anything dead was found.
func (r *Report) HasFindings() bool {
	return len(r.DeadMethods) > 0 || len(r.DeadFields) > 0 || len(r.DeadBlocks) > 0
}

// HasWarning reports whether a warning with the given code is present.
func (r *Report) HasWarning(code WarningCode) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// DeadBlockMap returns the dead instruction indices keyed by method.
func (r *Report) DeadBlockMap() map[string][]int {
	out := make(map[string][]int, len(r.DeadBlocks))
	for _, b := range r.DeadBlocks {
		out[b.Method] = append([]int(nil), b.Indices...)
	}
	return out
}

// DeadMethodsByClass groups dead method keys by owning class.
func (r *Report) DeadMethodsByClass() map[string][]string {
	out := make(map[string][]string)
	for _, m := range r.DeadMethods {
		out[m.Owner] = append(out[m.Owner], m.Key)
	}
	return out
}

// EntryPointsByClass counts entry points per owning class.
func (r *Report) EntryPointsByClass() map[string]int {
	out := make(map[string]int)
	for _, e := range r.EntryPoints {
		out[e.Owner]++
	}
	return out
}

// Fingerprint digests the findings of the report. Two runs over the same
// program produce the same fingerprint.
func (r *Report) Fingerprint() uint64 {
	d := xxhash.New()
	write := func(s string) {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}
	writeInt := func(n int) {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(n))
		_, _ = d.Write(buf[:])
	}

	write("methods")
	for _, m := range r.DeadMethods {
		write(m.Key)
	}
	write("fields")
	for _, f := range r.DeadFields {
		write(f.Key)
		write(string(f.Reason))
	}
	write("blocks")
	blocks := append([]DeadBlock(nil), r.DeadBlocks...)
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Method < blocks[j].Method })
	for _, b := range blocks {
		write(b.Method)
		for _, idx := range b.Indices {
			writeInt(idx)
		}
	}
	write("entries")
	for _, e := range r.EntryPoints {
		write(e.Key)
	}
	writeInt(r.Summary.ReflectionCalls)
	writeInt(r.Summary.TotalMethods)
	return d.Sum64()
}
