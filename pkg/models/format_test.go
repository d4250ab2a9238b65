package models

import (
	"encoding/json"
	"strings"
	"testing"

	toon "github.com/toon-format/toon-go"
)

func sampleReport() *Report {
	return &Report{
		Summary: Summary{
			Mode:            "union",
			TotalClasses:    2,
			TotalMethods:    5,
			EntryPoints:     1,
			DeadMethods:     2,
			DeadFields:      1,
			DeadBlocks:      1,
			DeadMethodRatio: 0.4,
		},
		DeadMethods: []DeadMethod{
			{Key: "app.Util.helper()V", Owner: "app.Util", Name: "helper", Descriptor: "()V", Access: AccPrivate},
			{Key: "app.Util.other()V", Owner: "app.Util", Name: "other", Descriptor: "()V"},
		},
		DeadFields: []DeadField{
			{Key: "app.Util.count:I", Owner: "app.Util", Name: "count", Descriptor: "I", Access: AccPrivate, Reason: FieldWriteOnly},
		},
		DeadBlocks: []DeadBlock{
			{Method: "app.Main.main([Ljava/lang/String;)V", Indices: []int{3, 4}, Ranges: []InstructionRange{{Start: 3, End: 4}}},
		},
		DeadCycles:  [][]string{{"app.Util.helper()V", "app.Util.other()V"}},
		EntryPoints: []EntryPoint{{Key: "app.Main.main([Ljava/lang/String;)V", Owner: "app.Main", Policies: []string{"main"}}},
		ReflectionSites: []ReflectionSite{
			{Method: "app.Main.main([Ljava/lang/String;)V", Kind: ReflectGetMethod, Target: "java.lang.Class.getMethod"},
		},
		Warnings: []Warning{{Code: WarningDecodeFailures, Message: "1 unit could not be decoded"}},
	}
}

// TestAllTypesSerializeToJSON ensures the report types work with JSON encoding.
func TestAllTypesSerializeToJSON(t *testing.T) {
	rep := sampleReport()
	tests := []struct {
		name string
		data any
	}{
		{"Report", rep},
		{"Summary", rep.Summary},
		{"DeadMethod", rep.DeadMethods[0]},
		{"DeadField", rep.DeadFields[0]},
		{"DeadBlock", rep.DeadBlocks[0]},
		{"EntryPoint", rep.EntryPoints[0]},
		{"ReflectionSite", rep.ReflectionSites[0]},
		{"Warning", rep.Warnings[0]},
		{"Empty_report", &Report{}},
		{"Class", Class{
			Name: "app.Main",
			Methods: []*Method{{
				Owner:        "app.Main",
				Name:         "main",
				Descriptor:   "()V",
				Instructions: []Instruction{{Index: 0, Opcode: 177, Tag: TagOther, Terminal: true}},
			}},
			Fields: []*Field{{Owner: "app.Main", Name: "x", Descriptor: "I"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name+"_json", func(t *testing.T) {
			data, err := json.Marshal(tt.data)
			if err != nil {
				t.Errorf("JSON marshal failed: %v", err)
				return
			}
			if len(data) == 0 {
				t.Error("JSON output should not be empty")
			}
		})
	}
}

// TestAllTypesSerializeToTOON ensures the report types work with TOON encoding.
func TestAllTypesSerializeToTOON(t *testing.T) {
	rep := sampleReport()
	tests := []struct {
		name string
		data any
	}{
		{"Report", rep},
		{"Summary", rep.Summary},
		{"DeadMethods", rep.DeadMethods},
		{"DeadField", rep.DeadFields[0]},
		{"DeadFields", rep.DeadFields},
		{"Warnings", rep.Warnings},
		{"Empty_report", &Report{}},
	}

	for _, tt := range tests {
		t.Run(tt.name+"_toon", func(t *testing.T) {
			data, err := toon.Marshal(tt.data)
			if err != nil {
				t.Errorf("TOON marshal failed: %v", err)
				return
			}
			if len(data) == 0 {
				t.Error("TOON output should not be empty")
			}
		})
	}

	data, err := toon.Marshal(rep)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"write_only", "app.Util.helper()V", "app.Util.count:I", "0x0002"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("TOON output missing %q:\n%s", want, data)
		}
	}
}

func TestCustomStringTypesImplementStringer(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{ String() string }
		expect string
	}{
		{"InstructionTag_call", TagMethodCall, "call"},
		{"InstructionTag_jump", TagControlFlow, "jump"},
		{"InstructionTag_field_read", TagFieldRead, "field_read"},
		{"InstructionTag_field_write", TagFieldWrite, "field_write"},
		{"InstructionTag_other", TagOther, "other"},
		{"ReflectionKind_for_name", ReflectClassForName, "class_for_name"},
		{"ReflectionKind_get_method", ReflectGetMethod, "get_method"},
		{"ReflectionKind_invoke", ReflectMethodInvoke, "method_invoke"},
		{"WarningCode_no_entry_points", WarningNoEntryPoints, "no_entry_points"},
		{"WarningCode_decode_failures", WarningDecodeFailures, "decode_failures"},
		{"DeadFieldReason_unused", FieldUnused, "unused"},
		{"DeadFieldReason_write_only", FieldWriteOnly, "write_only"},
		{"InstructionRange_single", InstructionRange{Start: 7, End: 7}, "7"},
		{"InstructionRange_span", InstructionRange{Start: 4, End: 5}, "4-5"},
		{"AccessFlags_public_static", AccPublic | AccStatic, "0x0009"},
		{"AccessFlags_none", AccessFlags(0), "0x0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.value.String()
			if result != tt.expect {
				t.Errorf("String() = %q, want %q", result, tt.expect)
			}
		})
	}
}

// TestRoundTripJSON verifies the report survives a JSON round trip.
func TestRoundTripJSON(t *testing.T) {
	original := sampleReport()

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.DeadFields[0].Reason != FieldWriteOnly {
		t.Errorf("Reason = %v, want %v", decoded.DeadFields[0].Reason, FieldWriteOnly)
	}
	if decoded.Fingerprint() != original.Fingerprint() {
		t.Error("fingerprint changed across a JSON round trip")
	}
}
