// Package decoder turns compiled unit bytes into class records.
//
// Decoding real class files is left to external implementations of
// Decoder. RecordDecoder reads the pre-decoded JSON or YAML unit format
// described by unit.schema.json.
package decoder

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/panbanda/deadwood/pkg/models"
)

// Decoder decodes one compiled unit.
type Decoder interface {
	Decode(data []byte) (*models.Class, error)
}

// ErrInvalidUnit is wrapped by every RecordDecoder failure.
var ErrInvalidUnit = errors.New("invalid unit")

//go:embed unit.schema.json
var unitSchema []byte

const schemaURL = "unit.schema.json"

// JVM opcodes the decoder gives meaning to.
const (
	OpGoto      = 167
	OpRet       = 169
	OpIreturn   = 172
	OpReturn    = 177
	OpGetstatic = 178
	OpPutstatic = 179
	OpGetfield  = 180
	OpPutfield  = 181
	OpAthrow    = 191
	OpGotoW     = 200
)

// IsTerminalOpcode reports whether op never falls through: the return
// family, athrow, and unconditional jumps.
func IsTerminalOpcode(op int) bool {
	switch {
	case op >= OpIreturn && op <= OpReturn:
		return true
	case op == OpAthrow, op == OpGoto, op == OpGotoW, op == OpRet:
		return true
	}
	return false
}

// Reflective API entry points recognized in call instructions.
var reflectiveAPIs = map[string]models.ReflectionKind{
	"java.lang.Class.forName":           models.ReflectClassForName,
	"java.lang.Class.getMethod":         models.ReflectGetMethod,
	"java.lang.Class.getDeclaredMethod": models.ReflectGetMethod,
	"java.lang.reflect.Method.invoke":   models.ReflectMethodInvoke,
}

// RecordDecoder decodes the JSON or YAML unit record format.
type RecordDecoder struct {
	schema *jsonschema.Schema
}

// NewRecordDecoder compiles the embedded unit schema.
func NewRecordDecoder() (*RecordDecoder, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(unitSchema))
	if err != nil {
		return nil, fmt.Errorf("load unit schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add unit schema: %w", err)
	}
	sch, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile unit schema: %w", err)
	}
	return &RecordDecoder{schema: sch}, nil
}

// Compile-time check that RecordDecoder implements Decoder.
var _ Decoder = (*RecordDecoder)(nil)

// Decode validates data against the unit schema and converts it.
func (d *RecordDecoder) Decode(data []byte) (*models.Class, error) {
	raw, err := toJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUnit, err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUnit, err)
	}
	if err := d.schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUnit, err)
	}

	var rec unitRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUnit, err)
	}
	return rec.toClass()
}

// toJSON returns data as JSON, converting YAML documents.
func toJSON(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty unit")
	}
	if trimmed[0] == '{' {
		return trimmed, nil
	}
	var doc any
	if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return json.Marshal(doc)
}

// ClassName converts an internal name such as com/foo/Bar to com.foo.Bar.
func ClassName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}
