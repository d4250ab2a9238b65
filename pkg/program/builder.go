package program

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/panbanda/deadwood/pkg/models"
)

// ErrConflictingDefinition is returned when the same identity key is
// declared twice with different content.
var ErrConflictingDefinition = errors.New("conflicting definition")

// Builder assembles a Program from decoded classes. It is not safe for
// concurrent use: decode in parallel, insert from one goroutine.
type Builder struct {
	prog        *Program
	fingerprint map[string]uint64
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		prog: &Program{
			byMethod: make(map[string]*models.Method),
			byField:  make(map[string]*models.Field),
		},
		fingerprint: make(map[string]uint64),
	}
}

// Add inserts a decoded class. Adding an identical class again is a no-op.
func (b *Builder) Add(unit string, class *models.Class) error {
	if class == nil {
		return fmt.Errorf("%s: nil class", unit)
	}

	sum := Fingerprint(class)
	if prev, ok := b.fingerprint[class.Name]; ok {
		if prev == sum {
			return nil
		}
		return fmt.Errorf("%s: class %s: %w", unit, class.Name, ErrConflictingDefinition)
	}

	// Validate the whole class before touching the indexes so a failed Add
	// leaves the program unchanged.
	methods := make(map[string]*models.Method, len(class.Methods))
	for _, m := range class.Methods {
		if m.Owner == "" {
			m.Owner = class.Name
		}
		key := m.Key()
		if prev, ok := methods[key]; ok && methodSum(prev) != methodSum(m) {
			return fmt.Errorf("%s: method %s: %w", unit, key, ErrConflictingDefinition)
		}
		if existing, ok := b.prog.byMethod[key]; ok && methodSum(existing) != methodSum(m) {
			return fmt.Errorf("%s: method %s: %w", unit, key, ErrConflictingDefinition)
		}
		methods[key] = m
	}
	fields := make(map[string]*models.Field, len(class.Fields))
	for _, f := range class.Fields {
		if f.Owner == "" {
			f.Owner = class.Name
		}
		key := f.Key()
		if prev, ok := fields[key]; ok && fieldSum(prev) != fieldSum(f) {
			return fmt.Errorf("%s: field %s: %w", unit, key, ErrConflictingDefinition)
		}
		fields[key] = f
	}

	b.fingerprint[class.Name] = sum
	b.prog.classes = append(b.prog.classes, class)
	for _, m := range class.Methods {
		key := m.Key()
		if _, ok := b.prog.byMethod[key]; ok {
			continue
		}
		b.prog.byMethod[key] = m
		b.prog.methods = append(b.prog.methods, m)
	}
	for _, f := range class.Fields {
		key := f.Key()
		if _, ok := b.prog.byField[key]; ok {
			continue
		}
		b.prog.byField[key] = f
		b.prog.fields = append(b.prog.fields, f)
	}
	return nil
}

// AddFailure records a unit that could not be decoded.
func (b *Builder) AddFailure(unit string, err error) {
	var de *DecodeError
	if errors.As(err, &de) {
		b.prog.failures = append(b.prog.failures, de)
		return
	}
	b.prog.failures = append(b.prog.failures, &DecodeError{Unit: unit, Err: err})
}

// Build returns the assembled program. The builder must not be used
// afterwards.
func (b *Builder) Build() *Program {
	return b.prog
}

// Fingerprint digests the declared content of a class. Usage flags on
// fields are not part of the digest.
func Fingerprint(c *models.Class) uint64 {
	d := xxhash.New()
	writeString(d, c.Name)
	writeInt(d, int(c.Access))
	for _, m := range c.Methods {
		writeInt(d, int(methodSum(m)))
	}
	writeString(d, "fields")
	for _, f := range c.Fields {
		writeInt(d, int(fieldSum(f)))
	}
	return d.Sum64()
}

func methodSum(m *models.Method) uint64 {
	d := xxhash.New()
	writeString(d, m.Key())
	writeInt(d, int(m.Access))
	for _, in := range m.Instructions {
		writeInt(d, in.Index)
		writeInt(d, in.Opcode)
		writeString(d, string(in.Tag))
		writeString(d, in.Ref)
		if t, ok := in.Jump(); ok {
			writeInt(d, t)
		} else {
			writeInt(d, -1)
		}
	}
	for _, s := range m.Strings {
		writeString(d, s)
	}
	for _, rc := range m.ReflectiveCalls {
		writeString(d, string(rc.Kind))
		writeString(d, models.MethodKey(rc.Owner, rc.Name, rc.Descriptor))
	}
	return d.Sum64()
}

func fieldSum(f *models.Field) uint64 {
	d := xxhash.New()
	writeString(d, f.Key())
	writeInt(d, int(f.Access))
	return d.Sum64()
}

func writeString(d *xxhash.Digest, s string) {
	_, _ = d.WriteString(s)
	_, _ = d.Write([]byte{0})
}

func writeInt(d *xxhash.Digest, n int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	_, _ = d.Write(buf[:])
}
