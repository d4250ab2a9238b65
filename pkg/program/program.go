// Package program holds the decoded program image: every class, method and
// field of the analyzed units, indexed by identity key.
package program

import (
	"fmt"

	"github.com/panbanda/deadwood/pkg/models"
)

// Program is the whole-program model shared by every analysis phase.
type Program struct {
	classes  []*models.Class
	methods  []*models.Method
	fields   []*models.Field
	byMethod map[string]*models.Method
	byField  map[string]*models.Field
	failures []*DecodeError
}

// Classes returns the classes in insertion order.
func (p *Program) Classes() []*models.Class { return p.classes }

// Methods returns every method in insertion order.
func (p *Program) Methods() []*models.Method { return p.methods }

// Fields returns every field in insertion order.
func (p *Program) Fields() []*models.Field { return p.fields }

// Method looks up a method by key.
func (p *Program) Method(key string) (*models.Method, bool) {
	m, ok := p.byMethod[key]
	return m, ok
}

// Field looks up a field by key.
func (p *Program) Field(key string) (*models.Field, bool) {
	f, ok := p.byField[key]
	return f, ok
}

// Failures returns the units that could not be decoded.
func (p *Program) Failures() []*DecodeError { return p.failures }

// ReflectionCallCount counts reflective call records across all methods.
func (p *Program) ReflectionCallCount() int {
	n := 0
	for _, m := range p.methods {
		n += len(m.ReflectiveCalls)
	}
	return n
}

// DecodeError is a unit that failed to decode. The unit is skipped and the
// run continues.
type DecodeError struct {
	Unit string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Unit, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
