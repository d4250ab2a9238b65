// Package fields tracks which declared fields are read and written.
package fields

import (
	"sort"
	"strings"

	"github.com/panbanda/deadwood/pkg/models"
)

// Tracker records field usage over a whole program.
type Tracker struct {
	fields []*models.Field
	byKey  map[string]*models.Field
}

// NewTracker indexes the fields of classes.
func NewTracker(classes []*models.Class) *Tracker {
	t := &Tracker{byKey: make(map[string]*models.Field)}
	for _, c := range classes {
		for _, f := range c.Fields {
			key := f.Key()
			if _, ok := t.byKey[key]; ok {
				continue
			}
			t.byKey[key] = f
			t.fields = append(t.fields, f)
		}
	}
	return t
}

// Scan walks every instruction once and sets the read and written flags of
// the fields they touch. Accesses to fields outside the program are
// ignored. Flags are never cleared.
func (t *Tracker) Scan(classes []*models.Class) {
	for _, c := range classes {
		for _, m := range c.Methods {
			for _, in := range m.Instructions {
				switch in.Tag {
				case models.TagFieldRead:
					if f, ok := t.byKey[in.Ref]; ok {
						f.MarkRead()
					}
				case models.TagFieldWrite:
					if f, ok := t.byKey[in.Ref]; ok {
						f.MarkWritten()
					}
				}
			}
		}
	}
}

// Excluded reports whether f is never reported: compile-time constants,
// compiler generated fields, and serialization version ids.
func Excluded(f *models.Field) bool {
	if f.Access.IsStatic() && f.Access.IsFinal() {
		return true
	}
	if strings.HasPrefix(f.Name, "$") {
		return true
	}
	return f.Name == "serialVersionUID"
}

// Classify returns why f is dead, or false when it is read.
func Classify(f *models.Field) (models.DeadFieldReason, bool) {
	switch {
	case f.Read:
		return "", false
	case f.Written:
		return models.FieldWriteOnly, true
	default:
		return models.FieldUnused, true
	}
}

// DeadFields returns the unused and write-only fields, sorted by key.
func (t *Tracker) DeadFields() []models.DeadField {
	var out []models.DeadField
	for _, f := range t.fields {
		if Excluded(f) {
			continue
		}
		reason, dead := Classify(f)
		if !dead {
			continue
		}
		out = append(out, models.DeadField{
			Key:        f.Key(),
			Owner:      f.Owner,
			Name:       f.Name,
			Descriptor: f.Descriptor,
			Access:     f.Access,
			Reason:     reason,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Stats counts field usage per class, sorted by class name.
func (t *Tracker) Stats() []models.ClassFieldStats {
	byClass := make(map[string]*models.ClassFieldStats)
	for _, f := range t.fields {
		s, ok := byClass[f.Owner]
		if !ok {
			s = &models.ClassFieldStats{Class: f.Owner}
			byClass[f.Owner] = s
		}
		s.Total++
		switch {
		case !f.Read && !f.Written:
			s.Unused++
		case f.Read && !f.Written:
			s.ReadOnly++
		case !f.Read && f.Written:
			s.WriteOnly++
		}
	}

	out := make([]models.ClassFieldStats, 0, len(byClass))
	for _, s := range byClass {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })
	return out
}

// Len returns the number of tracked fields.
func (t *Tracker) Len() int { return len(t.fields) }
