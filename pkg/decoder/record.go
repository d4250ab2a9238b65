package decoder

import (
	"errors"
	"fmt"

	"github.com/panbanda/deadwood/pkg/models"
)

type unitRecord struct {
	Name      string         `json:"name"`
	Access    int            `json:"access"`
	Modifiers []string       `json:"modifiers"`
	Fields    []fieldRecord  `json:"fields"`
	Methods   []methodRecord `json:"methods"`
}

type fieldRecord struct {
	Name       string   `json:"name"`
	Descriptor string   `json:"descriptor"`
	Access     int      `json:"access"`
	Modifiers  []string `json:"modifiers"`
}

type methodRecord struct {
	Name         string              `json:"name"`
	Descriptor   string              `json:"descriptor"`
	Access       int                 `json:"access"`
	Modifiers    []string            `json:"modifiers"`
	Strings      []string            `json:"strings"`
	Reflection   *[]reflectionRecord `json:"reflection"`
	Instructions []instructionRecord `json:"instructions"`
}

type reflectionRecord struct {
	Kind       string `json:"kind"`
	Owner      string `json:"owner"`
	Name       string `json:"name"`
	Descriptor string `json:"descriptor"`
}

type memberRef struct {
	Owner      string `json:"owner"`
	Name       string `json:"name"`
	Descriptor string `json:"descriptor"`
}

type instructionRecord struct {
	Opcode   int        `json:"opcode"`
	Tag      string     `json:"tag"`
	Call     *memberRef `json:"call"`
	Field    *memberRef `json:"field"`
	Target   *int       `json:"target"`
	Jump     string     `json:"jump"`
	Label    string     `json:"label"`
	String   *string    `json:"string"`
	Terminal *bool      `json:"terminal"`
}

func (r *unitRecord) toClass() (*models.Class, error) {
	access, err := accessFlags(r.Access, r.Modifiers)
	if err != nil {
		return nil, fmt.Errorf("%w: class %s: %v", ErrInvalidUnit, r.Name, err)
	}
	c := &models.Class{
		Name:   ClassName(r.Name),
		Access: access,
	}
	for _, fr := range r.Fields {
		access, err := accessFlags(fr.Access, fr.Modifiers)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrInvalidUnit, fr.Name, err)
		}
		c.Fields = append(c.Fields, &models.Field{
			Owner:      c.Name,
			Name:       fr.Name,
			Descriptor: fr.Descriptor,
			Access:     access,
		})
	}
	for i := range r.Methods {
		m, err := r.Methods[i].toMethod(c.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: method %s%s: %v", ErrInvalidUnit, r.Methods[i].Name, r.Methods[i].Descriptor, err)
		}
		c.Methods = append(c.Methods, m)
	}
	return c, nil
}

func (r *methodRecord) toMethod(owner string) (*models.Method, error) {
	access, err := accessFlags(r.Access, r.Modifiers)
	if err != nil {
		return nil, err
	}
	m := &models.Method{
		Owner:      owner,
		Name:       r.Name,
		Descriptor: r.Descriptor,
		Access:     access,
	}

	labels := make(map[string]int)
	for i, in := range r.Instructions {
		if in.Label == "" {
			continue
		}
		if _, dup := labels[in.Label]; dup {
			return nil, fmt.Errorf("duplicate label %q", in.Label)
		}
		labels[in.Label] = i
	}

	strs := newStringSet(r.Strings)
	var inferred []models.ReflectiveCall
	for i, in := range r.Instructions {
		ins, err := in.toInstruction(i, labels)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		m.Instructions = append(m.Instructions, ins)
		if in.String != nil {
			strs.add(*in.String)
		}
		if in.Call != nil {
			if kind, ok := reflectiveAPIs[ClassName(in.Call.Owner)+"."+in.Call.Name]; ok {
				inferred = append(inferred, models.ReflectiveCall{
					Kind:       kind,
					Owner:      ClassName(in.Call.Owner),
					Name:       in.Call.Name,
					Descriptor: in.Call.Descriptor,
				})
			}
		}
	}
	m.Strings = strs.values

	// An explicit reflection list, even an empty one, replaces inference.
	if r.Reflection != nil {
		for _, rr := range *r.Reflection {
			m.ReflectiveCalls = append(m.ReflectiveCalls, models.ReflectiveCall{
				Kind:       models.ReflectionKind(rr.Kind),
				Owner:      ClassName(rr.Owner),
				Name:       rr.Name,
				Descriptor: rr.Descriptor,
			})
		}
	} else {
		m.ReflectiveCalls = inferred
	}
	return m, nil
}

func (r *instructionRecord) toInstruction(index int, labels map[string]int) (models.Instruction, error) {
	in := models.Instruction{
		Index:    index,
		Opcode:   r.Opcode,
		Tag:      r.tag(),
		Terminal: IsTerminalOpcode(r.Opcode),
	}
	if r.Terminal != nil {
		in.Terminal = *r.Terminal
	}

	switch in.Tag {
	case models.TagMethodCall:
		if r.Call == nil {
			return in, errors.New("call instruction without call reference")
		}
		in.Ref = models.MethodKey(ClassName(r.Call.Owner), r.Call.Name, r.Call.Descriptor)
	case models.TagFieldRead, models.TagFieldWrite:
		if r.Field == nil {
			return in, errors.New("field instruction without field reference")
		}
		in.Ref = models.FieldKey(ClassName(r.Field.Owner), r.Field.Name, r.Field.Descriptor)
	case models.TagControlFlow:
		// Unknown labels and negative targets leave the jump unresolved.
		switch {
		case r.Target != nil && *r.Target >= 0:
			in.JumpTarget, in.JumpResolved = *r.Target, true
		case r.Jump != "":
			if t, ok := labels[r.Jump]; ok {
				in.JumpTarget, in.JumpResolved = t, true
			}
		}
	}
	return in, nil
}

// tag returns the explicit tag, or infers one from the operands and opcode.
func (r *instructionRecord) tag() models.InstructionTag {
	if r.Tag != "" {
		return models.InstructionTag(r.Tag)
	}
	switch {
	case r.Call != nil:
		return models.TagMethodCall
	case r.Field != nil:
		if r.Opcode == OpPutfield || r.Opcode == OpPutstatic {
			return models.TagFieldWrite
		}
		return models.TagFieldRead
	case r.Target != nil || r.Jump != "":
		return models.TagControlFlow
	}
	return models.TagOther
}

func accessFlags(bits int, modifiers []string) (models.AccessFlags, error) {
	flags := models.AccessFlags(bits)
	for _, name := range modifiers {
		f, ok := models.ParseModifier(name)
		if !ok {
			return 0, fmt.Errorf("unknown modifier %q", name)
		}
		flags |= f
	}
	return flags, nil
}

type stringSet struct {
	seen   map[string]struct{}
	values []string
}

func newStringSet(initial []string) *stringSet {
	s := &stringSet{seen: make(map[string]struct{})}
	for _, v := range initial {
		s.add(v)
	}
	return s
}

func (s *stringSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.values = append(s.values, v)
}
