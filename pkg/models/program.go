package models

// Special method names.
const (
	ConstructorName       = "<init>"
	StaticInitializerName = "<clinit>"
)

// InstructionTag classifies an instruction for the analyses.
type InstructionTag string

const (
	TagOther       InstructionTag = "other"
	TagMethodCall  InstructionTag = "call"
	TagControlFlow InstructionTag = "jump"
	TagFieldRead   InstructionTag = "field_read"
	TagFieldWrite  InstructionTag = "field_write"
)

// Instruction is one decoded bytecode instruction of a method body.
type Instruction struct {
	Index  int            `json:"index"`
	Opcode int            `json:"opcode"`
	Tag    InstructionTag `json:"tag"`
	// Ref is the method key of a call or the field key of a field access.
	Ref string `json:"ref,omitempty"`
	// JumpTarget is only meaningful when JumpResolved is set.
	JumpTarget   int  `json:"jump_target,omitempty"`
	JumpResolved bool `json:"jump_resolved,omitempty"`
	// Terminal instructions never fall through to the next index.
	Terminal bool `json:"terminal,omitempty"`
}

// Jump returns the resolved jump target of a control-flow instruction.
func (i Instruction) Jump() (int, bool) {
	if i.Tag != TagControlFlow || !i.JumpResolved {
		return 0, false
	}
	return i.JumpTarget, true
}

// ReflectionKind identifies the reflective API a call site uses.
type ReflectionKind string

const (
	ReflectClassForName ReflectionKind = "class_for_name"
	ReflectGetMethod    ReflectionKind = "get_method"
	ReflectMethodInvoke ReflectionKind = "method_invoke"
)

// ReflectiveCall records a call site into the reflection API.
type ReflectiveCall struct {
	Kind       ReflectionKind `json:"kind"`
	Owner      string         `json:"owner"`
	Name       string         `json:"name"`
	Descriptor string         `json:"descriptor"`
}

// Method is a decoded method declaration and its body.
type Method struct {
	Owner           string           `json:"owner"`
	Name            string           `json:"name"`
	Descriptor      string           `json:"descriptor"`
	Access          AccessFlags      `json:"access"`
	Instructions    []Instruction    `json:"instructions,omitempty"`
	Strings         []string         `json:"strings,omitempty"`
	ReflectiveCalls []ReflectiveCall `json:"reflective_calls,omitempty"`
}

// MethodKey builds the identity key owner.name+descriptor.
func MethodKey(owner, name, descriptor string) string {
	return owner + "." + name + descriptor
}

// Key returns the method identity key.
func (m *Method) Key() string {
	return MethodKey(m.Owner, m.Name, m.Descriptor)
}

func (m *Method) IsInit() bool      { return m.Name == ConstructorName }
func (m *Method) IsClinit() bool    { return m.Name == StaticInitializerName }
func (m *Method) IsStatic() bool    { return m.Access.IsStatic() }
func (m *Method) IsPublic() bool    { return m.Access.IsPublic() }
func (m *Method) IsSynthetic() bool { return m.Access.IsSynthetic() }
func (m *Method) IsBridge() bool    { return m.Access.Has(AccBridge) }

// Field is a decoded field declaration with its usage flags. Read and
// Written start false and are only ever set to true.
type Field struct {
	Owner      string      `json:"owner"`
	Name       string      `json:"name"`
	Descriptor string      `json:"descriptor"`
	Access     AccessFlags `json:"access"`
	Read       bool        `json:"read,omitempty"`
	Written    bool        `json:"written,omitempty"`
}

// FieldKey builds the identity key owner.name:descriptor.
func FieldKey(owner, name, descriptor string) string {
	return owner + "." + name + ":" + descriptor
}

// Key returns the field identity key.
func (f *Field) Key() string {
	return FieldKey(f.Owner, f.Name, f.Descriptor)
}

// MarkRead sets the read flag.
func (f *Field) MarkRead() { f.Read = true }

// MarkWritten sets the written flag.
func (f *Field) MarkWritten() { f.Written = true }

// Class is one decoded compiled unit.
type Class struct {
	Name    string      `json:"name"`
	Access  AccessFlags `json:"access"`
	Methods []*Method   `json:"methods"`
	Fields  []*Field    `json:"fields"`
}
