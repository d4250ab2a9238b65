package models

import "strings"

// AccessFlags is the JVM access_flags bit set of a class, method or field.
type AccessFlags uint16

// Access flag bits. Some bits are shared between member kinds: 0x0040 is
// ACC_BRIDGE on methods and ACC_VOLATILE on fields, 0x0080 is ACC_VARARGS on
// methods and ACC_TRANSIENT on fields.
const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSynchronized AccessFlags = 0x0020
	AccBridge       AccessFlags = 0x0040
	AccVolatile     AccessFlags = 0x0040
	AccVarargs      AccessFlags = 0x0080
	AccTransient    AccessFlags = 0x0080
	AccNative       AccessFlags = 0x0100
	AccInterface    AccessFlags = 0x0200
	AccAbstract     AccessFlags = 0x0400
	AccStrict       AccessFlags = 0x0800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
)

// Has reports whether every bit of flag is set.
func (a AccessFlags) Has(flag AccessFlags) bool {
	return a&flag == flag
}

func (a AccessFlags) IsPublic() bool    { return a.Has(AccPublic) }
func (a AccessFlags) IsPrivate() bool   { return a.Has(AccPrivate) }
func (a AccessFlags) IsProtected() bool { return a.Has(AccProtected) }
func (a AccessFlags) IsStatic() bool    { return a.Has(AccStatic) }
func (a AccessFlags) IsFinal() bool     { return a.Has(AccFinal) }
func (a AccessFlags) IsSynthetic() bool { return a.Has(AccSynthetic) }
func (a AccessFlags) IsAbstract() bool  { return a.Has(AccAbstract) }

// modifierNames lists the names accepted by ParseModifier, in render order.
var modifierNames = []struct {
	name string
	flag AccessFlags
}{
	{"public", AccPublic},
	{"private", AccPrivate},
	{"protected", AccProtected},
	{"static", AccStatic},
	{"final", AccFinal},
	{"synchronized", AccSynchronized},
	{"volatile", AccVolatile},
	{"transient", AccTransient},
	{"native", AccNative},
	{"abstract", AccAbstract},
	{"strictfp", AccStrict},
	{"synthetic", AccSynthetic},
	{"bridge", AccBridge},
	{"varargs", AccVarargs},
	{"interface", AccInterface},
	{"annotation", AccAnnotation},
	{"enum", AccEnum},
}

// ParseModifier returns the flag for a modifier name such as "public".
func ParseModifier(name string) (AccessFlags, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, m := range modifierNames {
		if m.name == name {
			return m.flag, true
		}
	}
	return 0, false
}

// FieldModifiers renders the modifiers of a field in source order,
// e.g. "private static final".
func (a AccessFlags) FieldModifiers() string {
	var parts []string
	switch {
	case a.IsPublic():
		parts = append(parts, "public")
	case a.IsPrivate():
		parts = append(parts, "private")
	case a.IsProtected():
		parts = append(parts, "protected")
	}
	if a.IsStatic() {
		parts = append(parts, "static")
	}
	if a.IsFinal() {
		parts = append(parts, "final")
	}
	if a.Has(AccVolatile) {
		parts = append(parts, "volatile")
	}
	if a.Has(AccTransient) {
		parts = append(parts, "transient")
	}
	return strings.Join(parts, " ")
}

// MethodModifiers renders the modifiers of a method in source order.
func (a AccessFlags) MethodModifiers() string {
	var parts []string
	switch {
	case a.IsPublic():
		parts = append(parts, "public")
	case a.IsPrivate():
		parts = append(parts, "private")
	case a.IsProtected():
		parts = append(parts, "protected")
	}
	if a.IsAbstract() {
		parts = append(parts, "abstract")
	}
	if a.IsStatic() {
		parts = append(parts, "static")
	}
	if a.IsFinal() {
		parts = append(parts, "final")
	}
	if a.Has(AccSynchronized) {
		parts = append(parts, "synchronized")
	}
	if a.Has(AccNative) {
		parts = append(parts, "native")
	}
	if a.Has(AccSynthetic) {
		parts = append(parts, "synthetic")
	}
	if a.Has(AccBridge) {
		parts = append(parts, "bridge")
	}
	return strings.Join(parts, " ")
}
