package models

import "fmt"

// String methods for the custom string types.
// These are required for toon serialization, which uses fmt.Stringer.

// InstructionTag
func (t InstructionTag) String() string { return string(t) }

// ReflectionKind
func (k ReflectionKind) String() string { return string(k) }

// WarningCode
func (c WarningCode) String() string { return string(c) }

// DeadFieldReason
func (r DeadFieldReason) String() string { return string(r) }

// AccessFlags renders the raw bits the way javap prints them, e.g. "0x0009".
// Member-specific names come from FieldModifiers and MethodModifiers.
func (a AccessFlags) String() string { return fmt.Sprintf("0x%04x", uint16(a)) }
