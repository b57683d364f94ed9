package baseline

import "github.com/wippyai/wasm-baseline/wasm"

// RegClass is a register class: general-purpose or floating-point.
type RegClass byte

const (
	GP RegClass = iota
	FP
)

func (c RegClass) String() string {
	if c == FP {
		return "fp"
	}
	return "gp"
}

// classOf returns the register class that holds values of t, and whether
// t is supported by the baseline at all.
func classOf(t wasm.ValType) (RegClass, bool) {
	switch t {
	case wasm.ValI32:
		return GP, true
	case wasm.ValF32:
		return FP, true
	case wasm.ValI64, wasm.ValF64:
		return GP, false
	default:
		return GP, false
	}
}

// Reg identifies one architecture register within a fixed cache list. Num
// is an index into that class's cache list, not a raw architecture
// register number — the Emitter alone knows what Num means physically.
type Reg struct {
	Class RegClass
	Num   int
}

// id maps r into a bit position in RegSet. Each class gets its own 32-bit
// half of the 64-bit mask, so a class's Num must stay below 32 — comfortably
// above any real cache-register-list length.
func (r Reg) id() uint {
	return uint(r.Class)*32 + uint(r.Num)
}

// RegSet is a compact bitmap of Regs, used to represent registers pinned
// (protected) against allocation during a single operation. Bits [0,32)
// hold GP registers, bits [32,64) hold FP registers.
type RegSet uint64

// NoPinned returns an empty pin set.
func NoPinned() RegSet { return 0 }

// Has reports whether r is a member of the set.
func (s RegSet) Has(r Reg) bool { return s&(1<<r.id()) != 0 }

// With returns a new set with r added.
func (s RegSet) With(r Reg) RegSet { return s | (1 << r.id()) }

// Location is the tag of a VarState's union: where a slot's value lives.
type Location byte

const (
	LocRegister Location = iota
	LocConstant
	LocStack
)

func (l Location) String() string {
	switch l {
	case LocRegister:
		return "register"
	case LocConstant:
		return "constant"
	case LocStack:
		return "stack"
	default:
		return "invalid"
	}
}

// VarState is the fundamental cache-state slot: a value type plus a
// location drawn from {Register, Constant, Stack}. Constant only ever
// holds an integer payload — non-integer constants (f32/f64) must be
// pre-materialised into a register before push.
type VarState struct {
	Type  wasm.ValType
	Loc   Location
	Reg   Reg
	Const int64
}

func registerState(t wasm.ValType, r Reg) VarState {
	return VarState{Type: t, Loc: LocRegister, Reg: r}
}

func constantState(t wasm.ValType, c int64) VarState {
	return VarState{Type: t, Loc: LocConstant, Const: c}
}

func stackState(t wasm.ValType) VarState {
	return VarState{Type: t, Loc: LocStack}
}
