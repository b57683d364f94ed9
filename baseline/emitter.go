package baseline

// LabelID is an opaque reference to a branch target, represented as an
// index into the compilation's label arena rather than a pointer. This
// sidesteps the address-stability problems some architectures have with
// Label objects: nothing in this
// package ever takes a Go pointer to a Label, so moving the backing slice
// around (map growth, snapshotting) is always safe.
type LabelID int

// Emitter is the architecture-neutral primitive set the baseline core
// requires from a concrete code generator. The core never constructs
// machine code itself; it only calls these primitives in the order the
// cache-state transformations dictate. One concrete target architecture is
// selected per build — Emitter is a capability parameter of the compiler,
// not a base class to subclass.
type Emitter interface {
	// Control flow.
	Bind(label LabelID)
	Jmp(label LabelID)
	JumpIfZero(reg Reg, label LabelID)

	// Frame management.
	EnterFrame()
	ReserveStackSpace(slots int)
	LeaveFrame()
	Ret()

	// Register/constant movement.
	Move(dst, src Reg)
	LoadConstant(reg Reg, value int64)

	// Memory access (byte-addressed; size is 1, 2, 4, or 8).
	Load(reg Reg, baseReg Reg, offset int32, size int)
	Store(baseReg Reg, offset int32, reg Reg, size int)

	// Spill-slot access. offset is a slot offset computed by CacheState,
	// not a raw byte address the caller needs to compute itself.
	Spill(offset int32, reg Reg)
	Fill(reg Reg, offset int32)

	// Thread-local runtime context access (used by global.get/global.set).
	LoadFromContext(reg Reg, offset int32, size int)
	SpillContext(reg Reg, offset int32)

	// Caller frame (parameter binding).
	LoadCallerFrameSlot(reg Reg, slotIndex int)
	MoveToReturnRegister(reg Reg, class RegClass)

	// Integer binops.
	I32Add(dst, lhs, rhs Reg)
	I32Sub(dst, lhs, rhs Reg)
	I32Mul(dst, lhs, rhs Reg)
	I32And(dst, lhs, rhs Reg)
	I32Or(dst, lhs, rhs Reg)
	I32Xor(dst, lhs, rhs Reg)

	// Float binops.
	F32Add(dst, lhs, rhs Reg)
	F32Sub(dst, lhs, rhs Reg)
	F32Mul(dst, lhs, rhs Reg)
}

// labelArena owns every Label created during one compilation. It is
// discarded wholesale when the compilation finishes; nothing outside this
// package ever holds a LabelID past that point.
type labelArena struct {
	bound []bool
}

func newLabelArena() *labelArena {
	return &labelArena{}
}

func (a *labelArena) new() LabelID {
	id := LabelID(len(a.bound))
	a.bound = append(a.bound, false)
	return id
}

func (a *labelArena) markBound(id LabelID) {
	a.bound[id] = true
}

func (a *labelArena) isBound(id LabelID) bool {
	return a.bound[id]
}

// unboundLabels returns every label created so far that has not been
// bound yet, in creation order.
func (a *labelArena) unboundLabels() []LabelID {
	var out []LabelID
	for i, bound := range a.bound {
		if !bound {
			out = append(out, LabelID(i))
		}
	}
	return out
}
