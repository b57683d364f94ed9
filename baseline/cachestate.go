package baseline

import "github.com/wippyai/wasm-baseline/wasm"

// slotSize is the physical stack-frame slot width, in bytes, reserved for
// every cache-state slot regardless of value type. i32 and f32 both fit in
// 4 bytes; using a uniform 8-byte slot keeps offset arithmetic trivial and
// wastes at most 4 bytes per slot, which the baseline happily trades for
// simplicity (see spec.md §1 Non-goals: peak code quality is not a goal).
const slotSize = 8

// CacheState is the symbolic model of a function's locals and operand
// stack at one program point: an ordered sequence of VarState entries
// indexed [0, height), where [0, numLocals) are locals and
// [numLocals, height) is the operand stack, plus a use-count per cache
// register.
//
// CacheState is a value-shaped type with an explicit Clone — snapshots
// taken at block entry/exit are always copies, never aliases of the live
// state, so mutating one can never be observed through the other.
type CacheState struct {
	slots     []VarState
	useCount  map[Reg]int
	numLocals int
}

// NewCacheState creates an empty cache state for a function with the given
// local count. Locals are populated by a sequence of PushRegister /
// PushConstant calls made by the caller during parameter/local binding.
func NewCacheState(numLocals int) *CacheState {
	return &CacheState{
		slots:     make([]VarState, 0, numLocals+8),
		useCount:  make(map[Reg]int),
		numLocals: numLocals,
	}
}

// Clone returns a deep, alias-free copy of cs.
func (cs *CacheState) Clone() *CacheState {
	out := &CacheState{
		slots:     append([]VarState(nil), cs.slots...),
		useCount:  make(map[Reg]int, len(cs.useCount)),
		numLocals: cs.numLocals,
	}
	for r, n := range cs.useCount {
		out.useCount[r] = n
	}
	return out
}

// Height is the total number of slots, locals plus operand stack. This is
// the coordinate space ControlBlock.StackBase and numLocals are both
// expressed in — an absolute slot index, not a count relative to locals.
func (cs *CacheState) Height() int { return len(cs.slots) }

// StackHeight is the operand-stack-only height (total height minus locals).
func (cs *CacheState) StackHeight() int { return len(cs.slots) - cs.numLocals }

// NumLocals is the number of local slots.
func (cs *CacheState) NumLocals() int { return cs.numLocals }

// UseCount returns the number of slots currently referencing r.
func (cs *CacheState) UseCount(r Reg) int { return cs.useCount[r] }

// Slot returns a copy of the slot at index i.
func (cs *CacheState) Slot(i int) VarState { return cs.slots[i] }

// Top returns a copy of the top-of-stack slot. Panics if the stack is
// empty — callers must check StackHeight() first, matching the decoder's
// guarantee that well-typed bytecode never pops past empty.
func (cs *CacheState) Top() VarState {
	invariant(len(cs.slots) > 0, "Top: cache state is empty")
	return cs.slots[len(cs.slots)-1]
}

func (cs *CacheState) slotOffset(i int) int32 {
	return int32(i) * slotSize
}

// reserveScratchSlot returns the physical offset of one stack slot beyond
// every slot currently live in cs, for the sole use of merge-time register
// cycle breaking. It never collides with a real slot because indices below
// Height() are always addressed by cs.slotOffset(i) for i < Height(); the
// frame reservation (locals plus Config.MaxStackHeight plus one) already
// budgets for this row (see frameSlots and startFunction).
func (cs *CacheState) reserveScratchSlot() int32 {
	return cs.slotOffset(len(cs.slots))
}

// PushRegister appends a slot resident in register r.
func (cs *CacheState) PushRegister(t wasm.ValType, r Reg) {
	cs.slots = append(cs.slots, registerState(t, r))
	cs.useCount[r]++
}

// PushConstant appends a compile-time-constant slot. Only integer types
// (i32) are representable this way; f32/f64 constants must be
// pre-materialised into a register and pushed with PushRegister — calling
// this with a float type is a compiler bug.
func (cs *CacheState) PushConstant(t wasm.ValType, c int64) {
	invariant(t == wasm.ValI32, "PushConstant: %s is not representable as a constant", t)
	cs.slots = append(cs.slots, constantState(t, c))
}

// pushF32Const materialises a compile-time f32 bit pattern into a fresh
// register and pushes it. Kept as one named helper (per spec.md's Open
// Question note on f32 local initialisation) instead of being inlined at
// every call site.
func (cs *CacheState) pushF32Const(alloc *Allocator, emit Emitter, bits int64, pinned RegSet) {
	r := alloc.GetUnused(cs, emit, FP, pinned)
	emit.LoadConstant(r, bits)
	cs.PushRegister(wasm.ValF32, r)
}

// spillRegister is the Allocator's victim-spill side effect: every slot
// referencing r is stored to its physical offset and demoted to Stack, and
// r's use count is zeroed.
func (cs *CacheState) spillRegister(emit Emitter, r Reg) {
	for i := range cs.slots {
		if cs.slots[i].Loc == LocRegister && cs.slots[i].Reg == r {
			emit.Spill(cs.slotOffset(i), r)
			cs.slots[i] = stackState(cs.slots[i].Type)
		}
	}
	cs.useCount[r] = 0
}

// forceStack spills a register-resident slot i to its physical offset and
// demotes it. i must not be Constant (constants have no register to spill
// through; use materializeToStack for those) and is a no-op if already
// Stack.
func (cs *CacheState) forceStack(emit Emitter, i int) {
	s := cs.slots[i]
	switch s.Loc {
	case LocStack:
		return
	case LocRegister:
		emit.Spill(cs.slotOffset(i), s.Reg)
		cs.useCount[s.Reg]--
		cs.slots[i] = stackState(s.Type)
	case LocConstant:
		invariant(false, "forceStack: slot %d is a constant, use materializeToStack", i)
	}
}

// materializeToStack forces slot i to Stack regardless of its current
// location, routing constants through a freshly allocated register first.
func (cs *CacheState) materializeToStack(alloc *Allocator, emit Emitter, i int) {
	s := cs.slots[i]
	switch s.Loc {
	case LocStack:
		return
	case LocRegister:
		cs.forceStack(emit, i)
	case LocConstant:
		class, _ := classOf(s.Type)
		r := alloc.GetUnused(cs, emit, class, NoPinned())
		emit.LoadConstant(r, s.Const)
		emit.Spill(cs.slotOffset(i), r)
		cs.slots[i] = stackState(s.Type)
	}
}

// setRegister rewrites slot i to reference r, adjusting use counts for the
// slot's previous and new locations.
func (cs *CacheState) setRegister(i int, r Reg) {
	old := cs.slots[i]
	if old.Loc == LocRegister {
		cs.useCount[old.Reg]--
	}
	cs.slots[i] = registerState(old.Type, r)
	cs.useCount[r]++
}

// PopToRegister materialises the top slot into a register of class and
// removes it from the stack, returning the register. pinned registers are
// preserved by the allocator if a fresh register must be obtained.
func (cs *CacheState) PopToRegister(alloc *Allocator, emit Emitter, class RegClass, pinned RegSet) Reg {
	invariant(len(cs.slots) > cs.numLocals, "PopToRegister: operand stack is empty")
	top := cs.slots[len(cs.slots)-1]
	var r Reg
	switch top.Loc {
	case LocRegister:
		r = top.Reg
		invariant(r.Class == class, "PopToRegister: slot is in %s, want %s", r.Class, class)
		cs.useCount[r]--
	case LocConstant:
		r = alloc.GetUnused(cs, emit, class, pinned)
		emit.LoadConstant(r, top.Const)
	case LocStack:
		r = alloc.GetUnused(cs, emit, class, pinned)
		emit.Fill(r, cs.slotOffset(len(cs.slots)-1))
	}
	cs.slots = cs.slots[:len(cs.slots)-1]
	return r
}

// GetBinaryOpTargetRegister returns a register suitable to receive the
// result of a binary op that has already consumed lhs and rhs via
// PopToRegister. Per spec.md §4.B, the register is reclaimed from one of
// the two operand registers if that register is now otherwise unused
// (reclaimable), or freshly allocated — in which case lhs and rhs must
// already be in pinned so the allocator cannot pick either as a victim out
// from under the instruction about to consume them.
func (cs *CacheState) GetBinaryOpTargetRegister(alloc *Allocator, emit Emitter, class RegClass, lhs, rhs Reg, pinned RegSet) Reg {
	if cs.useCount[lhs] == 0 {
		return lhs
	}
	if cs.useCount[rhs] == 0 {
		return rhs
	}
	return alloc.GetUnused(cs, emit, class, pinned)
}

// DropTop removes the top slot, releasing its register if it holds one.
func (cs *CacheState) DropTop() {
	invariant(len(cs.slots) > cs.numLocals, "DropTop: operand stack is empty")
	top := cs.slots[len(cs.slots)-1]
	if top.Loc == LocRegister {
		cs.useCount[top.Reg]--
	}
	cs.slots = cs.slots[:len(cs.slots)-1]
}

// SpillLocals stores every register- or constant-resident local to its
// physical offset and demotes it to Stack. Idempotent: a second call finds
// every local already Stack and emits nothing.
func (cs *CacheState) SpillLocals(alloc *Allocator, emit Emitter) {
	for i := 0; i < cs.numLocals; i++ {
		s := cs.slots[i]
		switch s.Loc {
		case LocStack:
			continue
		case LocRegister:
			emit.Spill(cs.slotOffset(i), s.Reg)
			cs.useCount[s.Reg]--
		case LocConstant:
			class, _ := classOf(s.Type)
			r := alloc.GetUnused(cs, emit, class, NoPinned())
			emit.LoadConstant(r, s.Const)
			emit.Spill(cs.slotOffset(i), r)
		}
		cs.slots[i] = stackState(s.Type)
	}
}

// Fill requests a load from slot index's physical offset into reg, without
// touching the cache state itself — a pure emission helper used when a
// value must be materialised into a caller-chosen register without
// disturbing the slot it came from.
func (cs *CacheState) Fill(emit Emitter, reg Reg, index int) {
	emit.Fill(reg, cs.slotOffset(index))
}

// CheckStackSizeLimit reports whether the operand stack (excluding locals)
// is within max. Exceeding it is a bailout trigger, not an error.
func (cs *CacheState) CheckStackSizeLimit(max int) bool {
	return cs.StackHeight() <= max
}

// LocalGet implements local.get's cache-state transformation: if the local
// is in a register, push the same register and bump its use count; if
// constant, push the constant; if on the stack, fill into a fresh register
// and push that.
func (cs *CacheState) LocalGet(alloc *Allocator, emit Emitter, idx int) {
	s := cs.slots[idx]
	switch s.Loc {
	case LocRegister:
		cs.PushRegister(s.Type, s.Reg)
	case LocConstant:
		cs.PushConstant(s.Type, s.Const)
	case LocStack:
		class, _ := classOf(s.Type)
		r := alloc.GetUnused(cs, emit, class, NoPinned())
		emit.Fill(r, cs.slotOffset(idx))
		cs.PushRegister(s.Type, r)
	}
}

// LocalSetOrTee implements both local.set and local.tee: the top-of-stack
// value is written into local slot idx. When tee is true the value is also
// left on the operand stack afterward.
func (cs *CacheState) LocalSetOrTee(alloc *Allocator, emit Emitter, idx int, tee bool) {
	invariant(len(cs.slots) > cs.numLocals, "local.set/tee: operand stack is empty")
	src := cs.slots[len(cs.slots)-1]
	dst := cs.slots[idx]

	switch src.Loc {
	case LocRegister:
		if dst.Loc == LocRegister {
			cs.useCount[dst.Reg]--
		}
		cs.slots[idx] = registerState(src.Type, src.Reg)
		// dst's new reference to src.Reg exactly replaces the popped operand's
		// departing one: net use count is unchanged for a plain set.
		cs.slots = cs.slots[:len(cs.slots)-1]
		if tee {
			cs.slots = append(cs.slots, registerState(src.Type, src.Reg))
			cs.useCount[src.Reg]++ // the re-pushed copy is a genuinely new reference
		}
	case LocConstant:
		if dst.Loc == LocRegister {
			cs.useCount[dst.Reg]--
		}
		cs.slots[idx] = constantState(src.Type, src.Const)
		cs.slots = cs.slots[:len(cs.slots)-1]
		if tee {
			cs.slots = append(cs.slots, constantState(src.Type, src.Const))
		}
	case LocStack:
		if dst.Loc == LocRegister && cs.useCount[dst.Reg] == 1 {
			// dst's register is held by no one else: fill straight into it.
			emit.Fill(dst.Reg, cs.slotOffset(len(cs.slots)-1))
			cs.slots = cs.slots[:len(cs.slots)-1]
			if tee {
				cs.slots = append(cs.slots, registerState(src.Type, dst.Reg))
				cs.useCount[dst.Reg]++
			}
			return
		}
		class, _ := classOf(src.Type)
		r := alloc.GetUnused(cs, emit, class, NoPinned())
		emit.Fill(r, cs.slotOffset(len(cs.slots)-1))
		if dst.Loc == LocRegister {
			cs.useCount[dst.Reg]--
		}
		cs.slots[idx] = registerState(src.Type, r)
		cs.useCount[r]++
		cs.slots = cs.slots[:len(cs.slots)-1]
		if tee {
			cs.slots = append(cs.slots, registerState(src.Type, r))
			cs.useCount[r]++
		}
	}
}
