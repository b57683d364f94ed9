package baseline

import "github.com/wippyai/wasm-baseline/wasm"

// Test-only exported accessors for unexported internals, so that tests
// needing the emittest package (which itself imports baseline) can live
// in the external baseline_test package without creating an import cycle.

func RegisterState(t wasm.ValType, r Reg) VarState { return registerState(t, r) }

func ConstantState(t wasm.ValType, c int64) VarState { return constantState(t, c) }

func StackState(t wasm.ValType) VarState { return stackState(t) }

func (cs *CacheState) Slots() []VarState { return cs.slots }

func (cs *CacheState) SetSlot(i int, s VarState) { cs.slots[i] = s }

func (cs *CacheState) AppendSlot(s VarState) { cs.slots = append(cs.slots, s) }

func (cs *CacheState) IncUseCount(r Reg) { cs.useCount[r]++ }

func (cs *CacheState) MaterializeToStack(alloc *Allocator, emit Emitter, i int) {
	cs.materializeToStack(alloc, emit, i)
}

func (cs *CacheState) ForceStack(emit Emitter, i int) {
	cs.forceStack(emit, i)
}

type PendingMove = pendingMove

func NewPendingMove(dst, src Reg) PendingMove { return pendingMove{dst: dst, src: src} }

func ResolveMoves(cs *CacheState, alloc *Allocator, emit Emitter, moves []PendingMove) {
	resolveMoves(cs, alloc, emit, moves)
}

func (c *Compiler) UnboundLabels() []LabelID {
	return c.labels.unboundLabels()
}
