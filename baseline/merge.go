package baseline

// This file implements the merge algorithm of spec.md §4.B: reconciling
// the current cache state with a control block's label_state, the
// canonical shape a branch or fall-through must produce before jumping (or
// falling through) to that label.

// Split copies cs verbatim to serve as a fresh label_state, used at block
// entry when no predecessor has targeted the label yet.
func (cs *CacheState) Split() *CacheState {
	return cs.Clone()
}

// Steal replaces cs wholesale with label_state's shape, used at block exit
// when falling through to a label whose shape was already established by
// an earlier forward branch. The emitter will already have materialised
// the values at each branch site or at the fall-through arrival, so this
// is bookkeeping only — no code is emitted here.
func (cs *CacheState) Steal(labelState *CacheState) *CacheState {
	return labelState.Clone()
}

// InitMerge is called the first time a label is targeted by a branch. It
// snapshots cs to serve as the label's canonical label_state: in the locals
// and the top arity operand-stack slots, constants are materialised into
// registers, while register- and stack-resident slots keep their
// location, so the snapshot holds no constants there and MergeStackWith
// can reconcile a later branch with moves, fills and spills. Operand
// slots below the live region but at or above stackBase — values this
// block itself pushed but which are not part of the arity carried across
// the edge — are normalized to Stack instead, since no branch or
// fall-through inside this block ever reads them again. stackBase is the
// block's own entry height (ControlBlock.StackBase); slots below it belong
// to an enclosing block and must be left exactly as cs holds them, since
// this label_state has no say over how an outer scope's merges treat them.
func (cs *CacheState) InitMerge(alloc *Allocator, emit Emitter, arity int, stackBase int) *CacheState {
	target := cs.Clone()
	top := len(target.slots)
	liveStart := top - arity

	materializeConstant := func(i int) {
		s := target.slots[i]
		if s.Loc == LocConstant {
			class, _ := classOf(s.Type)
			r := alloc.GetUnused(target, emit, class, NoPinned())
			emit.LoadConstant(r, s.Const)
			target.setRegister(i, r)
		}
	}
	for i := 0; i < target.numLocals; i++ {
		materializeConstant(i)
	}
	for i := liveStart; i < top; i++ {
		materializeConstant(i)
	}
	for i := stackBase; i < liveStart; i++ {
		target.materializeToStack(alloc, emit, i)
	}
	return target
}

// pendingMove is a register-to-register move discovered while reconciling
// cs against target. Moves are collected rather than emitted immediately
// so cycles (r1<-r2, r2<-r1) can be detected and broken with a scratch
// stack slot instead of clobbering a source before it has been read.
type pendingMove struct {
	dst, src Reg
}

// MergeStackWith reconciles cs against target's canonical shape, emitting
// whatever spills/fills/moves/materialisations are needed so that, after
// this call, cs matches target exactly — ready for the caller to emit the
// branch. Two disjoint regions are reconciled: the locals, which a branch
// taken after an intervening local.set may have moved to a different
// register than target's snapshot, and the top arity operand-stack slots,
// the values actually carried live across the edge per spec.md §4.D. The
// slots strictly between them are not reconciled: those below stackBase
// belong to enclosing blocks, and those from stackBase up are the block's
// own dead intermediate values, already normalized to Stack by InitMerge.
// stackBase is the block's own entry height; the invariant below rejects
// an arity that would reach down into an enclosing block's slots, which
// would mean the branch target's arity was resolved against the wrong
// block.
func (cs *CacheState) MergeStackWith(target *CacheState, arity int, alloc *Allocator, emit Emitter, stackBase int) {
	invariant(len(cs.slots) == len(target.slots), "MergeStackWith: height mismatch %d vs %d", len(cs.slots), len(target.slots))
	top := len(cs.slots)
	off := top - arity
	invariant(off >= stackBase, "MergeStackWith: arity %d reaches below the block's own entry height %d (top %d)", arity, stackBase, top)

	var moves []pendingMove
	mergeRange := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			cur := cs.slots[i]
			want := target.slots[i]
			invariant(cur.Type == want.Type, "MergeStackWith: type mismatch at slot %d", i)

			switch want.Loc {
			case LocStack:
				if cur.Loc != LocStack {
					cs.forceStackForMerge(alloc, emit, i)
				}
			case LocRegister:
				switch cur.Loc {
				case LocRegister:
					if cur.Reg != want.Reg {
						moves = append(moves, pendingMove{dst: want.Reg, src: cur.Reg})
					}
				case LocConstant:
					emit.LoadConstant(want.Reg, cur.Const)
					cs.setRegister(i, want.Reg)
				case LocStack:
					emit.Fill(want.Reg, cs.slotOffset(i))
					cs.setRegister(i, want.Reg)
				}
			case LocConstant:
				// Only reachable for a local that target still holds as a
				// constant; the only sound case is full agreement, since
				// there is no general "demote a register/stack value back
				// to a symbolic constant" operation.
				invariant(cur.Loc == LocConstant && cur.Const == want.Const,
					"MergeStackWith: slot %d target is constant %d, current is %v", i, want.Const, cur)
			}
		}
	}
	mergeRange(0, cs.numLocals)
	mergeRange(off, top)
	resolveMoves(cs, alloc, emit, moves)

	// Bring cs's bookkeeping in line with target for both merged regions —
	// the moves above made the physical registers match; now the symbolic
	// slots must too.
	syncRange := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			want := target.slots[i]
			if want.Loc == LocRegister && cs.slots[i] != want {
				if cs.slots[i].Loc == LocRegister {
					cs.useCount[cs.slots[i].Reg]--
				}
				cs.slots[i] = want
				cs.useCount[want.Reg]++
			}
		}
	}
	syncRange(0, cs.numLocals)
	syncRange(off, top)
}

// forceStackForMerge forces slot i to Stack via materializeToStack, so a
// constant slot is routed through a register rather than tripping
// forceStack's constant invariant. The merge loop calls it only after
// checking cur.Loc != Stack.
func (cs *CacheState) forceStackForMerge(alloc *Allocator, emit Emitter, i int) {
	cs.materializeToStack(alloc, emit, i)
}

// resolveMoves emits a sequence of register moves that realises every
// pendingMove, breaking cycles with a spilled scratch slot. A cycle is a
// set of moves whose dst/src chain loops back on itself (e.g. r1<-r2,
// r2<-r1, the canonical two-predecessor swap from spec.md §8); the
// topological (acyclic) portion is performed first, then each remaining
// cycle is broken by spilling one member to the stack and filling it back
// once the rest of the cycle has been rotated through.
func resolveMoves(cs *CacheState, alloc *Allocator, emit Emitter, moves []pendingMove) {
	if len(moves) == 0 {
		return
	}

	srcOf := make(map[Reg]Reg, len(moves)) // dst -> src
	for _, m := range moves {
		srcOf[m.dst] = m.src
	}

	done := make(map[Reg]bool, len(moves))
	// emitChain(dst) emits dst's own move only after every other pending
	// move that still needs to read dst's current value has run — i.e. it
	// walks the chain from its tail towards dst, not from dst towards its
	// source. Overwriting dst before those readers run would hand them a
	// value already clobbered by this move.
	var emitChain func(dst Reg, visiting map[Reg]bool) bool
	emitChain = func(dst Reg, visiting map[Reg]bool) bool {
		if done[dst] {
			return true
		}
		if visiting[dst] {
			return false // back-edge: part of a cycle, defer to cycle-breaking pass
		}
		visiting[dst] = true
		for reader, src := range srcOf {
			if src == dst && !done[reader] {
				if !emitChain(reader, visiting) {
					return false
				}
			}
		}
		emit.Move(dst, srcOf[dst])
		done[dst] = true
		return true
	}

	for dst := range srcOf {
		emitChain(dst, map[Reg]bool{})
	}

	// Whatever remains is one or more disjoint cycles. Break each by
	// spilling one member out of the way, rotating the rest through, then
	// filling the spilled value into its final destination.
	for dst := range srcOf {
		if done[dst] {
			continue
		}
		breakCycle(cs, emit, dst, srcOf, done)
	}
}

// breakCycle resolves one cycle starting at start by spilling start to a
// scratch stack slot reserved by CacheState for exactly this purpose, then
// replaying the remaining dst<-src moves of the cycle in order, and
// finally filling the spilled value into the one slot that still needs
// it. This never needs a register outside the cycle itself, which matters
// because every cache register may legitimately be part of the cycle.
func breakCycle(cs *CacheState, emit Emitter, start Reg, srcOf map[Reg]Reg, done map[Reg]bool) {
	cycle := []Reg{start}
	for cur := srcOf[start]; cur != start; cur = srcOf[cur] {
		cycle = append(cycle, cur)
	}

	scratchOffset := cs.reserveScratchSlot()
	emit.Spill(scratchOffset, start)
	for i := 0; i < len(cycle); i++ {
		dst := cycle[i]
		if i+1 < len(cycle) {
			emit.Move(dst, cycle[i+1])
		} else {
			emit.Fill(dst, scratchOffset) // closes the loop: dst's source was start
		}
		done[dst] = true
	}
}
