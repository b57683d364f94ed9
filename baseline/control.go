package baseline

// ControlBlock is one entry on the compiler's control-flow stack: a live
// block, loop, or the implicit outermost function block. It owns the
// label its branches target and the label_state that governs how a
// branch or fall-through must reshape the cache state before reaching it.
type ControlBlock struct {
	// Label is bound at the point control actually reaches this block's
	// end (blocks) or start (loops) — see Bind call sites in endBlock
	// and enterLoop.
	Label LabelID

	// LabelState governs how a branch or fall-through must reshape the
	// cache state before reaching Label. For a block it is nil until the
	// first branch targets it, at which point InitMerge snapshots the
	// state at that branch site; a nil LabelState at block exit means no
	// branch ever targeted it, so the fall-through state simply carries on
	// past the label and no Split is taken. For a loop it is never nil — enterLoop
	// establishes it immediately via Split, since every back-edge merges
	// against the loop's entry state, including the first one.
	LabelState *CacheState

	IsLoop bool

	// Arity is the number of values live across this block's exit edge:
	// the block's result arity for `block`/`if`, or its parameter arity
	// for `loop` (branches to a loop jump back to its start, carrying its
	// params, not its eventual results).
	Arity int

	// Reached records whether any code path (fall-through or branch) has
	// reached this block's label yet. branchTarget and endBlock set it;
	// nothing in the translator reads it, and dead code after an
	// unconditional branch or return is not detected.
	Reached bool

	// StackBase is the cache state's absolute Height() at block entry, the
	// same coordinate space as numLocals and a slot's index — not the
	// locals-relative StackHeight(). Slots below it belong to enclosing
	// blocks and are never touched by this block's own merges.
	StackBase int
}

// controlStack is the compiler's stack of enclosing blocks, index 0 is the
// implicit outermost function body.
type controlStack struct {
	blocks []*ControlBlock
}

func newControlStack() *controlStack {
	return &controlStack{}
}

func (cs *controlStack) push(b *ControlBlock) {
	cs.blocks = append(cs.blocks, b)
}

func (cs *controlStack) pop() *ControlBlock {
	n := len(cs.blocks)
	invariant(n > 0, "controlStack: pop on empty stack")
	b := cs.blocks[n-1]
	cs.blocks = cs.blocks[:n-1]
	return b
}

func (cs *controlStack) top() *ControlBlock {
	invariant(len(cs.blocks) > 0, "controlStack: top on empty stack")
	return cs.blocks[len(cs.blocks)-1]
}

// depth returns the number of enclosing blocks, the outermost function
// body counting as depth 1 once pushed.
func (cs *controlStack) depth() int {
	return len(cs.blocks)
}

// at returns the block labelIdx levels up from the innermost (0 is the
// innermost enclosing block), matching WebAssembly's relative label
// indexing for br/br_if/br_table.
func (cs *controlStack) at(labelIdx uint32) *ControlBlock {
	i := len(cs.blocks) - 1 - int(labelIdx)
	invariant(i >= 0, "controlStack: label index %d exceeds nesting depth %d", labelIdx, len(cs.blocks))
	return cs.blocks[i]
}

// branchTarget reconciles the live cache state against block b's merge
// point and returns the label to jump to. Per spec.md §4.D's branch rule,
// a first-time branch both initialises the target's label_state *and*
// merges into it — InitMerge's constant-materialising side effects land
// in the emitted instruction stream at this branch site, and the
// following MergeStackWith is what promotes the live cache itself to
// match, so a later fall-through sees the same registers rather than
// re-deriving them. Loops branch to their own start (already bound and
// merge-initialised at EnterLoop); blocks branch to their end (bound
// later, at endBlock).
func (c *Compiler) branchTarget(b *ControlBlock) LabelID {
	if b.LabelState == nil {
		b.LabelState = c.cache.InitMerge(c.alloc, c.emit, b.Arity, b.StackBase)
	}
	c.cache.MergeStackWith(b.LabelState, b.Arity, c.alloc, c.emit, b.StackBase)
	b.Reached = true
	return b.Label
}

// enterBlock pushes a new `block` control entry. Its label is left unbound
// until EndBlock, since a block's target is its end, reached only once
// control actually falls through or branches out.
func (c *Compiler) enterBlock(arity int) *ControlBlock {
	b := &ControlBlock{
		Label:     c.labels.new(),
		Arity:     arity,
		StackBase: c.cache.Height(),
	}
	c.controls.push(b)
	return b
}

// enterLoop pushes a new `loop` control entry, spills locals, and
// immediately binds its label and establishes its label_state via Split
// — a loop's back-edges target its start, which is exactly where
// compilation is right now, so unlike a block there is no lazy
// first-branch InitMerge: every back-edge merges against this same
// snapshot from the very first one.
func (c *Compiler) enterLoop(arity int) *ControlBlock {
	b := &ControlBlock{
		Label:     c.labels.new(),
		IsLoop:    true,
		Arity:     arity,
		StackBase: c.cache.Height(),
	}
	c.cache.SpillLocals(c.alloc, c.emit)
	c.emit.Bind(b.Label)
	c.labels.markBound(b.Label)
	b.LabelState = c.cache.Split()
	c.controls.push(b)
	return b
}

// endBlock pops the innermost control entry at a matching `end` and
// reconciles the fall-through path with whatever label_state branches
// inside already established, binding the label so later code can jump
// forward to it. A loop has no separate exit label — its one Label is its
// start, already bound, and nothing ever branches to its end — so falling
// off a loop body's end is a pure no-op here; the cache simply carries on
// as whatever the loop body naturally left it.
func (c *Compiler) endBlock() {
	b := c.controls.pop()

	if b.IsLoop {
		// A loop's own label is bound at its start; falling off its end
		// never needs to merge with LabelState — the loop's back-edges
		// already agreed on the entry shape, and falling through simply
		// continues with whatever state compilation naturally reached.
		return
	}

	if b.LabelState != nil {
		c.cache.MergeStackWith(b.LabelState, b.Arity, c.alloc, c.emit, b.StackBase)
		c.cache = c.cache.Steal(b.LabelState)
	}
	c.emit.Bind(b.Label)
	c.labels.markBound(b.Label)
	b.Reached = true
}

// checkUnboundLabels reports every label created but never bound by the
// time a function finishes compiling — reachable only through a decoder
// bug or an unbalanced block/end nesting, since well-typed bytecode always
// balances its control structures.
func (c *Compiler) checkUnboundLabels() {
	unbound := c.labels.unboundLabels()
	invariant(len(unbound) == 0, "function ended with %d unbound label(s): %v", len(unbound), unbound)
}

// sweepUnboundLabels binds every control block still open on the stack at
// bailout time. A graceful bailout abandons translation mid-function, so
// blocks entered but never closed by their `end` would otherwise leave
// their labels unbound — unlike checkUnboundLabels' invariant, this is the
// expected, recoverable case, not a compiler bug.
func (c *Compiler) sweepUnboundLabels() {
	for _, b := range c.controls.blocks {
		if !c.labels.isBound(b.Label) {
			c.emit.Bind(b.Label)
			c.labels.markBound(b.Label)
		}
	}
}
