package baseline

import (
	"math"

	"github.com/wippyai/wasm-baseline/wasm"
)

// opcodeHandler translates one decoded instruction against the compiler's
// live cache state, control stack, and emitter. It never returns a value;
// unsupported constructs call (*Compiler).unsupported, which unwinds the
// whole compilation rather than returning an error the caller would have
// to thread through every handler.
type opcodeHandler func(c *Compiler, instr wasm.Instruction)

// opcodeRegistry is a fixed-size, zero-allocation dispatch table indexed
// directly by opcode byte, giving O(1) lookup with a nil entry standing in
// for every opcode the baseline does not implement.
var opcodeRegistry = buildOpcodeRegistry()

func buildOpcodeRegistry() [256]opcodeHandler {
	var r [256]opcodeHandler

	r[wasm.OpNop] = handleNop
	r[wasm.OpUnreachable] = handleUnreachable

	r[wasm.OpI32Const] = handleI32Const
	r[wasm.OpF32Const] = handleF32Const

	r[wasm.OpLocalGet] = handleLocalGet
	r[wasm.OpLocalSet] = handleLocalSet
	r[wasm.OpLocalTee] = handleLocalTee

	r[wasm.OpGlobalGet] = handleGlobalGet
	r[wasm.OpGlobalSet] = handleGlobalSet

	r[wasm.OpI32Add] = i32Binop((Emitter).I32Add)
	r[wasm.OpI32Sub] = i32Binop((Emitter).I32Sub)
	r[wasm.OpI32Mul] = i32Binop((Emitter).I32Mul)
	r[wasm.OpI32And] = i32Binop((Emitter).I32And)
	r[wasm.OpI32Or] = i32Binop((Emitter).I32Or)
	r[wasm.OpI32Xor] = i32Binop((Emitter).I32Xor)

	r[wasm.OpF32Add] = f32Binop((Emitter).F32Add)
	r[wasm.OpF32Sub] = f32Binop((Emitter).F32Sub)
	r[wasm.OpF32Mul] = f32Binop((Emitter).F32Mul)

	r[wasm.OpDrop] = handleDrop
	r[wasm.OpBlock] = handleBlock
	r[wasm.OpLoop] = handleLoop
	r[wasm.OpBr] = handleBr
	r[wasm.OpBrIf] = handleBrIf
	r[wasm.OpReturn] = handleReturn

	return r
}

// translateBody decodes the function's raw bytecode and walks it flat,
// tracking block/loop/end nesting against the control stack that
// startFunction seeded with the implicit outermost function block.
func (c *Compiler) translateBody() {
	instrs, err := wasm.DecodeInstructions(c.body.Code)
	invariant(err == nil, "translateBody: decode failed: %v", err)

	for _, instr := range instrs {
		if instr.Opcode == wasm.OpEnd {
			if c.controls.depth() == 1 {
				// The function's own closing end; finishFunction performs
				// the result-materialising merge and epilogue.
				return
			}
			c.endBlock()
			continue
		}

		h := opcodeRegistry[instr.Opcode]
		if h == nil {
			c.unsupported(ReasonUnsupportedOpcode, "opcode 0x%02x", instr.Opcode)
		}
		debugf("translate opcode=0x%02x height=%d", instr.Opcode, c.cache.StackHeight())
		h(c, instr)

		if !c.cache.CheckStackSizeLimit(c.cfg.MaxStackHeight) {
			c.unsupported(ReasonStackOverflow, "operand stack height %d exceeds limit %d", c.cache.StackHeight(), c.cfg.MaxStackHeight)
		}
	}
}

func handleNop(c *Compiler, instr wasm.Instruction) {}

func handleUnreachable(c *Compiler, instr wasm.Instruction) {
	// The Emitter has no trap primitive; a real target would emit an
	// illegal instruction here, which is out of the primitive set this
	// core is scoped to.
	c.unsupported(ReasonUnsupportedOpcode, "unreachable has no emitter primitive")
}

func handleI32Const(c *Compiler, instr wasm.Instruction) {
	imm := instr.Imm.(wasm.I32Imm)
	c.cache.PushConstant(wasm.ValI32, int64(imm.Value))
}

func handleF32Const(c *Compiler, instr wasm.Instruction) {
	imm := instr.Imm.(wasm.F32Imm)
	bits := int64(math.Float32bits(imm.Value))
	c.cache.pushF32Const(c.alloc, c.emit, bits, NoPinned())
}

func handleLocalGet(c *Compiler, instr wasm.Instruction) {
	imm := instr.Imm.(wasm.LocalImm)
	idx := int(imm.LocalIdx)
	invariant(idx < c.numLocals, "local.get: index %d out of range (%d locals)", idx, c.numLocals)
	c.cache.LocalGet(c.alloc, c.emit, idx)
}

func handleLocalSet(c *Compiler, instr wasm.Instruction) {
	imm := instr.Imm.(wasm.LocalImm)
	idx := int(imm.LocalIdx)
	invariant(idx < c.numLocals, "local.set: index %d out of range (%d locals)", idx, c.numLocals)
	c.cache.LocalSetOrTee(c.alloc, c.emit, idx, false)
}

func handleLocalTee(c *Compiler, instr wasm.Instruction) {
	imm := instr.Imm.(wasm.LocalImm)
	idx := int(imm.LocalIdx)
	invariant(idx < c.numLocals, "local.tee: index %d out of range (%d locals)", idx, c.numLocals)
	c.cache.LocalSetOrTee(c.alloc, c.emit, idx, true)
}

// handleGlobalGet reads a global into a fresh register. i64 is a narrow
// carve-out from the baseline's usual i32/f32-only scope: global.get
// widens to 8 bytes and stays in a GP register like i32, but nothing else
// in the translator accepts an i64-typed cache slot, so any further use
// of the pushed value (arithmetic, local.set, a non-identity return) bails
// out at that later opcode instead of here.
func handleGlobalGet(c *Compiler, instr wasm.Instruction) {
	imm := instr.Imm.(wasm.GlobalImm)
	t, ok := c.env.GlobalType(imm.GlobalIdx)
	if !ok {
		c.unsupported(ReasonOversizedGlobal, "global %d has no known type", imm.GlobalIdx)
	}

	if t == wasm.ValI64 {
		r := c.alloc.GetUnused(c.cache, c.emit, GP, NoPinned())
		c.emit.LoadFromContext(r, c.env.GlobalOffset(imm.GlobalIdx), 8)
		c.cache.PushRegister(t, r)
		return
	}

	class, ok := classOf(t)
	if !ok {
		c.unsupported(ReasonUnsupportedType, "global %d has type %s", imm.GlobalIdx, t)
	}
	r := c.alloc.GetUnused(c.cache, c.emit, class, NoPinned())
	c.emit.LoadFromContext(r, c.env.GlobalOffset(imm.GlobalIdx), 4)
	c.cache.PushRegister(t, r)
}

func handleGlobalSet(c *Compiler, instr wasm.Instruction) {
	imm := instr.Imm.(wasm.GlobalImm)
	t, ok := c.env.GlobalType(imm.GlobalIdx)
	if !ok {
		c.unsupported(ReasonOversizedGlobal, "global %d has no known type", imm.GlobalIdx)
	}
	class, ok := classOf(t)
	if !ok {
		c.unsupported(ReasonUnsupportedType, "global %d has type %s", imm.GlobalIdx, t)
	}
	r := c.cache.PopToRegister(c.alloc, c.emit, class, NoPinned())
	c.emit.SpillContext(r, c.env.GlobalOffset(imm.GlobalIdx))
}

// i32Binop adapts an Emitter integer binop method into an opcodeHandler:
// pop rhs then lhs (rhs was pushed last, so it is the current top), pick a
// target register per GetBinaryOpTargetRegister, emit, and push the
// result.
func i32Binop(op func(Emitter, Reg, Reg, Reg)) opcodeHandler {
	return func(c *Compiler, instr wasm.Instruction) {
		rhs := c.cache.PopToRegister(c.alloc, c.emit, GP, NoPinned())
		lhs := c.cache.PopToRegister(c.alloc, c.emit, GP, RegSet(0).With(rhs))
		dst := c.cache.GetBinaryOpTargetRegister(c.alloc, c.emit, GP, lhs, rhs, RegSet(0).With(lhs).With(rhs))
		op(c.emit, dst, lhs, rhs)
		c.cache.PushRegister(wasm.ValI32, dst)
	}
}

func f32Binop(op func(Emitter, Reg, Reg, Reg)) opcodeHandler {
	return func(c *Compiler, instr wasm.Instruction) {
		rhs := c.cache.PopToRegister(c.alloc, c.emit, FP, NoPinned())
		lhs := c.cache.PopToRegister(c.alloc, c.emit, FP, RegSet(0).With(rhs))
		dst := c.cache.GetBinaryOpTargetRegister(c.alloc, c.emit, FP, lhs, rhs, RegSet(0).With(lhs).With(rhs))
		op(c.emit, dst, lhs, rhs)
		c.cache.PushRegister(wasm.ValF32, dst)
	}
}

func handleDrop(c *Compiler, instr wasm.Instruction) {
	c.cache.DropTop()
}

func handleBlock(c *Compiler, instr wasm.Instruction) {
	imm := instr.Imm.(wasm.BlockImm)
	arity := c.resolveBlockArity(imm)
	c.enterBlock(arity)
}

func handleLoop(c *Compiler, instr wasm.Instruction) {
	imm := instr.Imm.(wasm.BlockImm)
	// resolveBlockArity's return value is the loop's *result* arity, which
	// governs nothing here: a loop has no separate exit label, so nothing
	// ever merges against its results. Its back-edges carry its *param*
	// arity instead, and this baseline already bails out above on any
	// block/loop with nonzero params, so that arity is always zero. The
	// call is still needed for its validation side effects (bailing on
	// i64/f64 results, multi-value results, or params).
	c.resolveBlockArity(imm)
	c.enterLoop(0)
}

func handleBr(c *Compiler, instr wasm.Instruction) {
	imm := instr.Imm.(wasm.BranchImm)
	target := c.controls.at(imm.LabelIdx)
	label := c.branchTarget(target)
	c.emit.Jmp(label)
}

func handleBrIf(c *Compiler, instr wasm.Instruction) {
	imm := instr.Imm.(wasm.BranchImm)
	cond := c.cache.PopToRegister(c.alloc, c.emit, GP, NoPinned())

	target := c.controls.at(imm.LabelIdx)
	label := c.branchTarget(target)

	// The Emitter only offers a jump-if-zero primitive, so br_if's
	// "jump if true" is expressed as a short skip around the real jump:
	// registers were already relocated to target's shape above, and that
	// relocation is unconditional data movement, valid on the fallthrough
	// path too.
	skip := c.labels.new()
	c.emit.JumpIfZero(cond, skip)
	c.emit.Jmp(label)
	c.emit.Bind(skip)
	c.labels.markBound(skip)
}

func handleReturn(c *Compiler, instr wasm.Instruction) {
	fn := c.controls.at(uint32(c.controls.depth() - 1))
	label := c.branchTarget(fn)
	c.emit.Jmp(label)
}

// resolveBlockArity determines how many values a block/loop's exit edge
// carries, bailing out on the combinations the baseline does not model:
// i64/f64 results, block/loop parameters, and multi-value results.
func (c *Compiler) resolveBlockArity(imm wasm.BlockImm) int {
	switch imm.Type {
	case -64:
		return 0
	case -1, -3:
		return 1
	case -2, -4:
		c.unsupported(ReasonUnsupportedType, "block result type index %d not supported", imm.Type)
		return 0
	default:
		ft, ok := c.env.BlockType(uint32(imm.Type))
		if !ok {
			c.unsupported(ReasonUnsupportedType, "unknown block type index %d", imm.Type)
		}
		if len(ft.Params) > 0 {
			c.unsupported(ReasonUnsupportedParamLocation, "block/loop with parameters not supported")
		}
		if len(ft.Results) > 1 {
			c.unsupported(ReasonMultiValueReturn, "block returns %d values", len(ft.Results))
		}
		return len(ft.Results)
	}
}
