package baseline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-baseline/wasm"
)

// Result is what one function body compiles to. OK is false exactly when
// the compiler bailed out — never when it returns a Go error, since
// bailout is an expected, graceful outcome for constructs outside the
// baseline's scope, not a defect. BailoutReason is one of the Reason*
// constants when OK is false, and empty otherwise.
type Result struct {
	Code            []byte
	SafepointOffset int
	OK              bool
	BailoutReason   string
}

// ModuleEnv is the module-level metadata the compiler needs but does not
// own: global variable types/mutability/offsets. A real embedder backs
// this with its module and instance layout; tests back it with a fixed
// table.
type ModuleEnv interface {
	GlobalType(idx uint32) (wasm.ValType, bool)
	GlobalOffset(idx uint32) int32

	// BlockType resolves a multi-value block-type index (BlockImm.Type
	// >= 0) to the function type it names, for block/loop/if signatures
	// that reference the module's type section instead of one of the
	// single-result shorthand encodings.
	BlockType(typeIdx uint32) (wasm.FuncType, bool)
}

// bailoutSignal unwinds the compiler's opcode loop and its helpers back
// to Compile without threading a bailout return value through every
// helper. It is only ever recovered inside Compile itself; an invariant()
// panic is a different, unrecovered signal — those indicate a compiler
// bug, not a graceful bailout, and are meant to crash.
type bailoutSignal struct {
	reason string
	detail string
}

// Compiler drives one function body from decoded instructions to machine
// code, coordinating the cache state, register allocator, and control-flow
// stack against a caller-supplied Emitter.
type Compiler struct {
	cfg  Config
	ft   wasm.FuncType
	body wasm.FuncBody
	env  ModuleEnv
	emit Emitter

	cache    *CacheState
	alloc    *Allocator
	controls *controlStack
	labels   *labelArena

	numLocals int
	result    Result
}

// NewCompiler builds a Compiler for one function. ft is the function's
// signature, body its locals and raw instruction bytes, env the module's
// global metadata, and emit the target architecture's code generator.
func NewCompiler(cfg Config, ft wasm.FuncType, body wasm.FuncBody, env ModuleEnv, emit Emitter) *Compiler {
	if cfg.DebugAssertions {
		SetDebug(true)
	}
	return &Compiler{
		cfg:      cfg,
		ft:       ft,
		body:     body,
		env:      env,
		emit:     emit,
		alloc:    NewAllocator(cfg.GPRegisters, cfg.FPRegisters),
		controls: newControlStack(),
		labels:   newLabelArena(),
	}
}

// unsupported records reason as the compilation's bailout outcome and
// unwinds back to Compile. It is the only way a compilation ends without
// OK set true; callers never need to check a return value after calling
// it, since it never returns.
func (c *Compiler) unsupported(reason string, detail string, args ...any) {
	c.result.BailoutReason = reason
	Logger().Debug("baseline: bailout",
		zap.String("reason", reason),
		zap.Error(bailoutError(reason, detail, args...)))
	panic(bailoutSignal{reason: reason, detail: fmt.Sprintf(detail, args...)})
}

// Compile runs the full pipeline for one function: local computation,
// parameter binding, opcode translation, and control-stack finalisation.
// It never returns a Go error; a returned Result with OK false means the
// function is outside the baseline's scope and must be compiled by a
// fallback tier instead. On bailout every control block still open on the
// stack has its label swept bound, so a caller can always assume every
// label this compilation created is bound by the time Compile returns.
func (c *Compiler) Compile() (res Result) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailoutSignal); ok {
				c.sweepUnboundLabels()
				c.result.OK = false
				res = c.result
				return
			}
			panic(r)
		}
	}()

	c.startFunction()
	c.translateBody()
	c.finishFunction()

	c.result.OK = true
	res = c.result
	return
}

// startFunction computes the local layout, binds parameters into
// registers or the caller frame, zero-initialises declared locals, and
// emits the function's prologue.
func (c *Compiler) startFunction() {
	if len(c.ft.Results) > 1 {
		c.unsupported(ReasonMultiValueReturn, "function returns %d values", len(c.ft.Results))
	}
	for i, t := range c.ft.Results {
		if _, ok := classOf(t); !ok {
			c.unsupported(ReasonUnsupportedType, "result %d has type %s", i, t)
		}
	}

	c.numLocals = len(c.ft.Params)
	for _, le := range c.body.Locals {
		c.numLocals += int(le.Count)
	}
	if c.numLocals > c.cfg.MaxLocals {
		c.unsupported(ReasonUnsupportedType, "function declares %d locals, limit is %d", c.numLocals, c.cfg.MaxLocals)
	}

	c.cache = NewCacheState(c.numLocals)
	c.emit.EnterFrame()

	gpUsed, fpUsed := 0, 0
	for i, t := range c.ft.Params {
		class, ok := classOf(t)
		if !ok {
			c.unsupported(ReasonUnsupportedType, "parameter %d has type %s", i, t)
		}
		limit := len(c.alloc.CacheList(class))
		used := &gpUsed
		if class == FP {
			used = &fpUsed
		}
		if *used >= limit {
			c.unsupported(ReasonUnsupportedParamLocation, "parameter %d exhausts the %s cache list", i, class)
		}
		r := c.alloc.CacheList(class)[*used]
		*used++
		c.emit.LoadCallerFrameSlot(r, i)
		c.cache.PushRegister(t, r)
	}

	idx := len(c.ft.Params)
	for _, le := range c.body.Locals {
		t := le.ValType
		class, ok := classOf(t)
		if !ok {
			c.unsupported(ReasonUnsupportedType, "local %d has type %s", idx, t)
		}
		for n := uint32(0); n < le.Count; n++ {
			if class == FP {
				c.cache.pushF32Const(c.alloc, c.emit, 0, NoPinned())
			} else {
				c.cache.PushConstant(t, 0)
			}
			idx++
		}
	}

	c.emit.ReserveStackSpace(c.frameSlots())
	c.controls.push(&ControlBlock{
		Label:     c.labels.new(),
		Arity:     len(c.ft.Results),
		StackBase: c.cache.Height(),
	})
}

// frameSlots is the number of physical slots StartFunction's prologue
// must reserve: the configured stack limit plus locals plus the one
// scratch row reserveScratchSlot borrows for merge-time cycle breaking.
func (c *Compiler) frameSlots() int {
	return c.numLocals + c.cfg.MaxStackHeight + 1
}

// finishFunction reconciles the implicit outermost block (the function's
// own `end`) against the function's result arity, emits the epilogue, and
// checks every label was eventually bound.
func (c *Compiler) finishFunction() {
	fn := c.controls.pop()
	if fn.LabelState != nil {
		c.cache.MergeStackWith(fn.LabelState, fn.Arity, c.alloc, c.emit, fn.StackBase)
	}
	c.emit.Bind(fn.Label)
	c.labels.markBound(fn.Label)

	for i, t := range c.ft.Results {
		idx := c.cache.Height() - len(c.ft.Results) + i
		class, _ := classOf(t)
		s := c.cache.Slot(idx)
		switch s.Loc {
		case LocRegister:
			c.emit.MoveToReturnRegister(s.Reg, class)
		case LocConstant:
			r := c.alloc.GetUnused(c.cache, c.emit, class, NoPinned())
			c.emit.LoadConstant(r, s.Const)
			c.emit.MoveToReturnRegister(r, class)
		case LocStack:
			r := c.alloc.GetUnused(c.cache, c.emit, class, NoPinned())
			c.cache.Fill(c.emit, r, idx)
			c.emit.MoveToReturnRegister(r, class)
		}
	}
	c.emit.LeaveFrame()
	c.emit.Ret()

	c.checkUnboundLabels()
}
