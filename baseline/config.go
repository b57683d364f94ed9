package baseline

// Config parameterises one compilation: the concrete architecture's cache
// register lists plus the resource limits that turn into bailouts rather
// than ever growing unbounded. There is deliberately no field for
// optimisation level or codegen quality knobs — the baseline has exactly
// one mode.
type Config struct {
	// GPRegisters and FPRegisters are the fixed cache lists handed to the
	// Allocator, in the priority order GetUnused should prefer them.
	GPRegisters []Reg
	FPRegisters []Reg

	// MaxStackHeight bounds the operand stack (locals excluded); exceeding
	// it triggers ReasonStackOverflow rather than growing the frame
	// without limit.
	MaxStackHeight int

	// MaxLocals bounds the combined parameter+local count a function body
	// may declare.
	MaxLocals int

	// DebugAssertions enables the per-opcode TRACE-equivalent logging via
	// debugf; independent of the package-level SetLogger sink.
	DebugAssertions bool
}

// DefaultConfig returns baseline limits modelled on Liftoff's own
// defaults: generous enough for realistic function bodies, small enough
// that a pathological or adversarial module bails out instead of
// exhausting memory.
func DefaultConfig() Config {
	gp := make([]Reg, 6)
	for i := range gp {
		gp[i] = Reg{Class: GP, Num: i}
	}
	fp := make([]Reg, 6)
	for i := range fp {
		fp[i] = Reg{Class: FP, Num: i}
	}
	return Config{
		GPRegisters:    gp,
		FPRegisters:    fp,
		MaxStackHeight: 4096,
		MaxLocals:      512,
	}
}
