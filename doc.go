// Package wasmbaseline is a Go implementation of a baseline single-pass
// compiler for WebAssembly function bodies, built around a symbolic
// operand-stack/locals cache-state abstraction.
//
// # Architecture Overview
//
//	wasmbaseline/     Root package (unused directly; import baseline)
//	├── baseline/     The compiler core: cache state, register allocator,
//	│                 opcode translator, control-flow coordinator
//	├── wasm/         WASM binary decode/validate/instruction model
//	├── wat/          WAT text format to WASM binary compiler (test fixtures)
//	├── errors/       Structured error types shared across packages
//	└── cmd/          Demonstration CLI driving the compiler over .wat/.wasm
//
// # Quick Start
//
//	mod, err := wasm.ParseModuleValidate(wasmBytes)
//	cfg := baseline.DefaultConfig()
//	for i, body := range mod.Code {
//	    ft := mod.GetFuncType(uint32(mod.NumImportedFuncs() + i))
//	    c := baseline.NewCompiler(cfg, *ft, body, env, emitter)
//	    result := c.Compile()
//	    if !result.OK {
//	        // hand the function to a higher-tier compiler
//	    }
//	}
//
// # Scope
//
// The compiler covers a deliberately narrow opcode subset (i32/f32 locals,
// globals, arithmetic, unconditional/conditional branch, block/loop, return,
// drop) and bails out gracefully on anything else, deferring to a higher
// tier. See baseline's package doc for the cache-state invariants this is
// built on.
package wasmbaseline
