// Package baseline implements a single-pass baseline compiler for
// WebAssembly function bodies.
//
// The compiler consumes a validated stream of wasm.Instruction values and
// drives an external Emitter directly, without building an intermediate
// representation. Its goal is minimum compilation latency at acceptable
// code quality: startup speed, not peak throughput.
//
// # Cache state
//
// The central abstraction is CacheState, a symbolic model of the operand
// stack and locals that tracks, at every program point, whether each value
// currently lives in a machine register, is a compile-time constant, or is
// spilled to a stack slot. All semantic operations (loads, stores,
// arithmetic, branches, control-flow merges) are expressed as
// transformations on this cache state.
//
// # Scope
//
// The supported opcode subset is intentionally narrow: i32/f32 locals and
// constants, globals (global.get additionally accepts i64, materialised
// into a general-purpose register, since reading a 64-bit global costs
// nothing extra a 32-bit one doesn't already pay), the nine integer/float
// binops (i32.add/sub/mul/and/or/xor, f32.add/sub/mul), br/br_if,
// block/loop, return, and drop. Anything else (64-bit arithmetic,
// floating-point doubles, memory access, calls, SIMD, exceptions, atomics,
// select, if/else, table branches) triggers a graceful bailout: Compile
// returns Result.OK == false and the caller is expected to hand the
// function to a higher-tier compiler. This is not an error.
package baseline
