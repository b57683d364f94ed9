package baseline

import "github.com/wippyai/wasm-baseline/wasm"

// StaticModuleEnv is a ModuleEnv backed directly by a decoded module's
// global section, laying globals out consecutively at 8-byte-aligned
// offsets into whatever context buffer the concrete Emitter's
// LoadFromContext/SpillContext address. Real embedders with a different
// instance layout implement ModuleEnv themselves; this one exists so
// tests and the demonstration CLI have a real, non-mock collaborator.
type StaticModuleEnv struct {
	mod     *wasm.Module
	offsets []int32
}

// NewStaticModuleEnv computes a fixed global layout for mod up front.
func NewStaticModuleEnv(mod *wasm.Module) *StaticModuleEnv {
	e := &StaticModuleEnv{mod: mod, offsets: make([]int32, len(mod.Globals))}
	var off int32
	for i := range mod.Globals {
		e.offsets[i] = off
		off += 8
	}
	return e
}

func (e *StaticModuleEnv) GlobalType(idx uint32) (wasm.ValType, bool) {
	if int(idx) >= len(e.mod.Globals) {
		return 0, false
	}
	return e.mod.Globals[idx].Type.ValType, true
}

func (e *StaticModuleEnv) GlobalOffset(idx uint32) int32 {
	invariant(int(idx) < len(e.offsets), "GlobalOffset: index %d out of range", idx)
	return e.offsets[idx]
}

func (e *StaticModuleEnv) BlockType(typeIdx uint32) (wasm.FuncType, bool) {
	if int(typeIdx) >= len(e.mod.Types) {
		return wasm.FuncType{}, false
	}
	return e.mod.Types[typeIdx], true
}
