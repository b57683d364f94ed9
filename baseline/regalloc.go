package baseline

// Allocator tracks which of a fixed, architecture-provided list of cache
// registers is in use and picks spill victims when none are free.
//
// The allocator itself holds no use-count bookkeeping — that lives on the
// CacheState slots it is paired with (per the cache-state invariants, a
// single use-count per register must exist exactly once). Allocator is a
// stateless operation over whatever CacheState and Emitter it is given,
// which keeps it trivially shareable and means there is nothing to clone
// when a CacheState is snapshotted.
type Allocator struct {
	list [2][]Reg
}

// NewAllocator builds an allocator permitted to hand out exactly the given
// GP and FP registers. Register numbers are opaque to this package; they
// are only ever passed back to the Emitter.
func NewAllocator(gp, fp []Reg) *Allocator {
	a := &Allocator{}
	a.list[GP] = append([]Reg(nil), gp...)
	a.list[FP] = append([]Reg(nil), fp...)
	return a
}

// CacheList returns the fixed register list for class.
func (a *Allocator) CacheList(class RegClass) []Reg {
	return a.list[class]
}

// HasFree reports whether an unpinned cache register of class is
// currently unused by cs.
func (a *Allocator) HasFree(cs *CacheState, class RegClass, pinned RegSet) bool {
	for _, r := range a.list[class] {
		if pinned.Has(r) {
			continue
		}
		if cs.useCount[r] == 0 {
			return true
		}
	}
	return false
}

// GetUnused returns a cache register of class not in pinned. If a free
// register exists it is returned directly; otherwise a victim already in
// use is selected, every cache-state slot referencing it is spilled, and
// the now-free register is returned. GetUnused never fails: pinned must
// never cover the entire cache list for class, which is a precondition the
// caller must preserve (violating it is a compiler bug, not a bailout).
func (a *Allocator) GetUnused(cs *CacheState, emit Emitter, class RegClass, pinned RegSet) Reg {
	list := a.list[class]
	for _, r := range list {
		if pinned.Has(r) {
			continue
		}
		if cs.useCount[r] == 0 {
			return r
		}
	}
	for _, r := range list {
		if pinned.Has(r) {
			continue
		}
		cs.spillRegister(emit, r)
		return r
	}
	invariant(false, "get_unused: all %d %s cache registers are pinned", len(list), class)
	return Reg{}
}
