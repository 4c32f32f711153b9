package grexvm

// Approximate per-allocation costs in bytes, charged against MemLimit.
// The ceiling guards runaway programs, not exact accounting.
const (
	slotCost    = 16
	bindingCost = 48
	mapCost     = 64
	closureCost = 96
)

func (v *VM) account(n int64) {
	if v.MemLimit <= 0 {
		return
	}
	v.allocated += n
	if v.allocated > v.MemLimit {
		v.Abort(AbortMemory)
	}
}

// Allocated returns the bytes charged so far.
func (v *VM) Allocated() int64 {
	return v.allocated
}
