package alloc

// Eager allocates a fresh block on every Acquire. Handles grow
// monotonically and are never reused. With free=false released blocks
// are deliberately kept forever, the baseline for measuring raw
// allocation overhead; with free=true Release drops the block so it
// can be collected.
type Eager struct {
	size int
	free bool
	bufs [][]byte
	live int
}

func NewEager(size int, free bool) *Eager {
	return &Eager{size: size, free: free}
}

func (e *Eager) Acquire() (Buffer, bool) {
	h := Handle(len(e.bufs))
	b := make([]byte, e.size)
	e.bufs = append(e.bufs, b)
	e.live++
	return Buffer{B: b, handle: h}, true
}

func (e *Eager) Release(h Handle) {
	if !e.free {
		return
	}
	if e.bufs[h] != nil {
		e.bufs[h] = nil
		e.live--
	}
}

// Allocated returns the total number of Acquire calls served.
func (e *Eager) Allocated() int {
	return len(e.bufs)
}

// Live returns the number of blocks still referenced.
func (e *Eager) Live() int {
	return e.live
}
