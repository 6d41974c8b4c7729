package alloc

import (
	"fmt"
	"syscall"
)

// Pool is a fixed-capacity allocator over one contiguous anonymous
// mapping, so payload addresses stay stable while the kernel owns
// them. The free list is a ring of handles with two modular cursors:
// occupied = tail - head, empty when head == tail, full when
// tail == head + capacity. Acquire pops the head, Release pushes the
// tail. The ring models availability, not FIFO fairness.
//
// Not safe for concurrent use; a pool belongs to the single engine
// driving the current run.
type Pool struct {
	size     int
	capacity uint64

	mem  []byte
	free []Handle
	head uint64
	tail uint64
}

// NewPool maps size*capacity bytes and preloads the free list with
// every handle.
func NewPool(size, capacity int) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool buffer size %d: must be positive", size)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("pool capacity %d: must be positive", capacity)
	}
	mem, err := syscall.Mmap(-1, 0, size*capacity,
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_ANON|syscall.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap pool region: %w", err)
	}
	p := &Pool{
		size:     size,
		capacity: uint64(capacity),
		mem:      mem,
		free:     make([]Handle, capacity),
	}
	for i := range p.free {
		p.free[i] = Handle(i)
	}
	p.tail = uint64(capacity)
	return p, nil
}

func (p *Pool) Acquire() (Buffer, bool) {
	if p.head == p.tail {
		return Buffer{}, false
	}
	h := p.free[p.head%p.capacity]
	p.head++
	return Buffer{B: p.bytes(h), handle: h}, true
}

// Release returns a handle to the free list. A full free list on
// release means a handle was released twice or never leased; under
// the ownership invariant this is unreachable, so it panics instead
// of being reported as a runtime condition.
func (p *Pool) Release(h Handle) {
	if p.tail-p.head == p.capacity {
		panic("pool: release into a full free list")
	}
	p.free[p.tail%p.capacity] = h
	p.tail++
}

func (p *Pool) bytes(h Handle) []byte {
	off := int(h) * p.size
	return p.mem[off : off+p.size]
}

// Free returns the number of buffers available to Acquire.
func (p *Pool) Free() int {
	return int(p.tail - p.head)
}

func (p *Pool) Cap() int {
	return int(p.capacity)
}

// Close munmaps the region. Safe to call more than once. Buffers
// leased from the pool must not be used afterwards.
func (p *Pool) Close() error {
	if p.mem == nil {
		return nil
	}
	err := syscall.Munmap(p.mem)
	if err == nil {
		p.mem = nil
	}
	return err
}
