// Package alloc provides the buffer-management strategies under
// measurement: an eager allocator that pays full allocation cost per
// send, and a fixed-capacity pooled allocator that recycles a
// preloaded region. Buffers move between exactly one owner at a time:
// the allocator free list, the application (being filled), or the
// kernel (in flight).
package alloc

// Handle identifies a leased buffer. Handles double as the completion
// correlation tag: the engine stores them in submission user data and
// resolves completions back to buffers without a lookup table.
type Handle uint64

// Buffer is a leased fixed-size block.
type Buffer struct {
	B []byte

	handle Handle
}

func (b Buffer) Handle() Handle {
	return b.handle
}

// Allocator hands out fixed-size buffers and takes them back by
// handle. Acquire reporting false is backpressure, not an error: the
// caller stops submitting until releases catch up.
type Allocator interface {
	Acquire() (Buffer, bool)
	Release(Handle)
}
