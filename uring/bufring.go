package uring

import (
	"fmt"
	"syscall"
	"unsafe"
)

type bufRegArg struct {
	ringAddr    uint64
	ringEntries uint32
	bgid        uint16
	flags       uint16
	resv        [3]uint64
}

type bufRingEntry struct {
	addr uint64
	len  uint32
	bid  uint16
	resv uint16
}

// tail shares the first entry with the kernel, within the resv area
const bufRingTailOffset = 14

// BufRing is a buffer ring shared between the application and the
// kernel. Unlike application-side allocators the kernel itself selects
// which buffer an operation submitted with IOSQE_BUFFER_SELECT fills
// and reports the choice through CQEntry.BufferID. The application
// only recognizes the used buffer and re-arms it with Recycle once
// done; there is deliberately no application-side acquire.
type BufRing struct {
	ring *Ring
	bgid uint16

	entries uint16
	mask    uint16
	size    int

	// mmaped, ringMem is shared with the kernel
	ringMem []byte
	bufMem  []byte

	tail uint16
}

// SetupBufRing registers a buffer ring of entries buffers of size
// bytes each under group bgid. All buffers start armed. entries must
// be a power of two.
func (r *Ring) SetupBufRing(entries uint16, bgid uint16, size int) (*BufRing, error) {
	if entries == 0 || entries&(entries-1) != 0 {
		return nil, fmt.Errorf("buf ring entries %d: must be a power of two", entries)
	}
	ringMem, err := syscall.Mmap(-1, 0, int(entries)*int(unsafe.Sizeof(bufRingEntry{})),
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_ANONYMOUS|syscall.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("mmap buf ring: %w", err)
	}
	bufMem, err := syscall.Mmap(-1, 0, int(entries)*size,
		syscall.PROT_READ|syscall.PROT_WRITE,
		syscall.MAP_ANONYMOUS|syscall.MAP_PRIVATE)
	if err != nil {
		_ = syscall.Munmap(ringMem)
		return nil, fmt.Errorf("mmap buf region: %w", err)
	}

	b := newBufRing(ringMem, bufMem, entries, size)
	b.ring = r
	b.bgid = bgid

	reg := bufRegArg{
		ringAddr:    (uint64)(uintptr(unsafe.Pointer(&ringMem[0]))),
		ringEntries: uint32(entries),
		bgid:        bgid,
	}
	if err := r.register(IORING_REGISTER_PBUF_RING, unsafe.Pointer(&reg), 1); err != nil {
		_ = syscall.Munmap(bufMem)
		_ = syscall.Munmap(ringMem)
		return nil, fmt.Errorf("register buf ring: %w", err)
	}
	for id := uint16(0); id < entries; id++ {
		b.Recycle(id)
	}
	return b, nil
}

// newBufRing wires cursors over caller-provided memory. Registration
// and preloading stay with SetupBufRing.
func newBufRing(ringMem, bufMem []byte, entries uint16, size int) *BufRing {
	return &BufRing{
		entries: entries,
		mask:    entries - 1,
		size:    size,
		ringMem: ringMem,
		bufMem:  bufMem,
	}
}

// Bytes returns the payload region of a kernel-selected buffer.
func (b *BufRing) Bytes(id uint16) []byte {
	off := int(id) * b.size
	return b.bufMem[off : off+b.size]
}

// Recycle re-arms a consumed buffer and publishes it to the kernel.
// The store becomes visible on the next ring enter.
func (b *BufRing) Recycle(id uint16) {
	e := (*bufRingEntry)(unsafe.Pointer(&b.ringMem[int(b.tail&b.mask)*int(unsafe.Sizeof(bufRingEntry{}))]))
	e.addr = (uint64)(uintptr(unsafe.Pointer(&b.bufMem[int(id)*b.size])))
	e.len = uint32(b.size)
	e.bid = id
	b.tail++
	*(*uint16)(unsafe.Pointer(&b.ringMem[bufRingTailOffset])) = b.tail
}

// Tail returns the published tail counter. The kernel consumes armed
// buffers from its private head, so the tail alone counts arms, not
// availability.
func (b *BufRing) Tail() uint16 {
	return b.tail
}

// Close unregisters the ring from the kernel and releases both
// regions. Safe to call more than once.
func (b *BufRing) Close() (err error) {
	if b.ring != nil {
		reg := bufRegArg{bgid: b.bgid}
		err = b.ring.register(IORING_UNREGISTER_PBUF_RING, unsafe.Pointer(&reg), 1)
		b.ring = nil
	}
	if b.bufMem != nil {
		ret := syscall.Munmap(b.bufMem)
		if err == nil {
			err = ret
		}
		if ret == nil {
			b.bufMem = nil
		}
	}
	if b.ringMem != nil {
		ret := syscall.Munmap(b.ringMem)
		if err == nil {
			err = ret
		}
		if ret == nil {
			b.ringMem = nil
		}
	}
	return
}
