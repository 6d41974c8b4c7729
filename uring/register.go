package uring

import (
	"syscall"
	"unsafe"
)

const (
	IORING_REGISTER_BUFFERS uintptr = iota
	IORING_UNREGISTER_BUFFERS
	IORING_REGISTER_FILES
	IORING_UNREGISTER_FILES
	IORING_REGISTER_EVENTFD
	IORING_UNREGISTER_EVENTFD
	IORING_REGISTER_FILES_UPDATE
	IORING_REGISTER_EVENTFD_ASYNC
	IORING_REGISTER_PROBE
	IORING_REGISTER_PERSONALITY
	IORING_UNREGISTER_PERSONALITY
	IORING_REGISTER_RESTRICTIONS
	IORING_REGISTER_ENABLE_RINGS
	IORING_REGISTER_FILES2
	IORING_REGISTER_FILES_UPDATE2
	IORING_REGISTER_BUFFERS2
	IORING_REGISTER_BUFFERS_UPDATE
	IORING_REGISTER_IOWQ_AFF
	IORING_UNREGISTER_IOWQ_AFF
	IORING_REGISTER_IOWQ_MAX_WORKERS
	IORING_REGISTER_RING_FDS
	IORING_UNREGISTER_RING_FDS
	IORING_REGISTER_PBUF_RING
	IORING_UNREGISTER_PBUF_RING
)

const (
	IO_URING_OP_SUPPORTED uint16 = 1 << 0
)

const (
	probeOpsSize = uintptr(IORING_OP_LAST) + 1
)

type Probe struct {
	LastOp uint8
	OpsLen uint8
	resv   uint16
	resv2  [3]uint32
	Ops    [probeOpsSize]ProbeOp
}

func (p Probe) IsSupported(op uint8) bool {
	for i := uint8(0); i < p.OpsLen; i++ {
		if p.Ops[i].Op != op {
			continue
		}
		return p.Ops[i].Flags&IO_URING_OP_SUPPORTED > 0
	}
	return false
}

type ProbeOp struct {
	Op    uint8
	resv  uint8
	Flags uint16
	resv2 uint32
}

type filesUpdate struct {
	offset uint32
	resv   uint32
	fds    uint64
}

func (r *Ring) register(opcode uintptr, arg unsafe.Pointer, nrArgs uintptr) error {
	_, _, errno := syscall.Syscall6(
		IO_URING_REGISTER,
		uintptr(r.fd),
		opcode,
		uintptr(arg),
		nrArgs, 0, 0)
	if errno > 0 {
		return error(errno)
	}
	return nil
}

// RegisterProbe fills probe with the operations supported by the
// running kernel.
func (r *Ring) RegisterProbe(probe *Probe) error {
	return r.register(IORING_REGISTER_PROBE, unsafe.Pointer(probe), probeOpsSize)
}

// RegisterFiles installs a descriptor table so submissions can address
// entries by index with IOSQE_FIXED_FILE instead of a raw descriptor.
// -1 leaves a slot sparse for a later UpdateFiles.
func (r *Ring) RegisterFiles(fds []int32) error {
	return r.register(IORING_REGISTER_FILES, unsafe.Pointer(&fds[0]), uintptr(len(fds)))
}

// UpdateFiles overwrites registered table slots starting at off.
func (r *Ring) UpdateFiles(fds []int32, off uint32) error {
	update := filesUpdate{
		offset: off,
		fds:    (uint64)(uintptr(unsafe.Pointer(&fds[0]))),
	}
	return r.register(IORING_REGISTER_FILES_UPDATE, unsafe.Pointer(&update), uintptr(len(fds)))
}

func (r *Ring) UnregisterFiles() error {
	return r.register(IORING_UNREGISTER_FILES, nil, 0)
}

// RegisterBuffers pins payload memory so fixed operations (zero-copy
// sends among them) can reference it by buffer index.
func (r *Ring) RegisterBuffers(iovec []syscall.Iovec) error {
	return r.register(IORING_REGISTER_BUFFERS, unsafe.Pointer(&iovec[0]), uintptr(len(iovec)))
}

func (r *Ring) UnregisterBuffers() error {
	return r.register(IORING_UNREGISTER_BUFFERS, nil, 0)
}
