package uring

import (
	"unsafe"
)

// Nop ...
func Nop(sqe *SQEntry) {
	sqe.opcode = IORING_OP_NOP
}

// Write ...
func Write(sqe *SQEntry, fd uintptr, buf []byte) {
	sqe.opcode = IORING_OP_WRITE
	sqe.fd = int32(fd)
	sqe.addr = (uint64)(uintptr(unsafe.Pointer(&buf[0])))
	sqe.len = uint32(len(buf))
}

// Read ...
func Read(sqe *SQEntry, fd uintptr, buf []byte) {
	sqe.opcode = IORING_OP_READ
	sqe.fd = int32(fd)
	sqe.addr = (uint64)(uintptr(unsafe.Pointer(&buf[0])))
	sqe.len = uint32(len(buf))
}

// Send prepares a send on a connected socket.
func Send(sqe *SQEntry, fd uintptr, buf []byte, flags uint32) {
	sqe.opcode = IORING_OP_SEND
	sqe.fd = int32(fd)
	sqe.addr = (uint64)(uintptr(unsafe.Pointer(&buf[0])))
	sqe.len = uint32(len(buf))
	sqe.opcodeFlags = flags
}

// Sendto prepares a datagram send to an explicit destination. addr is
// a raw sockaddr encoding (see udp.Sockaddr) and must stay reachable
// until the completion is reaped.
func Sendto(sqe *SQEntry, fd uintptr, buf []byte, flags uint32, addr []byte) {
	sqe.opcode = IORING_OP_SEND
	sqe.fd = int32(fd)
	sqe.addr = (uint64)(uintptr(unsafe.Pointer(&buf[0])))
	sqe.len = uint32(len(buf))
	sqe.opcodeFlags = flags
	sqe.offset = (uint64)(uintptr(unsafe.Pointer(&addr[0])))
	sqe.spliceFdIn = uint32(len(addr))
}

// SendZC prepares a zero-copy datagram send. Completion arrives in two
// records: the send result carries IORING_CQE_F_MORE, the buffer may
// be reused only after the record with IORING_CQE_F_NOTIF.
func SendZC(sqe *SQEntry, fd uintptr, buf []byte, flags uint32, zcFlags uint16, addr []byte) {
	sqe.opcode = IORING_OP_SEND_ZC
	sqe.fd = int32(fd)
	sqe.ioprio = zcFlags
	sqe.addr = (uint64)(uintptr(unsafe.Pointer(&buf[0])))
	sqe.len = uint32(len(buf))
	sqe.opcodeFlags = flags
	if addr != nil {
		sqe.offset = (uint64)(uintptr(unsafe.Pointer(&addr[0])))
		sqe.spliceFdIn = uint32(len(addr))
	}
}

// SendZCFixed is SendZC over a buffer registered with RegisterBuffers.
func SendZCFixed(sqe *SQEntry, fd uintptr, buf []byte, flags uint32, bufIndex uint16, addr []byte) {
	SendZC(sqe, fd, buf, flags, IORING_RECVSEND_FIXED_BUF, addr)
	sqe.bufIG = bufIndex
}

// Recv ...
func Recv(sqe *SQEntry, fd uintptr, buf []byte, flags uint32) {
	sqe.opcode = IORING_OP_RECV
	sqe.fd = int32(fd)
	sqe.addr = (uint64)(uintptr(unsafe.Pointer(&buf[0])))
	sqe.len = uint32(len(buf))
	sqe.opcodeFlags = flags
}
