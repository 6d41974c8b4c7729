package uring

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestSendtoPopulation(t *testing.T) {
	var sqe SQEntry
	buf := escapingBytes(16)
	addr := escapingBytes(16)

	Sendto(&sqe, 5, buf, 0, addr)
	require.Equal(t, IORING_OP_SEND, sqe.Opcode())
	require.Equal(t, int32(5), sqe.Fd())
	require.Equal(t, uint32(len(buf)), sqe.Len())
	require.Equal(t, (uint64)(uintptr(unsafe.Pointer(&buf[0]))), sqe.Addr())
	require.Equal(t, (uint64)(uintptr(unsafe.Pointer(&addr[0]))), sqe.Addr2())
	require.Equal(t, uint32(len(addr)), sqe.spliceFdIn)
}

func TestSendZCFixedPopulation(t *testing.T) {
	var sqe SQEntry
	buf := make([]byte, 16)
	addr := make([]byte, 28)

	SendZCFixed(&sqe, 3, buf, 0, 2, addr)
	require.Equal(t, IORING_OP_SEND_ZC, sqe.Opcode())
	require.Equal(t, IORING_RECVSEND_FIXED_BUF, sqe.IOPrio())
	require.Equal(t, uint16(2), sqe.BufIndex())
	require.Equal(t, uint32(len(addr)), sqe.spliceFdIn)
}
