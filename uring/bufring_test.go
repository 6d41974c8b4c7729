package uring

import (
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestBufRingRecycle(t *testing.T) {
	const entries, size = 4, 8
	ringMem := escapingBytes(entries * 16)
	bufMem := escapingBytes(entries * size)
	b := newBufRing(ringMem, bufMem, entries, size)

	for id := uint16(0); id < entries; id++ {
		b.Recycle(id)
	}
	require.Equal(t, uint16(entries), b.Tail())

	// slot 2 offers buffer 2
	e := ringMem[2*16 : 3*16]
	require.Equal(t, (uint64)(uintptr(unsafe.Pointer(&bufMem[2*size]))), binary.NativeEndian.Uint64(e[0:8]))
	require.Equal(t, uint32(size), binary.NativeEndian.Uint32(e[8:12]))
	require.Equal(t, uint16(2), binary.NativeEndian.Uint16(e[12:14]))

	// tail is published inside the first entry
	require.Equal(t, uint16(entries), binary.NativeEndian.Uint16(ringMem[bufRingTailOffset:bufRingTailOffset+2]))

	// wraparound lands on slot 0 without clobbering the tail word
	b.Recycle(1)
	require.Equal(t, uint16(1), binary.NativeEndian.Uint16(ringMem[12:14]))
	require.Equal(t, uint16(entries+1), binary.NativeEndian.Uint16(ringMem[bufRingTailOffset:bufRingTailOffset+2]))
}

func TestBufRingBytes(t *testing.T) {
	const entries, size = 2, 32
	b := newBufRing(make([]byte, entries*16), make([]byte, entries*size), entries, size)

	one := b.Bytes(1)
	require.Len(t, one, size)
	one[0] = 0xff
	require.Equal(t, byte(0xff), b.bufMem[size])
}

func TestSetupBufRingBadEntries(t *testing.T) {
	_, err := (&Ring{}).SetupBufRing(3, 0, 16)
	require.Error(t, err)
}

func TestSetupBufRing(t *testing.T) {
	ring := testRing(t, 8, nil)

	br, err := ring.SetupBufRing(8, 0, 16)
	if err != nil {
		t.Skipf("buf ring unsupported: %v", err)
	}
	require.Len(t, br.Bytes(3), 16)
	require.Equal(t, uint16(8), br.Tail())
	require.NoError(t, br.Close())
	require.NoError(t, br.Close())
}
