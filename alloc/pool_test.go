package alloc

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func testPool(t testing.TB, size, capacity int) *Pool {
	t.Helper()
	p, err := NewPool(size, capacity)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, p.Close())
	})
	return p
}

func TestPoolAcquireRelease(t *testing.T) {
	p := testPool(t, 16, 4)
	require.Equal(t, 4, p.Free())

	seen := map[Handle]bool{}
	bufs := make([]Buffer, 0, 4)
	for i := 0; i < 4; i++ {
		buf, ok := p.Acquire()
		require.True(t, ok)
		require.Len(t, buf.B, 16)
		require.False(t, seen[buf.Handle()], "handle %d leased twice", buf.Handle())
		seen[buf.Handle()] = true
		bufs = append(bufs, buf)
	}
	require.Equal(t, 0, p.Free())

	_, ok := p.Acquire()
	require.False(t, ok)

	p.Release(bufs[1].Handle())
	p.Release(bufs[3].Handle())
	require.Equal(t, 2, p.Free())

	buf, ok := p.Acquire()
	require.True(t, ok)
	require.True(t, buf.Handle() == bufs[1].Handle() || buf.Handle() == bufs[3].Handle())
}

func TestPoolSoundness(t *testing.T) {
	const capacity = 8
	p := testPool(t, 8, capacity)

	rng := rand.New(rand.NewSource(1))
	outstanding := map[Handle]bool{}
	var order []Handle

	for step := 0; step < 10000; step++ {
		if len(outstanding) < capacity && (len(outstanding) == 0 || rng.Intn(2) == 0) {
			buf, ok := p.Acquire()
			require.True(t, ok)
			require.Less(t, uint64(buf.Handle()), uint64(capacity))
			require.False(t, outstanding[buf.Handle()], "handle %d leased while outstanding", buf.Handle())
			outstanding[buf.Handle()] = true
			order = append(order, buf.Handle())
		} else {
			i := rng.Intn(len(order))
			h := order[i]
			order = append(order[:i], order[i+1:]...)
			delete(outstanding, h)
			p.Release(h)
		}
		require.Equal(t, capacity, p.Free()+len(outstanding))
	}
}

func TestPoolExhaustionIsNotAnError(t *testing.T) {
	p := testPool(t, 8, 1)

	buf, ok := p.Acquire()
	require.True(t, ok)
	for i := 0; i < 3; i++ {
		_, ok := p.Acquire()
		require.False(t, ok)
	}
	p.Release(buf.Handle())
	_, ok = p.Acquire()
	require.True(t, ok)
}

func TestPoolReleaseIntoFullPanics(t *testing.T) {
	p := testPool(t, 8, 2)

	require.Panics(t, func() {
		p.Release(0)
	})
}

func TestPoolCursorWraparound(t *testing.T) {
	p := testPool(t, 8, 3)
	// park the cursors deep into their range, occupancy and index math
	// must not depend on small values
	p.head = math.MaxUint32 - 1
	p.tail = p.head + 3

	for step := 0; step < 8; step++ {
		buf, ok := p.Acquire()
		require.True(t, ok)
		require.Equal(t, 2, p.Free())
		p.Release(buf.Handle())
		require.Equal(t, 3, p.Free())
	}
}

func TestPoolBufferRegion(t *testing.T) {
	p := testPool(t, 4, 2)

	a, ok := p.Acquire()
	require.True(t, ok)
	b, ok := p.Acquire()
	require.True(t, ok)

	a.B[0] = 0xaa
	b.B[0] = 0xbb
	require.Equal(t, byte(0xaa), p.mem[int(a.Handle())*4])
	require.Equal(t, byte(0xbb), p.mem[int(b.Handle())*4])
}

func TestPoolClose(t *testing.T) {
	p, err := NewPool(16, 2)
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}

func BenchmarkPoolAcquireRelease(b *testing.B) {
	p := testPool(b, 16, 256)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf, ok := p.Acquire()
		if !ok {
			b.Fatal("pool exhausted")
		}
		p.Release(buf.Handle())
	}
}
