package sender

import (
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/beviu/cr18-project/alloc"
	"github.com/beviu/cr18-project/simring"
	"github.com/beviu/cr18-project/udp"
	"github.com/beviu/cr18-project/uring"
)

func testDest(t testing.TB) *udp.Sockaddr {
	t.Helper()
	dest, err := udp.ParseSockaddr("127.0.0.1:12000")
	require.NoError(t, err)
	return dest
}

func testPool(t testing.TB, size, capacity int) *alloc.Pool {
	t.Helper()
	pool, err := alloc.NewPool(size, capacity)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Close()
	})
	return pool
}

func TestBatchBoundedBySlots(t *testing.T) {
	pool := testPool(t, 16, 4)
	sim := simring.New(2)
	sim.SetLazy(true)
	s := New(sim, pool, Config{Fd: 3, Dest: testDest(t), BatchLimit: 8})

	// four buffers but two slots: the batch stops at the slot bound
	// and the buffer leased for the missing slot goes straight back
	require.Equal(t, 2, s.buildBatch())
	require.Equal(t, 2, pool.Free())

	require.NoError(t, s.flush())
	require.Equal(t, 2, sim.InFlight()+sim.Ready())
	require.Equal(t, 2, pool.Free())
}

func TestBatchBoundedByPool(t *testing.T) {
	pool := testPool(t, 16, 2)
	sim := simring.New(8)
	sim.SetLazy(true)
	s := New(sim, pool, Config{Fd: 3, Dest: testDest(t), BatchLimit: 8})

	require.Equal(t, 2, s.buildBatch())
	require.Equal(t, 0, pool.Free())
}

func TestBatchBoundedByLimit(t *testing.T) {
	pool := testPool(t, 16, 8)
	sim := simring.New(8)
	sim.SetLazy(true)
	s := New(sim, pool, Config{Fd: 3, Dest: testDest(t), BatchLimit: 3})

	require.Equal(t, 3, s.buildBatch())
	require.Equal(t, 5, pool.Free())
}

func TestDrainHaltsOnError(t *testing.T) {
	pool := testPool(t, 16, 8)
	sim := simring.New(8)
	sim.SetLazy(true)
	calls := 0
	sim.SetResult(func(sqe *uring.SQEntry) int32 {
		calls++
		if calls == 3 {
			return -int32(syscall.ECONNREFUSED)
		}
		return int32(sqe.Len())
	})
	s := New(sim, pool, Config{Fd: 3, Dest: testDest(t), BatchLimit: 5})

	require.Equal(t, 5, s.buildBatch())
	require.NoError(t, s.flush())
	sim.Complete(sim.InFlight())

	err := s.drain()
	require.ErrorIs(t, err, syscall.ECONNREFUSED)
	require.Equal(t, uint64(2), s.count)
	// completions behind the failure stay unprocessed
	require.Equal(t, 2, sim.Ready())
	// the failing send's buffer was released before its result was
	// inspected: three of five buffers are back
	require.Equal(t, 6, pool.Free())
}

func TestFlushFailureShortCircuits(t *testing.T) {
	pool := testPool(t, 16, 4)
	sim := simring.New(8)
	boom := errors.New("ring shut down")
	sim.FailSubmit(boom)
	s := New(sim, pool, Config{Fd: 3, Dest: testDest(t), BatchLimit: 4, Duration: 10 * time.Millisecond})

	count, err := s.Run()
	require.ErrorIs(t, err, boom)
	require.Equal(t, uint64(0), count)
	// the failed flush aborts the run before anything is drained
	require.Equal(t, 0, sim.Ready())
}

func TestDrainAdvancesByDrainedCount(t *testing.T) {
	pool := testPool(t, 16, 8)
	sim := simring.New(8)
	sim.SetLazy(true)
	s := New(sim, pool, Config{Fd: 3, Dest: testDest(t), BatchLimit: 4})

	require.Equal(t, 4, s.buildBatch())
	require.NoError(t, s.flush())

	// flush waited for one completion
	require.NoError(t, s.drain())
	require.Equal(t, uint64(1), s.count)

	sim.Complete(2)
	require.NoError(t, s.drain())
	require.Equal(t, uint64(3), s.count)

	sim.Complete(1)
	require.NoError(t, s.drain())
	require.Equal(t, uint64(4), s.count)

	// nothing left, nothing counted twice
	require.NoError(t, s.drain())
	require.Equal(t, uint64(4), s.count)
	require.Equal(t, 8, pool.Free())
}

func TestRunDrainsEverythingAtExit(t *testing.T) {
	eager := alloc.NewEager(16, true)
	sim := simring.New(8)
	s := New(sim, eager, Config{Fd: 3, Dest: testDest(t), BatchLimit: 8, Duration: 20 * time.Millisecond})

	count, err := s.Run()
	require.NoError(t, err)
	require.NotZero(t, count)
	require.Equal(t, 0, sim.InFlight())
	require.Equal(t, 0, sim.Ready())
	require.Equal(t, 0, eager.Live())
	require.Equal(t, int(count), eager.Allocated())
}

func TestRunPooledLeakFreedom(t *testing.T) {
	pool := testPool(t, 16, 4)
	sim := simring.New(8)
	s := New(sim, pool, Config{Fd: 3, Dest: testDest(t), BatchLimit: 8, Duration: 20 * time.Millisecond})

	count, err := s.Run()
	require.NoError(t, err)
	require.NotZero(t, count)
	require.Equal(t, 4, pool.Free())
}

func TestRunZeroDuration(t *testing.T) {
	pool := testPool(t, 16, 4)
	sim := simring.New(8)

	count, err := Run(sim, pool, Config{Fd: 3, Dest: testDest(t), BatchLimit: 8})
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestSubmissionPopulation(t *testing.T) {
	pool := testPool(t, 16, 4)
	sim := simring.New(8)
	type seen struct {
		opcode   uint8
		fd       int32
		flags    uint8
		length   uint32
		userData uint64
	}
	var got []seen
	sim.SetResult(func(sqe *uring.SQEntry) int32 {
		got = append(got, seen{sqe.Opcode(), sqe.Fd(), sqe.Flags(), sqe.Len(), sqe.UserData()})
		return int32(sqe.Len())
	})
	s := New(sim, pool, Config{Fd: 7, Dest: testDest(t), BatchLimit: 2})

	require.Equal(t, 2, s.buildBatch())
	require.NoError(t, s.flush())
	require.NoError(t, s.drain())

	require.Len(t, got, 2)
	for i, e := range got {
		require.Equal(t, uring.IORING_OP_SEND, e.opcode)
		require.Equal(t, int32(7), e.fd)
		require.Equal(t, uint8(0), e.flags)
		require.Equal(t, uint32(16), e.length)
		require.Equal(t, uint64(i), e.userData)
	}
}

func TestFixedFileSubmission(t *testing.T) {
	pool := testPool(t, 16, 4)
	sim := simring.New(8)
	var flags uint8
	var fd int32
	sim.SetResult(func(sqe *uring.SQEntry) int32 {
		flags = sqe.Flags()
		fd = sqe.Fd()
		return int32(sqe.Len())
	})
	s := New(sim, pool, Config{Fd: 0, FixedFile: true, Dest: testDest(t), BatchLimit: 1})

	require.Equal(t, 1, s.buildBatch())
	require.NoError(t, s.flush())
	require.NoError(t, s.drain())
	require.Equal(t, uring.IOSQE_FIXED_FILE, flags)
	require.Equal(t, int32(0), fd)
}

func TestFill(t *testing.T) {
	b := make([]byte, 16)
	fill(b)
	for _, v := range b {
		require.Equal(t, byte(1), v)
	}
}
