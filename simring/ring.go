// Package simring is an in-memory stand-in for the kernel submission/
// completion ring. It mirrors the ring's observable contract - bounded
// submission slots, completions delivered in submission order, EAGAIN
// on an empty completion queue - without syscalls, so engine behavior
// is exercised deterministically and the benchmark can dry-run on
// hosts without io_uring.
package simring

import (
	"syscall"

	"github.com/eapache/queue"

	"github.com/beviu/cr18-project/uring"
)

// Ring implements the same submission/completion surface as
// uring.Ring over in-memory FIFOs.
type Ring struct {
	sqes     []uring.SQEntry
	reserved int

	// submitted but not completed, in submission order
	inflight *queue.Queue
	// completed, waiting to be drained
	ready *queue.Queue

	result    func(*uring.SQEntry) int32
	submitErr error
	lazy      bool
}

// New creates a ring with size submission slots. Every operation
// completes successfully with its full length unless SetResult
// overrides it.
func New(size int) *Ring {
	r := &Ring{
		sqes:     make([]uring.SQEntry, size),
		inflight: queue.New(),
		ready:    queue.New(),
	}
	r.result = func(sqe *uring.SQEntry) int32 {
		return int32(sqe.Len())
	}
	return r
}

// SetResult scripts the completion result of subsequent operations.
func (r *Ring) SetResult(fn func(*uring.SQEntry) int32) {
	r.result = fn
}

// FailSubmit makes every subsequent Submit fail with err.
func (r *Ring) FailSubmit(err error) {
	r.submitErr = err
}

// SetLazy stops Submit from completing operations on its own; tests
// then drive completion explicitly with Complete.
func (r *Ring) SetLazy(lazy bool) {
	r.lazy = lazy
}

func (r *Ring) SQSize() int {
	return len(r.sqes)
}

// GetSQEntry reserves the next submission slot, or nil when every
// slot is reserved.  Entries are returned dirty, exactly like the
// kernel ring's, callers reset them.
func (r *Ring) GetSQEntry() *uring.SQEntry {
	if r.reserved == len(r.sqes) {
		return nil
	}
	sqe := &r.sqes[r.reserved]
	r.reserved++
	return sqe
}

// Submit moves every reserved slot in flight and returns their
// number. Unless lazy, all in-flight operations complete immediately;
// a minComplete short of ready completions is satisfied from the
// in-flight queue, mirroring a waiting enter.
func (r *Ring) Submit(minComplete uint32) (uint32, error) {
	if r.submitErr != nil {
		return 0, r.submitErr
	}
	flushed := uint32(r.reserved)
	for i := 0; i < r.reserved; i++ {
		r.inflight.Add(r.sqes[i])
	}
	r.reserved = 0
	if !r.lazy {
		r.Complete(r.inflight.Length())
	}
	for uint32(r.ready.Length()) < minComplete && r.inflight.Length() > 0 {
		r.Complete(1)
	}
	return flushed, nil
}

// Complete materializes up to n completions in submission order and
// returns how many were produced.
func (r *Ring) Complete(n int) int {
	done := 0
	for ; done < n && r.inflight.Length() > 0; done++ {
		sqe := r.inflight.Remove().(uring.SQEntry)
		r.ready.Add(uring.NewCQEntry(sqe.UserData(), r.result(&sqe), 0))
	}
	return done
}

// GetCQEntry pops the next completion record. EAGAIN when none is
// ready; minComplete > 0 completes pending operations first.
func (r *Ring) GetCQEntry(minComplete uint32) (uring.CQEntry, error) {
	if r.ready.Length() == 0 && minComplete > 0 {
		r.Complete(int(minComplete))
	}
	if r.ready.Length() == 0 {
		return uring.CQEntry{}, syscall.EAGAIN
	}
	return r.ready.Remove().(uring.CQEntry), nil
}

// InFlight returns the number of submitted, uncompleted operations.
func (r *Ring) InFlight() int {
	return r.inflight.Length()
}

// Ready returns the number of undrained completions.
func (r *Ring) Ready() int {
	return r.ready.Length()
}
