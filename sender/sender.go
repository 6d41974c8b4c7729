// Package sender drives the time-boxed batch-build / flush / drain
// cycle at the center of the benchmark. One sender owns its queue and
// allocator exclusively for the duration of a run; the model is
// single-threaded and cooperative, resource exhaustion ends a batch
// early instead of blocking it.
package sender

import (
	"fmt"
	"syscall"
	"time"

	"github.com/beviu/cr18-project/alloc"
	"github.com/beviu/cr18-project/metrics"
	"github.com/beviu/cr18-project/udp"
	"github.com/beviu/cr18-project/uring"
)

// Queue is the submission/completion surface the engine drives.
// *uring.Ring and *simring.Ring satisfy it.
type Queue interface {
	// GetSQEntry reserves a submission slot, nil when none is free.
	GetSQEntry() *uring.SQEntry
	// Submit flushes every reserved slot in one call, waiting for
	// minComplete completions.
	Submit(minComplete uint32) (uint32, error)
	// GetCQEntry reaps one completion, EAGAIN when none is available.
	GetCQEntry(minComplete uint32) (uring.CQEntry, error)
}

// Config describes one run.
type Config struct {
	// Fd is the sending descriptor, or the index into the registered
	// descriptor table when FixedFile is set.
	Fd int
	// FixedFile submits against the registered table instead of a raw
	// descriptor.
	FixedFile bool
	// Dest is the fixed destination of every datagram.
	Dest *udp.Sockaddr
	// BatchLimit bounds the operations prepared per cycle.
	BatchLimit int
	// Duration is the wall-clock budget, checked only between cycles.
	Duration time.Duration
}

// Sender executes one benchmark run.
type Sender struct {
	queue Queue
	alloc alloc.Allocator
	cfg   Config

	dest  []byte
	count uint64
}

func New(q Queue, a alloc.Allocator, cfg Config) *Sender {
	return &Sender{queue: q, alloc: a, cfg: cfg, dest: cfg.Dest.Raw()}
}

// Run is a convenience for New(q, a, cfg).Run().
func Run(q Queue, a alloc.Allocator, cfg Config) (uint64, error) {
	return New(q, a, cfg).Run()
}

// Run cycles batch-build, flush and drain until the budget expires and
// returns the number of successful sends. The budget is never checked
// inside a cycle, so the final cycle always flushes and fully drains.
// Every error is fatal for the run; the count reflects completions
// drained before the error.
func (s *Sender) Run() (uint64, error) {
	start := time.Now()
	for time.Since(start) < s.cfg.Duration {
		s.buildBatch()
		if err := s.flush(); err != nil {
			return s.count, err
		}
		if err := s.drain(); err != nil {
			return s.count, err
		}
	}
	return s.count, nil
}

// buildBatch prepares up to BatchLimit submissions. Running out of
// buffers or slots ends the batch silently: backpressure throttles
// submission to what the pool and the queue can sustain.
func (s *Sender) buildBatch() int {
	built := 0
	for built < s.cfg.BatchLimit {
		buf, ok := s.alloc.Acquire()
		if !ok {
			metrics.BackpressureTotal.WithLabelValues("pool").Inc()
			break
		}
		sqe := s.queue.GetSQEntry()
		if sqe == nil {
			// leased for a slot that does not exist, hand it back
			s.alloc.Release(buf.Handle())
			metrics.BackpressureTotal.WithLabelValues("queue").Inc()
			break
		}
		fill(buf.B)
		sqe.Reset()
		uring.Sendto(sqe, uintptr(s.cfg.Fd), buf.B, 0, s.dest)
		if s.cfg.FixedFile {
			sqe.SetFlags(uring.IOSQE_FIXED_FILE)
		}
		sqe.SetUserData(uint64(buf.Handle()))
		built++
	}
	return built
}

// flush hands the whole batch to the kernel in one call, waiting for
// at least one completion so the following drain always makes
// progress. A flush failure is fatal before anything is drained.
func (s *Sender) flush() error {
	submitted, err := s.queue.Submit(1)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	metrics.SubmissionsTotal.Add(float64(submitted))
	metrics.BatchesTotal.Inc()
	metrics.BatchSize.Observe(float64(submitted))
	return nil
}

// drain consumes every completion available, in arrival order, in
// full. The buffer is released before the result is inspected:
// resource safety precedes error propagation, a run that fails on a
// transient send error must not also leak the buffer that carried it.
func (s *Sender) drain() error {
	for {
		cqe, err := s.queue.GetCQEntry(0)
		if err == syscall.EAGAIN {
			return nil
		}
		if err == syscall.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("completion: %w", err)
		}
		s.alloc.Release(alloc.Handle(cqe.UserData()))
		if res := cqe.Result(); res < 0 {
			metrics.CompletionsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("send: %w", syscall.Errno(-res))
		}
		metrics.CompletionsTotal.WithLabelValues("ok").Inc()
		s.count++
	}
}

// fill writes the datagram payload. Touching every byte before
// submission is part of the measured cost.
func fill(b []byte) {
	for i := range b {
		b[i] = 0x01
	}
}
