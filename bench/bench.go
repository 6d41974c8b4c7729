// Package bench sequences benchmark configurations over the send
// engine and reports one count per configuration.
package bench

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/beviu/cr18-project/alloc"
	"github.com/beviu/cr18-project/metrics"
	"github.com/beviu/cr18-project/sender"
	"github.com/beviu/cr18-project/simring"
	"github.com/beviu/cr18-project/udp"
	"github.com/beviu/cr18-project/uring"
)

// Harness owns the shared parameters of a benchmark session. Each run
// gets its own ring, socket and allocator so configurations cannot
// contaminate each other.
type Harness struct {
	cfg  Config
	dest *udp.Sockaddr
	log  zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dest, err := udp.ParseSockaddr(cfg.Dest)
	if err != nil {
		return nil, err
	}
	return &Harness{cfg: cfg, dest: dest, log: log}, nil
}

// Sequence executes the runs strictly in order, writing one
// "<name>: <count>" line per finished run. A failed run produces no
// line; under the default halt policy it also stops the sequence and
// its error is returned, under "continue" the failure is logged and
// the next configuration runs.
func (h *Harness) Sequence(w io.Writer, runs []RunSpec) error {
	for _, run := range runs {
		h.log.Debug().Str("run", run.Name).Str("allocator", string(run.Allocator)).Msg("starting run")
		count, err := h.execute(run)
		if err != nil {
			metrics.RunsTotal.WithLabelValues("error").Inc()
			if h.cfg.HaltPolicy == HaltContinue {
				h.log.Error().Err(err).Str("run", run.Name).Msg("run failed")
				continue
			}
			return fmt.Errorf("run %s: %w", run.Name, err)
		}
		metrics.RunsTotal.WithLabelValues("ok").Inc()
		fmt.Fprintf(w, "%s: %d\n", run.Name, count)
	}
	return nil
}

// execute performs one run end to end. Any setup failure aborts
// before the clock starts.
func (h *Harness) execute(run RunSpec) (uint64, error) {
	a, release, err := h.buildAllocator(run)
	if err != nil {
		return 0, err
	}
	defer release()

	cfg := sender.Config{
		Dest:       h.dest,
		BatchLimit: h.cfg.QueueDepth,
		Duration:   h.cfg.Duration,
	}

	if h.cfg.Simulate {
		// dry runs still exercise the fixed-file submission shape
		cfg.FixedFile = run.FixedFiles
		return sender.Run(simring.New(int(h.cfg.RingEntries)), a, cfg)
	}

	ring, err := uring.Setup(h.cfg.RingEntries, nil)
	if err != nil {
		return 0, fmt.Errorf("ring setup: %w", err)
	}
	defer ring.Close()

	if err := probeSend(ring); err != nil {
		return 0, err
	}

	sock, err := udp.Open(h.dest.IsV6())
	if err != nil {
		return 0, err
	}
	defer sock.Close()

	cfg.Fd = sock.Fd()
	if run.FixedFiles {
		if err := ring.RegisterFiles([]int32{int32(sock.Fd())}); err != nil {
			return 0, fmt.Errorf("register files: %w", err)
		}
		cfg.Fd = 0
		cfg.FixedFile = true
	}

	return sender.Run(ring, a, cfg)
}

func (h *Harness) buildAllocator(run RunSpec) (alloc.Allocator, func(), error) {
	switch run.Allocator {
	case AllocEager:
		return alloc.NewEager(h.cfg.BufSize, !run.LeakBuffers), func() {}, nil
	case AllocPooled:
		pool, err := alloc.NewPool(h.cfg.BufSize, h.cfg.PoolCapacity)
		if err != nil {
			return nil, nil, err
		}
		return pool, func() { pool.Close() }, nil
	case AllocKernel:
		return nil, nil, ErrKernelAllocator
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownAllocator, run.Allocator)
}

// probeSend verifies the kernel supports the send opcode before the
// clock starts.
func probeSend(ring *uring.Ring) error {
	var probe uring.Probe
	if err := ring.RegisterProbe(&probe); err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	if !probe.IsSupported(uring.IORING_OP_SEND) {
		return fmt.Errorf("probe: IORING_OP_SEND not supported by this kernel")
	}
	return nil
}
