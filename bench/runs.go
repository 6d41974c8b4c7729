package bench

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AllocatorKind selects the buffer-management strategy under test.
type AllocatorKind string

const (
	// AllocEager allocates a fresh buffer per send.
	AllocEager AllocatorKind = "eager"
	// AllocPooled recycles a preallocated fixed-capacity pool.
	AllocPooled AllocatorKind = "pooled"
	// AllocKernel names kernel-managed provided-buffer rings. The kind
	// is recognized so matrix files can state intent, but buffer
	// selection there happens inside the kernel and exposes no
	// application-side acquire, so it cannot drive the send loop.
	AllocKernel AllocatorKind = "kernel"
)

var (
	ErrNoRuns           = errors.New("no runs defined")
	ErrUnnamedRun       = errors.New("run needs a name")
	ErrUnknownAllocator = errors.New("unknown allocator kind")
	ErrKernelAllocator  = errors.New("kernel-managed buffers cannot drive the send loop")
)

// RunSpec is one benchmark configuration.
type RunSpec struct {
	Name      string        `yaml:"name"`
	Allocator AllocatorKind `yaml:"allocator"`
	// LeakBuffers keeps the eager allocator from freeing on release,
	// the worst-case baseline. Ignored for pooled runs.
	LeakBuffers bool `yaml:"leak"`
	// FixedFiles sends against the registered descriptor table instead
	// of the raw socket fd.
	FixedFiles bool `yaml:"fixed_files"`
}

// DefaultRuns is the canonical three-configuration sequence.
func DefaultRuns() []RunSpec {
	return []RunSpec{
		{Name: "eager", Allocator: AllocEager, LeakBuffers: true},
		{Name: "pooled", Allocator: AllocPooled},
		{Name: "pooled-fixed", Allocator: AllocPooled, FixedFiles: true},
	}
}

// LoadRuns reads a YAML run matrix from disk.
func LoadRuns(path string) ([]RunSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("run matrix: %w", err)
	}
	return ParseRuns(data)
}

// ParseRuns decodes and validates a YAML run matrix:
//
//	runs:
//	  - name: pooled-fixed
//	    allocator: pooled
//	    fixed_files: true
func ParseRuns(data []byte) ([]RunSpec, error) {
	var doc struct {
		Runs []RunSpec `yaml:"runs"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("run matrix: %w", err)
	}
	if len(doc.Runs) == 0 {
		return nil, fmt.Errorf("run matrix: %w", ErrNoRuns)
	}
	for i, r := range doc.Runs {
		if r.Name == "" {
			return nil, fmt.Errorf("run %d: %w", i, ErrUnnamedRun)
		}
		switch r.Allocator {
		case AllocEager, AllocPooled:
		case AllocKernel:
			return nil, fmt.Errorf("run %q: %w", r.Name, ErrKernelAllocator)
		default:
			return nil, fmt.Errorf("run %q: %w: %q", r.Name, ErrUnknownAllocator, r.Allocator)
		}
	}
	return doc.Runs, nil
}
