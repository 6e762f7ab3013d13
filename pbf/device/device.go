// Package device emulates the data-parallel command queue a GPU-backed
// PBF build dispatches to: an in-order sequence of "kernels", each a
// data-parallel closure over a contiguous range of particle indices,
// fanned out across a worker pool. No OpenCL/Vulkan/WebGPU binding is
// wired here — the kernels execute natively on the host, accepting the
// throughput penalty. A panicking worker surfaces as a DeviceError
// instead of silently losing work.
package device

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DeviceError reports a runtime kernel failure. Any panic recovered from
// a dispatched kernel range is wrapped as a DeviceError so the
// orchestrator can latch kernelsValid=false without crashing the host
// process.
type DeviceError struct {
	Kernel string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device: kernel %q failed: %v", e.Kernel, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Queue is a single in-order command queue. Kernels enqueued on a Queue
// run to completion (all work items across all workers) before the next
// enqueued kernel begins — the only cross-kernel synchronization the
// pipeline requires.
type Queue struct {
	workers int
}

// NewQueue creates a queue that fans work out across GOMAXPROCS workers.
func NewQueue() *Queue {
	return &Queue{workers: runtime.GOMAXPROCS(0)}
}

// Dispatch runs fn(i) for every i in [0, n), distributed across the
// queue's worker pool, and blocks until every work item completes.
// Work-item ordering within the kernel is unspecified; fn must tolerate
// arbitrary interleaving across indices, as every per-particle kernel
// in the pipeline does.
func (q *Queue) Dispatch(name string, n int, fn func(i int)) error {
	if n <= 0 {
		return nil
	}

	g, _ := errgroup.WithContext(context.Background())
	workers := q.workers
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &DeviceError{Kernel: name, Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			for i := start; i < end; i++ {
				fn(i)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return nil
}

// Flush is a no-op CPU-emulation hook retained for symmetry with a real
// device queue's flush point: every Dispatch already blocks until
// complete, so there is nothing in flight to drain.
func (q *Queue) Flush() {}
