package compute

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Groups is the workgroup count of a dispatch along x, y and z.
type Groups [3]uint32

func (g Groups) Total() int { return int(g[0]) * int(g[1]) * int(g[2]) }

// ChunkGroups partitions a cubic chunk of size cells into workgroups of
// workgroup cells per axis. size must be a multiple of workgroup.
func ChunkGroups(size, workgroup int) Groups {
	if workgroup <= 0 {
		return Groups{}
	}
	n := uint32(size / workgroup)
	return Groups{n, n, n}
}

// Fence is the completion barrier of one dispatch. Done is closed once the
// output is readable; Wait blocks until then or until ctx ends.
type Fence[Out any] interface {
	Done() <-chan struct{}
	Wait(ctx context.Context) (Out, error)
}

// Kernel binds inputs to a built program and issues the dispatch.
type Kernel[In, Out any] interface {
	Dispatch(ctx context.Context, prog *Program, groups Groups, in In) (Fence[Out], error)
}

type Options struct {
	// Timeout bounds Run. Zero waits for as long as the caller's context.
	Timeout time.Duration
	Logger  *log.Logger
}

// Pipeline is one built program plus the kernel that drives it. A pipeline
// whose program failed to build stays usable as a value: it reports
// Available() == false and every dispatch fails with ErrPipelineDisabled.
type Pipeline[In, Out any] struct {
	name    string
	prog    *Program
	err     error
	device  Device
	kernel  Kernel[In, Out]
	timeout time.Duration
	logger  *log.Logger

	dispatches atomic.Uint64
	failures   atomic.Uint64
}

func NewPipeline[In, Out any](spec ProgramSpec, dev Device, src SourceReader, kernel Kernel[In, Out], opts Options) *Pipeline[In, Out] {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	p := &Pipeline[In, Out]{
		name:    spec.Name,
		device:  dev,
		kernel:  kernel,
		timeout: opts.Timeout,
		logger:  logger,
	}
	prog, err := Build(spec, dev, src, logger)
	if err != nil {
		p.err = err
		logger.Printf("pipeline %s disabled: %v", spec.Name, err)
		return p
	}
	p.prog = prog
	return p
}

func (p *Pipeline[In, Out]) Name() string      { return p.name }
func (p *Pipeline[In, Out]) Available() bool   { return p.prog != nil }
func (p *Pipeline[In, Out]) Err() error        { return p.err }
func (p *Pipeline[In, Out]) Program() *Program { return p.prog }

// Dispatches and Failures count calls to Dispatch and those that did not
// produce output.
func (p *Pipeline[In, Out]) Dispatches() uint64 { return p.dispatches.Load() }
func (p *Pipeline[In, Out]) Failures() uint64   { return p.failures.Load() }

// Dispatch issues the work and returns its fence without waiting.
func (p *Pipeline[In, Out]) Dispatch(ctx context.Context, groups Groups, in In) (Fence[Out], error) {
	p.dispatches.Add(1)
	if p.prog == nil {
		p.failures.Add(1)
		return nil, fmt.Errorf("pipeline %s: %w: %w", p.name, ErrPipelineDisabled, p.err)
	}
	if groups.Total() == 0 {
		p.failures.Add(1)
		return nil, fmt.Errorf("pipeline %s: empty dispatch %v", p.name, groups)
	}
	fence, err := p.kernel.Dispatch(ctx, p.prog, groups, in)
	if err != nil {
		p.failures.Add(1)
		return nil, fmt.Errorf("pipeline %s: dispatch: %w", p.name, err)
	}
	return fence, nil
}

// Run dispatches and waits on the barrier. If the configured timeout elapses
// first the result is discarded and ErrDispatchTimeout is returned.
func (p *Pipeline[In, Out]) Run(ctx context.Context, groups Groups, in In) (Out, error) {
	var zero Out
	fence, err := p.Dispatch(ctx, groups, in)
	if err != nil {
		return zero, err
	}

	waitCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	out, err := fence.Wait(waitCtx)
	if err != nil {
		p.failures.Add(1)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, fmt.Errorf("pipeline %s: %w after %s", p.name, ErrDispatchTimeout, p.timeout)
		}
		return zero, fmt.Errorf("pipeline %s: wait: %w", p.name, err)
	}
	return out, nil
}

// Close releases the program. The pipeline is disabled afterwards.
func (p *Pipeline[In, Out]) Close() {
	if p.prog == nil {
		return
	}
	p.device.DeleteProgram(p.prog.Handle)
	p.prog = nil
	p.err = errors.New("pipeline closed")
}

// NewFence adapts a completion channel and a result reader into a Fence.
// result runs at most once, after done is closed.
func NewFence[Out any](done <-chan struct{}, result func() (Out, error)) Fence[Out] {
	return &chanFence[Out]{done: done, result: sync.OnceValues(result)}
}

// Resolved returns a fence that is already signalled.
func Resolved[Out any](out Out, err error) Fence[Out] {
	done := make(chan struct{})
	close(done)
	return NewFence(done, func() (Out, error) { return out, err })
}

type chanFence[Out any] struct {
	done   <-chan struct{}
	result func() (Out, error)
}

func (f *chanFence[Out]) Done() <-chan struct{} { return f.done }

func (f *chanFence[Out]) Wait(ctx context.Context) (Out, error) {
	select {
	case <-f.done:
		return f.result()
	case <-ctx.Done():
		var zero Out
		return zero, ctx.Err()
	}
}
