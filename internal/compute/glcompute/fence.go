//go:build gl

package glcompute

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/gl/v4.3-core/gl"
)

const pollInterval = uint64(time.Millisecond)

// syncFence waits on a GL sync object. It polls rather than blocking in the
// driver so the wait can honour ctx.
type syncFence[Out any] struct {
	sync     uintptr
	done     chan struct{}
	signaled bool
	readback func() (Out, error)
	release  func()

	finished bool
	out      Out
	err      error
}

func newSyncFence[Out any](readback func() (Out, error), release func()) *syncFence[Out] {
	return &syncFence[Out]{
		sync:     gl.FenceSync(gl.SYNC_GPU_COMMANDS_COMPLETE, 0),
		done:     make(chan struct{}),
		readback: readback,
		release:  release,
	}
}

// Done polls the sync object once. The channel is closed as soon as a poll
// sees it signalled.
func (f *syncFence[Out]) Done() <-chan struct{} {
	if !f.signaled && f.sync != 0 {
		if st := gl.ClientWaitSync(f.sync, 0, 0); st == gl.ALREADY_SIGNALED || st == gl.CONDITION_SATISFIED {
			f.signal()
		}
	}
	return f.done
}

func (f *syncFence[Out]) signal() {
	f.signaled = true
	close(f.done)
}

// Wait reads the result back once. A wait abandoned through ctx releases
// the dispatch's buffers; the output is then lost.
func (f *syncFence[Out]) Wait(ctx context.Context) (Out, error) {
	if f.finished {
		return f.out, f.err
	}
	defer f.cleanup()
	for !f.signaled {
		switch gl.ClientWaitSync(f.sync, gl.SYNC_FLUSH_COMMANDS_BIT, pollInterval) {
		case gl.ALREADY_SIGNALED, gl.CONDITION_SATISFIED:
			f.signal()
		case gl.WAIT_FAILED:
			return f.finish(f.out, fmt.Errorf("glClientWaitSync failed: 0x%x", gl.GetError()))
		default:
			if err := ctx.Err(); err != nil {
				return f.finish(f.out, err)
			}
		}
	}
	return f.finish(f.readback())
}

func (f *syncFence[Out]) finish(out Out, err error) (Out, error) {
	f.finished, f.out, f.err = true, out, err
	return out, err
}

func (f *syncFence[Out]) cleanup() {
	if f.sync != 0 {
		gl.DeleteSync(f.sync)
		f.sync = 0
	}
	if f.release != nil {
		f.release()
		f.release = nil
	}
}
