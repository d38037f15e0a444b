// Package scheduler models the "owner thread" spec.md §2-F and §5
// describe: a single goroutine that hosts the Batched variant's
// single-shot timer and two cross-thread wakeups, standing in for the
// event/timer reactor the core depends on but never implements
// (spec.md §1's "deliberately out of scope" collaborator).
package scheduler

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/acktracker/internal/interfaces"
)

// OnTimeout is invoked on the owner goroutine when the batch timer
// fires (spec.md §4.4.4 "batch_timeout").
type OnTimeout func()

// OnDestroy is invoked once on the owner goroutine when Stop is
// requested — the Batched variant's final partial-batch flush runs here
// (spec.md §4.4.4 "free is asynchronous").
type OnDestroy func()

// Owner runs the single-shot timer and coalesces repeated restart
// requests exactly the way spec.md's has_pending_request_restart_timer
// boolean does: a capacity-1 buffered channel is full (coalesced) or
// has room (posts) with no extra bookkeeping needed on the send side,
// but DESIGN NOTES §9 calls out that the C code guards the bool with
// its own mutex specifically so bookkeeping never contends with the
// data path — pendingMu plays that role here.
type Owner struct {
	timeout   time.Duration
	onTimeout OnTimeout
	onDestroy OnDestroy
	logger    interfaces.Logger

	restartCh chan struct{}
	destroyCh chan struct{}

	pendingMu         sync.Mutex
	hasPendingRestart bool

	cpuIndex *int

	done chan struct{}
}

// Option configures optional Owner behavior at construction time.
type Option func(*Owner)

// WithCPUAffinity pins the owner goroutine's OS thread to the given CPU
// index for the lifetime of the run loop, the same round-robin
// queue-to-CPU assignment the teacher's I/O loop used for its
// kernel-thread-affinity requirement — here there is no such hard
// requirement, so this is strictly a latency-jitter optimization and
// failures are logged, not fatal.
func WithCPUAffinity(cpuIndex int) Option {
	return func(o *Owner) { o.cpuIndex = &cpuIndex }
}

// NewOwner creates an owner for the given timeout (zero disables the
// timer entirely, per spec.md §4.4.4 "Reschedule the timer (if
// timeout > 0)").
func NewOwner(timeout time.Duration, onTimeout OnTimeout, onDestroy OnDestroy, logger interfaces.Logger, opts ...Option) *Owner {
	o := &Owner{
		timeout:   timeout,
		onTimeout: onTimeout,
		onDestroy: onDestroy,
		logger:    logger,
		restartCh: make(chan struct{}, 1),
		destroyCh: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start launches the owner goroutine under an errgroup, matching the
// goroutine-lifecycle idiom used elsewhere in the retrieval pack for
// supervised background loops.
func (o *Owner) Start(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(o.done)
		o.run(gctx)
		return nil
	})
}

func (o *Owner) run(ctx context.Context) {
	if o.cpuIndex != nil {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		if err := o.pinCPU(); err != nil {
			if o.logger != nil {
				o.logger.Warn("scheduler: failed to set owner CPU affinity", "cpu", *o.cpuIndex, "err", err)
			}
		} else if o.logger != nil {
			o.logger.Debug("scheduler: pinned owner goroutine", "cpu", *o.cpuIndex)
		}
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	arm := func() {
		if o.timeout <= 0 {
			return
		}
		if timer != nil {
			timer.Stop()
		}
		timer = time.NewTimer(o.timeout)
		timerC = timer.C
	}
	arm()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.destroyCh:
			if o.onDestroy != nil {
				o.onDestroy()
			}
			return
		case <-o.restartCh:
			o.pendingMu.Lock()
			o.hasPendingRestart = false
			o.pendingMu.Unlock()
			arm()
		case <-timerC:
			if o.onTimeout != nil {
				o.onTimeout()
			}
			arm()
		}
	}
}

// pinCPU sets the calling OS thread's CPU affinity, retrying a bounded
// number of times: unlike timer construction, SchedSetaffinity is a
// real syscall that can fail transiently (e.g. EINTR, or a CPU that is
// briefly taken offline by the scheduler's own hotplug handling), so a
// bounded retry has a genuine chance of succeeding where a single
// attempt would not. Spec.md §4.4.4's "failures are logged and do not
// abort" still applies to the final, exhausted-retries case.
func (o *Owner) pinCPU() error {
	_, err := backoff.Retry(context.Background(), func() (struct{}, error) {
		var mask unix.CPUSet
		mask.Set(*o.cpuIndex)
		return struct{}{}, unix.SchedSetaffinity(0, &mask)
	}, backoff.WithMaxTries(3))
	return err
}

// RequestRestartTimer posts a coalesced restart request: repeated
// calls before the owner goroutine drains the first are no-ops, the
// Go rendering of spec.md's has_pending_request_restart_timer boolean.
func (o *Owner) RequestRestartTimer() {
	o.pendingMu.Lock()
	if o.hasPendingRestart {
		o.pendingMu.Unlock()
		return
	}
	o.hasPendingRestart = true
	o.pendingMu.Unlock()

	select {
	case o.restartCh <- struct{}{}:
	default:
	}
}

// MarkPendingRestartPreemptive sets the pending-restart flag without
// posting a wakeup. spec.md §9 flags the C source's analogous write
// (setting has_pending_request_restart_timer = true before stopping
// watches during deinit) as "defensive... unclear" and asks that the
// behavior be preserved rather than explained away; this method is
// that preserved write, called from Deinit before Stop.
func (o *Owner) MarkPendingRestartPreemptive() {
	o.pendingMu.Lock()
	o.hasPendingRestart = true
	o.pendingMu.Unlock()
}

// RequestDestroy posts a (coalesced, at-most-one-pending) teardown
// request and returns immediately — spec.md §4.4.4 "free is asynchronous".
func (o *Owner) RequestDestroy() {
	select {
	case o.destroyCh <- struct{}{}:
	default:
	}
}

// Stop posts a teardown request and blocks until the owner goroutine
// has run onDestroy and exited — used by Deinit, which must observe
// the final partial-batch flush before returning.
func (o *Owner) Stop() {
	o.RequestDestroy()
	<-o.done
}
