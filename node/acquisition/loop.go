// Package acquisition keeps a mesh controller cycling: scan, walk the
// ranked peers, scan again, for as long as the node runs.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"robotmesh/internal/check"
	"robotmesh/node/mesh"

	"github.com/cenkalti/backoff/v4"
)

const (
	// retryInitialInterval is the first pause after a failed scan; the radio
	// is usually just busy.
	retryInitialInterval = 50 * time.Millisecond
	// retryMaxInterval caps the pause so a recovered radio is picked up quickly.
	retryMaxInterval = 2 * time.Second
)

// Loop drives a Cycler until its context ends or the controller fails.
// Between cycles it yields so other goroutines sharing the radio's CPU get
// a turn; there is no protocol-mandated delay.
type Loop struct {
	cycler    Cycler
	idleYield time.Duration
	clock     mesh.Clock
	recorder  Recorder
	newRetry  func() backoff.BackOff

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Option configures a Loop.
type Option func(*Loop)

// WithIdleYield sleeps d between cycles. Zero only yields the processor.
func WithIdleYield(d time.Duration) Option {
	return func(l *Loop) { l.idleYield = d }
}

// WithClock injects a time source.
func WithClock(c mesh.Clock) Option {
	return func(l *Loop) { l.clock = c }
}

// WithRecorder injects a measurement sink.
func WithRecorder(r Recorder) Option {
	return func(l *Loop) { l.recorder = r }
}

// WithRetryBackOff overrides the pause schedule after failed scans.
func WithRetryBackOff(newRetry func() backoff.BackOff) Option {
	return func(l *Loop) { l.newRetry = newRetry }
}

// New creates an acquisition loop over c.
func New(c Cycler, opts ...Option) *Loop {
	check.Assert(c != nil, "acquisition.New: cycler must not be nil")
	l := &Loop{
		cycler:   c,
		clock:    mesh.SystemClock{},
		newRetry: defaultRetry,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func defaultRetry() backoff.BackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(retryInitialInterval),
		backoff.WithMaxInterval(retryMaxInterval),
		backoff.WithMaxElapsedTime(0),
	)
}

// Start launches the loop in a background goroutine.
func (l *Loop) Start(ctx context.Context) error {
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})

	go func() {
		defer close(l.done)
		if err := l.Run(ctx); err != nil {
			l.err = err
			slog.Error("acquisition loop exited", "err", err)
		}
	}()

	return nil
}

// Stop cancels the loop and waits for it to exit. It returns the error that
// ended the loop, if the loop ended on its own.
func (l *Loop) Stop() error {
	if l.cancel != nil {
		l.cancel()
		<-l.done
	}
	return l.err
}

// Run cycles until ctx is done (returns nil) or the controller reports a
// terminal failure (returns it). Scan failures are logged and retried after
// a backoff pause; failed connect attempts are the controller's business.
func (l *Loop) Run(ctx context.Context) error {
	watch := NewStopwatch(l.clock.Now())
	retry := l.newRetry()

	for {
		if ctx.Err() != nil {
			return nil
		}

		report, err := l.cycler.Cycle(ctx)
		if err != nil {
			if errors.Is(err, mesh.ErrFailed) || errors.Is(err, mesh.ErrInvalidState) {
				return fmt.Errorf("mesh cycle: %w", err)
			}
			if ctx.Err() != nil {
				return nil
			}
			wait := retry.NextBackOff()
			if wait == backoff.Stop {
				wait = retryMaxInterval
			}
			slog.Warn("scan failed", "err", err, "retry_in", wait)
			if l.recorder != nil {
				l.recorder.ObserveScanRetry(wait)
			}
			if !sleepContext(ctx, wait) {
				return nil
			}
			continue
		}
		retry.Reset()

		if len(report.Peers) > 0 {
			since := watch.Step(l.clock.Now())
			slog.Info("Peers acquired.", "since_last_peer", since,
				"peers", len(report.Peers), "attempts", len(report.Attempts), "linked", report.Linked())
			if l.recorder != nil {
				l.recorder.ObserveAcquisition(since)
			}
		}

		if !l.yield(ctx) {
			return nil
		}
	}
}

func (l *Loop) yield(ctx context.Context) bool {
	if l.idleYield <= 0 {
		runtime.Gosched()
		return ctx.Err() == nil
	}
	return sleepContext(ctx, l.idleYield)
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
