// Package transport batches log entries and ships them to a collector with
// bounded retries. Enqueue never blocks; sends happen on the transport
// goroutine or in the caller of Flush.
package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/fallback"
	"github.com/JailtonJunior94/logkit/pkg/logentry"
	"github.com/cenkalti/backoff/v4"
)

// Stats is a snapshot of the transport counters. Sent and Failed count
// entries, Batches counts send attempts of whole batches.
type Stats struct {
	Queued    int
	Sent      uint64
	Failed    uint64
	Dropped   uint64
	Batches   uint64
	Retries   uint64
	LastError string
	// LastFailure and LastSuccess are zero until a batch failed or succeeded.
	LastFailure time.Time
	LastSuccess time.Time
}

// Transport buffers entries and delivers them through a Sender.
type Transport struct {
	cfg      Config
	sender   Sender
	reporter fallback.Reporter

	mu          sync.Mutex
	buffer      []logentry.Entry
	closed      bool
	lastErr     string
	lastFailure time.Time
	lastSuccess time.Time

	// sendMu serializes batches so they leave in enqueue order.
	sendMu sync.Mutex

	sent    atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
	batches atomic.Uint64
	retries atomic.Uint64

	flushCh   chan struct{}
	flushed   chan struct{}
	stop      chan struct{}
	done      chan struct{}
	runCtx    context.Context
	cancelRun context.CancelFunc
	closeOnce sync.Once
}

// New validates cfg and starts the transport goroutine.
func New(sender Sender, cfg Config, opts ...Option) (*Transport, error) {
	if sender == nil {
		return nil, fmt.Errorf("%w: sender is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	t := &Transport{
		cfg:       cfg,
		sender:    sender,
		reporter:  fallback.New(nil),
		buffer:    make([]logentry.Entry, 0, cfg.BatchSize),
		flushCh:   make(chan struct{}, 1),
		flushed:   make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		runCtx:    runCtx,
		cancelRun: cancel,
	}
	for _, opt := range opts {
		opt(t)
	}

	go t.run()
	return t, nil
}

// Enqueue appends entry to the pending buffer without blocking. A full buffer
// or a closed transport drops the entry and counts it.
func (t *Transport) Enqueue(entry logentry.Entry) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		t.dropped.Add(1)
		return ErrClosed
	}
	if len(t.buffer) >= t.cfg.MaxBufferSize {
		t.mu.Unlock()
		t.dropped.Add(1)
		return ErrBufferFull
	}
	t.buffer = append(t.buffer, entry)
	pending := len(t.buffer)
	t.mu.Unlock()

	if !t.cfg.EnableBatching || pending >= t.cfg.BatchSize {
		t.requestFlush()
	}
	return nil
}

// Flush sends every pending entry as one batch and returns once the batch was
// delivered or dropped. An empty buffer is a no-op. The next timed flush is
// one BatchInterval after this one.
func (t *Transport) Flush(ctx context.Context) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	batch := t.take()
	if len(batch) == 0 {
		return nil
	}
	defer t.signalFlushed()
	return t.send(ctx, batch)
}

// Stats returns the current counters.
func (t *Transport) Stats() Stats {
	t.mu.Lock()
	queued := len(t.buffer)
	lastErr := t.lastErr
	lastFailure := t.lastFailure
	lastSuccess := t.lastSuccess
	t.mu.Unlock()

	return Stats{
		Queued:      queued,
		Sent:        t.sent.Load(),
		Failed:      t.failed.Load(),
		Dropped:     t.dropped.Load(),
		Batches:     t.batches.Load(),
		Retries:     t.retries.Load(),
		LastError:   lastErr,
		LastFailure: lastFailure,
		LastSuccess: lastSuccess,
	}
}

// Close stops accepting entries, stops the transport goroutine, flushes what
// is pending and shuts the sender down. Only the first call does work.
func (t *Transport) Close(ctx context.Context) error {
	var err error
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()

		close(t.stop)
		select {
		case <-t.done:
		case <-ctx.Done():
			t.cancelRun()
			<-t.done
		}

		err = t.Flush(ctx)
		t.cancelRun()

		if s, ok := t.sender.(shutdowner); ok {
			err = errors.Join(err, s.Shutdown(ctx))
		}
	})
	return err
}

func (t *Transport) run() {
	defer close(t.done)

	var (
		tick   <-chan time.Time
		ticker *time.Ticker
	)
	if t.cfg.EnableBatching {
		ticker = time.NewTicker(t.cfg.BatchInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-t.stop:
			return
		case <-t.flushCh:
			_ = t.Flush(t.runCtx)
		case <-t.flushed:
			if ticker != nil {
				ticker.Reset(t.cfg.BatchInterval)
			}
		case <-tick:
			_ = t.Flush(t.runCtx)
		}
	}
}

func (t *Transport) requestFlush() {
	select {
	case t.flushCh <- struct{}{}:
	default:
	}
}

func (t *Transport) signalFlushed() {
	select {
	case t.flushed <- struct{}{}:
	default:
	}
}

func (t *Transport) take() []logentry.Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.buffer) == 0 {
		return nil
	}
	batch := t.buffer
	t.buffer = make([]logentry.Entry, 0, t.cfg.BatchSize)
	return batch
}

// send delivers batch with exponential backoff. A batch that still fails is
// dropped and reported once through the fallback channel.
func (t *Transport) send(ctx context.Context, batch []logentry.Entry) error {
	t.batches.Add(1)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = t.cfg.RetryInitialInterval
	policy.MaxInterval = t.cfg.RetryMaxInterval
	policy.MaxElapsedTime = 0

	attempts := 0
	operation := func() error {
		attempts++
		if attempts > 1 {
			t.retries.Add(1)
		}

		attemptCtx := ctx
		if t.cfg.SendTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, t.cfg.SendTimeout)
			defer cancel()
		}

		err := t.sender.Send(attemptCtx, batch)
		switch {
		case err == nil:
			return nil
		case IsPermanent(err), ctx.Err() != nil:
			return backoff.Permanent(err)
		default:
			return err
		}
	}

	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(t.cfg.MaxRetries)), ctx)
	if err := backoff.Retry(operation, retry); err != nil {
		t.failed.Add(uint64(len(batch)))

		t.mu.Lock()
		t.lastErr = err.Error()
		t.lastFailure = time.Now()
		t.mu.Unlock()

		t.reporter.Report("log batch dropped",
			"entries", len(batch),
			"attempts", attempts,
			"error", err.Error(),
		)
		return fmt.Errorf("failed to send batch of %d entries after %d attempts: %w", len(batch), attempts, err)
	}

	t.sent.Add(uint64(len(batch)))
	t.mu.Lock()
	t.lastSuccess = time.Now()
	t.mu.Unlock()
	return nil
}

// Healthy reports whether the most recent batch was delivered.
func (s Stats) Healthy() bool {
	return s.LastFailure.IsZero() || s.LastSuccess.After(s.LastFailure)
}
