package sync

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/nhle/gh-notifier/internal/source"
)

// SyncState represents the current state of the poll loop.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
	SyncStopped
)

func (s SyncState) String() string {
	switch s {
	case SyncIdle:
		return "idle"
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	case SyncStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Default option values.
const (
	DefaultBaseInterval       = 60 * time.Second
	DefaultMaxInterval        = 200 * time.Second
	DefaultWarmup             = 3 * time.Second
	DefaultRefreshMinInterval = 10 * time.Second

	// fetchTimeout is the maximum time allowed for a single fetch operation.
	fetchTimeout = 30 * time.Second
)

// ErrAlreadyRunning is returned by Start when the loop is already running.
var ErrAlreadyRunning = errors.New("poller already running")

// Options configures a Poller. Zero values fall back to defaults.
type Options struct {
	Account            string
	BaseInterval       time.Duration
	MaxInterval        time.Duration
	Warmup             time.Duration
	FetchTimeout       time.Duration
	RefreshMinInterval time.Duration
	FailurePolicy      FailurePolicy
	Logger             zerolog.Logger

	// Now overrides the clock; used by tests.
	Now func() time.Time
}

// SyncStatus is a point-in-time copy of the poller's state.
type SyncStatus struct {
	Account     string
	State       SyncState
	Cadence     CadenceState
	Cursor      *time.Time
	LastSync    time.Time
	NextPoll    time.Time
	Error       error
	ErrorKind   source.Kind
	Cycles      int
	Failures    int
	Delivered   int
	LastBatchID string
}

// CycleResult describes the outcome of one poll cycle.
type CycleResult struct {
	Batch  Batch
	Change CadenceChange
	Err    *source.FetchError
}

// Poller runs the adaptive poll loop for one account. Cadence and cursor
// are owned by the loop and only mutated between cycles; independent
// pollers share nothing mutable.
type Poller struct {
	src      Fetcher
	sink     Sink
	reporter Reporter
	opts     Options
	log      zerolog.Logger

	cadence *Cadence
	cursor  Cursor

	refreshCh chan struct{}
	limiter   *rate.Limiter

	mu      gosync.Mutex
	status  SyncStatus
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a Poller reading from src and delivering to sink. reporter
// may be nil.
func New(src Fetcher, sink Sink, reporter Reporter, opts Options) *Poller {
	if opts.BaseInterval <= 0 {
		opts.BaseInterval = DefaultBaseInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = DefaultMaxInterval
	}
	if opts.Warmup < 0 {
		opts.Warmup = 0
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = fetchTimeout
	}
	if opts.RefreshMinInterval <= 0 {
		opts.RefreshMinInterval = DefaultRefreshMinInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if reporter == nil {
		reporter = NopReporter{}
	}
	if sink == nil {
		sink = SinkFunc(func(context.Context, Batch) error { return nil })
	}

	cadence := NewCadence(opts.BaseInterval, opts.MaxInterval)

	return &Poller{
		src:       src,
		sink:      sink,
		reporter:  reporter,
		opts:      opts,
		log:       opts.Logger.With().Str("component", "poller").Str("account", opts.Account).Logger(),
		cadence:   cadence,
		refreshCh: make(chan struct{}, 1),
		limiter:   rate.NewLimiter(rate.Every(opts.RefreshMinInterval), 1),
		status: SyncStatus{
			Account: opts.Account,
			State:   SyncIdle,
			Cadence: cadence.State(),
		},
	}
}

// Start launches the poll loop in its own goroutine. The loop runs until
// ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		p.Run(ctx)

		p.mu.Lock()
		p.running = false
		p.status.State = SyncStopped
		p.mu.Unlock()
	}(p.done)

	return nil
}

// Stop halts the poll loop and waits for it to exit. An in-flight fetch is
// allowed to finish; a pending sleep is cut short.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when a loop started with Start has exited.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Run executes the poll loop in the calling goroutine until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info().Dur("warmup", p.opts.Warmup).Msg("poller starting")

	if p.opts.Warmup > 0 && !p.sleep(ctx, p.opts.Warmup) {
		p.log.Info().Msg("poller stopped during warm-up")
		return
	}

	for {
		p.RunCycle(ctx)

		interval := p.cadence.Interval()
		p.setNextPoll(p.opts.Now().Add(interval))

		if !p.sleep(ctx, interval) {
			p.log.Info().Msg("poller stopped")
			return
		}
	}
}

// Refresh asks the loop to poll now instead of waiting out the current
// interval. Refreshes are rate limited; it reports whether the request was
// accepted.
func (p *Poller) Refresh() bool {
	if !p.limiter.Allow() {
		return false
	}
	select {
	case p.refreshCh <- struct{}{}:
	default:
		// A refresh is already pending.
	}
	return true
}

// Snapshot returns a copy of the current status.
func (p *Poller) Snapshot() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.status
	if s.Cursor != nil {
		c := *s.Cursor
		s.Cursor = &c
	}
	return s
}

// RunCycle performs exactly one poll cycle: fetch since the cursor, filter
// and sort, update cadence and cursor, and deliver a non-empty batch.
// Failures never advance the cursor.
func (p *Poller) RunCycle(ctx context.Context) CycleResult {
	p.setState(SyncRunning)

	since := p.cursor.Since()
	start := p.opts.Now()

	// The fetch is not tied to ctx cancellation so that shutdown never
	// interrupts a request halfway; the timeout still bounds it.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.FetchTimeout)
	items, err := p.src.FetchNotifications(fetchCtx, since)
	cancel()

	if err != nil {
		return p.handleFailure(source.AsFetchError(err))
	}

	filtered := Process(items)
	p.cursor.Advance(start)

	var change CadenceChange
	if len(filtered) > 0 {
		change = p.cadence.Yielded()
	} else {
		change = p.cadence.Empty()
	}
	p.reporter.CadenceChanged(p.opts.Account, change)

	batch := Batch{
		ID:        uuid.New().String(),
		Account:   p.opts.Account,
		FetchedAt: start,
		Items:     filtered,
	}

	p.log.Debug().
		Str("batch_id", batch.ID).
		Int("received", len(items)).
		Int("kept", len(filtered)).
		Dur("interval", change.To).
		Msg("poll cycle complete")

	if len(filtered) > 0 {
		deliverErr := p.sink.Deliver(context.WithoutCancel(ctx), batch)
		p.reporter.BatchDelivered(batch, deliverErr)
	}

	p.recordSuccess(start, batch)

	return CycleResult{Batch: batch, Change: change}
}

func (p *Poller) handleFailure(fe *source.FetchError) CycleResult {
	change := p.cadence.Failed(p.opts.FailurePolicy)

	p.reporter.FetchFailed(p.opts.Account, fe)
	if change.Changed() {
		p.reporter.CadenceChanged(p.opts.Account, change)
	}

	p.mu.Lock()
	p.status.State = SyncError
	p.status.Error = fe
	p.status.ErrorKind = fe.Kind
	p.status.Cycles++
	p.status.Failures++
	p.status.Cadence = p.cadence.State()
	p.mu.Unlock()

	return CycleResult{Change: change, Err: fe}
}

func (p *Poller) recordSuccess(at time.Time, batch Batch) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = SyncIdle
	p.status.Error = nil
	p.status.LastSync = at
	p.status.Cursor = p.cursor.Since()
	p.status.Cadence = p.cadence.State()
	p.status.Cycles++
	if len(batch.Items) > 0 {
		p.status.Delivered += len(batch.Items)
		p.status.LastBatchID = batch.ID
	}
}

// setState updates the sync state.
func (p *Poller) setState(state SyncState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.State = state
}

func (p *Poller) setNextPoll(at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.NextPoll = at
}

// sleep waits for d, a refresh request, or ctx cancellation. It returns
// false when the loop should exit.
func (p *Poller) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	case <-p.refreshCh:
		p.log.Debug().Msg("manual refresh")
		return true
	}
}
