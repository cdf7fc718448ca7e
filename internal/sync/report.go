package sync

import (
	"context"
	"time"

	"github.com/nhle/gh-notifier/internal/model"
	"github.com/nhle/gh-notifier/internal/source"
)

// Batch is the filtered, ordered result of one poll cycle.
type Batch struct {
	// ID correlates log lines, stored rows, and UI updates for one cycle.
	ID string

	// Account labels the polled account.
	Account string

	// FetchedAt is when the fetch that produced the batch started.
	FetchedAt time.Time

	Items []model.Notification
}

// Fetcher performs one request against the remote feed.
type Fetcher interface {
	FetchNotifications(ctx context.Context, since *time.Time) ([]model.Notification, error)
}

// Sink receives non-empty batches. Delivery is fire-and-forget from the
// poller's point of view: an error is reported, never rolled back.
type Sink interface {
	Deliver(ctx context.Context, batch Batch) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, batch Batch) error

// Deliver calls f(ctx, batch).
func (f SinkFunc) Deliver(ctx context.Context, batch Batch) error {
	return f(ctx, batch)
}

// Reporter is the observability sink for poll cycles.
type Reporter interface {
	// CadenceChanged is called after every successful cycle and whenever
	// a failure moves the cadence.
	CadenceChanged(account string, change CadenceChange)

	// FetchFailed is called for every failed fetch.
	FetchFailed(account string, err *source.FetchError)

	// BatchDelivered is called after each delivery attempt with the sink's
	// error, if any.
	BatchDelivered(batch Batch, err error)
}

// NopReporter discards all reports.
type NopReporter struct{}

func (NopReporter) CadenceChanged(string, CadenceChange)    {}
func (NopReporter) FetchFailed(string, *source.FetchError) {}
func (NopReporter) BatchDelivered(Batch, error)            {}

// Reporters fans reports out to several reporters in order.
type Reporters []Reporter

func (rs Reporters) CadenceChanged(account string, change CadenceChange) {
	for _, r := range rs {
		r.CadenceChanged(account, change)
	}
}

func (rs Reporters) FetchFailed(account string, err *source.FetchError) {
	for _, r := range rs {
		r.FetchFailed(account, err)
	}
}

func (rs Reporters) BatchDelivered(batch Batch, err error) {
	for _, r := range rs {
		r.BatchDelivered(batch, err)
	}
}
