// Package sink holds the non-interactive consumers of poll batches.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nhle/gh-notifier/internal/store"
	"github.com/nhle/gh-notifier/internal/sync"
)

// Log writes each delivered notification as one log line.
type Log struct {
	log zerolog.Logger
}

// NewLog returns a sink that logs at info level.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{log: logger.With().Str("component", "sink").Logger()}
}

func (s *Log) Deliver(_ context.Context, batch sync.Batch) error {
	for _, n := range batch.Items {
		s.log.Info().
			Str("batch_id", batch.ID).
			Str("id", n.ID).
			Str("repository", n.Repository.FullName).
			Str("reason", n.Reason).
			Str("type", n.Subject.Type).
			Time("updated_at", n.UpdatedAt).
			Msg(n.Subject.Title)
	}
	return nil
}

// Store persists delivered batches.
type Store struct {
	store store.Store
}

// NewStore returns a sink writing to s.
func NewStore(s store.Store) *Store {
	return &Store{store: s}
}

func (s *Store) Deliver(ctx context.Context, batch sync.Batch) error {
	if err := s.store.UpsertNotifications(ctx, batch.ID, batch.Items); err != nil {
		return fmt.Errorf("storing batch %s: %w", batch.ID, err)
	}
	return nil
}

// Fanout delivers to every sink in order. One sink failing does not stop
// the others; all errors are joined.
type Fanout []sync.Sink

func (f Fanout) Deliver(ctx context.Context, batch sync.Batch) error {
	var errs []error
	for _, s := range f {
		if err := s.Deliver(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ sync.Sink = (*Log)(nil)
	_ sync.Sink = (*Store)(nil)
	_ sync.Sink = Fanout(nil)
)
