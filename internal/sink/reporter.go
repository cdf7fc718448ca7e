package sink

import (
	"github.com/rs/zerolog"

	"github.com/nhle/gh-notifier/internal/source"
	"github.com/nhle/gh-notifier/internal/sync"
)

// LogReporter logs poll loop events.
type LogReporter struct {
	log zerolog.Logger
}

// NewLogReporter returns a Reporter writing to logger.
func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{log: logger.With().Str("component", "reporter").Logger()}
}

var _ sync.Reporter = (*LogReporter)(nil)

// CadenceChanged logs interval moves at info and steady cycles at debug.
func (r *LogReporter) CadenceChanged(account string, change sync.CadenceChange) {
	ev := r.log.Debug()
	if change.Changed() {
		ev = r.log.Info()
	}
	ev.Str("account", account).
		Dur("from", change.From).
		Dur("to", change.To).
		Str("trigger", string(change.Trigger)).
		Int("empty_streak", change.Streak).
		Msg("cadence")
}

// FetchFailed logs auth failures at error level; everything else is
// retried next cycle and logged as a warning.
func (r *LogReporter) FetchFailed(account string, err *source.FetchError) {
	ev := r.log.Warn()
	msg := "fetch failed"
	if err.Kind == source.KindAuth {
		ev = r.log.Error()
		msg = "authentication rejected; run `gh-notifier login`"
	}
	ev.Str("account", account).
		Str("kind", err.Kind.String()).
		Int("status", err.Status).
		Err(err).
		Msg(msg)
}

func (r *LogReporter) BatchDelivered(batch sync.Batch, err error) {
	if err != nil {
		r.log.Error().
			Str("account", batch.Account).
			Str("batch_id", batch.ID).
			Int("items", len(batch.Items)).
			Err(err).
			Msg("batch delivery failed")
		return
	}
	r.log.Info().
		Str("account", batch.Account).
		Str("batch_id", batch.ID).
		Int("items", len(batch.Items)).
		Msg("batch delivered")
}
