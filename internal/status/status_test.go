package status

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/gh-notifier/internal/model"
	"github.com/nhle/gh-notifier/internal/source"
	"github.com/nhle/gh-notifier/internal/sync"
)

type staticStatus struct {
	snap sync.SyncStatus
}

func (s staticStatus) Snapshot() sync.SyncStatus { return s.snap }

type staticUnread struct {
	n   int
	err error
}

func (u staticUnread) CountUnread(context.Context) (int, error) { return u.n, u.err }

func TestMetrics_CadenceChanged(t *testing.T) {
	const account = "metrics-cadence"
	m := Metrics{}

	before := testutil.ToFloat64(pollCycles.WithLabelValues(account, "success"))

	m.CadenceChanged(account, sync.CadenceChange{
		From: 60 * time.Second, To: 72 * time.Second, Trigger: sync.TriggerEmpty, Streak: 1,
	})

	assert.Equal(t, 72.0, testutil.ToFloat64(pollInterval.WithLabelValues(account)))
	assert.Equal(t, 1.0, testutil.ToFloat64(pollEmptyStreak.WithLabelValues(account)))
	assert.Equal(t, before+1, testutil.ToFloat64(pollCycles.WithLabelValues(account, "success")))
	assert.Positive(t, testutil.ToFloat64(pollLastSuccess.WithLabelValues(account)))
}

func TestMetrics_FailureCountedOnce(t *testing.T) {
	const account = "metrics-failure"
	m := Metrics{}

	m.FetchFailed(account, &source.FetchError{Kind: source.KindAuth, Status: 401})
	// A failure counted as empty also reports a cadence change.
	m.CadenceChanged(account, sync.CadenceChange{
		From: 60 * time.Second, To: 72 * time.Second, Trigger: sync.TriggerFailure, Streak: 1,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(pollCycles.WithLabelValues(account, "failure")))
	assert.Equal(t, 0.0, testutil.ToFloat64(pollCycles.WithLabelValues(account, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(fetchFailures.WithLabelValues(account, "auth")))
	assert.Equal(t, 72.0, testutil.ToFloat64(pollInterval.WithLabelValues(account)))
}

type failingFetcher struct{}

func (failingFetcher) FetchNotifications(context.Context, *time.Time) ([]model.Notification, error) {
	return nil, &source.FetchError{Kind: source.KindTransient, Message: "connection refused"}
}

func TestMetrics_CheckinResetOnFailureIsNotSuccess(t *testing.T) {
	const account = "metrics-failure-reset"
	p := sync.New(failingFetcher{}, sync.SinkFunc(func(context.Context, sync.Batch) error { return nil }), Metrics{}, sync.Options{
		Account:       account,
		BaseInterval:  60 * time.Second,
		MaxInterval:   200 * time.Second,
		FailurePolicy: sync.FailureCountsAsEmpty,
	})

	for i := 0; i <= sync.ResetThreshold; i++ {
		res := p.RunCycle(context.Background())
		require.NotNil(t, res.Err)
		require.Equal(t, sync.TriggerFailure, res.Change.Trigger)
	}

	assert.Equal(t, 0.0, testutil.ToFloat64(pollCycles.WithLabelValues(account, "success")))
	assert.Equal(t, float64(sync.ResetThreshold+1), testutil.ToFloat64(pollCycles.WithLabelValues(account, "failure")))
	assert.Equal(t, 0.0, testutil.ToFloat64(pollLastSuccess.WithLabelValues(account)))
	assert.Equal(t, 60.0, testutil.ToFloat64(pollInterval.WithLabelValues(account)))
}

func TestMetrics_BatchDelivered(t *testing.T) {
	const account = "metrics-batch"
	m := Metrics{}
	batch := sync.Batch{
		ID:      "b-1",
		Account: account,
		Items:   []model.Notification{{ID: "1"}, {ID: "2"}},
	}

	m.BatchDelivered(batch, nil)
	m.BatchDelivered(batch, errors.New("disk full"))

	assert.Equal(t, 2.0, testutil.ToFloat64(notificationsDelivered.WithLabelValues(account)))
	assert.Equal(t, 1.0, testutil.ToFloat64(deliveryErrors.WithLabelValues(account)))
}

func TestServer_Healthz(t *testing.T) {
	s := NewServer(":0", staticStatus{}, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Status(t *testing.T) {
	cursor := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := sync.SyncStatus{
		Account: "default",
		State:   sync.SyncError,
		Cadence: sync.CadenceState{
			Current: 72 * time.Second, Base: 60 * time.Second, Max: 200 * time.Second, EmptyStreak: 1,
		},
		Cursor:      &cursor,
		LastSync:    cursor,
		Error:       &source.FetchError{Kind: source.KindAuth, Status: 401, Message: "Bad credentials"},
		ErrorKind:   source.KindAuth,
		Cycles:      3,
		Failures:    1,
		Delivered:   5,
		LastBatchID: "b-1",
	}
	s := NewServer(":0", staticStatus{snap: snap}, staticUnread{n: 4}, zerolog.Nop())

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "default", got.Account)
	assert.Equal(t, "error", got.State)
	assert.Equal(t, 72.0, got.IntervalSeconds)
	assert.Equal(t, 1, got.EmptyStreak)
	assert.Equal(t, "auth", got.ErrorKind)
	assert.Contains(t, got.Error, "Bad credentials")
	require.NotNil(t, got.Cursor)
	assert.True(t, got.Cursor.Equal(cursor))
	assert.Nil(t, got.NextPoll)
	require.NotNil(t, got.Unread)
	assert.Equal(t, 4, *got.Unread)
}

func TestServer_StatusUnreadError(t *testing.T) {
	s := NewServer(":0", staticStatus{}, staticUnread{err: errors.New("db locked")}, zerolog.Nop())

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "unread")
}

func TestServer_Metrics(t *testing.T) {
	Metrics{}.CadenceChanged("metrics-http", sync.CadenceChange{To: 60 * time.Second, Trigger: sync.TriggerResults})
	s := NewServer(":0", staticStatus{}, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ghnotifier_poll_interval_seconds"))
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	s := NewServer("127.0.0.1:0", staticStatus{}, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
