package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nhle/gh-notifier/internal/sync"
)

// StatusProvider exposes the poller's state.
type StatusProvider interface {
	Snapshot() sync.SyncStatus
}

// UnreadCounter reports how many stored notifications are unread.
type UnreadCounter interface {
	CountUnread(ctx context.Context) (int, error)
}

// Server serves /metrics, /healthz and /status.
type Server struct {
	poller StatusProvider
	unread UnreadCounter
	log    zerolog.Logger
	srv    *http.Server
}

// NewServer builds a status server listening on addr. unread may be nil.
func NewServer(addr string, poller StatusProvider, unread UnreadCounter, logger zerolog.Logger) *Server {
	s := &Server{
		poller: poller,
		unread: unread,
		log:    logger.With().Str("component", "status").Logger(),
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", s.healthz)
	r.Get("/status", s.status)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.srv.Addr).Msg("starting status server")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("status server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown status server: %w", err)
	}
	return nil
}

// statusResponse is the JSON shape of /status.
type statusResponse struct {
	Account         string     `json:"account"`
	State           string     `json:"state"`
	IntervalSeconds float64    `json:"interval_seconds"`
	BaseSeconds     float64    `json:"base_interval_seconds"`
	MaxSeconds      float64    `json:"max_interval_seconds"`
	EmptyStreak     int        `json:"empty_streak"`
	Cursor          *time.Time `json:"cursor,omitempty"`
	LastSync        *time.Time `json:"last_sync,omitempty"`
	NextPoll        *time.Time `json:"next_poll,omitempty"`
	Error           string     `json:"error,omitempty"`
	ErrorKind       string     `json:"error_kind,omitempty"`
	Cycles          int        `json:"cycles"`
	Failures        int        `json:"failures"`
	Delivered       int        `json:"delivered"`
	LastBatchID     string     `json:"last_batch_id,omitempty"`
	Unread          *int       `json:"unread,omitempty"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	snap := s.poller.Snapshot()

	resp := statusResponse{
		Account:         snap.Account,
		State:           snap.State.String(),
		IntervalSeconds: snap.Cadence.Current.Seconds(),
		BaseSeconds:     snap.Cadence.Base.Seconds(),
		MaxSeconds:      snap.Cadence.Max.Seconds(),
		EmptyStreak:     snap.Cadence.EmptyStreak,
		Cursor:          snap.Cursor,
		LastSync:        optionalTime(snap.LastSync),
		NextPoll:        optionalTime(snap.NextPoll),
		Cycles:          snap.Cycles,
		Failures:        snap.Failures,
		Delivered:       snap.Delivered,
		LastBatchID:     snap.LastBatchID,
	}
	if snap.Error != nil {
		resp.Error = snap.Error.Error()
		resp.ErrorKind = snap.ErrorKind.String()
	}

	if s.unread != nil {
		n, err := s.unread.CountUnread(r.Context())
		if err != nil {
			s.log.Warn().Err(err).Msg("counting unread notifications")
		} else {
			resp.Unread = &n
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
