package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/gh-notifier/internal/model"
)

// Kind classifies a failed fetch so callers can decide how to react.
type Kind int

const (
	// KindTransient covers network errors, timeouts, and unexpected
	// statuses. The next poll cycle retries automatically.
	KindTransient Kind = iota

	// KindProtocol means the response could not be decoded.
	KindProtocol

	// KindAuth means the credential was rejected (401/403). Retrying
	// with the same token will not succeed.
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindProtocol:
		return "protocol"
	case KindAuth:
		return "auth"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FetchError is returned by source clients for every failed request.
type FetchError struct {
	Kind Kind

	// Status is the HTTP status code, or 0 when no response was received.
	Status int

	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AsFetchError returns err as a *FetchError. Errors that are not already
// classified are wrapped as transient.
func AsFetchError(err error) *FetchError {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{Kind: KindTransient, Message: err.Error(), Err: err}
}

// KindOf reports the Kind of err, treating unclassified errors as transient.
func KindOf(err error) Kind {
	return AsFetchError(err).Kind
}

// IsAuthError reports whether err (or any error in its chain) is an
// authentication failure.
func IsAuthError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == KindAuth
}

// Source is a remote notification feed.
type Source interface {
	// FetchNotifications performs one request for notifications updated
	// after since. A nil since fetches the default window. Failures are
	// returned as *FetchError.
	FetchNotifications(ctx context.Context, since *time.Time) ([]model.Notification, error)

	// ValidateConnection verifies credentials and connectivity.
	// Returns a human-readable status message on success.
	ValidateConnection(ctx context.Context) (string, error)
}
