package source

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchError_Error(t *testing.T) {
	withStatus := &FetchError{Kind: KindAuth, Status: 401, Message: "bad credentials"}
	assert.Equal(t, "auth error (401): bad credentials", withStatus.Error())

	noStatus := &FetchError{Kind: KindTransient, Message: "connection refused"}
	assert.Equal(t, "transient error: connection refused", noStatus.Error())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"protocol", &FetchError{Kind: KindProtocol}, KindProtocol},
		{"wrapped auth", fmt.Errorf("polling: %w", &FetchError{Kind: KindAuth}), KindAuth},
		{"plain error", errors.New("boom"), KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(fmt.Errorf("x: %w", &FetchError{Kind: KindAuth})))
	assert.False(t, IsAuthError(&FetchError{Kind: KindTransient}))
	assert.False(t, IsAuthError(errors.New("401")))
	assert.False(t, IsAuthError(nil))
}

func TestAsFetchError_PreservesCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	fe := AsFetchError(cause)

	assert.Equal(t, KindTransient, fe.Kind)
	assert.ErrorIs(t, fe, cause)
	assert.Nil(t, AsFetchError(nil))
}
