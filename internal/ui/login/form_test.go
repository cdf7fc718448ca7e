package login

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"https://api.github.com", false},
		{"https://ghe.example.com/api/v3", false},
		{"http://localhost:8080", false},
		{"", true},
		{"api.github.com", true},
		{"ftp://api.github.com", true},
		{"https://", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := validateURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	assert.NoError(t, validateToken("ghp_abc123"))
	assert.NoError(t, validateToken("  ghp_abc123\n"))
	assert.Error(t, validateToken(""))
	assert.Error(t, validateToken("ghp abc"))
}

func TestValidateRequired(t *testing.T) {
	v := validateRequired("Account")
	assert.NoError(t, v("work"))
	assert.EqualError(t, v("  "), "Account is required")
}

func TestFormResultTrims(t *testing.T) {
	f := New(" https://api.github.com/ ", " work ")
	f.result.Token = " ghp_abc\n"

	got := f.Result()
	assert.Equal(t, "https://api.github.com", got.BaseURL)
	assert.Equal(t, "work", got.Account)
	assert.Equal(t, "ghp_abc", got.Token)
}
