package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"syntax", fmt.Errorf("parsing: %w", ErrSyntax), http.StatusBadRequest},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"missing index", fmt.Errorf("loading: %w", ErrIndexNotFound), http.StatusServiceUnavailable},
		{"corrupt index", ErrCorruptIndex, http.StatusServiceUnavailable},
		{"timeout", ErrTimeout, http.StatusGatewayTimeout},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
		{"app error wins", New(ErrSyntax, http.StatusTeapot, "odd"), http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "limit %d too large", 500)
	assert.True(t, Is(err, ErrInvalidInput))
	assert.Equal(t, "invalid input: limit 500 too large", err.Error())
}
