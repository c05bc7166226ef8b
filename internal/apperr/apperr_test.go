package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("monthlyIncome", "not a number"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("decode: %w", Validation("", "bad body")), http.StatusBadRequest},
		{"integrity", Integrity("width %d != %d", 7, 8), http.StatusInternalServerError},
		{"unavailable", &UnavailableError{Reason: "training"}, http.StatusServiceUnavailable},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, "none", Kind(nil))
	assert.Equal(t, "validation", Kind(Validation("x", "y")))
	assert.Equal(t, "integrity", Kind(Integrity("z")))
	assert.Equal(t, "unavailable", Kind(&UnavailableError{Reason: "r"}))
	assert.Equal(t, "internal", Kind(errors.New("e")))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "validation error: savingsBalance - must be finite", Validation("savingsBalance", "must be finite").Error())
	assert.Equal(t, "validation error: bad body", Validation("", "bad body").Error())
	assert.Equal(t, "artifact integrity violation: empty feature list", Integrity("empty feature list").Error())

	inner := errors.New("disk gone")
	ue := &UnavailableError{Reason: "load", Err: inner}
	assert.ErrorIs(t, ue, inner)
	assert.Contains(t, ue.Error(), "disk gone")
}
