package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesKindAndCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Upstream("embedding.openai", cause)

	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrStorage)
	assert.Contains(t, err.Error(), "embedding.openai")
}

func TestUpstreamKeepsExistingKind(t *testing.T) {
	cfgErr := Configuration("llm", errors.New("missing api key"))
	wrapped := Upstream("chat", cfgErr)

	assert.Same(t, cfgErr, wrapped)
	assert.ErrorIs(t, wrapped, ErrConfiguration)
	assert.NotErrorIs(t, wrapped, ErrUpstream)
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{InvalidInput("chat", nil), http.StatusBadRequest},
		{Unauthenticated("auth", nil), http.StatusUnauthorized},
		{Configuration("llm", nil), http.StatusInternalServerError},
		{Upstream("llm", errors.New("boom")), http.StatusBadGateway},
		{Storage("store", errors.New("boom")), http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestKindName(t *testing.T) {
	assert.Equal(t, "upstream", KindName(Upstream("x", errors.New("y"))))
	assert.Equal(t, "storage", KindName(Storage("x", errors.New("y"))))
	assert.Equal(t, "internal", KindName(errors.New("y")))
}
