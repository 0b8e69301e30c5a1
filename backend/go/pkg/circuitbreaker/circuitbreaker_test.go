package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

var errBoom = errors.New("boom")

func fail() error    { return errBoom }
func succeed() error { return nil }

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := New(Settings{FailureThreshold: 2, SuccessThreshold: 1, OpenTimeout: 10 * time.Second, Now: clock.now})

	assert.ErrorIs(t, b.Execute(fail), errBoom)
	assert.Equal(t, Closed, b.State())
	assert.ErrorIs(t, b.Execute(fail), errBoom)
	assert.Equal(t, Open, b.State())

	called := false
	err := b.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := New(Settings{FailureThreshold: 2})
	_ = b.Execute(fail)
	require.NoError(t, b.Execute(succeed))
	_ = b.Execute(fail)
	assert.Equal(t, Closed, b.State())
}

func TestHalfOpenRecovery(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	b := New(Settings{
		Name:             "llm",
		FailureThreshold: 1,
		SuccessThreshold: 2,
		OpenTimeout:      5 * time.Second,
		Now:              clock.now,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})

	_ = b.Execute(fail)
	assert.Equal(t, Open, b.State())

	clock.advance(5 * time.Second)
	assert.Equal(t, HalfOpen, b.State())

	require.NoError(t, b.Execute(succeed))
	assert.Equal(t, HalfOpen, b.State())
	require.NoError(t, b.Execute(succeed))
	assert.Equal(t, Closed, b.State())

	assert.Equal(t, []string{
		"llm:closed->open",
		"llm:open->half-open",
		"llm:half-open->closed",
	}, transitions)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	b := New(Settings{FailureThreshold: 1, SuccessThreshold: 3, OpenTimeout: time.Second, Now: clock.now})

	_ = b.Execute(fail)
	clock.advance(time.Second)
	require.Equal(t, HalfOpen, b.State())

	_ = b.Execute(fail)
	assert.Equal(t, Open, b.State())
	assert.ErrorIs(t, b.Execute(succeed), ErrCircuitOpen)
}
