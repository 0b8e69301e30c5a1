package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/config"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/circuitbreaker"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/logger"
)

// errServerStatus marks a 5xx response so the breaker counts it as a failure
// while the response itself is still handed back to the caller.
var errServerStatus = errors.New("server error status")

// Client is an outbound HTTP client with a per-client timeout and optional circuit breaking.
// SDKs that accept *http.Client get the same protection through StdClient.
type Client struct {
	name    string
	std     *http.Client
	breaker *circuitbreaker.Breaker
}

// NewClient creates a Client. A disabled breaker config produces a plain timeout client.
func NewClient(name string, timeout time.Duration, cfg config.CircuitBreakerConfig, log *logger.Logger) *Client {
	c := &Client{name: name}
	if cfg.Enabled {
		c.breaker = circuitbreaker.New(circuitbreaker.Settings{
			Name:             name,
			FailureThreshold: cfg.FailureThreshold,
			SuccessThreshold: cfg.SuccessThreshold,
			OpenTimeout:      config.Duration(cfg.Timeout, 30*time.Second),
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				if log == nil {
					return
				}
				log.WithPayload(map[string]interface{}{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("circuit breaker state changed")
			},
		})
	}
	c.std = &http.Client{
		Timeout:   timeout,
		Transport: &breakerTransport{base: http.DefaultTransport, client: c},
	}
	return c
}

// Do executes an HTTP request. Transport errors and 5xx responses count as breaker failures;
// when the circuit is open the request is not sent and ErrCircuitOpen is returned.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.std.Do(req)
}

// StdClient returns an *http.Client sharing this client's timeout and breaker.
func (c *Client) StdClient() *http.Client {
	return c.std
}

// State reports the breaker state; Closed when breaking is disabled.
func (c *Client) State() circuitbreaker.State {
	if c.breaker == nil {
		return circuitbreaker.Closed
	}
	return c.breaker.State()
}

type breakerTransport struct {
	base   http.RoundTripper
	client *Client
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.client.breaker == nil {
		return t.base.RoundTrip(req)
	}

	var resp *http.Response
	err := t.client.breaker.Execute(func() error {
		r, err := t.base.RoundTrip(req)
		if err != nil {
			return err
		}
		resp = r
		if r.StatusCode >= http.StatusInternalServerError {
			return errServerStatus
		}
		return nil
	})

	switch {
	case errors.Is(err, errServerStatus):
		return resp, nil
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return nil, fmt.Errorf("%s: %w", t.client.name, err)
	case err != nil:
		return nil, err
	}
	return resp, nil
}
