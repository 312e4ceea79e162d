package lcd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/StrathCole/oracle-watch/pkg/metrics"
	"github.com/StrathCole/oracle-watch/pkg/version"
)

const (
	oracleParamsPath = "/terra/oracle/v1beta1/params"
	validatorsPath   = "/cosmos/staking/v1beta1/validators"
	bondedStatus     = "BOND_STATUS_BONDED"
	// maxPages bounds validator pagination.
	maxPages = 50
)

// Client is an LCD client that rotates through endpoints on failure.
type Client struct {
	logger    zerolog.Logger
	endpoints []string
	current   int
	mu        sync.RWMutex
	http      *http.Client
}

// Config holds configuration for creating a new Client.
type Config struct {
	Endpoints []string
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// NewClient creates an LCD client.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, ErrNoEndpointsRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	endpoints := make([]string, len(cfg.Endpoints))
	for i, ep := range cfg.Endpoints {
		endpoints[i] = strings.TrimRight(ep, "/")
	}

	return &Client{
		logger:    cfg.Logger.With().Str("component", "lcd").Logger(),
		endpoints: endpoints,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// CurrentEndpoint returns the currently active endpoint.
func (c *Client) CurrentEndpoint() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoints[c.current]
}

// Failover rotates to the next endpoint.
func (c *Client) Failover() {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.current
	c.current = (c.current + 1) % len(c.endpoints)
	c.logger.Warn().
		Str("from", c.endpoints[old]).
		Str("to", c.endpoints[c.current]).
		Msg("Failing over to next LCD endpoint")
}

// withFailover tries call once per endpoint, rotating after each failure.
func withFailover[T any](ctx context.Context, c *Client, call func(base string) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < len(c.endpoints); attempt++ {
		resp, err := call(c.CurrentEndpoint())
		if err == nil {
			return resp, nil
		}
		lastErr = err
		c.logger.Debug().Err(err).Str("endpoint", c.CurrentEndpoint()).Int("attempt", attempt+1).Msg("LCD call failed")
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if len(c.endpoints) > 1 {
			c.Failover()
		}
	}
	return zero, fmt.Errorf("%w: %w", ErrAllAttemptsFailed, lastErr)
}

// getJSON performs a GET against base+path and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, base, path string, query url.Values, out interface{}) error {
	target := base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.AgentString())

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordLCDRequest(path, "error")
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordLCDRequest(path, fmt.Sprintf("%d", resp.StatusCode))
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w %d from %s: %s", ErrUnexpectedStatus, resp.StatusCode, path, string(body))
	}
	metrics.RecordLCDRequest(path, "200")

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// OracleParams retrieves the oracle module parameters.
func (c *Client) OracleParams(ctx context.Context) (*OracleParams, error) {
	resp, err := withFailover(ctx, c, func(base string) (*paramsResponse, error) {
		var out paramsResponse
		if err := c.getJSON(ctx, base, oracleParamsPath, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query oracle params: %w", err)
	}
	return &resp.Params, nil
}

// Validators retrieves every bonded validator, following pagination.
func (c *Client) Validators(ctx context.Context) ([]Validator, error) {
	var all []Validator
	var nextKey string

	for page := 0; page < maxPages; page++ {
		query := url.Values{}
		query.Set("status", bondedStatus)
		if nextKey != "" {
			query.Set("pagination.key", nextKey)
		}

		resp, err := withFailover(ctx, c, func(base string) (*validatorsResponse, error) {
			var out validatorsResponse
			if err := c.getJSON(ctx, base, validatorsPath, query, &out); err != nil {
				return nil, err
			}
			return &out, nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query validators: %w", err)
		}

		all = append(all, resp.Validators...)
		if resp.Pagination.NextKey == nil || *resp.Pagination.NextKey == "" {
			return all, nil
		}
		nextKey = *resp.Pagination.NextKey
	}

	c.logger.Warn().Int("pages", maxPages).Int("validators", len(all)).Msg("Validator pagination truncated")
	return all, nil
}
