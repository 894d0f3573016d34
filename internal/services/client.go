package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tidesweep/internal/shared"
)

const (
	headerRemaining  = "X-Ratelimit-Remaining"
	headerReplenish  = "X-Ratelimit-Replenish-Rate"
	headerRetryAfter = "Retry-After"

	// Stay clear of the limit on the next call, not this one.
	rateLimitLowWater = 2

	// Consecutive 401 responses tolerated before the run aborts.
	maxAuthRetries = 3
)

// PagedClient is the authenticated HTTP wrapper every Tidal request flows
// through. It applies look-ahead throttling from rate-limit headers, refreshes
// credentials on 401 and retries, and backs off indefinitely on 429.
type PagedClient struct {
	httpClient *http.Client
	creds      *CredentialManager
	logger     *log.Logger
	sleep      func(time.Duration)
}

// NewPagedClient creates a paged client bound to a credential manager.
func NewPagedClient(creds *CredentialManager, client *http.Client, logger *log.Logger) *PagedClient {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &PagedClient{
		httpClient: client,
		creds:      creds,
		logger:     logger,
		sleep:      time.Sleep,
	}
}

// Get fetches the URL and returns the raw response body.
func (c *PagedClient) Get(ctx context.Context, url string) ([]byte, error) {
	return c.request(ctx, http.MethodGet, url, nil)
}

// Delete issues a DELETE with a JSON body, subject to the same pacing and
// retry behavior as Get.
func (c *PagedClient) Delete(ctx context.Context, url string, body []byte) ([]byte, error) {
	return c.request(ctx, http.MethodDelete, url, body)
}

func (c *PagedClient) request(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	authRetries := 0

	for {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/vnd.api+json")
		req.Header.Set("Authorization", "Bearer "+c.creds.AccessToken())
		if body != nil {
			req.Header.Set("Content-Type", "application/vnd.api+json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}

		replenish := headerInt(resp.Header, headerReplenish, 1)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			data, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to read response: %w", err)
			}

			// A response without rate headers never throttles.
			if remaining := headerInt(resp.Header, headerRemaining, rateLimitLowWater+1); remaining <= rateLimitLowWater {
				wait := time.Duration(replenish*2) * time.Second
				c.logger.Debug("approaching rate limit, throttling", "remaining", remaining, "wait", wait)
				c.sleep(wait)
			}
			return data, nil

		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			authRetries++
			if authRetries > maxAuthRetries {
				return nil, fmt.Errorf("%w: %d consecutive unauthorized responses", shared.ErrAuthFailed, authRetries)
			}

			c.logger.Info("access token rejected, refreshing", "attempt", authRetries)
			if _, err := c.creds.Refresh(ctx); err != nil {
				return nil, err
			}

		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			retryAfter := headerInt(resp.Header, headerRetryAfter, replenish)
			wait := time.Duration(retryAfter*2) * time.Second
			c.logger.Info("rate limited, backing off", "wait", wait)
			c.sleep(wait)

		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, url)

		default:
			resp.Body.Close()
			return nil, fmt.Errorf("%w: status %d for %s", shared.ErrAPIRequest, resp.StatusCode, url)
		}
	}
}

func headerInt(h http.Header, key string, fallback int) int {
	value := h.Get(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
