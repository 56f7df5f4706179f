// Package github provides the GitHub REST and GraphQL client used by the
// reviewer assignment pipeline.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/review-assigner/pkg/cache"

	"github.com/codeGROOVE-dev/retry"
)

const apiBase = "https://api.github.com"

// Client handles all GitHub API interactions.
type Client struct {
	tokenExpiry        time.Time
	installationTokens map[string]string
	installationExpiry map[string]time.Time
	installationIDs    map[string]int
	cache              *cache.Cache
	httpClient         *http.Client
	appID              string
	token              string
	currentOrg         string
	apiURLOverride     string // test hook; empty in production
	privateKey         []byte
	tokenMutex         sync.RWMutex
	isAppAuth          bool
}

// Config holds configuration for creating a new GitHub client.
type Config struct {
	AppID       string
	AppKeyPath  string
	Token       string // personal access token (non-app auth)
	HTTPTimeout time.Duration
	CacheTTL    time.Duration
	UseAppAuth  bool
}

// New creates a GitHub API client using either a personal access token or
// GitHub App authentication.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.UseAppAuth {
		return newAppAuthClient(cfg.AppID, cfg.AppKeyPath, cfg.HTTPTimeout, cfg.CacheTTL)
	}
	return newPersonalTokenClient(ctx, cfg.Token, cfg.HTTPTimeout, cfg.CacheTTL)
}

// SetCurrentOrg sets the organization whose installation token should be used
// for subsequent requests (App auth only).
func (c *Client) SetCurrentOrg(org string) {
	c.tokenMutex.Lock()
	defer c.tokenMutex.Unlock()
	c.currentOrg = org
}

// Token returns the token currently used for requests. For App auth with an
// organization set, this is the installation token.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c.isAppAuth && c.currentOrg != "" {
		return c.installationToken(ctx, c.currentOrg)
	}
	c.tokenMutex.RLock()
	defer c.tokenMutex.RUnlock()
	return c.token, nil
}

// drainAndCloseBody drains and closes an HTTP response body to prevent
// connection leaks.
func drainAndCloseBody(body io.ReadCloser) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		slog.Warn("Failed to drain response body", "error", err)
	}
	if err := body.Close(); err != nil {
		slog.Warn("Failed to close response body", "error", err)
	}
}

// doRequest makes an HTTP request to the GitHub API with retry logic. The
// caller owns the response body.
func (c *Client) doRequest(ctx context.Context, method, apiURL string, body any) (*http.Response, error) {
	if c.isAppAuth {
		if err := c.refreshJWTIfNeeded(); err != nil {
			return nil, fmt.Errorf("failed to refresh JWT: %w", err)
		}
	}

	slog.Debug("HTTP request", "component", "http", "method", method, "url", apiURL)

	var resp *http.Response
	err := retryWithBackoff(ctx, method+" "+apiURL, func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyBytes, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to marshal request body: %w", err)
			}
			bodyReader = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		authToken := c.authTokenFor(ctx)
		if c.isAppAuth {
			req.Header.Set("Authorization", "Bearer "+authToken)
		} else {
			req.Header.Set("Authorization", "token "+authToken)
		}
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		localResp, err := c.httpClient.Do(req) //nolint:bodyclose // closed by caller, or below on retry paths
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		if localResp.StatusCode == http.StatusTooManyRequests {
			drainAndCloseBody(localResp.Body)
			slog.Warn("Rate limited, will retry with backoff", "method", method, "url", apiURL)
			return fmt.Errorf("http %d: rate limited", localResp.StatusCode)
		}
		if localResp.StatusCode >= http.StatusInternalServerError {
			drainAndCloseBody(localResp.Body)
			slog.Warn("Server error, will retry with backoff", "method", method, "url", apiURL, "status", localResp.StatusCode)
			return fmt.Errorf("http %d: server error", localResp.StatusCode)
		}

		resp = localResp
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("HTTP response", "component", "http", "method", method, "url", apiURL, "status", resp.StatusCode)
	return resp, nil
}

// authTokenFor picks the token for the current request, preferring the org
// installation token under App auth.
func (c *Client) authTokenFor(ctx context.Context) string {
	c.tokenMutex.RLock()
	token := c.token
	org := c.currentOrg
	c.tokenMutex.RUnlock()

	if c.isAppAuth && org != "" {
		installToken, err := c.installationToken(ctx, org)
		if err == nil {
			return installToken
		}
		slog.Warn("Failed to get installation token, falling back to JWT", "org", org, "error", err)
	}
	return token
}

// Retry constants.
const (
	maxRetryAttempts  = 8
	initialRetryDelay = 1 * time.Second
	maxRetryDelay     = 2 * time.Minute
)

// retryWithBackoff executes fn with exponential backoff and jitter.
func retryWithBackoff(ctx context.Context, operation string, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(uint(maxRetryAttempts)),
		retry.Delay(initialRetryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(initialRetryDelay/4),
		retry.OnRetry(func(n uint, err error) {
			slog.Info("Retry attempt", "component", "retry", "operation", operation, "attempt", n+1, "max_attempts", maxRetryAttempts, "error", err)
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if err == nil {
				return false
			}
			errStr := err.Error()
			return strings.Contains(errStr, "rate limited") ||
				strings.Contains(errStr, "server error") ||
				strings.Contains(errStr, "connection refused") ||
				strings.Contains(errStr, "timeout") ||
				strings.Contains(errStr, "EOF")
		}),
	)
}

// RequestReviewers requests the given reviewers on a pull request.
func (c *Client) RequestReviewers(ctx context.Context, owner, repo string, prNumber int, reviewers []string) error {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/requested_reviewers", c.baseURL(), owner, repo, prNumber)

	payload := map[string]any{"reviewers": reviewers}

	resp, err := c.doRequest(ctx, http.MethodPost, url, payload) //nolint:bodyclose // closed via drainAndCloseBody
	if err != nil {
		return fmt.Errorf("failed to request reviewers: %w", err)
	}
	defer drainAndCloseBody(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("failed to request reviewers: status %d (could not read body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("failed to request reviewers: status %d: %s", resp.StatusCode, string(body))
	}

	slog.Info("Requested reviewers on PR", "owner", owner, "repo", repo, "pr", prNumber, "reviewers", reviewers)
	return nil
}

// CreateComment posts a comment on a pull request (issue comment endpoint).
func (c *Client) CreateComment(ctx context.Context, owner, repo string, prNumber int, body string) error {
	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", c.baseURL(), owner, repo, prNumber)

	payload := map[string]any{"body": body}

	resp, err := c.doRequest(ctx, http.MethodPost, url, payload) //nolint:bodyclose // closed via drainAndCloseBody
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	defer drainAndCloseBody(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("failed to create comment: status %d", resp.StatusCode)
	}

	slog.Info("Posted comment on PR", "owner", owner, "repo", repo, "pr", prNumber)
	return nil
}

// baseURL returns the REST API base URL.
func (c *Client) baseURL() string {
	if c.apiURLOverride != "" {
		return c.apiURLOverride
	}
	return apiBase
}

// makeCacheKey builds a cache key from parts.
func makeCacheKey(parts ...string) string {
	return strings.Join(parts, ":")
}
