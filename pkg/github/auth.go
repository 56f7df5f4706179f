package github

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/review-assigner/pkg/cache"

	"github.com/golang-jwt/jwt/v5"
)

// Authentication constants.
const (
	maxTokenLength     = 100
	minTokenLength     = 40
	classicTokenLength = 40
	maxAppID           = 999999999
	jwtLifetime        = 9 * time.Minute // refresh one minute before GitHub's 10 minute cap
)

// generateJWT creates a signed JWT for GitHub App authentication.
func generateJWT(appID string, privateKey []byte) (string, error) {
	block, _ := pem.Decode(privateKey)
	if block == nil {
		return "", errors.New("failed to parse PEM block containing the private key")
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		parsedKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return "", fmt.Errorf("failed to parse private key: %w", err)
		}
		var ok bool
		key, ok = parsedKey.(*rsa.PrivateKey)
		if !ok {
			return "", errors.New("private key is not RSA")
		}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(10 * time.Minute).Unix(),
		"iss": appID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(key)
}

// newAppAuthClient creates a client authenticated as a GitHub App.
func newAppAuthClient(appID, appKeyPath string, httpTimeout, cacheTTL time.Duration) (*Client, error) {
	if appID == "" {
		appID = os.Getenv("GITHUB_APP_ID")
	}
	if err := validateAppID(appID); err != nil {
		return nil, err
	}

	privateKey, err := loadPrivateKey(appKeyPath)
	if err != nil {
		return nil, err
	}

	jwtToken, err := generateJWT(appID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to generate JWT: %w", err)
	}
	slog.Info("Generated JWT for GitHub App", "component", "auth", "app_id", appID)

	return &Client{
		httpClient:         &http.Client{Timeout: httpTimeout},
		cache:              cache.New(cacheTTL),
		token:              jwtToken,
		isAppAuth:          true,
		appID:              appID,
		privateKey:         privateKey,
		tokenExpiry:        time.Now().Add(jwtLifetime),
		installationTokens: make(map[string]string),
		installationExpiry: make(map[string]time.Time),
		installationIDs:    make(map[string]int),
	}, nil
}

// newPersonalTokenClient creates a client authenticated with a personal
// access token, falling back to the gh CLI when no token is given.
func newPersonalTokenClient(ctx context.Context, token string, httpTimeout, cacheTTL time.Duration) (*Client, error) {
	if token == "" {
		cmd := exec.CommandContext(ctx, "gh", "auth", "token")
		output, err := cmd.Output()
		if err != nil {
			return nil, fmt.Errorf("failed to get GitHub token from gh CLI: %w", err)
		}
		token = strings.TrimSpace(string(output))
	}

	if err := validateToken(token); err != nil {
		return nil, err
	}

	slog.Info("Using personal access token authentication", "component", "auth")

	return &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		cache:      cache.New(cacheTTL),
		token:      token,
		isAppAuth:  false,
	}, nil
}

// validateAppID validates the GitHub App ID.
func validateAppID(appID string) error {
	if appID == "" {
		return errors.New("GitHub App ID is required (--app-id flag or GITHUB_APP_ID environment variable)")
	}
	appIDNum, err := strconv.Atoi(appID)
	if err != nil {
		return fmt.Errorf("GitHub App ID must be numeric: %w", err)
	}
	if appIDNum <= 0 || appIDNum > maxAppID {
		return errors.New("GitHub App ID out of valid range")
	}
	return nil
}

// loadPrivateKey loads the App private key from the GITHUB_APP_KEY
// environment variable (key content) or from a file path.
func loadPrivateKey(keyPath string) ([]byte, error) {
	var privateKey []byte
	if content := os.Getenv("GITHUB_APP_KEY"); content != "" && keyPath == "" {
		privateKey = []byte(content)
	} else {
		if keyPath == "" {
			keyPath = os.Getenv("GITHUB_APP_KEY_PATH")
		}
		if keyPath == "" {
			return nil, errors.New("GitHub App private key is required " +
				"(--app-key-path flag, GITHUB_APP_KEY, or GITHUB_APP_KEY_PATH environment variable)")
		}
		var err error
		privateKey, err = os.ReadFile(keyPath) //nolint:gosec // path comes from operator configuration
		if err != nil {
			return nil, fmt.Errorf("cannot read private key file: %w", err)
		}
	}

	if !bytes.Contains(privateKey, []byte("BEGIN RSA PRIVATE KEY")) &&
		!bytes.Contains(privateKey, []byte("BEGIN PRIVATE KEY")) {
		return nil, errors.New("private key does not appear to be a valid PEM private key")
	}
	return privateKey, nil
}

// validateToken validates a GitHub personal access token.
func validateToken(token string) error {
	if token == "" {
		return errors.New("no GitHub token found")
	}
	if len(token) > maxTokenLength || len(token) < minTokenLength {
		return errors.New("invalid token length")
	}

	validPrefixes := []string{"ghp_", "gho_", "ghu_", "ghs_", "ghr_"}
	for _, prefix := range validPrefixes {
		if strings.HasPrefix(token, prefix) {
			return nil
		}
	}

	// Could be a classic token (40 hex chars).
	if len(token) != classicTokenLength {
		return errors.New("invalid token format")
	}
	for _, r := range token {
		if (r < 'a' || r > 'f') && (r < '0' || r > '9') {
			return errors.New("invalid classic token format")
		}
	}
	return nil
}

// refreshJWTIfNeeded regenerates the App JWT when it is close to expiry.
func (c *Client) refreshJWTIfNeeded() error {
	if !c.isAppAuth {
		return nil
	}

	c.tokenMutex.RLock()
	needsRefresh := time.Now().After(c.tokenExpiry)
	c.tokenMutex.RUnlock()
	if !needsRefresh {
		return nil
	}

	c.tokenMutex.Lock()
	defer c.tokenMutex.Unlock()
	if time.Now().Before(c.tokenExpiry) {
		return nil
	}

	newToken, err := generateJWT(c.appID, c.privateKey)
	if err != nil {
		return fmt.Errorf("failed to regenerate JWT: %w", err)
	}
	c.token = newToken
	c.tokenExpiry = time.Now().Add(jwtLifetime)
	slog.Info("Refreshed GitHub App JWT", "component", "auth")
	return nil
}

// installationToken returns a cached or freshly created installation access
// token for the organization.
func (c *Client) installationToken(ctx context.Context, org string) (string, error) {
	if !c.isAppAuth {
		return c.token, nil
	}
	if org == "" {
		return "", errors.New("organization name cannot be empty")
	}

	c.tokenMutex.RLock()
	if token, ok := c.installationTokens[org]; ok {
		if expiry, ok := c.installationExpiry[org]; ok && time.Now().Before(expiry) {
			c.tokenMutex.RUnlock()
			return token, nil
		}
	}
	c.tokenMutex.RUnlock()

	if err := c.refreshJWTIfNeeded(); err != nil {
		return "", fmt.Errorf("failed to refresh JWT: %w", err)
	}

	c.tokenMutex.Lock()
	defer c.tokenMutex.Unlock()

	if token, ok := c.installationTokens[org]; ok {
		if expiry, ok := c.installationExpiry[org]; ok && time.Now().Before(expiry) {
			return token, nil
		}
	}

	installationID, ok := c.installationIDs[org]
	if !ok {
		return "", fmt.Errorf("no installation ID found for organization %s (is the app installed?)", org)
	}

	slog.Info("Creating installation access token", "component", "auth", "org", org, "installation_id", installationID)
	apiURL := fmt.Sprintf("%s/app/installations/%d/access_tokens", c.baseURL(), installationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get installation token: %w", err)
	}
	defer drainAndCloseBody(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", fmt.Errorf("failed to create installation token (status %d)", resp.StatusCode)
		}
		return "", fmt.Errorf("failed to create installation token (status %d): %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		ExpiresAt time.Time `json:"expires_at"`
		Token     string    `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.Token == "" {
		return "", errors.New("received empty installation token")
	}

	// Expire 5 minutes before GitHub does.
	c.installationTokens[org] = tokenResp.Token
	c.installationExpiry[org] = tokenResp.ExpiresAt.Add(-5 * time.Minute)

	return tokenResp.Token, nil
}

// installation represents a GitHub App installation.
type installation struct {
	Account struct {
		Login string `json:"login"`
		Type  string `json:"type"`
	} `json:"account"`
	ID int `json:"id"`
}

// ListAppInstallations returns the accounts where this GitHub App is installed.
func (c *Client) ListAppInstallations(ctx context.Context) ([]string, error) {
	if !c.isAppAuth {
		return nil, errors.New("app installations can only be listed with GitHub App authentication")
	}

	slog.Info("Fetching GitHub App installations", "component", "api")
	resp, err := c.doRequest(ctx, http.MethodGet, c.baseURL()+"/app/installations", nil) //nolint:bodyclose // closed via drainAndCloseBody
	if err != nil {
		return nil, fmt.Errorf("failed to get app installations: %w", err)
	}
	defer drainAndCloseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list installations (status %d)", resp.StatusCode)
	}

	var installations []installation
	if err := json.NewDecoder(resp.Body).Decode(&installations); err != nil {
		return nil, fmt.Errorf("failed to decode installations: %w", err)
	}

	orgs := make([]string, 0, len(installations))
	c.tokenMutex.Lock()
	for _, inst := range installations {
		orgs = append(orgs, inst.Account.Login)
		c.installationIDs[inst.Account.Login] = inst.ID
		slog.Info("Found app installation", "account", inst.Account.Login, "type", inst.Account.Type, "installation_id", inst.ID)
	}
	c.tokenMutex.Unlock()

	return orgs, nil
}
