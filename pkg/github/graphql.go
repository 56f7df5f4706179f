package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	maxQuerySize        = 100000
	maxGraphQLVarLength = 10000
	maxGraphQLVarNum    = 1000000
	maxGitHubNameLength = 100
)

// MakeGraphQLRequest makes a GraphQL request to the GitHub API.
func (c *Client) MakeGraphQLRequest(ctx context.Context, query string, variables map[string]any) (map[string]any, error) {
	if err := validateGraphQLVariables(variables); err != nil {
		return nil, fmt.Errorf("invalid GraphQL variables: %w", err)
	}

	if len(query) > maxQuerySize {
		return nil, fmt.Errorf("GraphQL query too large: %d chars (max %d)", len(query), maxQuerySize)
	}

	slog.DebugContext(ctx, "Executing GraphQL query", "component", "graphql", "size", len(query), "variables", len(variables))

	payload := map[string]any{
		"query":     query,
		"variables": variables,
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL request: %w", err)
	}

	endpoint := c.baseURL() + "/graphql"
	start := time.Now()

	var result map[string]any
	err = retryWithBackoff(ctx, "GraphQL query", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("failed to create GraphQL request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+c.authTokenFor(ctx))
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("graphql request failed: %w", err)
		}
		defer drainAndCloseBody(resp.Body)

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			slog.ErrorContext(ctx, "GraphQL query failed", "status", resp.StatusCode, "body", string(body))
			return fmt.Errorf("graphql request failed with status %d: %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("failed to decode GraphQL response: %w", err)
		}

		if gqlErrors, ok := result["errors"]; ok {
			slog.ErrorContext(ctx, "GraphQL query returned errors", "errors", gqlErrors)
			return fmt.Errorf("graphql errors: %v", gqlErrors)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "GraphQL query completed", "component", "graphql", "duration", time.Since(start))
	return result, nil
}

// validateGraphQLVariables validates GraphQL variables to prevent injection.
func validateGraphQLVariables(variables map[string]any) error {
	for key, value := range variables {
		if strings.ContainsAny(key, "{}[]\"'\n\r\t") {
			return fmt.Errorf("invalid character in variable key: %s", key)
		}

		if str, ok := value.(string); ok {
			if strings.Contains(str, "__schema") || strings.Contains(str, "__type") {
				return errors.New("introspection queries not allowed in variables")
			}
			if len(str) > maxGraphQLVarLength {
				return fmt.Errorf("variable value too long: %d chars", len(str))
			}
			if key == "owner" || key == "repo" || key == "org" || key == "login" {
				if strings.ContainsAny(str, "../\\\n\r\x00") || len(str) > maxGitHubNameLength || str == "" {
					return fmt.Errorf("invalid GitHub name in variable %s: %s", key, str)
				}
			}
		}

		if num, ok := value.(int); ok {
			if num < 0 || num > maxGraphQLVarNum {
				return fmt.Errorf("numeric variable out of range: %d", num)
			}
		}
	}
	return nil
}
