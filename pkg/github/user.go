package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// PermissionResult describes a user's access level on a repository.
type PermissionResult struct {
	Level string // none, read, triage, write, maintain, admin
	Found bool   // false when the user is not a collaborator
}

// CollaboratorPermission returns the repository permission level for a user.
// A 404 means the user is not a collaborator and is reported via Found rather
// than an error.
func (c *Client) CollaboratorPermission(ctx context.Context, owner, repo, username string) (PermissionResult, error) {
	cacheKey := makeCacheKey("permission", owner, repo, username)
	if cached, ok := c.cache.Get(cacheKey); ok {
		if result, ok := cached.(PermissionResult); ok {
			return result, nil
		}
	}

	slog.Info("Checking collaborator permission", "component", "api", "owner", owner, "repo", repo, "user", username)
	apiURL := fmt.Sprintf("%s/repos/%s/%s/collaborators/%s/permission", c.baseURL(), owner, repo, username)
	resp, err := c.doRequest(ctx, http.MethodGet, apiURL, nil) //nolint:bodyclose // closed via drainAndCloseBody
	if err != nil {
		return PermissionResult{}, err
	}
	defer drainAndCloseBody(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		// Fall through to decode below.
	case http.StatusNotFound:
		result := PermissionResult{Level: "none", Found: false}
		c.cache.Set(cacheKey, result)
		return result, nil
	default:
		return PermissionResult{}, fmt.Errorf("failed to check permission for %s (status %d)", username, resp.StatusCode)
	}

	var permData struct {
		Permission string `json:"permission"`
		RoleName   string `json:"role_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&permData); err != nil {
		return PermissionResult{}, fmt.Errorf("failed to decode permission response: %w", err)
	}

	// role_name carries the finer-grained role (triage, maintain) when present.
	level := permData.RoleName
	if level == "" {
		level = permData.Permission
	}

	result := PermissionResult{Level: level, Found: true}
	c.cache.Set(cacheKey, result)
	return result, nil
}

// IsOrgMember reports whether a user is a member of the organization.
func (c *Client) IsOrgMember(ctx context.Context, org, username string) (bool, error) {
	cacheKey := makeCacheKey("org-member", org, username)
	if cached, ok := c.cache.Get(cacheKey); ok {
		if member, ok := cached.(bool); ok {
			return member, nil
		}
	}

	slog.Info("Checking org membership", "component", "api", "org", org, "user", username)
	apiURL := fmt.Sprintf("%s/orgs/%s/members/%s", c.baseURL(), org, username)
	resp, err := c.doRequest(ctx, http.MethodGet, apiURL, nil) //nolint:bodyclose // closed via drainAndCloseBody
	if err != nil {
		return false, err
	}
	defer drainAndCloseBody(resp.Body)

	switch resp.StatusCode {
	case http.StatusNoContent:
		c.cache.Set(cacheKey, true)
		return true, nil
	case http.StatusNotFound, http.StatusFound:
		c.cache.Set(cacheKey, false)
		return false, nil
	default:
		return false, fmt.Errorf("failed to check org membership for %s (status %d)", username, resp.StatusCode)
	}
}
