package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/codeGROOVE-dev/review-assigner/pkg/types"
)

// PullRequest fetches a single pull request.
func (c *Client) PullRequest(ctx context.Context, owner, repo string, prNumber int) (*types.PullRequest, error) {
	slog.Info("Fetching PR details", "component", "api", "owner", owner, "repo", repo, "pr", prNumber)
	apiURL := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.baseURL(), owner, repo, prNumber)
	resp, err := c.doRequest(ctx, http.MethodGet, apiURL, nil) //nolint:bodyclose // closed via drainAndCloseBody
	if err != nil {
		return nil, err
	}
	defer drainAndCloseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get PR (status %d)", resp.StatusCode)
	}

	var prData struct {
		Title string `json:"title"`
		State string `json:"state"`
		User  struct {
			Login string `json:"login"`
		} `json:"user"`
		Base struct {
			SHA  string `json:"sha"`
			Repo struct {
				Owner struct {
					Login string `json:"login"`
					Type  string `json:"type"`
				} `json:"owner"`
			} `json:"repo"`
		} `json:"base"`
		RequestedReviewers []struct {
			Login string `json:"login"`
		} `json:"requested_reviewers"`
		Number int  `json:"number"`
		Draft  bool `json:"draft"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&prData); err != nil {
		return nil, fmt.Errorf("failed to decode pull request: %w", err)
	}

	var reviewers []string
	for _, reviewer := range prData.RequestedReviewers {
		reviewers = append(reviewers, reviewer.Login)
	}

	pr := &types.PullRequest{
		Number:     prData.Number,
		Title:      prData.Title,
		State:      prData.State,
		Draft:      prData.Draft,
		Author:     prData.User.Login,
		Owner:      owner,
		OwnerType:  prData.Base.Repo.Owner.Type,
		Repository: repo,
		BaseSHA:    prData.Base.SHA,
		Reviewers:  reviewers,
	}

	changedFiles, err := c.ChangedFiles(ctx, owner, repo, prNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get changed files: %w", err)
	}
	pr.ChangedFiles = changedFiles

	return pr, nil
}

// ChangedFiles fetches the list of changed files in a PR, following pagination.
func (c *Client) ChangedFiles(ctx context.Context, owner, repo string, prNumber int) ([]types.ChangedFile, error) {
	cacheKey := makeCacheKey("pr-files", owner, repo, strconv.Itoa(prNumber))
	if cached, ok := c.cache.Get(cacheKey); ok {
		if files, ok := cached.([]types.ChangedFile); ok {
			slog.Debug("Changed files cache hit", "component", "api", "owner", owner, "repo", repo, "pr", prNumber)
			return files, nil
		}
	}

	slog.Info("Fetching changed files for PR", "component", "api", "owner", owner, "repo", repo, "pr", prNumber)

	var allFiles []types.ChangedFile
	page := 1
	for {
		apiURL := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/files?per_page=100&page=%d", c.baseURL(), owner, repo, prNumber, page)

		files, lastPage, err := func() ([]types.ChangedFile, bool, error) {
			resp, err := c.doRequest(ctx, http.MethodGet, apiURL, nil) //nolint:bodyclose // closed via drainAndCloseBody
			if err != nil {
				return nil, false, err
			}
			defer drainAndCloseBody(resp.Body)

			if resp.StatusCode != http.StatusOK {
				return nil, false, fmt.Errorf("failed to list changed files (status %d)", resp.StatusCode)
			}

			var raw []struct {
				Filename string `json:"filename"`
				Status   string `json:"status"`
				Patch    string `json:"patch"`
				SHA      string `json:"sha"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
				return nil, false, fmt.Errorf("failed to decode changed files: %w", err)
			}

			files := make([]types.ChangedFile, 0, len(raw))
			for _, f := range raw {
				files = append(files, types.ChangedFile{
					Filename: f.Filename,
					Status:   f.Status,
					Patch:    f.Patch,
					SHA:      f.SHA,
				})
			}
			return files, len(raw) < 100, nil
		}()
		if err != nil {
			return nil, err
		}

		allFiles = append(allFiles, files...)
		if lastPage {
			break
		}
		page++
	}

	c.cache.Set(cacheKey, allFiles)
	return allFiles, nil
}
