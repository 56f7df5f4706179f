package github

import (
	"context"

	"github.com/codeGROOVE-dev/review-assigner/pkg/types"
)

// API is the set of GitHub operations the reviewer selection pipeline
// depends on. *Client implements it; tests substitute a mock.
type API interface {
	// PullRequest fetches a pull request with its changed files.
	PullRequest(ctx context.Context, owner, repo string, prNumber int) (*types.PullRequest, error)

	// Blame returns blame ranges for a file at a ref.
	Blame(ctx context.Context, owner, repo, ref, path string) ([]types.BlameRange, error)

	// CollaboratorPermission returns a user's access level on a repository.
	CollaboratorPermission(ctx context.Context, owner, repo, username string) (PermissionResult, error)

	// IsOrgMember reports whether a user belongs to an organization.
	IsOrgMember(ctx context.Context, org, username string) (bool, error)

	// RequestReviewers requests reviews from the given users.
	RequestReviewers(ctx context.Context, owner, repo string, prNumber int, reviewers []string) error

	// CreateComment posts a comment on a pull request.
	CreateComment(ctx context.Context, owner, repo string, prNumber int, body string) error
}

// Compile-time check that Client satisfies API.
var _ API = (*Client)(nil)
