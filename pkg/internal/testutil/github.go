// Package testutil provides a programmable mock GitHub client for tests.
package testutil

import (
	"context"
	"sync"

	"github.com/codeGROOVE-dev/review-assigner/pkg/github"
	"github.com/codeGROOVE-dev/review-assigner/pkg/types"
)

// MockClient is a programmable implementation of github.API. Configure
// responses with the Set* methods; calls to the mutating operations are
// recorded for assertions.
type MockClient struct {
	pr             *types.PullRequest
	prErr          error
	blame          map[string][]types.BlameRange
	blameErr       map[string]error
	permissions    map[string]github.PermissionResult
	permissionErr  map[string]error
	orgMembers     map[string]bool
	requestErr     error
	commentErr     error
	ReviewRequests [][]string
	Comments       []string
	mu             sync.Mutex
}

// NewMockClient creates a mock with empty responses.
func NewMockClient() *MockClient {
	return &MockClient{
		blame:         make(map[string][]types.BlameRange),
		blameErr:      make(map[string]error),
		permissions:   make(map[string]github.PermissionResult),
		permissionErr: make(map[string]error),
		orgMembers:    make(map[string]bool),
	}
}

// SetPullRequest sets the PR returned by PullRequest.
func (m *MockClient) SetPullRequest(pr *types.PullRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pr = pr
}

// SetPullRequestError makes PullRequest fail.
func (m *MockClient) SetPullRequestError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prErr = err
}

// SetBlame sets the blame ranges returned for a file path.
func (m *MockClient) SetBlame(path string, ranges []types.BlameRange) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blame[path] = ranges
}

// SetBlameError makes Blame fail for a file path.
func (m *MockClient) SetBlameError(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blameErr[path] = err
}

// SetPermission sets the permission result for a user.
func (m *MockClient) SetPermission(user string, result github.PermissionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permissions[user] = result
}

// SetPermissionError makes CollaboratorPermission fail for a user.
func (m *MockClient) SetPermissionError(user string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permissionErr[user] = err
}

// SetOrgMember marks a user as a member of any organization.
func (m *MockClient) SetOrgMember(user string, member bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orgMembers[user] = member
}

// SetRequestReviewersError makes RequestReviewers fail.
func (m *MockClient) SetRequestReviewersError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestErr = err
}

// SetCreateCommentError makes CreateComment fail.
func (m *MockClient) SetCreateCommentError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commentErr = err
}

// PullRequest implements github.API.
func (m *MockClient) PullRequest(_ context.Context, _, _ string, _ int) (*types.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prErr != nil {
		return nil, m.prErr
	}
	return m.pr, nil
}

// Blame implements github.API.
func (m *MockClient) Blame(_ context.Context, _, _, _, path string) ([]types.BlameRange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.blameErr[path]; ok {
		return nil, err
	}
	return m.blame[path], nil
}

// CollaboratorPermission implements github.API.
func (m *MockClient) CollaboratorPermission(_ context.Context, _, _, username string) (github.PermissionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.permissionErr[username]; ok {
		return github.PermissionResult{}, err
	}
	if result, ok := m.permissions[username]; ok {
		return result, nil
	}
	return github.PermissionResult{Level: "none", Found: false}, nil
}

// IsOrgMember implements github.API.
func (m *MockClient) IsOrgMember(_ context.Context, _, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orgMembers[username], nil
}

// RequestReviewers implements github.API, recording the request.
func (m *MockClient) RequestReviewers(_ context.Context, _, _ string, _ int, reviewers []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.requestErr != nil {
		return m.requestErr
	}
	m.ReviewRequests = append(m.ReviewRequests, reviewers)
	return nil
}

// CreateComment implements github.API, recording the comment body.
func (m *MockClient) CreateComment(_ context.Context, _, _ string, _ int, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commentErr != nil {
		return m.commentErr
	}
	m.Comments = append(m.Comments, body)
	return nil
}

// Compile-time check.
var _ github.API = (*MockClient)(nil)
