package reviewer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeGROOVE-dev/review-assigner/pkg/github"
	"github.com/codeGROOVE-dev/review-assigner/pkg/internal/testutil"
	"github.com/codeGROOVE-dev/review-assigner/pkg/types"
)

func grantWrite(mock *testutil.MockClient, users ...string) {
	for _, u := range users {
		mock.SetPermission(u, github.PermissionResult{Level: "write", Found: true})
	}
}

func TestSelectCodeOwnersInFileOrder(t *testing.T) {
	mock := testutil.NewMockClient()
	grantWrite(mock, "bob", "carol", "dave")

	s := newTestSelector(t, mock, `{
		"minReviewers": 1,
		"maxReviewers": 5,
		"codeOwners": {
			"src/api/": ["bob"],
			"*.md": ["carol", "dave"]
		}
	}`)

	pr := &types.PullRequest{
		Number: 7, Author: "alice", Owner: "acme", Repository: "widgets", BaseSHA: "abc",
		ChangedFiles: []types.ChangedFile{
			{Filename: "README.md", Status: "modified"},
			{Filename: "src/api/users.go", Status: "modified"},
		},
	}

	result, err := s.Select(context.Background(), pr)
	require.NoError(t, err)

	// README.md comes first in the file list, so its owners insert first
	// even though their pattern is declared second.
	assert.Equal(t, []string{"carol", "dave", "bob"}, result.Reviewers)
	assert.Equal(t, MethodCodeOwner, result.Methods["bob"])
}

func TestSelectOwnershipTruncationFollowsFileOrder(t *testing.T) {
	mock := testutil.NewMockClient()
	grantWrite(mock, "anna", "bob")

	s := newTestSelector(t, mock, `{
		"minReviewers": 1,
		"maxReviewers": 1,
		"codeOwners": {
			"b.go": ["bob"],
			"a.go": ["anna"]
		}
	}`)

	pr := &types.PullRequest{
		Number: 7, Author: "alice", Owner: "acme", Repository: "widgets", BaseSHA: "abc",
		ChangedFiles: []types.ChangedFile{
			{Filename: "a.go", Status: "modified"},
			{Filename: "b.go", Status: "modified"},
		},
	}

	result, err := s.Select(context.Background(), pr)
	require.NoError(t, err)

	// a.go's owner wins the single slot: file list order beats pattern
	// declaration order across files.
	assert.Equal(t, []string{"anna"}, result.Reviewers)
}

func TestSelectBlameFillsBelowMinimum(t *testing.T) {
	mock := testutil.NewMockClient()
	grantWrite(mock, "bob", "historian")
	mock.SetBlame("src/api/users.go", []types.BlameRange{
		{Author: "historian", StartLine: 1, EndLine: 100, Age: 1},
	})

	s := newTestSelector(t, mock, `{
		"minReviewers": 2,
		"maxReviewers": 3,
		"codeOwners": {"README.md": ["bob"]}
	}`)

	pr := &types.PullRequest{
		Number: 7, Author: "alice", Owner: "acme", Repository: "widgets", BaseSHA: "abc",
		ChangedFiles: []types.ChangedFile{
			{Filename: "README.md", Status: "modified"},
			{Filename: "src/api/users.go", Status: "modified"},
			{Filename: "brand-new.go", Status: "added"},
		},
	}

	result, err := s.Select(context.Background(), pr)
	require.NoError(t, err)

	assert.Equal(t, []string{"bob", "historian"}, result.Reviewers)
	assert.Equal(t, MethodRecentAuthor, result.Methods["historian"])
}

func TestSelectBlameSkipsNonModifiedFiles(t *testing.T) {
	mock := testutil.NewMockClient()
	grantWrite(mock, "ghostwriter")
	mock.SetBlame("gone.go", []types.BlameRange{
		{Author: "ghostwriter", StartLine: 1, EndLine: 10, Age: 1},
	})

	s := newTestSelector(t, mock, `{"minReviewers": 1, "maxReviewers": 3}`)

	pr := &types.PullRequest{
		Number: 7, Author: "alice", Owner: "acme", Repository: "widgets", BaseSHA: "abc",
		ChangedFiles: []types.ChangedFile{
			{Filename: "gone.go", Status: "removed"},
			{Filename: "new.go", Status: "added"},
		},
	}

	result, err := s.Select(context.Background(), pr)
	require.NoError(t, err)
	assert.Empty(t, result.Reviewers)
}

func TestSelectDefaultsFillBelowMinimum(t *testing.T) {
	mock := testutil.NewMockClient()
	grantWrite(mock, "dave", "erin")

	s := newTestSelector(t, mock, `{
		"minReviewers": 2,
		"maxReviewers": 3,
		"defaultReviewers": ["dave", "erin", "frank"]
	}`)

	pr := &types.PullRequest{
		Number: 7, Author: "alice", Owner: "acme", Repository: "widgets", BaseSHA: "abc",
		ChangedFiles: []types.ChangedFile{{Filename: "main.go", Status: "modified"}},
	}

	result, err := s.Select(context.Background(), pr)
	require.NoError(t, err)

	// frank is never consulted: the minimum was already met.
	assert.Equal(t, []string{"dave", "erin"}, result.Reviewers)
	assert.Equal(t, MethodDefault, result.Methods["dave"])
}

func TestSelectAuthorSoleCodeOwnerFallsToDefaults(t *testing.T) {
	mock := testutil.NewMockClient()
	grantWrite(mock, "dave")

	s := newTestSelector(t, mock, `{
		"minReviewers": 1,
		"maxReviewers": 3,
		"excludeAuthors": true,
		"codeOwners": {"main.go": ["alice"]},
		"defaultReviewers": ["dave"]
	}`)

	pr := &types.PullRequest{
		Number: 7, Author: "alice", Owner: "acme", Repository: "widgets", BaseSHA: "abc",
		ChangedFiles: []types.ChangedFile{{Filename: "main.go", Status: "added"}},
	}

	result, err := s.Select(context.Background(), pr)
	require.NoError(t, err)

	assert.Equal(t, []string{"dave"}, result.Reviewers)
}

func TestSelectAuthorKeptWhenExclusionDisabled(t *testing.T) {
	mock := testutil.NewMockClient()
	grantWrite(mock, "alice")

	s := newTestSelector(t, mock, `{
		"minReviewers": 1,
		"maxReviewers": 3,
		"codeOwners": {"main.go": ["alice"]}
	}`)

	pr := &types.PullRequest{
		Number: 7, Author: "alice", Owner: "acme", Repository: "widgets", BaseSHA: "abc",
		ChangedFiles: []types.ChangedFile{{Filename: "main.go", Status: "modified"}},
	}

	result, err := s.Select(context.Background(), pr)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, result.Reviewers)
}

func TestSelectPermissionFilter(t *testing.T) {
	mock := testutil.NewMockClient()
	mock.SetPermission("writer", github.PermissionResult{Level: "write", Found: true})
	mock.SetPermission("maintainer", github.PermissionResult{Level: "maintain", Found: true})
	mock.SetPermission("reader", github.PermissionResult{Level: "read", Found: true})
	mock.SetPermission("triager", github.PermissionResult{Level: "triage", Found: true})
	mock.SetPermissionError("flaky", errors.New("boom"))
	// outsider gets the mock's default not-found result
	mock.SetOrgMember("outsider", true)

	s := newTestSelector(t, mock, `{
		"minReviewers": 6,
		"maxReviewers": 6,
		"defaultReviewers": ["writer", "maintainer", "reader", "triager", "flaky", "outsider"]
	}`)

	pr := &types.PullRequest{
		Number: 7, Author: "alice", Owner: "acme", OwnerType: "Organization",
		Repository: "widgets", BaseSHA: "abc",
		ChangedFiles: []types.ChangedFile{{Filename: "main.go", Status: "modified"}},
	}

	result, err := s.Select(context.Background(), pr)
	require.NoError(t, err)

	assert.Equal(t, []string{"writer", "maintainer"}, result.Reviewers)
}

func TestSelectWorkingHoursFilter(t *testing.T) {
	mock := testutil.NewMockClient()
	grantWrite(mock, "berliner", "tokyoite", "untracked")

	s := newTestSelector(t, mock, `{
		"minReviewers": 3,
		"maxReviewers": 3,
		"defaultReviewers": ["berliner", "tokyoite", "untracked"],
		"timezone": {
			"enabled": true,
			"workingHours": {"start": 9, "end": 18},
			"userTimezones": {
				"berliner": "Europe/Berlin",
				"tokyoite": "Asia/Tokyo"
			}
		}
	}`)
	// 12:00 UTC: 14:00 in Berlin, 21:00 in Tokyo.
	s.now = func() time.Time { return time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC) }

	pr := &types.PullRequest{
		Number: 7, Author: "alice", Owner: "acme", Repository: "widgets", BaseSHA: "abc",
		ChangedFiles: []types.ChangedFile{{Filename: "main.go", Status: "modified"}},
	}

	result, err := s.Select(context.Background(), pr)
	require.NoError(t, err)

	assert.Equal(t, []string{"berliner", "untracked"}, result.Reviewers)
}

func TestSelectTruncatesToMaximum(t *testing.T) {
	mock := testutil.NewMockClient()
	grantWrite(mock, "a", "b", "c", "d")

	s := newTestSelector(t, mock, `{
		"minReviewers": 1,
		"maxReviewers": 2,
		"codeOwners": {"main.go": ["a", "b", "c", "d"]}
	}`)

	pr := &types.PullRequest{
		Number: 7, Author: "alice", Owner: "acme", Repository: "widgets", BaseSHA: "abc",
		ChangedFiles: []types.ChangedFile{{Filename: "main.go", Status: "modified"}},
	}

	result, err := s.Select(context.Background(), pr)
	require.NoError(t, err)

	// Earlier insertions win the cut.
	assert.Equal(t, []string{"a", "b"}, result.Reviewers)
	assert.NotContains(t, result.Methods, "c")
}

func TestSelectEmptyWhenNothingApplies(t *testing.T) {
	mock := testutil.NewMockClient()

	s := newTestSelector(t, mock, `{"minReviewers": 2, "maxReviewers": 3}`)

	pr := &types.PullRequest{
		Number: 7, Author: "alice", Owner: "acme", Repository: "widgets", BaseSHA: "abc",
		ChangedFiles: []types.ChangedFile{{Filename: "main.go", Status: "added"}},
	}

	result, err := s.Select(context.Background(), pr)
	require.NoError(t, err)
	assert.Empty(t, result.Reviewers)
}
