package reviewer

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/review-assigner/pkg/config"
	"github.com/codeGROOVE-dev/review-assigner/pkg/github"
	"github.com/codeGROOVE-dev/review-assigner/pkg/types"
)

// Selection methods recorded per reviewer.
const (
	MethodCodeOwner    = "code-owner"
	MethodRecentAuthor = "recent-author"
	MethodDefault      = "default"
)

// Selector runs the reviewer selection pipeline for pull requests.
type Selector struct {
	client github.API
	cfg    *config.Config
	now    func() time.Time
}

// New creates a Selector.
func New(client github.API, cfg *config.Config) *Selector {
	return &Selector{
		client: client,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Result is the outcome of a selection run. Reviewers is ordered by
// selection priority; Methods maps each reviewer to how they were chosen.
type Result struct {
	Methods   map[string]string
	Reviewers []string
}

// Select derives reviewers for a pull request: code-ownership matches first,
// recent authors of the changed lines while below the minimum, then
// configured defaults, followed by the exclusion, working-hours, and
// permission filters and the maximum-count cut.
func (s *Selector) Select(ctx context.Context, pr *types.PullRequest) (*Result, error) {
	candidates := newSet()
	methods := make(map[string]string)

	add := func(user, method string) {
		if user == "" {
			return
		}
		if s.cfg.ExcludeAuthors && user == pr.Author {
			return
		}
		if candidates.add(user) {
			methods[user] = method
		}
	}

	// Code-ownership. File list order first, then pattern and owner
	// declaration order within each file; insertion order decides who
	// survives the maximum-count cut.
	for _, file := range pr.ChangedFiles {
		for _, owner := range ownersFor(s.cfg.CodeOwners, file.Filename) {
			add(owner, MethodCodeOwner)
		}
	}
	slog.Info("Ownership matching complete", "pr", pr.Number, "candidates", candidates.len())

	// Recent authors of the changed lines, when ownership left us below the
	// minimum. Once entered, the stage walks every modified file until the
	// maximum is reached.
	if candidates.len() < s.cfg.MinReviewers {
		for _, file := range pr.ChangedFiles {
			if candidates.len() >= s.cfg.MaxReviewers {
				break
			}
			if file.Status != "modified" {
				continue
			}
			for _, author := range s.recentAuthors(ctx, pr, file) {
				add(author, MethodRecentAuthor)
			}
		}
		slog.Info("Blame analysis complete", "pr", pr.Number, "candidates", candidates.len())
	}

	// Configured defaults until the minimum is met.
	for _, fallback := range s.cfg.DefaultReviewers {
		if candidates.len() >= s.cfg.MinReviewers {
			break
		}
		add(fallback, MethodDefault)
	}

	if s.cfg.ExcludeAuthors {
		candidates.remove(pr.Author)
		delete(methods, pr.Author)
	}

	if s.cfg.Timezone.Enabled {
		s.filterByWorkingHours(candidates)
	}

	s.filterByPermission(ctx, pr, candidates)

	candidates.truncate(s.cfg.MaxReviewers)

	reviewers := candidates.users()
	for user := range methods {
		if !candidates.has(user) {
			delete(methods, user)
		}
	}

	slog.Info("Reviewer selection complete", "pr", pr.Number, "reviewers", reviewers)
	return &Result{Reviewers: reviewers, Methods: methods}, nil
}
