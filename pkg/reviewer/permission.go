package reviewer

import (
	"context"
	"log/slog"

	"github.com/codeGROOVE-dev/review-assigner/pkg/types"
)

// eligibleRoles are the repository roles allowed to review.
var eligibleRoles = map[string]bool{
	"write":    true,
	"maintain": true,
	"admin":    true,
}

// filterByPermission drops candidates without push access to the repository.
// Lookup failures drop the candidate rather than aborting the run.
func (s *Selector) filterByPermission(ctx context.Context, pr *types.PullRequest, candidates *set) {
	candidates.keep(func(user string) bool {
		result, err := s.client.CollaboratorPermission(ctx, pr.Owner, pr.Repository, user)
		if err != nil {
			slog.Warn("Permission check failed, dropping candidate", "user", user, "error", err)
			return false
		}

		if !result.Found {
			if pr.OwnerType == "Organization" {
				member, err := s.client.IsOrgMember(ctx, pr.Owner, user)
				switch {
				case err != nil:
					slog.Warn("Org membership check failed", "user", user, "org", pr.Owner, "error", err)
				case member:
					slog.Info("Candidate is an org member but not a repo collaborator, dropping", "user", user, "org", pr.Owner)
				default:
					slog.Info("Candidate is not an org member, dropping", "user", user, "org", pr.Owner)
				}
			} else {
				slog.Info("Candidate is not a collaborator, dropping", "user", user)
			}
			return false
		}

		if !eligibleRoles[result.Level] {
			slog.Info("Candidate lacks write access, dropping", "user", user, "role", result.Level)
			return false
		}
		return true
	})
}
