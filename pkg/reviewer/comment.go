package reviewer

import (
	"fmt"
	"strings"
)

// methodLabels are the human-readable reasons shown in the PR comment.
var methodLabels = map[string]string{
	MethodCodeOwner:    "owns code touched by this PR",
	MethodRecentAuthor: "recently edited the changed lines",
	MethodDefault:      "default reviewer",
}

// Comment renders the explanatory comment posted on the pull request.
// Returns an empty string when no reviewers were selected.
func (r *Result) Comment() string {
	if len(r.Reviewers) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Requested reviews from:\n\n")
	for _, user := range r.Reviewers {
		label := methodLabels[r.Methods[user]]
		if label == "" {
			label = "selected"
		}
		fmt.Fprintf(&b, "- @%s (%s)\n", user, label)
	}
	return b.String()
}
