package reviewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommentListsReviewersWithReasons(t *testing.T) {
	r := &Result{
		Reviewers: []string{"bob", "historian", "dave"},
		Methods: map[string]string{
			"bob":       MethodCodeOwner,
			"historian": MethodRecentAuthor,
			"dave":      MethodDefault,
		},
	}

	comment := r.Comment()
	assert.Contains(t, comment, "- @bob (owns code touched by this PR)")
	assert.Contains(t, comment, "- @historian (recently edited the changed lines)")
	assert.Contains(t, comment, "- @dave (default reviewer)")
}

func TestCommentEmptyResult(t *testing.T) {
	r := &Result{}
	assert.Empty(t, r.Comment())
}
