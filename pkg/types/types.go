// Package types contains shared data structures used across the reviewer system.
//
//nolint:revive // "types" is a standard Go package name for shared data structures
package types

// PullRequest represents a GitHub pull request.
type PullRequest struct {
	Title        string
	State        string
	Author       string
	Owner        string
	OwnerType    string // "Organization" or "User"
	Repository   string
	BaseSHA      string // base commit the PR is targeting; blame lookups run at this ref
	ChangedFiles []ChangedFile
	Reviewers    []string // reviewers already requested on the PR
	Number       int
	Draft        bool
}

// ChangedFile represents a file changed in a pull request.
type ChangedFile struct {
	Filename string
	Status   string // "added", "modified", "removed", "renamed"
	Patch    string
	SHA      string
}

// BlameRange is a per-line authorship range for a file at a given commit.
// Author is empty when the commit has no resolvable GitHub account.
type BlameRange struct {
	Author    string
	StartLine int
	EndLine   int
	Age       int // GitHub blame relative age: 1 (newest) through 10 (oldest)
}
