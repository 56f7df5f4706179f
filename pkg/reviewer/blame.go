package reviewer

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/codeGROOVE-dev/review-assigner/pkg/types"
)

// maxAuthorsPerFile caps how many recent authors a single file contributes.
const maxAuthorsPerFile = 2

// lineRange is an inclusive span of line numbers.
type lineRange struct {
	start int
	end   int
}

// changedLineRanges extracts the old-file line spans touched by a unified
// diff patch. Blame runs against the base commit, so the "-a,b" side of each
// hunk header is the one that lines up with blame line numbers. Hunks with
// zero old lines (pure additions) contribute nothing.
func changedLineRanges(patch string) []lineRange {
	var ranges []lineRange
	for _, line := range strings.Split(patch, "\n") {
		if !strings.HasPrefix(line, "@@") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasPrefix(fields[1], "-") {
			continue
		}

		oldSide := strings.TrimPrefix(fields[1], "-")
		start, count := 0, 1
		if comma := strings.Index(oldSide, ","); comma >= 0 {
			s, err := strconv.Atoi(oldSide[:comma])
			if err != nil {
				continue
			}
			n, err := strconv.Atoi(oldSide[comma+1:])
			if err != nil {
				continue
			}
			start, count = s, n
		} else {
			s, err := strconv.Atoi(oldSide)
			if err != nil {
				continue
			}
			start = s
		}

		if count == 0 {
			continue
		}
		ranges = append(ranges, lineRange{start: start, end: start + count - 1})
	}
	return ranges
}

// overlapsAny reports whether a blame range intersects any changed span.
func overlapsAny(br types.BlameRange, spans []lineRange) bool {
	for _, span := range spans {
		if br.StartLine <= span.end && br.EndLine >= span.start {
			return true
		}
	}
	return false
}

// recentAuthors finds up to two recent authors of the changed lines in a
// file, ordered newest first. The PR author and commits with no resolvable
// account are skipped. Lookup failures degrade to an empty result.
func (s *Selector) recentAuthors(ctx context.Context, pr *types.PullRequest, file types.ChangedFile) []string {
	ranges, err := s.client.Blame(ctx, pr.Owner, pr.Repository, pr.BaseSHA, file.Filename)
	if err != nil {
		slog.Warn("Blame lookup failed, skipping file", "file", file.Filename, "error", err)
		return nil
	}
	if len(ranges) == 0 {
		return nil
	}

	// Work on a copy: the client may hand back a cached slice.
	spans := changedLineRanges(file.Patch)
	relevant := make([]types.BlameRange, 0, len(ranges))
	for _, br := range ranges {
		if len(spans) == 0 || overlapsAny(br, spans) {
			relevant = append(relevant, br)
		}
	}
	ranges = relevant

	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].Age < ranges[j].Age
	})

	var authors []string
	seen := make(map[string]struct{})
	for _, br := range ranges {
		if br.Author == "" || br.Author == pr.Author {
			continue
		}
		if _, ok := seen[br.Author]; ok {
			continue
		}
		seen[br.Author] = struct{}{}
		authors = append(authors, br.Author)
		if len(authors) >= maxAuthorsPerFile {
			break
		}
	}
	return authors
}
