package reviewer

import (
	"log/slog"
	"path"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// matchesPattern reports whether a filename matches an ownership pattern.
// Patterns containing glob metacharacters use path.Match semantics, patterns
// ending in "/" match by path prefix, and everything else matches exactly.
func matchesPattern(pattern, filename string) bool {
	if strings.ContainsAny(pattern, "*?[") {
		matched, err := path.Match(pattern, filename)
		if err != nil {
			slog.Warn("Invalid ownership glob pattern, skipping", "pattern", pattern, "error", err)
			return false
		}
		return matched
	}
	if strings.HasSuffix(pattern, "/") {
		return strings.HasPrefix(filename, pattern)
	}
	return pattern == filename
}

// ownersFor returns the owners of every pattern matching the file, in
// pattern declaration order with duplicates removed.
func ownersFor(owners *orderedmap.OrderedMap[string, []string], filename string) []string {
	var matched []string
	seen := make(map[string]struct{})
	for pair := owners.Oldest(); pair != nil; pair = pair.Next() {
		if !matchesPattern(pair.Key, filename) {
			continue
		}
		for _, owner := range pair.Value {
			if _, ok := seen[owner]; ok {
				continue
			}
			seen[owner] = struct{}{}
			matched = append(matched, owner)
		}
	}
	return matched
}
