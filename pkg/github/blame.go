package github

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeGROOVE-dev/review-assigner/pkg/types"
)

const blameQuery = `
query($owner: String!, $repo: String!, $ref: String!, $path: String!) {
	repository(owner: $owner, name: $repo) {
		object(expression: $ref) {
			... on Commit {
				blame(path: $path) {
					ranges {
						startingLine
						endingLine
						age
						commit {
							author {
								user {
									login
								}
							}
						}
					}
				}
			}
		}
	}
}`

// Blame returns the blame ranges for a file at the given ref. A file that
// does not exist at the ref (for example a newly added file) yields an empty
// result rather than an error.
func (c *Client) Blame(ctx context.Context, owner, repo, ref, path string) ([]types.BlameRange, error) {
	cacheKey := makeCacheKey("blame", owner, repo, ref, path)
	if cached, ok := c.cache.Get(cacheKey); ok {
		if ranges, ok := cached.([]types.BlameRange); ok {
			slog.Debug("Blame cache hit", "component", "api", "repo", repo, "path", path)
			return ranges, nil
		}
	}

	slog.Info("Fetching blame data", "component", "api", "owner", owner, "repo", repo, "ref", ref, "path", path)

	variables := map[string]any{
		"owner": owner,
		"repo":  repo,
		"ref":   ref,
		"path":  path,
	}

	result, err := c.MakeGraphQLRequest(ctx, blameQuery, variables)
	if err != nil {
		return nil, fmt.Errorf("blame query failed for %s: %w", path, err)
	}

	ranges := parseBlameResponse(result)
	c.cache.Set(cacheKey, ranges)
	return ranges, nil
}

// parseBlameResponse walks the GraphQL response down to the blame ranges.
// Any missing node along the way means the file has no blame at the ref.
func parseBlameResponse(result map[string]any) []types.BlameRange {
	data, ok := result["data"].(map[string]any)
	if !ok {
		return nil
	}
	repository, ok := data["repository"].(map[string]any)
	if !ok {
		return nil
	}
	object, ok := repository["object"].(map[string]any)
	if !ok {
		return nil
	}
	blame, ok := object["blame"].(map[string]any)
	if !ok {
		return nil
	}
	rawRanges, ok := blame["ranges"].([]any)
	if !ok {
		return nil
	}

	ranges := make([]types.BlameRange, 0, len(rawRanges))
	for _, raw := range rawRanges {
		rangeMap, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		br := types.BlameRange{}
		if v, ok := rangeMap["startingLine"].(float64); ok {
			br.StartLine = int(v)
		}
		if v, ok := rangeMap["endingLine"].(float64); ok {
			br.EndLine = int(v)
		}
		if v, ok := rangeMap["age"].(float64); ok {
			br.Age = int(v)
		}

		if commit, ok := rangeMap["commit"].(map[string]any); ok {
			if author, ok := commit["author"].(map[string]any); ok {
				if user, ok := author["user"].(map[string]any); ok {
					if login, ok := user["login"].(string); ok {
						br.Author = login
					}
				}
			}
		}

		ranges = append(ranges, br)
	}
	return ranges
}
