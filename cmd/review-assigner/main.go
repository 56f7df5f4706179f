// Command review-assigner assigns reviewers to a single pull request. It is
// intended to run once per pull-request event, for example from a GitHub
// Actions workflow.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/review-assigner/pkg/config"
	"github.com/codeGROOVE-dev/review-assigner/pkg/github"
	"github.com/codeGROOVE-dev/review-assigner/pkg/reviewer"

	"github.com/joho/godotenv"
)

const (
	httpTimeout = 30 * time.Second
	cacheTTL    = 10 * time.Minute
	runTimeout  = 5 * time.Minute
)

var (
	prFlag     = flag.String("pr", "", "pull request URL or owner/repo#number (required)")
	configFlag = flag.String("config", ".github/reviewers.json", "path to the reviewer configuration file")
	dryRun     = flag.Bool("dry-run", false, "select reviewers but do not modify the PR")
	noComment  = flag.Bool("no-comment", false, "request reviewers without posting the explanatory comment")
	verbose    = flag.Bool("v", false, "enable debug logging")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	if err := run(); err != nil {
		slog.Error("review-assigner failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if *prFlag == "" {
		return errors.New("missing required -pr flag")
	}

	owner, repo, prNumber, err := parsePR(*prFlag)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client, err := github.New(ctx, github.Config{
		Token:       os.Getenv("GITHUB_TOKEN"),
		HTTPTimeout: httpTimeout,
		CacheTTL:    cacheTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	pr, err := client.PullRequest(ctx, owner, repo, prNumber)
	if err != nil {
		return fmt.Errorf("failed to fetch PR %s/%s#%d: %w", owner, repo, prNumber, err)
	}

	result, err := reviewer.New(client, cfg).Select(ctx, pr)
	if err != nil {
		return fmt.Errorf("reviewer selection failed: %w", err)
	}

	if len(result.Reviewers) == 0 {
		slog.Warn("No eligible reviewers found, nothing to do", "pr", prNumber)
		return nil
	}

	if *dryRun {
		slog.Info("Dry run, skipping assignment", "pr", prNumber, "reviewers", result.Reviewers)
		return nil
	}

	if err := client.RequestReviewers(ctx, owner, repo, prNumber, result.Reviewers); err != nil {
		return fmt.Errorf("failed to request reviewers: %w", err)
	}

	if !*noComment {
		if err := client.CreateComment(ctx, owner, repo, prNumber, result.Comment()); err != nil {
			return fmt.Errorf("failed to post comment: %w", err)
		}
	}

	slog.Info("Assigned reviewers", "pr", prNumber, "reviewers", result.Reviewers)
	return nil
}

// parsePR accepts "https://github.com/owner/repo/pull/123" or "owner/repo#123".
func parsePR(input string) (owner, repo string, prNumber int, err error) {
	if strings.Contains(input, "://") {
		trimmed := strings.TrimSuffix(input, "/")
		parts := strings.Split(trimmed, "/")
		// .../owner/repo/pull/123
		if len(parts) < 4 || parts[len(parts)-2] != "pull" {
			return "", "", 0, fmt.Errorf("invalid PR URL: %s", input)
		}
		number, convErr := strconv.Atoi(parts[len(parts)-1])
		if convErr != nil {
			return "", "", 0, fmt.Errorf("invalid PR number in URL %s: %w", input, convErr)
		}
		return parts[len(parts)-4], parts[len(parts)-3], number, nil
	}

	repoPart, numberPart, found := strings.Cut(input, "#")
	if !found {
		return "", "", 0, fmt.Errorf("invalid PR reference %q (want URL or owner/repo#number)", input)
	}
	ownerName, repoName, found := strings.Cut(repoPart, "/")
	if !found || ownerName == "" || repoName == "" {
		return "", "", 0, fmt.Errorf("invalid repository in PR reference %q", input)
	}
	number, convErr := strconv.Atoi(numberPart)
	if convErr != nil || number < 1 {
		return "", "", 0, fmt.Errorf("invalid PR number in reference %q", input)
	}
	return ownerName, repoName, number, nil
}
