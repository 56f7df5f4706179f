// Command review-assigner-bot is a GitHub App that assigns reviewers to pull
// requests as events arrive, across every organization the app is installed in.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/review-assigner/pkg/config"
	"github.com/codeGROOVE-dev/review-assigner/pkg/github"
	"github.com/codeGROOVE-dev/review-assigner/pkg/reviewer"
)

const (
	httpTimeout        = 30 * time.Second
	cacheTTL           = 1 * time.Hour
	monitorRefreshTick = 5 * time.Minute
)

var (
	appID      = flag.String("app-id", "", "GitHub App ID for authentication")
	appKeyPath = flag.String("app-key-path", "", "path to GitHub App private key file")
	configFlag = flag.String("config", ".github/reviewers.json", "path to the reviewer configuration file")
	dryRun     = flag.Bool("dry-run", false, "select reviewers but do not modify PRs")
)

func main() {
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load(*configFlag)
	if err != nil {
		slog.Error("Failed to load config", "path", *configFlag, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	client, err := github.New(ctx, github.Config{
		UseAppAuth:  true,
		AppID:       *appID,
		AppKeyPath:  *appKeyPath,
		HTTPTimeout: httpTimeout,
		CacheTTL:    cacheTTL,
	})
	if err != nil {
		slog.Error("Failed to create GitHub client", "error", err)
		os.Exit(1)
	}

	bot := &Bot{
		client:   client,
		selector: reviewer.New(client, cfg),
		monitors: make(map[string]*sprinklerMonitor),
		dryRun:   *dryRun,
	}

	bot.run(ctx)
}

// Bot manages reviewer assignment across all installed organizations.
type Bot struct {
	client   *github.Client
	selector *reviewer.Selector
	monitors map[string]*sprinklerMonitor
	mu       sync.Mutex
	dryRun   bool
}

// run starts the health server and one event monitor per installation, then
// keeps the monitor set in sync with installations until the context ends.
func (b *Bot) run(ctx context.Context) {
	go b.startHealthServer()

	b.syncMonitors(ctx)

	ticker := time.NewTicker(monitorRefreshTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutting down")
			b.mu.Lock()
			for org, monitor := range b.monitors {
				slog.Info("Stopping event monitor", "org", org)
				monitor.stop()
			}
			b.mu.Unlock()
			return
		case <-ticker.C:
			b.syncMonitors(ctx)
		}
	}
}

// syncMonitors starts monitors for new installations and stops monitors for
// removed ones.
func (b *Bot) syncMonitors(ctx context.Context) {
	orgs, err := b.client.ListAppInstallations(ctx)
	if err != nil {
		slog.Warn("Failed to list app installations", "error", err)
		return
	}

	current := make(map[string]bool, len(orgs))
	for _, org := range orgs {
		current[org] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for org, monitor := range b.monitors {
		if !current[org] {
			slog.Info("Stopping monitor for removed installation", "org", org)
			monitor.stop()
			delete(b.monitors, org)
		}
	}

	for _, org := range orgs {
		if _, ok := b.monitors[org]; ok {
			continue
		}
		monitor := newSprinklerMonitor(b, org)
		monitor.start(ctx)
		b.monitors[org] = monitor
		slog.Info("Started event monitor", "org", org)
	}
}

// processSinglePR runs one reviewer-assignment pass for a pull request.
func (b *Bot) processSinglePR(ctx context.Context, owner, repo string, prNumber int) error {
	pr, err := b.client.PullRequest(ctx, owner, repo, prNumber)
	if err != nil {
		return fmt.Errorf("failed to fetch PR: %w", err)
	}

	if pr.Draft {
		slog.Debug("Skipping draft PR", "owner", owner, "repo", repo, "pr", prNumber)
		return nil
	}
	if len(pr.Reviewers) > 0 {
		slog.Debug("Skipping PR with reviewers already requested", "owner", owner, "repo", repo, "pr", prNumber)
		return nil
	}
	if pr.State != "open" {
		slog.Debug("Skipping closed PR", "owner", owner, "repo", repo, "pr", prNumber)
		return nil
	}

	result, err := b.selector.Select(ctx, pr)
	if err != nil {
		return fmt.Errorf("reviewer selection failed: %w", err)
	}

	if len(result.Reviewers) == 0 {
		slog.Warn("No eligible reviewers found", "owner", owner, "repo", repo, "pr", prNumber)
		return nil
	}

	if b.dryRun {
		slog.Info("Would assign reviewers (dry-run)", "owner", owner, "repo", repo, "pr", prNumber, "reviewers", result.Reviewers)
		return nil
	}

	if err := b.client.RequestReviewers(ctx, owner, repo, prNumber, result.Reviewers); err != nil {
		return fmt.Errorf("failed to request reviewers: %w", err)
	}
	if err := b.client.CreateComment(ctx, owner, repo, prNumber, result.Comment()); err != nil {
		slog.Warn("Reviewers assigned but comment failed", "owner", owner, "repo", repo, "pr", prNumber, "error", err)
	}

	slog.Info("Assigned reviewers", "owner", owner, "repo", repo, "pr", prNumber, "reviewers", result.Reviewers)
	return nil
}

// startHealthServer serves the /healthz endpoint.
func (b *Bot) startHealthServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		total := len(b.monitors)
		connected := 0
		for _, monitor := range b.monitors {
			if monitor.connected() {
				connected++
			}
		}
		b.mu.Unlock()

		status := http.StatusOK
		if total > 0 && connected == 0 {
			status = http.StatusServiceUnavailable
		}
		w.WriteHeader(status)
		fmt.Fprintf(w, "%d/%d monitors connected\n", connected, total)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("Starting health server", "port", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Health server failed", "error", err)
	}
}
