package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/codeGROOVE-dev/sprinkler/pkg/client"
)

const (
	eventChannelSize  = 100
	eventDedupWindow  = 5 * time.Second
	eventMapMaxSize   = 1000
	eventMapMaxAge    = 1 * time.Hour
	processMaxRetries = 3
	processMaxDelay   = 10 * time.Second
	reconnectBackoff  = 30 * time.Second
	maxReconnectWait  = 5 * time.Minute
)

// sprinklerMonitor subscribes to pull_request events for a single org over
// the sprinkler WebSocket stream and feeds them to the bot.
type sprinklerMonitor struct {
	lastConnectedAt time.Time
	bot             *Bot
	wsClient        *client.Client
	eventChan       chan string
	lastEventMap    map[string]time.Time
	stopChan        chan struct{}
	org             string
	reconnects      int
	mu              sync.Mutex
	isConnected     bool
	isStopped       bool
}

func newSprinklerMonitor(bot *Bot, org string) *sprinklerMonitor {
	return &sprinklerMonitor{
		bot:          bot,
		org:          org,
		eventChan:    make(chan string, eventChannelSize),
		lastEventMap: make(map[string]time.Time),
		stopChan:     make(chan struct{}),
	}
}

func (sm *sprinklerMonitor) start(ctx context.Context) {
	go sm.processEvents(ctx)
	go sm.manageConnection(ctx)
}

func (sm *sprinklerMonitor) stop() {
	sm.mu.Lock()
	if sm.isStopped {
		sm.mu.Unlock()
		return
	}
	sm.isStopped = true
	wsClient := sm.wsClient
	sm.mu.Unlock()

	close(sm.stopChan)
	if wsClient != nil {
		wsClient.Stop()
	}
}

func (sm *sprinklerMonitor) connected() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.isConnected
}

// manageConnection restarts the WebSocket client whenever its own internal
// reconnection gives up.
func (sm *sprinklerMonitor) manageConnection(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sm.stopChan:
			return
		default:
		}

		err := sm.connectWebSocket(ctx)
		if errors.Is(err, context.Canceled) {
			return
		}

		sm.mu.Lock()
		sm.reconnects++
		backoff := reconnectBackoff * time.Duration(sm.reconnects)
		sm.mu.Unlock()
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}

		slog.Warn("Event stream client stopped, restarting after backoff",
			"component", "sprinkler", "org", sm.org, "backoff", backoff, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-sm.stopChan:
			return
		case <-time.After(backoff):
		}
	}
}

// connectWebSocket runs the sprinkler client, blocking until it stops. A
// fresh installation token is fetched per attempt; when the token expires and
// the stream drops, manageConnection rebuilds the client with a new one.
func (sm *sprinklerMonitor) connectWebSocket(ctx context.Context) error {
	sm.bot.client.SetCurrentOrg(sm.org)
	token, err := sm.bot.client.Token(ctx)
	sm.bot.client.SetCurrentOrg("")
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}

	cfg := client.Config{
		ServerURL:    "wss://" + client.DefaultServerAddress + "/ws",
		Organization: sm.org,
		Token:        token,
		EventTypes:   []string{"pull_request"},
		OnConnect: func() {
			sm.mu.Lock()
			sm.isConnected = true
			sm.lastConnectedAt = time.Now()
			sm.reconnects = 0
			sm.mu.Unlock()
			slog.Info("Event stream connected", "component", "sprinkler", "org", sm.org)
		},
		OnDisconnect: func(err error) {
			sm.mu.Lock()
			sm.isConnected = false
			sm.mu.Unlock()
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("Event stream disconnected", "component", "sprinkler", "org", sm.org, "error", err)
			}
		},
		OnEvent: func(event client.Event) {
			sm.handleEvent(event)
		},
	}

	wsClient, err := client.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create event stream client: %w", err)
	}

	sm.mu.Lock()
	sm.wsClient = wsClient
	sm.mu.Unlock()

	return wsClient.Start(ctx)
}

// handleEvent dedupes and queues an incoming pull_request event.
func (sm *sprinklerMonitor) handleEvent(event client.Event) {
	if event.Type != "pull_request" || event.URL == "" {
		return
	}

	sm.mu.Lock()
	now := time.Now()
	if lastSeen, ok := sm.lastEventMap[event.URL]; ok && now.Sub(lastSeen) < eventDedupWindow {
		sm.mu.Unlock()
		return
	}
	sm.lastEventMap[event.URL] = now

	if len(sm.lastEventMap) > eventMapMaxSize {
		cutoff := now.Add(-eventMapMaxAge)
		for url, seen := range sm.lastEventMap {
			if seen.Before(cutoff) {
				delete(sm.lastEventMap, url)
			}
		}
	}
	sm.mu.Unlock()

	select {
	case sm.eventChan <- event.URL:
	default:
		slog.Warn("Event channel full, dropping event", "component", "sprinkler", "url", event.URL)
	}
}

func (sm *sprinklerMonitor) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sm.stopChan:
			return
		case prURL := <-sm.eventChan:
			sm.processEvent(ctx, prURL)
		}
	}
}

// processEvent runs one assignment pass for the PR behind the event URL.
func (sm *sprinklerMonitor) processEvent(ctx context.Context, prURL string) {
	owner, repo, prNumber, err := parseEventURL(prURL)
	if err != nil {
		slog.Warn("Failed to parse PR URL from event", "component", "sprinkler", "url", prURL, "error", err)
		return
	}

	sm.bot.client.SetCurrentOrg(owner)
	defer sm.bot.client.SetCurrentOrg("")

	err = retry.Do(func() error {
		return sm.bot.processSinglePR(ctx, owner, repo, prNumber)
	},
		retry.Context(ctx),
		retry.Attempts(processMaxRetries),
		retry.MaxDelay(processMaxDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.OnRetry(func(n uint, err error) {
			slog.Info("Retrying PR processing", "component", "sprinkler", "attempt", n+1, "owner", owner, "repo", repo, "pr", prNumber, "error", err)
		}),
	)
	if err != nil {
		slog.Error("Failed to process PR", "component", "sprinkler", "owner", owner, "repo", repo, "pr", prNumber, "error", err)
	}
}

// parseEventURL extracts owner, repo, and number from a PR event URL of the
// form https://github.com/owner/repo/pull/123.
func parseEventURL(url string) (owner, repo string, prNumber int, err error) {
	parts := strings.Split(url, "/")
	if len(parts) < 7 || parts[2] != "github.com" || parts[5] != "pull" {
		return "", "", 0, fmt.Errorf("invalid GitHub PR URL: %s", url)
	}
	number, convErr := strconv.Atoi(parts[6])
	if convErr != nil {
		return "", "", 0, fmt.Errorf("invalid PR number in URL %s: %w", url, convErr)
	}
	return parts[3], parts[4], number, nil
}
