// Package tracker orchestrates the periodic scrape → diff → match → notify →
// persist cycle and owns the running/stopped state machine.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"refurbtracker/internal/diff"
	"refurbtracker/internal/domain"
	"refurbtracker/internal/notify"
	"refurbtracker/internal/parser"
	"refurbtracker/internal/scraper"
	"refurbtracker/internal/storage"
)

// Start rejects a second start instead of arming a second timer.
var (
	ErrAlreadyRunning = errors.New("tracking is already running")
	ErrNotRunning     = errors.New("tracking is not running")
)

const (
	// DefaultInterval is how often a tracking pass runs while started.
	DefaultInterval = time.Hour
	// defaultBatchDelay spaces consecutive batches to one user, as
	// backpressure against provider rate limits.
	defaultBatchDelay = time.Second
)

// Notifier delivers one message to one user. *notify.Registry satisfies it.
type Notifier interface {
	Send(ctx context.Context, user domain.User, message string) error
}

// PassResult summarizes one completed tracking pass.
type PassResult struct {
	Scraped       int `json:"scraped"`
	NewProducts   int `json:"new_products"`
	NotifiedUsers int `json:"notified_users"`
}

// Status is a snapshot of the tracker for the HTTP surface and the bot.
type Status struct {
	Running  bool       `json:"running"`
	LastRun  time.Time  `json:"last_run,omitempty"`
	LastPass PassResult `json:"last_pass"`
}

// Tracker runs tracking passes on a timer. It is safe for concurrent use;
// passes themselves never overlap.
type Tracker struct {
	scraper      scraper.Scraper
	repo         storage.Repository
	notifier     Notifier
	shorten      func(string) string
	categoryURLs []string
	interval     time.Duration
	batchDelay   time.Duration
	log          logrus.FieldLogger

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	lastRun  time.Time
	lastPass PassResult

	// passMu serializes passes so a manual trigger cannot overlap the timer.
	passMu sync.Mutex
}

// Option tweaks a Tracker at construction time.
type Option func(*Tracker)

// WithInterval overrides the default hourly pass interval.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) { t.interval = d }
}

// WithBatchDelay overrides the delay between batches sent to one user.
func WithBatchDelay(d time.Duration) Option {
	return func(t *Tracker) { t.batchDelay = d }
}

// WithShortener installs a link shortener used when formatting batches.
func WithShortener(shorten func(string) string) Option {
	return func(t *Tracker) { t.shorten = shorten }
}

// New wires a Tracker. categoryURLs are the storefront pages scraped each pass.
func New(s scraper.Scraper, repo storage.Repository, notifier Notifier, categoryURLs []string, logger logrus.FieldLogger, opts ...Option) *Tracker {
	t := &Tracker{
		scraper:      s,
		repo:         repo,
		notifier:     notifier,
		categoryURLs: categoryURLs,
		interval:     DefaultInterval,
		batchDelay:   defaultBatchDelay,
		log:          logger.WithField("component", "tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start transitions Stopped → Running: it persists the tracking flag, runs
// one pass immediately, then arms the recurring timer. A second Start while
// running returns ErrAlreadyRunning. ctx only scopes the state write; the
// timer loop lives until Stop or Close.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return ErrAlreadyRunning
	}

	if err := t.repo.SaveSystemState(ctx, true); err != nil {
		t.log.WithError(err).Error("Failed to persist tracking state, starting anyway")
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	t.running = true
	t.cancel = cancel
	go t.loop(loopCtx)

	t.log.WithField("interval", t.interval.String()).Info("Tracking started")
	return nil
}

// Stop transitions Running → Stopped. The next scheduled pass is cancelled;
// a pass already in flight runs to completion.
func (t *Tracker) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return ErrNotRunning
	}

	t.cancel()
	t.running = false
	if err := t.repo.SaveSystemState(ctx, false); err != nil {
		t.log.WithError(err).Error("Failed to persist tracking state")
	}
	t.log.Info("Tracking stopped")
	return nil
}

// Close cancels the timer loop without persisting a state change, so a
// restarted process resumes tracking.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		t.cancel()
		t.running = false
	}
}

// Resume restores the Running state after a process restart when the
// persisted system state says tracking was on.
func (t *Tracker) Resume(ctx context.Context) error {
	state, err := t.repo.GetSystemState(ctx)
	if err != nil {
		return fmt.Errorf("failed to read system state: %w", err)
	}
	if !state.IsTracking {
		return nil
	}
	t.log.Info("Resuming tracking from persisted state")
	return t.Start(ctx)
}

// Status reports whether the tracker runs and what the last pass did.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{Running: t.running, LastRun: t.lastRun, LastPass: t.lastPass}
}

func (t *Tracker) loop(ctx context.Context) {
	// ctx only gates the schedule. Passes run on their own context so Stop
	// cancels the next pass, never one already in flight.
	t.RunPass(context.Background())

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.RunPass(context.Background())
		}
	}
}

// RunPass performs one full tracking pass. It never returns an error: every
// failure mode degrades (empty scrape, skipped notifications) and is logged,
// so the scheduler and the HTTP surface stay responsive.
func (t *Tracker) RunPass(ctx context.Context) PassResult {
	t.passMu.Lock()
	defer t.passMu.Unlock()

	started := time.Now()
	var res PassResult

	listings, err := t.scraper.Scrape(ctx, t.categoryURLs)
	if err != nil {
		// Scrape failure aborts the pass; history stays untouched.
		t.log.WithError(err).Error("Scrape failed, aborting pass")
		t.recordPass(res)
		return res
	}

	now := time.Now()
	products := make([]domain.Product, 0, len(listings))
	for _, l := range listings {
		key := domain.ProductKey(l.URL)
		products = append(products, domain.Product{
			Name:        l.Name,
			Price:       l.Price,
			Description: l.Description,
			URL:         l.URL,
			Image:       l.Image,
			Category:    l.Category,
			Specs:       parser.Parse(l.Name, l.Description, l.Category),
			ProductKey:  key,
			LastSeen:    now,
			UpdatedAt:   now,
		})
	}
	res.Scraped = len(products)

	history, err := t.repo.GetProductHistory(ctx)
	if err != nil {
		// An unreadable history must not flag the whole catalog as new and
		// storm every user; treat nothing as new and skip notifications.
		t.log.WithError(err).Error("Product history unavailable, skipping diff and notifications")
		t.persist(ctx, products)
		t.recordPass(res)
		return res
	}

	fresh := diff.DetectNew(products, history)
	res.NewProducts = len(fresh)
	t.log.WithFields(logrus.Fields{
		"scraped": res.Scraped,
		"new":     res.NewProducts,
	}).Info("Diff completed")

	if len(fresh) > 0 {
		res.NotifiedUsers = t.notifyUsers(ctx, fresh)
	}

	// History is persisted unconditionally, even with zero new products, so
	// LastSeen stays fresh and nothing is re-flagged next pass.
	t.persist(ctx, products)
	t.recordPass(res)

	t.log.WithFields(logrus.Fields{
		"scraped":        res.Scraped,
		"new_products":   res.NewProducts,
		"notified_users": res.NotifiedUsers,
		"duration":       time.Since(started).String(),
	}).Info("Tracking pass finished")
	return res
}

func (t *Tracker) recordPass(res PassResult) {
	t.mu.Lock()
	t.lastRun = time.Now()
	t.lastPass = res
	t.mu.Unlock()
}

func (t *Tracker) persist(ctx context.Context, products []domain.Product) {
	if len(products) == 0 {
		return
	}
	if err := t.repo.SaveProductHistory(ctx, products); err != nil {
		t.log.WithError(err).Error("Failed to persist product history")
	}
}

// notifyUsers walks all active users sequentially. One user's failure never
// blocks the remaining users.
func (t *Tracker) notifyUsers(ctx context.Context, fresh []domain.Product) int {
	users, err := t.repo.GetActiveUsers(ctx)
	if err != nil {
		t.log.WithError(err).Error("Failed to load active users, skipping notifications")
		return 0
	}

	notified := 0
	for _, user := range users {
		sent, err := t.notifyUser(ctx, user, fresh)
		if err != nil {
			t.log.WithError(err).WithField("user_id", user.ID).Error("Notification flow failed for user")
			continue
		}
		if sent {
			notified++
		}
	}
	return notified
}

func (t *Tracker) notifyUser(ctx context.Context, user domain.User, fresh []domain.Product) (bool, error) {
	rules, err := t.repo.GetUserTrackingRules(ctx, user.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load rules: %w", err)
	}

	matches := notify.BuildMatches(fresh, rules)
	if len(matches) == 0 {
		return false, nil
	}

	batches := notify.FormatBatches(matches, notify.DefaultBatchSize, t.shorten)
	for i, msg := range batches {
		if i > 0 {
			time.Sleep(t.batchDelay)
		}
		if err := t.notifier.Send(ctx, user, msg); err != nil {
			return false, fmt.Errorf("failed to send batch %d/%d: %w", i+1, len(batches), err)
		}
	}

	productIDs := make([]string, 0, len(matches))
	for _, m := range matches {
		productIDs = append(productIDs, domain.ProductID(m.Product.ProductKey))
	}
	if err := t.repo.SaveNotification(ctx, user.ID, strings.Join(batches, "\n"), productIDs); err != nil {
		// Audit failure is not worth retrying the send for.
		t.log.WithError(err).WithField("user_id", user.ID).Error("Failed to record notification")
	}

	t.log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"matches": len(matches),
		"batches": len(batches),
	}).Info("User notified")
	return true, nil
}
