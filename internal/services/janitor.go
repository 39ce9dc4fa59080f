package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tigerfox1974/StudyBuddy/internal/repository"
)

const (
	defaultRetention       = 30 * 24 * time.Hour
	defaultJanitorInterval = time.Hour
	janitorRunTimeout      = 5 * time.Minute
)

// CacheJanitor expires documents nobody has opened within the retention
// window and ends lapsed subscriptions.
type CacheJanitor struct {
	store         repository.Store
	subscriptions *SubscriptionService
	retention     time.Duration
	interval      time.Duration
	now           func() time.Time
	log           *slog.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type JanitorReport struct {
	DocumentsDeleted     int64
	SubscriptionsExpired int
}

func NewCacheJanitor(
	store repository.Store,
	subscriptions *SubscriptionService,
	retention, interval time.Duration,
	log *slog.Logger,
) *CacheJanitor {
	if retention <= 0 {
		retention = defaultRetention
	}
	if interval <= 0 {
		interval = defaultJanitorInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &CacheJanitor{
		store:         store,
		subscriptions: subscriptions,
		retention:     retention,
		interval:      interval,
		now:           func() time.Time { return time.Now().UTC() },
		log:           log,
		stopChan:      make(chan struct{}),
	}
}

func (j *CacheJanitor) Start() {
	j.wg.Add(1)
	go j.loop()
	j.log.Info("cache janitor started", "interval", j.interval, "retention", j.retention)
}

// Stop ends the loop and waits for an in-flight run to finish.
func (j *CacheJanitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopChan) })
	j.wg.Wait()
}

func (j *CacheJanitor) loop() {
	defer j.wg.Done()

	// Run on startup as well as by interval.
	j.runLogged()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.runLogged()
		}
	}
}

func (j *CacheJanitor) runLogged() {
	ctx, cancel := context.WithTimeout(context.Background(), janitorRunTimeout)
	defer cancel()

	report, err := j.RunOnce(ctx)
	if err != nil {
		j.log.Error("cache janitor run failed", "error", err)
		return
	}
	if report.DocumentsDeleted > 0 || report.SubscriptionsExpired > 0 {
		j.log.Info("cache janitor run",
			"documents_deleted", report.DocumentsDeleted,
			"subscriptions_expired", report.SubscriptionsExpired,
		)
	}
}

// RunOnce does one cleanup pass. A subscription failure does not undo the
// document cleanup.
func (j *CacheJanitor) RunOnce(ctx context.Context) (JanitorReport, error) {
	var report JanitorReport
	now := j.now()

	deleted, err := j.store.DeleteDocumentsAccessedBefore(ctx, now.Add(-j.retention))
	if err != nil {
		return report, err
	}
	report.DocumentsDeleted = deleted

	if j.subscriptions != nil {
		expired, err := j.subscriptions.ExpireSubscriptions(ctx, now)
		if err != nil {
			return report, err
		}
		report.SubscriptionsExpired = expired
	}
	return report, nil
}
