package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shieldtechhub/shieldagent/internal/domain"
	"github.com/shieldtechhub/shieldagent/internal/inventory"
	"github.com/shieldtechhub/shieldagent/internal/metrics"
)

// SyncerConfig carries the sync orchestrator's tunables.
type SyncerConfig struct {
	ChildID  string
	DeviceID string

	// MaxRetries bounds upload retries within one cycle.
	MaxRetries int

	// RetryDelay is the linear backoff unit: attempt n waits n*RetryDelay.
	RetryDelay time.Duration

	// Debounce coalesces bursts of app-change notifications into one sync.
	Debounce time.Duration
}

func DefaultSyncerConfig(childID, deviceID string) SyncerConfig {
	return SyncerConfig{
		ChildID:    childID,
		DeviceID:   deviceID,
		MaxRetries: domain.DefaultMaxRetryAttempts,
		RetryDelay: 30 * time.Second,
		Debounce:   2 * time.Second,
	}
}

// Syncer drives inventory synchronization: it fingerprints the installed
// apps, skips the upload when nothing changed, and retries transient scan
// and upload failures with linear backoff. One cycle runs at a time;
// concurrent triggers queue on the mutex.
type Syncer struct {
	cfg     SyncerConfig
	source  domain.InventorySource
	usage   domain.UsageSource
	remote  domain.RemoteStore
	network domain.NetworkChecker
	logger  *zap.Logger

	// OnInventory, when set, receives every fresh app list. The daemon uses
	// it to refresh the enforcer's category index.
	OnInventory func([]domain.AppInfo)

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	syncMu   sync.Mutex
	baseline domain.InventoryFingerprint

	statusMu sync.Mutex
	status   domain.SyncStatus

	debounceMu    sync.Mutex
	debounceTimer *time.Timer
}

func NewSyncer(
	cfg SyncerConfig,
	source domain.InventorySource,
	usage domain.UsageSource,
	remote domain.RemoteStore,
	network domain.NetworkChecker,
	logger *zap.Logger,
) *Syncer {
	return &Syncer{
		cfg:     cfg,
		source:  source,
		usage:   usage,
		remote:  remote,
		network: network,
		logger:  logger,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Status returns the most recent sync status.
func (s *Syncer) Status() domain.SyncStatus {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status
}

// IsStale reports whether the last successful sync is older than the
// default staleness threshold.
func (s *Syncer) IsStale() bool {
	return s.Status().IsStale(domain.DefaultStaleThreshold)
}

func (s *Syncer) setStatus(st domain.SyncStatus) {
	s.statusMu.Lock()
	s.status = st
	s.statusMu.Unlock()
}

// OnAppChanged notes an install/uninstall/update notification and schedules
// a sync once the burst settles.
func (s *Syncer) OnAppChanged(ctx context.Context) {
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(s.cfg.Debounce, func() {
		if err := s.SyncNow(ctx); err != nil {
			s.logger.Warn("app-change sync failed", zap.Error(err))
		}
	})
}

// SyncNow runs one full sync cycle. It returns an error only when the cycle
// ends in FAILED after exhausting retries; a no-network cycle and a no-op
// cycle both return nil.
func (s *Syncer) SyncNow(ctx context.Context) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	syncID := uuid.NewString()
	started := s.now()
	log := s.logger.With(zap.String("syncId", syncID))

	// A cycle that never reaches the network does not consume retries.
	if !s.network.IsNetworkAvailable() {
		log.Info("sync skipped, network unavailable")
		s.setStatus(s.Status().WithNetworkUnavailable())
		metrics.SyncCycles.WithLabelValues("no_network").Inc()
		return nil
	}

	status := domain.NewSyncStatus(syncID)
	status.MaxRetryAttempts = s.cfg.MaxRetries
	s.setStatus(status)

	// Scan, fingerprint, and upload all run inside the retried block, so a
	// transient scan failure consumes the same backoff budget as a failed
	// upload.
	for {
		outcome, err := s.attempt(ctx, log)
		if err == nil {
			metrics.SyncCycles.WithLabelValues(outcome).Inc()
			if outcome == "success" {
				elapsed := s.now().Sub(started)
				metrics.SyncDuration.Observe(elapsed.Seconds())
				log.Info("sync complete",
					zap.Int("apps", s.Status().TotalAppsCount),
					zap.Bool("fullSync", s.Status().IsFullSync),
					zap.Duration("elapsed", elapsed))
			}
			return nil
		}

		failed := s.Status().WithSyncFailure(err.Error())
		s.setStatus(failed)
		if !failed.CanRetry() {
			log.Error("sync failed, retries exhausted",
				zap.Int("attempts", failed.RetryAttempts), zap.Error(err))
			metrics.SyncCycles.WithLabelValues("failed").Inc()
			return err
		}

		retrying := failed.WithIncrementedRetry()
		s.setStatus(retrying)
		metrics.SyncRetries.Inc()
		delay := time.Duration(retrying.RetryAttempts) * s.cfg.RetryDelay
		log.Warn("sync attempt failed, retrying",
			zap.Int("attempt", retrying.RetryAttempts),
			zap.Duration("backoff", delay),
			zap.Error(err))
		if err := s.sleep(ctx, delay); err != nil {
			s.setStatus(s.Status().WithSyncFailure("cancelled during retry backoff"))
			metrics.SyncCycles.WithLabelValues("failed").Inc()
			return err
		}
	}
}

// attempt runs one scan-to-upload pass. It returns the cycle outcome label
// ("skipped" or "success") or the error that should be charged a retry.
func (s *Syncer) attempt(ctx context.Context, log *zap.Logger) (string, error) {
	scanStart := s.now()
	apps, err := s.source.ListInstalledApps(ctx)
	scanTime := s.now().Sub(scanStart)
	if err != nil {
		log.Error("inventory scan failed", zap.Error(err))
		return "", fmt.Errorf("inventory scan: %w", err)
	}
	if s.OnInventory != nil {
		s.OnInventory(apps)
	}

	fp := s.fingerprint(apps)
	if fp.Matches(s.baseline) {
		log.Debug("inventory unchanged, skipping upload")
		s.setStatus(s.Status().WithSyncSuccess(fp.FullHash, len(apps)))
		return "skipped", nil
	}
	if s.baseline.FullHash != "" {
		log.Info("inventory changed", zap.String("delta", fp.ChangeSummary(s.baseline)))
	}
	isFullSync := s.baseline.FullHash == "" || fp.HasMajorChanges(s.baseline)

	status := s.Status().WithSyncStarted(isFullSync, len(apps))
	s.setStatus(status)

	snap := s.buildSnapshot(apps, fp, status, scanTime)
	s.setStatus(s.Status().WithProgress(len(apps) * 3 / 4))
	snap.SyncStatus = s.Status()

	if err := s.remote.UploadSnapshot(ctx, s.cfg.ChildID, s.cfg.DeviceID, snap); err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}

	s.setStatus(s.Status().WithSyncSuccess(fp.FullHash, len(apps)))
	s.baseline = fp
	return "success", nil
}

// fingerprint guards the hash computation; if it ever panics the cycle
// falls back to a count-only fingerprint instead of losing the upload.
func (s *Syncer) fingerprint(apps []domain.AppInfo) (fp domain.InventoryFingerprint) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("fingerprint computation failed, using fallback",
				zap.Any("cause", r))
			fp = inventory.DegradedFingerprint(len(apps), s.now())
		}
	}()
	return inventory.Fingerprint(apps, s.now())
}

func (s *Syncer) buildSnapshot(apps []domain.AppInfo, fp domain.InventoryFingerprint, status domain.SyncStatus, scanTime time.Duration) domain.DeviceSnapshot {
	summary := domain.SummarizeInventory(apps, scanTime)
	return domain.DeviceSnapshot{
		Apps:        apps,
		Summary:     summary,
		Fingerprint: fp,
		SyncStatus:  status,
		ScreenTime:  s.screenTimeReport(),
	}
}

// screenTimeReport is best effort: a failed usage read leaves that day
// empty rather than failing the sync.
func (s *Syncer) screenTimeReport() domain.ScreenTimeReport {
	var report domain.ScreenTimeReport
	today := s.now()
	report.Today = s.dailyUsage(today)
	report.Yesterday = s.dailyUsage(today.AddDate(0, 0, -1))
	return report
}

func (s *Syncer) dailyUsage(date time.Time) domain.DailyUsage {
	sum, err := s.usage.DailySummary(date)
	if err != nil {
		s.logger.Warn("usage summary unavailable",
			zap.String("date", date.Format("2006-01-02")), zap.Error(err))
		return domain.DailyUsage{Date: date.UnixMilli()}
	}
	return domain.DailyUsage{
		Date:          date.UnixMilli(),
		TotalScreenMs: sum.TotalScreenMs,
		TopApps:       sum.TopApps(5),
	}
}
