package domain

import (
	"fmt"
	"time"
)

// SyncState enumerates the phases of one sync cycle.
type SyncState string

const (
	SyncIdle       SyncState = "IDLE"
	SyncInProgress SyncState = "IN_PROGRESS"
	SyncSuccess    SyncState = "SUCCESS"
	SyncFailed     SyncState = "FAILED"
	SyncRetrying   SyncState = "RETRYING"
	SyncNoNetwork  SyncState = "NO_NETWORK"
)

// DefaultMaxRetryAttempts caps retries within a single sync cycle.
const DefaultMaxRetryAttempts = 3

// DefaultStaleThreshold is how long after the last successful sync a status
// is considered stale.
const DefaultStaleThreshold = 10 * time.Minute

// SyncStatus tracks progress and outcome of the sync subsystem. Values are
// immutable: every transition goes through one of the With* constructors and
// produces a fresh copy, so observers may read a snapshot concurrently with
// the orchestrator replacing it.
type SyncStatus struct {
	SyncID               string    `json:"syncId"`
	State                SyncState `json:"status"`
	LastSyncStartTime    int64     `json:"lastSyncStartTime"`
	LastSyncCompleteTime int64     `json:"lastSyncCompleteTime"`
	LastSuccessfulTime   int64     `json:"lastSuccessfulSyncTime"`
	AppInventoryHash     string    `json:"appInventoryHash"`
	TotalAppsCount       int       `json:"totalAppsCount"`
	SyncedAppsCount      int       `json:"syncedAppsCount"`
	ErrorMessage         string    `json:"errorMessage,omitempty"`
	RetryAttempts        int       `json:"retryAttempts"`
	MaxRetryAttempts     int       `json:"maxRetryAttempts"`
	SyncDurationMs       int64     `json:"syncDurationMs"`
	NetworkConnected     bool      `json:"networkConnected"`
	IsFullSync           bool      `json:"isFullSync"`
}

// NewSyncStatus returns the initial IDLE status with a fresh sync identifier.
func NewSyncStatus(syncID string) SyncStatus {
	return SyncStatus{
		SyncID:           syncID,
		State:            SyncIdle,
		MaxRetryAttempts: DefaultMaxRetryAttempts,
		NetworkConnected: true,
		IsFullSync:       true,
	}
}

// IsInProgress reports whether a sync cycle is currently running.
func (s SyncStatus) IsInProgress() bool { return s.State == SyncInProgress }

// IsSuccessful reports whether the last cycle completed successfully.
func (s SyncStatus) IsSuccessful() bool { return s.State == SyncSuccess }

// HasFailed reports whether the last cycle failed.
func (s SyncStatus) HasFailed() bool { return s.State == SyncFailed }

// CanRetry reports whether another retry is permitted. Retrying is only
// legal from FAILED and while the attempt ceiling has not been reached.
func (s SyncStatus) CanRetry() bool {
	return s.HasFailed() && s.RetryAttempts < s.MaxRetryAttempts
}

// IsStale reports whether the last successful sync is older than threshold.
// Staleness is a read-side derived property, not a state.
func (s SyncStatus) IsStale(threshold time.Duration) bool {
	if threshold <= 0 {
		threshold = DefaultStaleThreshold
	}
	return time.Since(time.UnixMilli(s.LastSuccessfulTime)) > threshold
}

// ProgressPercent returns normalized sync progress in [0, 100].
func (s SyncStatus) ProgressPercent() int {
	if s.TotalAppsCount == 0 {
		return 0
	}
	return int(float64(s.SyncedAppsCount) / float64(s.TotalAppsCount) * 100)
}

// StatusMessage renders a human-readable one-liner for status surfaces.
func (s SyncStatus) StatusMessage() string {
	switch s.State {
	case SyncInProgress:
		return fmt.Sprintf("syncing apps... (%d/%d)", s.SyncedAppsCount, s.TotalAppsCount)
	case SyncSuccess:
		return "all apps synced successfully"
	case SyncFailed:
		if s.ErrorMessage != "" {
			return s.ErrorMessage
		}
		return "sync failed"
	case SyncRetrying:
		return fmt.Sprintf("retrying sync... (%d/%d)", s.RetryAttempts, s.MaxRetryAttempts)
	case SyncNoNetwork:
		return "waiting for network connection"
	default:
		return "ready to sync"
	}
}

// WithSyncStarted transitions to IN_PROGRESS, resetting progress and error.
func (s SyncStatus) WithSyncStarted(isFullSync bool, totalApps int) SyncStatus {
	s.State = SyncInProgress
	s.LastSyncStartTime = time.Now().UnixMilli()
	s.IsFullSync = isFullSync
	s.TotalAppsCount = totalApps
	s.SyncedAppsCount = 0
	s.ErrorMessage = ""
	s.NetworkConnected = true
	return s
}

// WithProgress updates the synced-item count without changing state.
func (s SyncStatus) WithProgress(syncedApps int) SyncStatus {
	s.SyncedAppsCount = syncedApps
	return s
}

// WithSyncSuccess transitions to SUCCESS, stamping completion times and
// resetting the retry counter.
func (s SyncStatus) WithSyncSuccess(inventoryHash string, totalApps int) SyncStatus {
	now := time.Now().UnixMilli()
	s.State = SyncSuccess
	s.LastSyncCompleteTime = now
	s.LastSuccessfulTime = now
	s.AppInventoryHash = inventoryHash
	s.TotalAppsCount = totalApps
	s.SyncedAppsCount = totalApps
	s.SyncDurationMs = now - s.LastSyncStartTime
	s.ErrorMessage = ""
	s.RetryAttempts = 0
	return s
}

// WithSyncFailure transitions to FAILED, recording the error and duration.
func (s SyncStatus) WithSyncFailure(errMsg string) SyncStatus {
	now := time.Now().UnixMilli()
	s.State = SyncFailed
	s.LastSyncCompleteTime = now
	s.SyncDurationMs = now - s.LastSyncStartTime
	s.ErrorMessage = errMsg
	return s
}

// WithIncrementedRetry transitions FAILED -> RETRYING, bumping the attempt
// counter. Calling it from any other state, or once the ceiling is reached,
// returns the receiver unchanged.
func (s SyncStatus) WithIncrementedRetry() SyncStatus {
	if !s.CanRetry() {
		return s
	}
	s.RetryAttempts++
	s.State = SyncRetrying
	return s
}

// WithNetworkUnavailable transitions to NO_NETWORK. No retry is charged.
func (s SyncStatus) WithNetworkUnavailable() SyncStatus {
	s.State = SyncNoNetwork
	s.NetworkConnected = false
	return s
}
