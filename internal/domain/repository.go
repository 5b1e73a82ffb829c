package domain

import (
	"context"
	"time"
)

// InventorySource enumerates installed applications.
// Implementation: platform helper; a gopsutil-backed adapter ships for
// desktop deployments.
type InventorySource interface {
	// ListInstalledApps returns descriptors for every installed app.
	ListInstalledApps(ctx context.Context) ([]AppInfo, error)
}

// UsageSource supplies aggregated per-app usage totals. It must be safe to
// call frequently; callers treat any failure as zero usage (fail open).
type UsageSource interface {
	// CurrentUsageMs returns today's accumulated foreground time for the
	// package, in milliseconds.
	CurrentUsageMs(packageName string) (int64, error)

	// DailySummary returns the aggregated usage totals for the given day.
	DailySummary(date time.Time) (DailyUsageSummary, error)
}

// DeviceSnapshot is the wholesale document written to the remote store,
// keyed by {childId}/{deviceId}.
type DeviceSnapshot struct {
	Apps        []AppInfo            `json:"apps"`
	Summary     InventorySummary     `json:"summary"`
	Fingerprint InventoryFingerprint `json:"inventoryFingerprint"`
	SyncStatus  SyncStatus           `json:"syncStatus"`
	ScreenTime  ScreenTimeReport     `json:"screenTime"`
}

// ScreenTimeReport carries today's and yesterday's usage upstream.
type ScreenTimeReport struct {
	Today     DailyUsage `json:"today"`
	Yesterday DailyUsage `json:"yesterday"`
}

// DailyUsage is the wire form of one day's usage totals.
type DailyUsage struct {
	Date          int64      `json:"date"`
	TotalScreenMs int64      `json:"totalScreenTimeMs"`
	TopApps       []AppUsage `json:"topApps"`
}

// RemoteStore is the upstream document store. Documents are written
// wholesale (replace, last-write-wins); the read path delivers the
// guardian-authored policy as raw JSON for the policy codec to decode.
type RemoteStore interface {
	// UploadSnapshot replaces the device document for {childId}/{deviceId}.
	UploadSnapshot(ctx context.Context, childID, deviceID string, snap DeviceSnapshot) error

	// FetchPolicy returns the current policy document, or nil when the
	// guardian has not authored one yet.
	FetchPolicy(ctx context.Context, childID, deviceID string) ([]byte, error)

	// ReportViolation delivers a violation record upstream (best effort).
	ReportViolation(ctx context.Context, childID, deviceID string, v PolicyViolation) error
}

// EventSource streams foreground-app-change events in arrival order.
type EventSource interface {
	// Events returns the event channel. The channel is closed when the
	// source shuts down.
	Events() <-chan ForegroundEvent
}

// BlockSurface performs the visible block action on the device.
type BlockSurface interface {
	// ShowBlock displays the blocking overlay for the package.
	ShowBlock(packageName, reason string) error

	// NavigateHome returns the device to the home screen.
	NavigateHome() error
}

// GuardianNotifier delivers violation alerts to the guardian.
// Delivery is best effort; failures must never block local recording.
type GuardianNotifier interface {
	NotifyGuardian(ctx context.Context, v PolicyViolation) error
}

// ViolationStore is the durable local violation log. A violation must reach
// this store before reporting returns, so a crash between logging and remote
// delivery cannot lose the record.
type ViolationStore interface {
	// Append durably records a violation.
	Append(v PolicyViolation) error

	// MarkNotified flips the guardian-notified flag for a stored violation.
	MarkNotified(id string) error

	// Recent returns up to limit violations, newest first.
	Recent(limit int) ([]PolicyViolation, error)

	// Close releases the underlying database.
	Close() error
}

// NetworkChecker reports upstream reachability before a sync cycle.
type NetworkChecker interface {
	IsNetworkAvailable() bool
}

// KeyProvider supplies the encryption key for the local violation database.
type KeyProvider interface {
	// EnsureKey returns the stored key, creating one on first use.
	EnsureKey() ([]byte, error)
}
