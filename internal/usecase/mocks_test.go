package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/shieldtechhub/shieldagent/internal/domain"
)

type mockInventorySource struct {
	apps []domain.AppInfo
	err  error

	calls int
}

func (m *mockInventorySource) ListInstalledApps(ctx context.Context) ([]domain.AppInfo, error) {
	m.calls++
	return m.apps, m.err
}

type mockRemoteStore struct {
	mu sync.Mutex

	uploadErr  error
	uploadN    int
	snapshots  []domain.DeviceSnapshot
	policyDoc  []byte
	policyErr  error
	violations []domain.PolicyViolation
	reportErr  error
}

func (m *mockRemoteStore) UploadSnapshot(ctx context.Context, childID, deviceID string, snap domain.DeviceSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadN++
	if m.uploadErr != nil {
		return m.uploadErr
	}
	m.snapshots = append(m.snapshots, snap)
	return nil
}

func (m *mockRemoteStore) uploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploadN
}

func (m *mockRemoteStore) FetchPolicy(ctx context.Context, childID, deviceID string) ([]byte, error) {
	return m.policyDoc, m.policyErr
}

func (m *mockRemoteStore) ReportViolation(ctx context.Context, childID, deviceID string, v domain.PolicyViolation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reportErr != nil {
		return m.reportErr
	}
	m.violations = append(m.violations, v)
	return nil
}

type mockNetwork struct{ available bool }

func (m *mockNetwork) IsNetworkAvailable() bool { return m.available }

type mockViolationStore struct {
	mu        sync.Mutex
	appended  []domain.PolicyViolation
	notified  []string
	appendErr error
}

func (m *mockViolationStore) Append(v domain.PolicyViolation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appended = append(m.appended, v)
	return nil
}

func (m *mockViolationStore) MarkNotified(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, id)
	return nil
}

func (m *mockViolationStore) Recent(limit int) ([]domain.PolicyViolation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.PolicyViolation, len(m.appended))
	copy(out, m.appended)
	return out, nil
}

func (m *mockViolationStore) Close() error { return nil }

type mockNotifier struct {
	mu   sync.Mutex
	sent []domain.PolicyViolation
	err  error
}

func (m *mockNotifier) NotifyGuardian(ctx context.Context, v domain.PolicyViolation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, v)
	return nil
}

type mockSurface struct {
	mu      sync.Mutex
	shown   []string
	reasons []string
	homes   int
	showErr error
}

func (m *mockSurface) ShowBlock(packageName, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.showErr != nil {
		return m.showErr
	}
	m.shown = append(m.shown, packageName)
	m.reasons = append(m.reasons, reason)
	return nil
}

func (m *mockSurface) NavigateHome() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.homes++
	return nil
}

func (m *mockSurface) shownCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shown)
}

// mockUsage is a UsageService whose reads can be forced to fail, for
// exercising the fail-open path.
type mockUsage struct {
	mu      sync.Mutex
	totals  map[string]int64
	readErr error
	records []domain.AppSession
}

func newMockUsage() *mockUsage {
	return &mockUsage{totals: make(map[string]int64)}
}

func (m *mockUsage) CurrentUsageMs(packageName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return 0, m.readErr
	}
	return m.totals[packageName], nil
}

func (m *mockUsage) DailySummary(date time.Time) (domain.DailyUsageSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return domain.DailyUsageSummary{}, m.readErr
	}
	return domain.DailyUsageSummary{Date: dayKey(date)}, nil
}

func (m *mockUsage) RecordSession(s domain.AppSession, name string, category domain.AppCategory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, s)
	m.totals[s.PackageName] += s.Duration.Milliseconds()
}

// chanEventSource feeds a fixed channel of foreground events.
type chanEventSource struct{ ch chan domain.ForegroundEvent }

func (c *chanEventSource) Events() <-chan domain.ForegroundEvent { return c.ch }
