package usecase

import (
	"sync"
	"time"

	"github.com/shieldtechhub/shieldagent/internal/domain"
)

// dayKey buckets instants into local calendar days.
func dayKey(t time.Time) string { return t.Format("2006-01-02") }

type appAccum struct {
	name        string
	category    domain.AppCategory
	totalMs     int64
	launchCount int64
	firstSeen   int64
	lastSeen    int64
}

// UsageTracker aggregates closed foreground sessions into per-day, per-app
// totals. It is the agent's UsageSource: enforcement and sync both read
// from it, the enforcer writes into it.
type UsageTracker struct {
	mu   sync.Mutex
	days map[string]map[string]*appAccum
}

var _ domain.UsageSource = (*UsageTracker)(nil)

func NewUsageTracker() *UsageTracker {
	return &UsageTracker{days: make(map[string]map[string]*appAccum)}
}

// RecordSession folds one closed session into the day it started on.
func (u *UsageTracker) RecordSession(s domain.AppSession, name string, category domain.AppCategory) {
	u.mu.Lock()
	defer u.mu.Unlock()

	key := dayKey(s.StartedAt)
	day := u.days[key]
	if day == nil {
		day = make(map[string]*appAccum)
		u.days[key] = day
	}
	acc := day[s.PackageName]
	if acc == nil {
		acc = &appAccum{name: name, category: category, firstSeen: s.StartedAt.UnixMilli()}
		day[s.PackageName] = acc
	}
	acc.totalMs += s.Duration.Milliseconds()
	acc.launchCount++
	if ended := s.EndedAt.UnixMilli(); ended > acc.lastSeen {
		acc.lastSeen = ended
	}
}

// CurrentUsageMs returns today's accumulated foreground time for the
// package. Unknown packages have zero usage; the lookup cannot fail.
func (u *UsageTracker) CurrentUsageMs(packageName string) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	day := u.days[dayKey(time.Now())]
	if day == nil {
		return 0, nil
	}
	acc := day[packageName]
	if acc == nil {
		return 0, nil
	}
	return acc.totalMs, nil
}

// DailySummary aggregates the given day's totals across all apps.
func (u *UsageTracker) DailySummary(date time.Time) (domain.DailyUsageSummary, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	sum := domain.DailyUsageSummary{Date: dayKey(date)}
	day := u.days[dayKey(date)]
	for pkg, acc := range day {
		sum.TotalScreenMs += acc.totalMs
		sum.PerApp = append(sum.PerApp, domain.AppUsage{
			PackageName: pkg,
			AppName:     acc.name,
			Category:    string(acc.category),
			TotalMs:     acc.totalMs,
			LaunchCount: acc.launchCount,
		})
		if sum.FirstUsageTime == 0 || acc.firstSeen < sum.FirstUsageTime {
			sum.FirstUsageTime = acc.firstSeen
		}
		if acc.lastSeen > sum.LastUsageTime {
			sum.LastUsageTime = acc.lastSeen
		}
	}
	return sum, nil
}

// PruneBefore drops day buckets older than the cutoff.
func (u *UsageTracker) PruneBefore(cutoff time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()

	limit := dayKey(cutoff)
	for key := range u.days {
		if key < limit {
			delete(u.days, key)
		}
	}
}
