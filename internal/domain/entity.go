// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// AppCategory classifies an installed application.
type AppCategory string

const (
	CategorySocial        AppCategory = "SOCIAL"
	CategoryGames         AppCategory = "GAMES"
	CategoryEducation     AppCategory = "EDUCATION"
	CategoryEntertainment AppCategory = "ENTERTAINMENT"
	CategoryProductivity  AppCategory = "PRODUCTIVITY"
	CategoryCommunication AppCategory = "COMMUNICATION"
	CategorySystem        AppCategory = "SYSTEM"
	CategoryOther         AppCategory = "OTHER"
)

// AppInfo describes one installed application as reported by the
// inventory collaborator.
type AppInfo struct {
	PackageName    string      `json:"packageName"`
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	VersionCode    int64       `json:"versionCode"`
	Category       AppCategory `json:"category"`
	IsSystemApp    bool        `json:"isSystemApp"`
	IsEnabled      bool        `json:"isEnabled"`
	InstallTime    int64       `json:"installTime"`
	LastUpdateTime int64       `json:"lastUpdateTime"`
}

// EventKind distinguishes foreground-app event types.
type EventKind string

const (
	// EventWindowChanged fires when a new app window comes to the foreground.
	EventWindowChanged EventKind = "window_changed"
	// EventContentChanged fires when the current foreground app redraws its
	// content without a window transition.
	EventContentChanged EventKind = "content_changed"
)

// ForegroundEvent is one observation from the foreground-app event source.
type ForegroundEvent struct {
	PackageName string    `json:"packageName"`
	Kind        EventKind `json:"kind"`
	Timestamp   time.Time `json:"timestamp"`
}

// AppSession records one continuous foreground stint of a single app.
type AppSession struct {
	PackageName string
	StartedAt   time.Time
	EndedAt     time.Time
	Duration    time.Duration
}

// AppUsage is an aggregated per-app usage total for one day.
type AppUsage struct {
	PackageName string `json:"packageName"`
	AppName     string `json:"appName"`
	Category    string `json:"category"`
	TotalMs     int64  `json:"totalTimeMs"`
	LaunchCount int64  `json:"launchCount"`
}

// DailyUsageSummary holds the aggregated screen-time totals for one day.
type DailyUsageSummary struct {
	Date           string     `json:"date"`
	TotalScreenMs  int64      `json:"totalScreenTimeMs"`
	PerApp         []AppUsage `json:"appUsageData"`
	FirstUsageTime int64      `json:"firstUsageTime"`
	LastUsageTime  int64      `json:"lastUsageTime"`
}

// TopApps returns the n heaviest apps of the day by total time.
func (s DailyUsageSummary) TopApps(n int) []AppUsage {
	sorted := make([]AppUsage, len(s.PerApp))
	copy(sorted, s.PerApp)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].TotalMs > sorted[j-1].TotalMs; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// InventorySummary holds headline counts for one inventory scan.
type InventorySummary struct {
	TotalApps  int            `json:"totalApps"`
	UserApps   int            `json:"userApps"`
	SystemApps int            `json:"systemApps"`
	Categories map[string]int `json:"categoryBreakdown"`
	ScanTimeMs int64          `json:"scanTimeMs"`
}

// SummarizeInventory derives headline counts from a list of app descriptors.
func SummarizeInventory(apps []AppInfo, scanTime time.Duration) InventorySummary {
	sum := InventorySummary{
		TotalApps:  len(apps),
		Categories: make(map[string]int),
		ScanTimeMs: scanTime.Milliseconds(),
	}
	for _, a := range apps {
		if a.IsSystemApp {
			sum.SystemApps++
		} else {
			sum.UserApps++
		}
		sum.Categories[string(a.Category)]++
	}
	return sum
}
