// Package policy holds the parental-control policy data model and its
// time/schedule evaluator. Everything here is a pure value type: evaluation
// takes the clock and the current usage as parameters, so the model has no
// collaborators and no hidden state.
package policy

import (
	"strings"
	"time"
)

// Action is the closed set of per-app rule types.
type Action string

const (
	ActionAllow     Action = "ALLOW"
	ActionBlock     Action = "BLOCK"
	ActionTimeLimit Action = "TIME_LIMIT"
	ActionSchedule  Action = "SCHEDULE"
)

// Day names a day of the week in policy schedules.
type Day string

const (
	Monday    Day = "MONDAY"
	Tuesday   Day = "TUESDAY"
	Wednesday Day = "WEDNESDAY"
	Thursday  Day = "THURSDAY"
	Friday    Day = "FRIDAY"
	Saturday  Day = "SATURDAY"
	Sunday    Day = "SUNDAY"
)

// dayOf maps a time.Weekday onto the policy day name.
func dayOf(t time.Time) Day {
	switch t.Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// TimeRange is an allowed HH:MM window. Ranges may wrap past midnight.
type TimeRange struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Contains reports whether the HH:MM clock string falls inside the range.
// A wrapped range (start > end) covers start..midnight and midnight..end,
// endpoints inclusive on both sides.
func (r TimeRange) Contains(clock string) bool {
	return timeInRange(clock, r.StartTime, r.EndTime)
}

func timeInRange(clock, start, end string) bool {
	if start > end {
		return clock >= start || clock <= end
	}
	return clock >= start && clock <= end
}

// clockString formats a wall-clock instant as the HH:MM form all policy
// windows are expressed in. Lexicographic comparison of these strings is
// equivalent to chronological comparison.
func clockString(t time.Time) string {
	return t.Format("15:04")
}

// TimeLimit bounds daily and weekly usage of one app.
type TimeLimit struct {
	DailyLimitMinutes  int64  `json:"dailyLimitMinutes"`
	WeeklyLimitMinutes int64  `json:"weeklyLimitMinutes"`
	AllowedStartTime   string `json:"allowedStartTime,omitempty"`
	AllowedEndTime     string `json:"allowedEndTime,omitempty"`
	BreakDuration      int64  `json:"breakDuration"`
	WarningAtMinutes   int64  `json:"warningAtMinutes"`
}

// ScheduleRestriction confines an app to certain days and time ranges.
// An empty allowed-day set means every non-blocked day; an empty range list
// means all day.
type ScheduleRestriction struct {
	AllowedDays       []Day       `json:"allowedDays"`
	AllowedTimeRanges []TimeRange `json:"allowedTimeRanges"`
	BlockedDays       []Day       `json:"blockedDays"`
}

// AppPolicy is one per-package override within a DevicePolicy.
// TimeLimit is present iff action is TIME_LIMIT and ScheduleRestriction iff
// action is SCHEDULE; the constructors uphold this, the type does not.
type AppPolicy struct {
	PackageName string               `json:"packageName"`
	Action      Action               `json:"action"`
	Reason      string               `json:"reason,omitempty"`
	TimeLimit   *TimeLimit           `json:"timeLimit,omitempty"`
	Schedule    *ScheduleRestriction `json:"scheduleRestriction,omitempty"`
	IsActive    bool                 `json:"isActive"`
	CreatedAt   int64                `json:"createdAt"`
	UpdatedAt   int64                `json:"updatedAt"`
}

// PasswordPolicy constrains the device unlock password.
type PasswordPolicy struct {
	MinLength           int   `json:"minLength"`
	RequireUppercase    bool  `json:"requireUppercase"`
	RequireLowercase    bool  `json:"requireLowercase"`
	RequireNumbers      bool  `json:"requireNumbers"`
	RequireSpecialChars bool  `json:"requireSpecialChars"`
	MaxAttempts         int   `json:"maxAttempts"`
	LockoutDurationMs   int64 `json:"lockoutDuration"`
}

// DevicePolicy is the whole policy for one managed device. It is replaced
// wholesale on every update, never patched field by field.
type DevicePolicy struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"isActive"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`

	CameraDisabled       bool            `json:"cameraDisabled"`
	InstallationsBlocked bool            `json:"installationsBlocked"`
	KeyguardRestrictions int             `json:"keyguardRestrictions"`
	PasswordPolicy       *PasswordPolicy `json:"passwordPolicy,omitempty"`

	BedtimeStart       string `json:"bedtimeStart,omitempty"` // HH:MM, may wrap midnight
	BedtimeEnd         string `json:"bedtimeEnd,omitempty"`
	WeekdayScreenTime  int64  `json:"weekdayScreenTime"` // minutes per day
	WeekendScreenTime  int64  `json:"weekendScreenTime"`
	BreakReminders     bool   `json:"breakReminders"`
	BreakInterval      int64  `json:"breakInterval"` // minutes
	BreakDuration      int64  `json:"breakDuration"` // minutes
	UsageWarnings      bool   `json:"usageWarnings"`
	WarningThresholds  []int  `json:"warningThresholds"` // minutes remaining, descending
	GracePeriod        int64  `json:"gracePeriod"`       // extra minutes when time is up
	WeeklyScreenTime   int64  `json:"weeklyScreenTime"`  // 0 = no weekly limit

	AppPolicies       []AppPolicy `json:"appPolicies"`
	BlockedCategories []string    `json:"blockedCategories"`

	EmergencyMode bool   `json:"emergencyMode"`
	GuardianPIN   string `json:"parentPin,omitempty"`
}

// AppPolicyFor returns the override for the package, or nil. At most one
// override exists per package; on duplicates the last one wins.
func (p *DevicePolicy) AppPolicyFor(packageName string) *AppPolicy {
	var found *AppPolicy
	for i := range p.AppPolicies {
		if p.AppPolicies[i].PackageName == packageName {
			found = &p.AppPolicies[i]
		}
	}
	return found
}

// HasAppRestrictions reports whether the package has any override.
func (p *DevicePolicy) HasAppRestrictions(packageName string) bool {
	return p.AppPolicyFor(packageName) != nil
}

// IsAppBlocked reports whether the package is under an active BLOCK override.
func (p *DevicePolicy) IsAppBlocked(packageName string) bool {
	ap := p.AppPolicyFor(packageName)
	return ap != nil && ap.IsActive && ap.Action == ActionBlock
}

// IsCategoryBlocked checks the uppercased category label against the
// blocked-category set.
func (p *DevicePolicy) IsCategoryBlocked(category string) bool {
	upper := strings.ToUpper(category)
	for _, c := range p.BlockedCategories {
		if c == upper {
			return true
		}
	}
	return false
}

// IsWithinBedtimeAt reports whether now falls inside the bedtime window.
// The window may wrap past midnight; no window means never.
func (p *DevicePolicy) IsWithinBedtimeAt(now time.Time) bool {
	if p.BedtimeStart == "" || p.BedtimeEnd == "" {
		return false
	}
	return timeInRange(clockString(now), p.BedtimeStart, p.BedtimeEnd)
}

// IsWeekendAt reports whether now falls on a Saturday or Sunday.
func (p *DevicePolicy) IsWeekendAt(now time.Time) bool {
	wd := now.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DailyScreenTimeLimitAt returns today's device-wide budget in minutes.
func (p *DevicePolicy) DailyScreenTimeLimitAt(now time.Time) int64 {
	if p.IsWeekendAt(now) {
		return p.WeekendScreenTime
	}
	return p.WeekdayScreenTime
}
