package policy

import "time"

// Default optional-field values. These must survive a codec round trip
// exactly; DecodeDevicePolicy re-applies them when a field is absent.
const (
	defaultBreakInterval    = 60
	defaultBreakDuration    = 15
	defaultGracePeriod      = 5
	defaultWarningAtMinutes = 5
)

// DefaultWarningThresholds is the minutes-remaining trip-point ladder used
// when a policy does not carry its own.
func DefaultWarningThresholds() []int { return []int{30, 15, 5} }

// Block returns an active BLOCK override for the package.
func Block(packageName, reason string) AppPolicy {
	if reason == "" {
		reason = "Blocked by guardian"
	}
	now := time.Now().UnixMilli()
	return AppPolicy{
		PackageName: packageName,
		Action:      ActionBlock,
		Reason:      reason,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Allow returns an override that removes all restrictions for the package.
func Allow(packageName string) AppPolicy {
	now := time.Now().UnixMilli()
	return AppPolicy{
		PackageName: packageName,
		Action:      ActionAllow,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// WithTimeLimit returns an active TIME_LIMIT override. startTime/endTime
// may be empty for no window.
func WithTimeLimit(packageName string, dailyMinutes int64, startTime, endTime string) AppPolicy {
	now := time.Now().UnixMilli()
	return AppPolicy{
		PackageName: packageName,
		Action:      ActionTimeLimit,
		TimeLimit: &TimeLimit{
			DailyLimitMinutes:  dailyMinutes,
			WeeklyLimitMinutes: dailyMinutes * 7,
			AllowedStartTime:   startTime,
			AllowedEndTime:     endTime,
			WarningAtMinutes:   defaultWarningAtMinutes,
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithSchedule returns an active SCHEDULE override.
func WithSchedule(packageName string, allowedDays []Day, ranges []TimeRange) AppPolicy {
	now := time.Now().UnixMilli()
	return AppPolicy{
		PackageName: packageName,
		Action:      ActionSchedule,
		Schedule: &ScheduleRestriction{
			AllowedDays:       allowedDays,
			AllowedTimeRanges: ranges,
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DefaultDevicePolicy is created locally when enforcement is enabled before
// the guardian has pushed a policy.
func DefaultDevicePolicy(deviceID string) *DevicePolicy {
	now := time.Now().UnixMilli()
	return &DevicePolicy{
		ID:                   "default_" + deviceID,
		Name:                 "Default Policy",
		Description:          "Basic parental controls for child safety",
		IsActive:             true,
		CreatedAt:            now,
		UpdatedAt:            now,
		InstallationsBlocked: true,
		BedtimeStart:         "21:00",
		BedtimeEnd:           "07:00",
		WeekdayScreenTime:    120,
		WeekendScreenTime:    180,
		BreakReminders:       true,
		BreakInterval:        defaultBreakInterval,
		BreakDuration:        defaultBreakDuration,
		UsageWarnings:        true,
		WarningThresholds:    DefaultWarningThresholds(),
		GracePeriod:          defaultGracePeriod,
		BlockedCategories:    []string{"SOCIAL", "GAMES"},
		PasswordPolicy: &PasswordPolicy{
			MinLength:         6,
			RequireNumbers:    true,
			MaxAttempts:       3,
			LockoutDurationMs: 5 * 60 * 1000,
		},
	}
}

// StrictDevicePolicy is the high-restriction preset.
func StrictDevicePolicy(deviceID string) *DevicePolicy {
	p := DefaultDevicePolicy(deviceID)
	p.ID = "strict_" + deviceID
	p.Name = "Strict Policy"
	p.Description = "High-security parental controls"
	p.CameraDisabled = true
	p.BedtimeStart = "20:00"
	p.BedtimeEnd = "08:00"
	p.WeekdayScreenTime = 60
	p.WeekendScreenTime = 90
	p.BlockedCategories = []string{"SOCIAL", "GAMES", "ENTERTAINMENT"}
	p.PasswordPolicy = &PasswordPolicy{
		MinLength:           8,
		RequireUppercase:    true,
		RequireNumbers:      true,
		RequireSpecialChars: true,
		MaxAttempts:         3,
		LockoutDurationMs:   10 * 60 * 1000,
	}
	p.AppPolicies = []AppPolicy{
		WithTimeLimit("com.android.chrome", 30, "09:00", "18:00"),
	}
	return p
}
