package policy

import "time"

// IsCurrentlyAllowedAt decides whether the app may run right now.
// usageMs is today's accumulated foreground time for the package, supplied
// by the caller; a caller whose usage lookup failed must pass 0 so that
// missing data never blocks (fail open).
//
// An inactive policy is bypassed entirely: it permits the app regardless of
// its action.
func (ap *AppPolicy) IsCurrentlyAllowedAt(now time.Time, usageMs int64) bool {
	if !ap.IsActive {
		return true
	}
	switch ap.Action {
	case ActionAllow:
		return true
	case ActionBlock:
		return false
	case ActionTimeLimit:
		return ap.isWithinTimeWindowAt(now) && !ap.hasExceededDailyLimit(usageMs)
	case ActionSchedule:
		return ap.isWithinScheduleAt(now)
	default:
		return true
	}
}

// isWithinTimeWindowAt checks the optional allowed HH:MM window of a
// TIME_LIMIT policy. No window means always inside.
func (ap *AppPolicy) isWithinTimeWindowAt(now time.Time) bool {
	if ap.TimeLimit == nil {
		return true
	}
	if ap.TimeLimit.AllowedStartTime == "" || ap.TimeLimit.AllowedEndTime == "" {
		return true
	}
	return timeInRange(clockString(now), ap.TimeLimit.AllowedStartTime, ap.TimeLimit.AllowedEndTime)
}

// hasExceededDailyLimit compares usage against the daily budget.
func (ap *AppPolicy) hasExceededDailyLimit(usageMs int64) bool {
	if ap.TimeLimit == nil {
		return false
	}
	return usageMs >= ap.TimeLimit.DailyLimitMinutes*60*1000
}

// isWithinScheduleAt checks day and time-range membership of a SCHEDULE
// policy. No restriction means always inside.
func (ap *AppPolicy) isWithinScheduleAt(now time.Time) bool {
	if ap.Schedule == nil {
		return true
	}

	day := dayOf(now)
	for _, d := range ap.Schedule.BlockedDays {
		if d == day {
			return false
		}
	}

	if len(ap.Schedule.AllowedDays) > 0 {
		allowed := false
		for _, d := range ap.Schedule.AllowedDays {
			if d == day {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	if len(ap.Schedule.AllowedTimeRanges) == 0 {
		return true
	}
	clock := clockString(now)
	for _, r := range ap.Schedule.AllowedTimeRanges {
		if r.Contains(clock) {
			return true
		}
	}
	return false
}

// RemainingMinutes returns how many minutes of today's budget are left
// given the supplied usage. Policies without a time limit have no budget.
func (ap *AppPolicy) RemainingMinutes(usageMs int64) int64 {
	if ap.TimeLimit == nil {
		return 0
	}
	remaining := ap.TimeLimit.DailyLimitMinutes - usageMs/(60*1000)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ShouldWarn reports whether the time-remaining warning should fire:
// some budget left, but no more than the configured lead time.
func (ap *AppPolicy) ShouldWarn(usageMs int64) bool {
	if ap.TimeLimit == nil {
		return false
	}
	remaining := ap.RemainingMinutes(usageMs)
	return remaining > 0 && remaining <= ap.TimeLimit.WarningAtMinutes
}
