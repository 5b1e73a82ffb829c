package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBedtimeWindowWrapsMidnight(t *testing.T) {
	p := DefaultDevicePolicy("device-1")
	// Defaults: 21:00 to 07:00.

	assert.True(t, p.IsWithinBedtimeAt(monday(23, 30)))
	assert.True(t, p.IsWithinBedtimeAt(monday(2, 0)))
	assert.True(t, p.IsWithinBedtimeAt(monday(21, 0)))
	assert.True(t, p.IsWithinBedtimeAt(monday(7, 0)))
	assert.False(t, p.IsWithinBedtimeAt(monday(8, 0)))
	assert.False(t, p.IsWithinBedtimeAt(monday(20, 59)))
}

func TestBedtimeUnsetNeverMatches(t *testing.T) {
	p := DefaultDevicePolicy("device-1")
	p.BedtimeStart = ""
	p.BedtimeEnd = ""

	assert.False(t, p.IsWithinBedtimeAt(monday(23, 30)))
}

func TestDailyScreenTimeLimitByDayType(t *testing.T) {
	p := DefaultDevicePolicy("device-1")
	p.WeekdayScreenTime = 120
	p.WeekendScreenTime = 180

	assert.Equal(t, int64(120), p.DailyScreenTimeLimitAt(monday(12, 0)))
	assert.Equal(t, int64(180), p.DailyScreenTimeLimitAt(saturday(12, 0)))
}

func TestCategoryBlockingIsCaseInsensitive(t *testing.T) {
	p := DefaultDevicePolicy("device-1")
	p.BlockedCategories = []string{"SOCIAL", "GAMES"}

	assert.True(t, p.IsCategoryBlocked("SOCIAL"))
	assert.True(t, p.IsCategoryBlocked("social"))
	assert.True(t, p.IsCategoryBlocked("Games"))
	assert.False(t, p.IsCategoryBlocked("EDUCATION"))
}

func TestAppPolicyForLastDuplicateWins(t *testing.T) {
	p := DefaultDevicePolicy("device-1")
	p.AppPolicies = []AppPolicy{
		Allow("com.android.chrome"),
		Block("com.android.chrome", "second opinion"),
	}

	ap := p.AppPolicyFor("com.android.chrome")
	if assert.NotNil(t, ap) {
		assert.Equal(t, ActionBlock, ap.Action)
	}
}

func TestAppPolicyForMissingPackage(t *testing.T) {
	p := DefaultDevicePolicy("device-1")

	assert.Nil(t, p.AppPolicyFor("com.nonexistent"))
	assert.False(t, p.HasAppRestrictions("com.nonexistent"))
	assert.False(t, p.IsAppBlocked("com.nonexistent"))
}

func TestIsAppBlockedIgnoresInactiveOverride(t *testing.T) {
	p := DefaultDevicePolicy("device-1")
	blocked := Block("com.instagram.android", "")
	blocked.IsActive = false
	p.AppPolicies = []AppPolicy{blocked}

	assert.False(t, p.IsAppBlocked("com.instagram.android"))
}

func TestTimeRangeContains(t *testing.T) {
	r := TimeRange{StartTime: "09:00", EndTime: "17:00"}

	assert.True(t, r.Contains("09:00"))
	assert.True(t, r.Contains("17:00"))
	assert.True(t, r.Contains("12:30"))
	assert.False(t, r.Contains("08:59"))
	assert.False(t, r.Contains("17:01"))
}

func TestDefaultDevicePolicyShape(t *testing.T) {
	p := DefaultDevicePolicy("device-1")

	assert.Equal(t, "default_device-1", p.ID)
	assert.True(t, p.IsActive)
	assert.True(t, p.InstallationsBlocked)
	assert.Equal(t, []int{30, 15, 5}, p.WarningThresholds)
	assert.Equal(t, int64(60), p.BreakInterval)
	assert.Equal(t, int64(15), p.BreakDuration)
	assert.Equal(t, int64(5), p.GracePeriod)
}

func TestStrictDevicePolicyTightensDefaults(t *testing.T) {
	p := StrictDevicePolicy("device-1")

	assert.True(t, p.CameraDisabled)
	assert.Equal(t, "20:00", p.BedtimeStart)
	assert.Equal(t, int64(60), p.WeekdayScreenTime)
	assert.Contains(t, p.BlockedCategories, "ENTERTAINMENT")
	assert.NotEmpty(t, p.AppPolicies)
}

func TestClockStringOrdering(t *testing.T) {
	// HH:MM strings compare lexicographically in clock order.
	early := clockString(time.Date(2026, 8, 24, 8, 5, 0, 0, time.UTC))
	late := clockString(time.Date(2026, 8, 24, 12, 30, 0, 0, time.UTC))

	assert.Equal(t, "08:05", early)
	assert.True(t, early < late)
}
