package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shieldtechhub/shieldagent/internal/domain"
)

var fpNow = time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

func app(pkg, version string, versionCode int64) domain.AppInfo {
	return domain.AppInfo{
		PackageName:    pkg,
		Name:           pkg,
		Version:        version,
		VersionCode:    versionCode,
		Category:       domain.CategoryOther,
		IsEnabled:      true,
		LastUpdateTime: 1700000000000,
	}
}

func TestFingerprintIsOrderIndependent(t *testing.T) {
	a := app("com.a", "1.0", 1)
	b := app("com.b", "2.0", 2)
	c := app("com.c", "3.0", 3)

	f1 := Fingerprint([]domain.AppInfo{a, b, c}, fpNow)
	f2 := Fingerprint([]domain.AppInfo{c, a, b}, fpNow)

	assert.Equal(t, f1.FullHash, f2.FullHash)
	assert.Equal(t, f1.LightweightHash, f2.LightweightHash)
	assert.Equal(t, f1.CategoryHash, f2.CategoryHash)
	assert.True(t, f1.Matches(f2))
}

func TestFingerprintCounts(t *testing.T) {
	sys := app("com.android.settings", "1.0", 1)
	sys.IsSystemApp = true

	f := Fingerprint([]domain.AppInfo{sys, app("com.a", "1.0", 1)}, fpNow)

	assert.Equal(t, 2, f.AppCount)
	assert.Equal(t, 1, f.UserAppCount)
	assert.Equal(t, 1, f.SystemAppCount)
}

func TestUpdateIsMinorChange(t *testing.T) {
	before := []domain.AppInfo{app("com.a", "1.0", 1), app("com.b", "2.0", 2)}

	// Version string and update time change, versionCode does not, so the
	// lightweight hash is stable.
	updated := app("com.a", "1.1", 1)
	updated.LastUpdateTime = 1700000099000
	after := []domain.AppInfo{updated, app("com.b", "2.0", 2)}

	f1 := Fingerprint(before, fpNow)
	f2 := Fingerprint(after, fpNow)

	assert.False(t, f2.Matches(f1))
	assert.False(t, f2.HasMajorChanges(f1))
	assert.True(t, f2.HasMinorChanges(f1))
}

func TestInstallIsMajorChange(t *testing.T) {
	before := []domain.AppInfo{app("com.a", "1.0", 1)}
	after := []domain.AppInfo{app("com.a", "1.0", 1), app("com.b", "2.0", 2)}

	f1 := Fingerprint(before, fpNow)
	f2 := Fingerprint(after, fpNow)

	assert.True(t, f2.HasMajorChanges(f1))
	assert.False(t, f2.HasMinorChanges(f1))
	assert.Equal(t, "1 apps installed", f2.ChangeSummary(f1))
}

func TestUninstallIsMajorChange(t *testing.T) {
	before := []domain.AppInfo{app("com.a", "1.0", 1), app("com.b", "2.0", 2)}
	after := []domain.AppInfo{app("com.a", "1.0", 1)}

	f1 := Fingerprint(before, fpNow)
	f2 := Fingerprint(after, fpNow)

	assert.True(t, f2.HasMajorChanges(f1))
	assert.Equal(t, "1 apps uninstalled", f2.ChangeSummary(f1))
}

func TestDisablingAppChangesFullHashOnly(t *testing.T) {
	before := []domain.AppInfo{app("com.a", "1.0", 1)}
	disabled := app("com.a", "1.0", 1)
	disabled.IsEnabled = false

	f1 := Fingerprint(before, fpNow)
	f2 := Fingerprint([]domain.AppInfo{disabled}, fpNow)

	assert.NotEqual(t, f1.FullHash, f2.FullHash)
	assert.Equal(t, f1.LightweightHash, f2.LightweightHash)
}

func TestCategoryHashTracksDistribution(t *testing.T) {
	social := app("com.instagram.android", "1.0", 1)
	social.Category = domain.CategorySocial

	f1 := Fingerprint([]domain.AppInfo{app("com.a", "1.0", 1)}, fpNow)
	f2 := Fingerprint([]domain.AppInfo{social}, fpNow)

	assert.True(t, f2.HasCategoryChanges(f1))
}

func TestEmptyInventoryFingerprint(t *testing.T) {
	f := Fingerprint(nil, fpNow)

	assert.NotEmpty(t, f.FullHash)
	assert.Equal(t, 0, f.AppCount)
}

func TestDegradedFingerprintNeverMatchesItself(t *testing.T) {
	f1 := DegradedFingerprint(42, fpNow)
	f2 := DegradedFingerprint(42, fpNow.Add(time.Second))

	assert.False(t, f1.Matches(f2), "fallback hashes include the instant")
}

func TestMatchesRejectsEmptyHashes(t *testing.T) {
	var empty domain.InventoryFingerprint
	f := Fingerprint([]domain.AppInfo{app("com.a", "1.0", 1)}, fpNow)

	assert.False(t, f.Matches(empty))
	assert.False(t, empty.Matches(empty))
}
