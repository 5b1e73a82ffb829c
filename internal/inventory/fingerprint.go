// Package inventory derives change-detection fingerprints from the installed
// app list. Fingerprints are pure functions of the input: the same apps in
// any order produce the same hashes.
package inventory

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shieldtechhub/shieldagent/internal/domain"
)

// Fingerprint digests the app list. The full hash covers every field that
// matters for sync (version, enabled state, update time), the lightweight
// hash only identity (package and versionCode) so pure updates do not
// register as installs, and the category hash the distribution of apps
// across categories.
func Fingerprint(apps []domain.AppInfo, now time.Time) domain.InventoryFingerprint {
	user, system := 0, 0
	for _, a := range apps {
		if a.IsSystemApp {
			system++
		} else {
			user++
		}
	}

	return domain.InventoryFingerprint{
		FullHash:        fullHash(apps),
		LightweightHash: lightweightHash(apps),
		CategoryHash:    categoryHash(apps),
		AppCount:        len(apps),
		UserAppCount:    user,
		SystemAppCount:  system,
		Timestamp:       now.UnixMilli(),
	}
}

// DegradedFingerprint is the fallback when the app list could not be fully
// read. It hashes only the list size and the instant, which still changes
// on installs and uninstalls but not on updates.
func DegradedFingerprint(appCount int, now time.Time) domain.InventoryFingerprint {
	return domain.InventoryFingerprint{
		FullHash:  md5String(fmt.Sprintf("fallback:%d:%d", appCount, now.UnixMilli())),
		AppCount:  appCount,
		Timestamp: now.UnixMilli(),
	}
}

func fullHash(apps []domain.AppInfo) string {
	lines := make([]string, 0, len(apps))
	for _, a := range apps {
		lines = append(lines, fmt.Sprintf("%s:%s:%d:%t:%d",
			a.PackageName, a.Version, a.VersionCode, a.IsEnabled, a.LastUpdateTime))
	}
	sort.Strings(lines)
	return md5String(strings.Join(lines, "|"))
}

func lightweightHash(apps []domain.AppInfo) string {
	lines := make([]string, 0, len(apps))
	for _, a := range apps {
		lines = append(lines, fmt.Sprintf("%s:%d", a.PackageName, a.VersionCode))
	}
	sort.Strings(lines)
	return md5String(strings.Join(lines, "|"))
}

func categoryHash(apps []domain.AppInfo) string {
	counts := make(map[domain.AppCategory]int)
	for _, a := range apps {
		counts[a.Category]++
	}
	lines := make([]string, 0, len(counts))
	for c, n := range counts {
		lines = append(lines, fmt.Sprintf("%s:%d", c, n))
	}
	sort.Strings(lines)
	return md5String(strings.Join(lines, "|"))
}

func md5String(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
