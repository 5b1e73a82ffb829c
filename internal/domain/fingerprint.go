package domain

import "fmt"

// InventoryFingerprint is a deterministic digest of installed-app state used
// for change detection. It is derived on every sync attempt and compared
// against the fingerprint of the last successful upload; it is never persisted,
// so a process restart forces one full re-upload.
type InventoryFingerprint struct {
	FullHash        string `json:"fullHash"`
	LightweightHash string `json:"lightweightHash"`
	CategoryHash    string `json:"categoryHash"`
	AppCount        int    `json:"appCount"`
	UserAppCount    int    `json:"userAppCount"`
	SystemAppCount  int    `json:"systemAppCount"`
	Timestamp       int64  `json:"timestamp"`
}

// Matches reports whether two fingerprints describe identical inventories.
func (f InventoryFingerprint) Matches(other InventoryFingerprint) bool {
	return f.FullHash != "" && other.FullHash != "" && f.FullHash == other.FullHash
}

// HasMajorChanges reports installs/uninstalls: counts differ or the
// lightweight hash differs.
func (f InventoryFingerprint) HasMajorChanges(other InventoryFingerprint) bool {
	return f.AppCount != other.AppCount ||
		f.UserAppCount != other.UserAppCount ||
		f.LightweightHash != other.LightweightHash
}

// HasMinorChanges reports update-only changes: fingerprints differ but
// counts and lightweight hash are stable.
func (f InventoryFingerprint) HasMinorChanges(other InventoryFingerprint) bool {
	return !f.Matches(other) && !f.HasMajorChanges(other)
}

// HasCategoryChanges reports a shift in the category distribution.
func (f InventoryFingerprint) HasCategoryChanges(other InventoryFingerprint) bool {
	return f.CategoryHash != other.CategoryHash
}

// ChangeSummary describes the delta against a previous fingerprint for logs.
func (f InventoryFingerprint) ChangeSummary(other InventoryFingerprint) string {
	switch {
	case f.Matches(other):
		return "no changes"
	case f.HasMajorChanges(other):
		diff := f.AppCount - other.AppCount
		switch {
		case diff > 0:
			return fmt.Sprintf("%d apps installed", diff)
		case diff < 0:
			return fmt.Sprintf("%d apps uninstalled", -diff)
		default:
			return "apps changed"
		}
	default:
		return "app updates detected"
	}
}
