package policy

import (
	"encoding/json"
	"fmt"
)

// Wire shapes for decoding. Booleans that default to true and lists with
// non-empty defaults are shadowed with pointers so an absent field can be
// told apart from an explicit false/empty one.
type devicePolicyJSON struct {
	DevicePolicy
	IsActive          *bool           `json:"isActive"`
	BreakReminders    *bool           `json:"breakReminders"`
	UsageWarnings     *bool           `json:"usageWarnings"`
	WarningThresholds []int           `json:"warningThresholds"`
	AppPolicies       []appPolicyJSON `json:"appPolicies"`
}

type appPolicyJSON struct {
	AppPolicy
	IsActive *bool `json:"isActive"`
}

// EncodeDevicePolicy serializes a policy for storage or upload.
func EncodeDevicePolicy(p *DevicePolicy) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode device policy %q: %w", p.ID, err)
	}
	return data, nil
}

// DecodeDevicePolicy parses a policy document and fills in the defaults for
// every optional field the document omits, so a policy authored against an
// older schema still evaluates the same way a freshly built one does.
func DecodeDevicePolicy(data []byte) (*DevicePolicy, error) {
	var raw devicePolicyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode device policy: %w", err)
	}

	p := raw.DevicePolicy
	p.IsActive = boolOr(raw.IsActive, true)
	p.BreakReminders = boolOr(raw.BreakReminders, true)
	p.UsageWarnings = boolOr(raw.UsageWarnings, true)
	if raw.WarningThresholds != nil {
		p.WarningThresholds = raw.WarningThresholds
	} else {
		p.WarningThresholds = DefaultWarningThresholds()
	}
	if p.BreakInterval == 0 {
		p.BreakInterval = defaultBreakInterval
	}
	if p.BreakDuration == 0 {
		p.BreakDuration = defaultBreakDuration
	}
	if p.GracePeriod == 0 {
		p.GracePeriod = defaultGracePeriod
	}

	p.AppPolicies = make([]AppPolicy, 0, len(raw.AppPolicies))
	for _, rap := range raw.AppPolicies {
		ap := rap.AppPolicy
		ap.IsActive = boolOr(rap.IsActive, true)
		normalizeTimeLimit(ap.TimeLimit)
		p.AppPolicies = append(p.AppPolicies, ap)
	}
	return &p, nil
}

// DecodeAppPolicy parses a single per-app override with the same defaulting
// rules DecodeDevicePolicy applies to embedded ones.
func DecodeAppPolicy(data []byte) (*AppPolicy, error) {
	var raw appPolicyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode app policy: %w", err)
	}
	ap := raw.AppPolicy
	ap.IsActive = boolOr(raw.IsActive, true)
	normalizeTimeLimit(ap.TimeLimit)
	return &ap, nil
}

func normalizeTimeLimit(tl *TimeLimit) {
	if tl == nil {
		return
	}
	if tl.WeeklyLimitMinutes == 0 {
		tl.WeeklyLimitMinutes = tl.DailyLimitMinutes * 7
	}
	if tl.WarningAtMinutes == 0 {
		tl.WarningAtMinutes = defaultWarningAtMinutes
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
