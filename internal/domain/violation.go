package domain

// ViolationType classifies a detected policy breach.
type ViolationType string

const (
	ViolationAppBlockedAttempted ViolationType = "APP_BLOCKED_ATTEMPTED"
	ViolationTimeLimitExceeded   ViolationType = "TIME_LIMIT_EXCEEDED"
	ViolationInstallationBlocked ViolationType = "INSTALLATION_BLOCKED"
	ViolationPolicyTampering     ViolationType = "POLICY_TAMPERING"
	ViolationBedtime             ViolationType = "BEDTIME_VIOLATION"
	ViolationCategoryBlocked     ViolationType = "CATEGORY_BLOCKED"
	ViolationSchedule            ViolationType = "SCHEDULE_VIOLATION"
	ViolationUninstallAttempted  ViolationType = "UNINSTALL_ATTEMPTED"
	ViolationDeviceAdminDisabled ViolationType = "DEVICE_ADMIN_DISABLED"
	ViolationUnknown             ViolationType = "UNKNOWN"
)

// Severity ranks how strongly a violation must be escalated.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the wire name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// SeverityFromString parses a wire severity name, defaulting to MEDIUM.
func SeverityFromString(s string) Severity {
	switch s {
	case "LOW":
		return SeverityLow
	case "HIGH":
		return SeverityHigh
	case "CRITICAL":
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// PolicyViolation records one detected infraction. The resolved and
// guardian-notified flags are the only permitted mutations, applied
// copy-on-write via MarkResolved and MarkNotified.
type PolicyViolation struct {
	ID               string        `json:"id"`
	PackageName      string        `json:"packageName"`
	Type             ViolationType `json:"type"`
	Timestamp        int64         `json:"timestamp"`
	Details          string        `json:"details,omitempty"`
	DeviceID         string        `json:"deviceId"`
	UserID           string        `json:"userId,omitempty"`
	Severity         Severity      `json:"severity"`
	Resolved         bool          `json:"resolved"`
	GuardianNotified bool          `json:"guardianNotified"`
}

// ShouldNotifyGuardian reports whether the guardian still needs to hear
// about this violation.
func (v PolicyViolation) ShouldNotifyGuardian() bool {
	return v.Severity >= SeverityMedium && !v.GuardianNotified
}

// RequiresEmergencyResponse reports whether the violation demands an
// emergency escalation regardless of its stored severity.
func (v PolicyViolation) RequiresEmergencyResponse() bool {
	return v.Severity == SeverityCritical ||
		v.Type == ViolationPolicyTampering ||
		v.Type == ViolationDeviceAdminDisabled ||
		v.Type == ViolationUninstallAttempted
}

// MarkResolved returns a copy with the resolved flag set.
func (v PolicyViolation) MarkResolved() PolicyViolation {
	v.Resolved = true
	return v
}

// MarkNotified returns a copy with the guardian-notified flag set.
func (v PolicyViolation) MarkNotified() PolicyViolation {
	v.GuardianNotified = true
	return v
}

// DisplayMessage renders a short human-readable description.
func (v PolicyViolation) DisplayMessage() string {
	switch v.Type {
	case ViolationAppBlockedAttempted:
		return "attempted to open blocked app: " + v.PackageName
	case ViolationTimeLimitExceeded:
		return "time limit exceeded for app: " + v.PackageName
	case ViolationInstallationBlocked:
		return "blocked installation of app: " + v.PackageName
	case ViolationPolicyTampering:
		return "policy tampering detected: " + v.Details
	case ViolationBedtime:
		return "device used during bedtime hours"
	case ViolationCategoryBlocked:
		return "attempted to access blocked category app: " + v.PackageName
	case ViolationSchedule:
		return "app used outside allowed schedule: " + v.PackageName
	case ViolationUninstallAttempted:
		return "attempted to uninstall the agent"
	case ViolationDeviceAdminDisabled:
		return "device admin privileges were disabled"
	default:
		return "unknown policy violation: " + v.Details
	}
}
