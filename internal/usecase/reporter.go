// Package usecase implements the agent's business logic on top of the
// domain interfaces: foreground enforcement, usage tracking, inventory sync
// and violation reporting.
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shieldtechhub/shieldagent/internal/domain"
	"github.com/shieldtechhub/shieldagent/internal/metrics"
)

// SeverityFor maps a violation type onto its default severity. Tampering
// with the agent itself is always critical; ordinary enforcement outcomes
// are medium.
func SeverityFor(t domain.ViolationType) domain.Severity {
	switch t {
	case domain.ViolationPolicyTampering,
		domain.ViolationUninstallAttempted,
		domain.ViolationDeviceAdminDisabled:
		return domain.SeverityCritical
	case domain.ViolationInstallationBlocked:
		return domain.SeverityHigh
	case domain.ViolationAppBlockedAttempted,
		domain.ViolationTimeLimitExceeded,
		domain.ViolationSchedule,
		domain.ViolationBedtime,
		domain.ViolationCategoryBlocked:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// ViolationReporter records violations durably, alerts the guardian and
// forwards records upstream. Only the local append can fail the operation;
// notification and upload are best effort.
type ViolationReporter struct {
	store    domain.ViolationStore
	notifier domain.GuardianNotifier
	remote   domain.RemoteStore
	childID  string
	deviceID string
	logger   *zap.Logger
}

func NewViolationReporter(
	store domain.ViolationStore,
	notifier domain.GuardianNotifier,
	remote domain.RemoteStore,
	childID, deviceID string,
	logger *zap.Logger,
) *ViolationReporter {
	return &ViolationReporter{
		store:    store,
		notifier: notifier,
		remote:   remote,
		childID:  childID,
		deviceID: deviceID,
		logger:   logger,
	}
}

// Report builds and processes a violation of the given type. Severity is
// derived from the type.
func (r *ViolationReporter) Report(ctx context.Context, packageName string, t domain.ViolationType, details string) (domain.PolicyViolation, error) {
	v := domain.PolicyViolation{
		ID:          uuid.NewString(),
		PackageName: packageName,
		Type:        t,
		Timestamp:   time.Now().UnixMilli(),
		Details:     details,
		DeviceID:    r.deviceID,
		UserID:      r.childID,
		Severity:    SeverityFor(t),
	}
	return v, r.Process(ctx, v)
}

// Process runs a fully built violation through the pipeline: durable local
// log first, then guardian notification, then remote delivery.
func (r *ViolationReporter) Process(ctx context.Context, v domain.PolicyViolation) error {
	if err := r.store.Append(v); err != nil {
		return fmt.Errorf("record violation %s: %w", v.Type, err)
	}
	metrics.Violations.WithLabelValues(string(v.Type)).Inc()

	if v.RequiresEmergencyResponse() {
		r.logger.Warn("emergency-grade violation recorded",
			zap.String("id", v.ID),
			zap.String("type", string(v.Type)),
			zap.String("package", v.PackageName))
	}

	if v.ShouldNotifyGuardian() {
		if err := r.notifier.NotifyGuardian(ctx, v); err != nil {
			r.logger.Warn("guardian notification failed",
				zap.String("id", v.ID), zap.Error(err))
		} else {
			if err := r.store.MarkNotified(v.ID); err != nil {
				r.logger.Warn("mark notified failed",
					zap.String("id", v.ID), zap.Error(err))
			}
		}
	}

	if err := r.remote.ReportViolation(ctx, r.childID, r.deviceID, v); err != nil {
		r.logger.Warn("remote violation delivery failed",
			zap.String("id", v.ID), zap.Error(err))
	}
	return nil
}
