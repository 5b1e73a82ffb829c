package usecase

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shieldtechhub/shieldagent/internal/domain"
	"github.com/shieldtechhub/shieldagent/internal/metrics"
	"github.com/shieldtechhub/shieldagent/internal/policy"
)

// PolicyRefresher pulls the guardian-authored policy from the remote store
// and swaps it into the local policy store when it changed. The raw document
// is kept for cheap change detection between pulls.
type PolicyRefresher struct {
	remote   domain.RemoteStore
	policies *policy.Store
	childID  string
	deviceID string
	logger   *zap.Logger

	lastDoc []byte
}

func NewPolicyRefresher(
	remote domain.RemoteStore,
	policies *policy.Store,
	childID, deviceID string,
	logger *zap.Logger,
) *PolicyRefresher {
	return &PolicyRefresher{
		remote:   remote,
		policies: policies,
		childID:  childID,
		deviceID: deviceID,
		logger:   logger,
	}
}

// Refresh fetches and applies the current remote policy. A device with no
// authored policy keeps its local one; a malformed document is rejected and
// the previous policy stays active.
func (r *PolicyRefresher) Refresh(ctx context.Context) error {
	doc, err := r.remote.FetchPolicy(ctx, r.childID, r.deviceID)
	if err != nil {
		metrics.PolicyRefreshes.WithLabelValues("error").Inc()
		return fmt.Errorf("fetch policy: %w", err)
	}
	if doc == nil {
		metrics.PolicyRefreshes.WithLabelValues("absent").Inc()
		r.logger.Debug("no remote policy authored yet")
		return nil
	}
	if bytes.Equal(doc, r.lastDoc) {
		metrics.PolicyRefreshes.WithLabelValues("unchanged").Inc()
		return nil
	}

	p, err := policy.DecodeDevicePolicy(doc)
	if err != nil {
		metrics.PolicyRefreshes.WithLabelValues("error").Inc()
		return fmt.Errorf("apply policy: %w", err)
	}

	r.policies.Replace(p)
	r.lastDoc = doc
	metrics.PolicyRefreshes.WithLabelValues("updated").Inc()
	r.logger.Info("policy updated",
		zap.String("policyId", p.ID),
		zap.Int("appPolicies", len(p.AppPolicies)))
	return nil
}
