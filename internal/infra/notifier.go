package infra

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shieldtechhub/shieldagent/internal/domain"
)

// HTTPGuardianNotifier delivers violation alerts to the backend's
// notification endpoint, which fans out to the guardian's devices.
type HTTPGuardianNotifier struct {
	store   *HTTPRemoteStore
	childID string
}

func NewHTTPGuardianNotifier(store *HTTPRemoteStore, childID string) *HTTPGuardianNotifier {
	return &HTTPGuardianNotifier{store: store, childID: childID}
}

// NotifyGuardian posts an alert for the violation. Emergency-grade
// violations use the priority endpoint.
func (n *HTTPGuardianNotifier) NotifyGuardian(ctx context.Context, v domain.PolicyViolation) error {
	endpoint := "alerts"
	if v.RequiresEmergencyResponse() {
		endpoint = "alerts/emergency"
	}
	url := fmt.Sprintf("%s/children/%s/%s", n.store.baseURL, n.childID, endpoint)

	body := struct {
		ViolationID string `json:"violationId"`
		PackageName string `json:"packageName"`
		Type        string `json:"type"`
		Severity    string `json:"severity"`
		Message     string `json:"message"`
		Timestamp   int64  `json:"timestamp"`
	}{
		ViolationID: v.ID,
		PackageName: v.PackageName,
		Type:        string(v.Type),
		Severity:    v.Severity.String(),
		Message:     v.DisplayMessage(),
		Timestamp:   v.Timestamp,
	}
	return n.store.do(ctx, http.MethodPost, url, body, nil)
}

var _ domain.GuardianNotifier = (*HTTPGuardianNotifier)(nil)
