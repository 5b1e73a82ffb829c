package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shieldtechhub/shieldagent/internal/domain"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPRemoteStore talks to the guardian backend over JSON/HTTP. Device
// documents live under /children/{childId}/devices/{deviceId}; writes
// replace the document wholesale (last write wins).
type HTTPRemoteStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPRemoteStore(baseURL, apiKey string) *HTTPRemoteStore {
	return &HTTPRemoteStore{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// UploadSnapshot replaces the device document.
func (s *HTTPRemoteStore) UploadSnapshot(ctx context.Context, childID, deviceID string, snap domain.DeviceSnapshot) error {
	url := fmt.Sprintf("%s/children/%s/devices/%s/snapshot", s.baseURL, childID, deviceID)
	return s.do(ctx, http.MethodPut, url, snap, nil)
}

// FetchPolicy returns the guardian-authored policy document, or nil when
// none has been authored yet.
func (s *HTTPRemoteStore) FetchPolicy(ctx context.Context, childID, deviceID string) ([]byte, error) {
	url := fmt.Sprintf("%s/children/%s/devices/%s/policy", s.baseURL, childID, deviceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch policy: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, httpError(resp)
	}
}

// ReportViolation appends a violation record upstream.
func (s *HTTPRemoteStore) ReportViolation(ctx context.Context, childID, deviceID string, v domain.PolicyViolation) error {
	url := fmt.Sprintf("%s/children/%s/devices/%s/violations", s.baseURL, childID, deviceID)
	return s.do(ctx, http.MethodPost, url, v, nil)
}

func (s *HTTPRemoteStore) do(ctx context.Context, method, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (s *HTTPRemoteStore) setHeaders(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

func httpError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(body) > 0 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}

var _ domain.RemoteStore = (*HTTPRemoteStore)(nil)
