package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shieldtechhub/shieldagent/internal/config"
)

func testConfig(t *testing.T, backendURL string) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.ChildID = "child-1"
	cfg.DeviceID = "device-1"
	cfg.DataDir = t.TempDir()
	cfg.Remote.BaseURL = backendURL
	cfg.Helper.URL = "ws://127.0.0.1:1/events"
	cfg.Metrics.Enabled = false
	return cfg
}

func TestBuildAssemblesAgent(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	agent, cleanup, err := Build(testConfig(t, backend.URL), "test", zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, agent.Syncer())
	assert.NotNil(t, agent.Refresher())
	assert.NotNil(t, agent.RunState())
}

func TestBuildRejectsGuardianRole(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Role = config.RoleGuardian

	_, _, err := Build(cfg, "test", zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "child")
}

func TestRunRegistersAndClearsRunState(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusNotFound) // no policy authored
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	agent, cleanup, err := Build(testConfig(t, backend.URL), "test", zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	// The run state appears once the agent is up.
	require.Eventually(t, func() bool {
		state, err := agent.RunState().Read()
		return err == nil && state != nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not stop on cancel")
	}

	state, err := agent.RunState().Read()
	require.NoError(t, err)
	assert.Nil(t, state, "clean shutdown clears the run state")
}
