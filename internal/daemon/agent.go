// Package daemon wires the agent's components together and runs them.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shieldtechhub/shieldagent/internal/config"
	"github.com/shieldtechhub/shieldagent/internal/infra"
	"github.com/shieldtechhub/shieldagent/internal/policy"
	"github.com/shieldtechhub/shieldagent/internal/usecase"
)

const heartbeatInterval = 30 * time.Second

// Agent owns the long-running pieces: the helper link feeding the enforcer,
// the periodic sync and policy-refresh loops, the heartbeat and the metrics
// endpoint. Run blocks until the context is cancelled.
type Agent struct {
	cfg      config.Config
	version  string
	enforcer *usecase.Enforcer
	syncer   *usecase.Syncer
	refresh  *usecase.PolicyRefresher
	helper   *infra.HelperLink
	runState *infra.RunStateFile
	logger   *zap.Logger
}

// Build assembles a complete agent from configuration. Only a child-role
// config gets an agent; a guardian device must not enforce policy.
func Build(cfg config.Config, version string, logger *zap.Logger) (*Agent, func(), error) {
	if !cfg.IsChildDevice() {
		return nil, nil, fmt.Errorf("agent requires the %q role, config declares %q",
			config.RoleChild, cfg.Role)
	}

	keys := infra.NewFileKeyProvider(cfg.DataDir)
	key, err := keys.EnsureKey()
	if err != nil {
		return nil, nil, err
	}
	violations, err := infra.NewViolationLog(cfg.DataDir, key)
	if err != nil {
		return nil, nil, err
	}

	remote := infra.NewHTTPRemoteStore(cfg.Remote.BaseURL, cfg.Remote.APIKey)
	notifier := infra.NewHTTPGuardianNotifier(remote, cfg.ChildID)
	reporter := usecase.NewViolationReporter(violations, notifier, remote,
		cfg.ChildID, cfg.DeviceID, logger)

	policies := policy.NewStore(policy.DefaultDevicePolicy(cfg.DeviceID))
	usage := usecase.NewUsageTracker()
	helper := infra.NewHelperLink(cfg.Helper.URL, logger)
	enforcer := usecase.NewEnforcer(usecase.DefaultEnforcerConfig(),
		policies, usage, helper, reporter, logger)

	source := infra.NewProcessInventorySource()
	syncCfg := usecase.DefaultSyncerConfig(cfg.ChildID, cfg.DeviceID)
	syncCfg.MaxRetries = cfg.Sync.MaxRetries
	syncCfg.RetryDelay = cfg.Sync.RetryDelay.Duration
	syncer := usecase.NewSyncer(syncCfg, source, usage, remote,
		infra.NewDialNetworkChecker(cfg.Remote.BaseURL), logger)
	syncer.OnInventory = enforcer.SetCategories

	refresh := usecase.NewPolicyRefresher(remote, policies,
		cfg.ChildID, cfg.DeviceID, logger)

	agent := &Agent{
		cfg:      cfg,
		version:  version,
		enforcer: enforcer,
		syncer:   syncer,
		refresh:  refresh,
		helper:   helper,
		runState: infra.NewRunStateFile(cfg.DataDir, source.IsRunning),
		logger:   logger,
	}
	cleanup := func() { violations.Close() }
	return agent, cleanup, nil
}

// RunState exposes the liveness file for the status command.
func (a *Agent) RunState() *infra.RunStateFile { return a.runState }

// Syncer exposes the sync orchestrator for the one-shot sync command.
func (a *Agent) Syncer() *usecase.Syncer { return a.syncer }

// Refresher exposes the policy refresher for the policy command.
func (a *Agent) Refresher() *usecase.PolicyRefresher { return a.refresh }

// Run starts all loops and blocks until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.runState.Register(a.version); err != nil {
		a.logger.Error("failed to register agent", zap.Error(err))
		return err
	}
	defer func() {
		if err := a.runState.Clear(); err != nil {
			a.logger.Warn("failed to clear run state", zap.Error(err))
		}
	}()

	a.logger.Info("agent started",
		zap.String("deviceId", a.cfg.DeviceID),
		zap.String("version", a.version))

	a.helper.OnAppChanged = func() { a.syncer.OnAppChanged(ctx) }
	go a.helper.Run(ctx)
	go a.enforcer.Run(ctx, a.helper)

	if a.cfg.Metrics.Enabled {
		go a.serveMetrics(ctx)
	}

	// First sync and policy pull right away, then on the tickers.
	a.refreshPolicy(ctx)
	a.syncOnce(ctx)

	syncTicker := time.NewTicker(a.cfg.Sync.Interval.Duration)
	policyTicker := time.NewTicker(a.cfg.Sync.PolicyInterval.Duration)
	heartbeatTicker := time.NewTicker(heartbeatInterval)
	defer func() {
		syncTicker.Stop()
		policyTicker.Stop()
		heartbeatTicker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("agent stopping")
			return nil
		case <-syncTicker.C:
			a.syncOnce(ctx)
		case <-policyTicker.C:
			a.refreshPolicy(ctx)
		case <-heartbeatTicker.C:
			if err := a.runState.Heartbeat(); err != nil {
				a.logger.Warn("heartbeat failed", zap.Error(err))
			}
		}
	}
}

func (a *Agent) syncOnce(ctx context.Context) {
	if err := a.syncer.SyncNow(ctx); err != nil {
		a.logger.Warn("sync cycle failed", zap.Error(err))
	}
	if a.syncer.IsStale() {
		a.logger.Warn("sync status is stale",
			zap.String("status", a.syncer.Status().StatusMessage()))
	}
}

func (a *Agent) refreshPolicy(ctx context.Context) {
	if err := a.refresh.Refresh(ctx); err != nil {
		a.logger.Warn("policy refresh failed", zap.Error(err))
	}
}

func (a *Agent) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: a.cfg.Metrics.ListenAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.logger.Info("metrics listening", zap.String("addr", a.cfg.Metrics.ListenAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error("metrics server failed", zap.Error(err))
	}
}
