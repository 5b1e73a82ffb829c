package usecase

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/shieldtechhub/shieldagent/internal/domain"
	"github.com/shieldtechhub/shieldagent/internal/metrics"
	"github.com/shieldtechhub/shieldagent/internal/policy"
)

// minSessionDuration filters out focus flicker: foreground stints shorter
// than this are not real usage and are dropped.
const minSessionDuration = time.Second

// systemPrefixes are never enforced or tracked. The launcher and system UI
// take the foreground between every app switch.
var systemPrefixes = []string{
	"com.android.systemui",
	"com.android.launcher",
	"com.google.android.apps.nexuslauncher",
	"android",
	"com.shieldtechhub.shieldagent",
}

// EnforcerConfig carries the enforcer's tunables.
type EnforcerConfig struct {
	// BedtimeExempt lists packages usable during bedtime, such as the
	// dialer for emergencies.
	BedtimeExempt []string
}

func DefaultEnforcerConfig() EnforcerConfig {
	return EnforcerConfig{
		BedtimeExempt: []string{"com.android.dialer", "com.android.emergency"},
	}
}

// UsageService is the enforcer's view of usage tracking: it reads totals
// for limit checks and writes closed sessions back.
type UsageService interface {
	domain.UsageSource
	RecordSession(s domain.AppSession, name string, category domain.AppCategory)
}

// decision is the outcome of evaluating one foreground app.
type decision struct {
	allowed bool
	trigger string // block, category, bedtime, time_limit, schedule
	vtype   domain.ViolationType
	reason  string
}

var allowDecision = decision{allowed: true}

// Enforcer is the foreground enforcement state machine. It watches the
// event stream, maintains the current app session, evaluates the active
// policy on every app change and performs the block action when an app is
// not allowed.
type Enforcer struct {
	cfg      EnforcerConfig
	policies *policy.Store
	usage    UsageService
	surface  domain.BlockSurface
	reporter *ViolationReporter
	logger   *zap.Logger

	now func() time.Time

	mu         sync.Mutex
	currentPkg string
	sessionAt  time.Time

	categories atomic.Pointer[map[string]domain.AppCategory]

	blockingInProgress atomic.Bool
}

func NewEnforcer(
	cfg EnforcerConfig,
	policies *policy.Store,
	usage UsageService,
	surface domain.BlockSurface,
	reporter *ViolationReporter,
	logger *zap.Logger,
) *Enforcer {
	return &Enforcer{
		cfg:      cfg,
		policies: policies,
		usage:    usage,
		surface:  surface,
		reporter: reporter,
		logger:   logger,
		now:      time.Now,
	}
}

// SetCategories installs the package-to-category index from the latest
// inventory scan. Category enforcement is skipped for unknown packages.
func (e *Enforcer) SetCategories(apps []domain.AppInfo) {
	idx := make(map[string]domain.AppCategory, len(apps))
	for _, a := range apps {
		idx[a.PackageName] = a.Category
	}
	e.categories.Store(&idx)
}

// Run consumes the event source until the context is cancelled or the
// source closes its channel.
func (e *Enforcer) Run(ctx context.Context, events domain.EventSource) {
	e.logger.Info("enforcer started")
	for {
		select {
		case <-ctx.Done():
			e.CloseSession()
			return
		case ev, ok := <-events.Events():
			if !ok {
				e.CloseSession()
				return
			}
			e.HandleEvent(ctx, ev)
		}
	}
}

// HandleEvent processes one foreground event.
func (e *Enforcer) HandleEvent(ctx context.Context, ev domain.ForegroundEvent) {
	if ev.PackageName == "" || isSystemPackage(ev.PackageName) {
		return
	}
	metrics.ForegroundEvents.WithLabelValues(string(ev.Kind)).Inc()

	switch ev.Kind {
	case domain.EventWindowChanged:
		e.onWindowChanged(ctx, ev)
	case domain.EventContentChanged:
		// The app is still in front and redrawing. Re-evaluate without a
		// session boundary so a limit that expired mid-session still bites.
		e.mu.Lock()
		sameApp := ev.PackageName == e.currentPkg
		e.mu.Unlock()
		if sameApp {
			e.evaluateAndEnforce(ctx, ev.PackageName, ev.Timestamp)
		}
	}
}

func (e *Enforcer) onWindowChanged(ctx context.Context, ev domain.ForegroundEvent) {
	e.mu.Lock()
	if ev.PackageName == e.currentPkg {
		e.mu.Unlock()
		return
	}
	e.closeSessionLocked(ev.Timestamp)
	e.currentPkg = ev.PackageName
	e.sessionAt = ev.Timestamp
	e.mu.Unlock()

	e.evaluateAndEnforce(ctx, ev.PackageName, ev.Timestamp)
}

// CloseSession ends the current session, if any, as of now.
func (e *Enforcer) CloseSession() {
	e.mu.Lock()
	e.closeSessionLocked(e.now())
	e.currentPkg = ""
	e.mu.Unlock()
}

func (e *Enforcer) closeSessionLocked(endedAt time.Time) {
	if e.currentPkg == "" {
		return
	}
	dur := endedAt.Sub(e.sessionAt)
	if dur < minSessionDuration {
		return
	}
	pkg := e.currentPkg
	e.usage.RecordSession(domain.AppSession{
		PackageName: pkg,
		StartedAt:   e.sessionAt,
		EndedAt:     endedAt,
		Duration:    dur,
	}, pkg, e.categoryOf(pkg))
}

func (e *Enforcer) evaluateAndEnforce(ctx context.Context, pkg string, now time.Time) {
	d := e.evaluate(pkg, now)
	if d.allowed {
		return
	}
	e.block(ctx, pkg, d)
}

// evaluate decides whether the package may stay in the foreground. Any
// panic during evaluation resolves to allowed: a broken policy must never
// lock the child out of the device.
func (e *Enforcer) evaluate(pkg string, now time.Time) (d decision) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("policy evaluation panicked, allowing app",
				zap.String("package", pkg), zap.Any("panic", r))
			d = allowDecision
		}
	}()

	p := e.policies.Current()
	if p == nil || !p.IsActive {
		return allowDecision
	}

	ap := p.AppPolicyFor(pkg)

	// An explicit active ALLOW override wins over every device-wide rule.
	if ap != nil && ap.IsActive && ap.Action == policy.ActionAllow {
		return allowDecision
	}

	if ap != nil && ap.IsActive && ap.Action == policy.ActionBlock {
		return decision{
			trigger: "block",
			vtype:   domain.ViolationAppBlockedAttempted,
			reason:  blockReason(ap.Reason, "This app is blocked"),
		}
	}

	if cat, ok := e.lookupCategory(pkg); ok && p.IsCategoryBlocked(string(cat)) {
		return decision{
			trigger: "category",
			vtype:   domain.ViolationCategoryBlocked,
			reason:  "This app category is blocked",
		}
	}

	if p.IsWithinBedtimeAt(now) && !e.isBedtimeExempt(pkg) {
		return decision{
			trigger: "bedtime",
			vtype:   domain.ViolationBedtime,
			reason:  "It's bedtime",
		}
	}

	if ap != nil && ap.IsActive {
		usageMs := e.usageOrZero(pkg)
		if !ap.IsCurrentlyAllowedAt(now, usageMs) {
			switch ap.Action {
			case policy.ActionTimeLimit:
				return decision{
					trigger: "time_limit",
					vtype:   domain.ViolationTimeLimitExceeded,
					reason:  blockReason(ap.Reason, "Time limit reached"),
				}
			case policy.ActionSchedule:
				return decision{
					trigger: "schedule",
					vtype:   domain.ViolationSchedule,
					reason:  blockReason(ap.Reason, "Not allowed at this time"),
				}
			}
		}
	}
	return allowDecision
}

// usageOrZero is the fail-open usage lookup: missing data never blocks.
func (e *Enforcer) usageOrZero(pkg string) int64 {
	ms, err := e.usage.CurrentUsageMs(pkg)
	if err != nil {
		e.logger.Warn("usage lookup failed, treating as zero",
			zap.String("package", pkg), zap.Error(err))
		return 0
	}
	return ms
}

// block performs the visible block action exactly once per violation: a
// second trigger while one is in flight is dropped.
func (e *Enforcer) block(ctx context.Context, pkg string, d decision) {
	if !e.blockingInProgress.CompareAndSwap(false, true) {
		return
	}
	defer e.blockingInProgress.Store(false)

	e.logger.Info("blocking app",
		zap.String("package", pkg),
		zap.String("trigger", d.trigger))
	metrics.BlockActions.WithLabelValues(d.trigger).Inc()

	if err := e.surface.ShowBlock(pkg, d.reason); err != nil {
		e.logger.Warn("block overlay failed, navigating home",
			zap.String("package", pkg), zap.Error(err))
		if err := e.surface.NavigateHome(); err != nil {
			e.logger.Error("navigate home failed", zap.Error(err))
		}
	}

	if _, err := e.reporter.Report(ctx, pkg, d.vtype, d.reason); err != nil {
		e.logger.Error("violation report failed",
			zap.String("package", pkg), zap.Error(err))
	}
}

func (e *Enforcer) categoryOf(pkg string) domain.AppCategory {
	if cat, ok := e.lookupCategory(pkg); ok {
		return cat
	}
	return domain.CategoryOther
}

func (e *Enforcer) lookupCategory(pkg string) (domain.AppCategory, bool) {
	idx := e.categories.Load()
	if idx == nil {
		return "", false
	}
	cat, ok := (*idx)[pkg]
	return cat, ok
}

func (e *Enforcer) isBedtimeExempt(pkg string) bool {
	for _, p := range e.cfg.BedtimeExempt {
		if pkg == p {
			return true
		}
	}
	return false
}

func isSystemPackage(pkg string) bool {
	for _, prefix := range systemPrefixes {
		if pkg == prefix || strings.HasPrefix(pkg, prefix+".") {
			return true
		}
	}
	return false
}

func blockReason(fromPolicy, fallback string) string {
	if fromPolicy != "" {
		return fromPolicy
	}
	return fallback
}
