package infra

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/shieldtechhub/shieldagent/internal/domain"
)

// ProcessInventorySource implements domain.InventorySource by scanning the
// local process table with gopsutil. It is the desktop stand-in for the
// platform helper's package-manager feed: each distinct executable counts
// as one installed app.
type ProcessInventorySource struct{}

func NewProcessInventorySource() *ProcessInventorySource {
	return &ProcessInventorySource{}
}

// ListInstalledApps enumerates distinct running executables as app
// descriptors. Processes that exit mid-scan are skipped.
func (s *ProcessInventorySource) ListInstalledApps(ctx context.Context) ([]domain.AppInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]domain.AppInfo)
	for _, p := range procs {
		name, err := p.Name()
		if err != nil || name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}

		exe, _ := p.Exe()
		created, _ := p.CreateTime()
		seen[name] = domain.AppInfo{
			PackageName:    name,
			Name:           name,
			Version:        "unknown",
			Category:       categorizeExecutable(name),
			IsSystemApp:    isSystemExecutable(exe),
			IsEnabled:      true,
			InstallTime:    created,
			LastUpdateTime: created,
		}
	}

	apps := make([]domain.AppInfo, 0, len(seen))
	for _, a := range seen {
		apps = append(apps, a)
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].PackageName < apps[j].PackageName })
	return apps, nil
}

// IsRunning checks if a PID exists and is running.
func (s *ProcessInventorySource) IsRunning(pid int) bool {
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}

func isSystemExecutable(exe string) bool {
	for _, prefix := range []string{"/usr/libexec/", "/usr/sbin/", "/sbin/", "/System/"} {
		if strings.HasPrefix(exe, prefix) {
			return true
		}
	}
	return false
}

// categorizeExecutable maps well-known executable names onto app
// categories. Everything unrecognized is OTHER.
func categorizeExecutable(name string) domain.AppCategory {
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, "discord", "slack", "telegram", "signal", "whatsapp"):
		return domain.CategoryCommunication
	case containsAny(lower, "steam", "minecraft", "roblox", "epicgames"):
		return domain.CategoryGames
	case containsAny(lower, "spotify", "vlc", "netflix", "youtube"):
		return domain.CategoryEntertainment
	case containsAny(lower, "chrome", "firefox", "safari", "code", "terminal"):
		return domain.CategoryProductivity
	default:
		return domain.CategoryOther
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// scanTimeout bounds one inventory scan.
const scanTimeout = 30 * time.Second

// ListWithTimeout wraps ListInstalledApps with the standard scan timeout.
func (s *ProcessInventorySource) ListWithTimeout(ctx context.Context) ([]domain.AppInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()
	return s.ListInstalledApps(ctx)
}

var _ domain.InventorySource = (*ProcessInventorySource)(nil)
