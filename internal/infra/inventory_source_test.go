package infra

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shieldtechhub/shieldagent/internal/domain"
)

func TestListInstalledAppsScansProcessTable(t *testing.T) {
	src := NewProcessInventorySource()

	apps, err := src.ListInstalledApps(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, apps, "at least this test process is running")

	seen := make(map[string]bool)
	for i, a := range apps {
		assert.NotEmpty(t, a.PackageName)
		assert.False(t, seen[a.PackageName], "no duplicate entries")
		seen[a.PackageName] = true
		if i > 0 {
			assert.LessOrEqual(t, apps[i-1].PackageName, a.PackageName, "sorted output")
		}
	}
}

func TestIsRunningForOwnProcess(t *testing.T) {
	src := NewProcessInventorySource()

	assert.True(t, src.IsRunning(1), "pid 1 always exists")
	assert.False(t, src.IsRunning(1<<30))
}

func TestCategorizeExecutable(t *testing.T) {
	tests := []struct {
		name string
		want domain.AppCategory
	}{
		{"Discord", domain.CategoryCommunication},
		{"steam_osx", domain.CategoryGames},
		{"Spotify", domain.CategoryEntertainment},
		{"Google Chrome", domain.CategoryProductivity},
		{"randomd", domain.CategoryOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categorizeExecutable(tt.name), tt.name)
	}
}
