// Package main is the CLI entry point for shieldagent.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shieldtechhub/shieldagent/internal/config"
	"github.com/shieldtechhub/shieldagent/internal/daemon"
	"github.com/shieldtechhub/shieldagent/internal/infra"
	"github.com/shieldtechhub/shieldagent/internal/policy"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "shieldagent",
	Short: "Parental-control agent - enforces app policies on this device",
	Long: `shieldagent runs on a managed device: it watches the foreground app,
blocks apps the guardian has restricted, tracks screen time and keeps
the guardian backend in sync with the installed-app inventory.`,
	Version: Version,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the agent in the background",
	RunE:  runStart,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent and sync status",
	RunE:  runStatus,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one inventory sync cycle now",
	RunE:  runSync,
}

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Fetch and display the active device policy",
	RunE:  runPolicy,
}

var violationsCmd = &cobra.Command{
	Use:   "violations",
	Short: "List recent policy violations",
	RunE:  runViolations,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

// Hidden daemon command - used for self-exec when starting in background.
var daemonCmd = &cobra.Command{
	Use:    "daemon",
	Hidden: true,
	RunE:   runDaemon,
}

var (
	configPath      string
	jsonOutput      bool
	violationsLimit int
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to config file")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	violationsCmd.Flags().IntVarP(&violationsLimit, "limit", "n", 20, "Maximum violations to show")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(violationsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(daemonCmd)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "shieldagent.toml"
	}
	return filepath.Join(home, ".shieldagent", "agent.toml")
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runState := infra.NewRunStateFile(cfg.DataDir, infra.NewProcessInventorySource().IsRunning)
	running, state, err := runState.IsAgentRunning()
	if err != nil {
		return err
	}
	if running {
		fmt.Printf("shieldagent is already running (pid %d)\n", state.PID)
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	child := exec.Command(exe, "daemon", "--config", configPath)
	child.Stdout = nil
	child.Stderr = nil
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := child.Start(); err != nil {
		return fmt.Errorf("failed to start agent: %w", err)
	}

	// Give the agent a moment to register.
	time.Sleep(500 * time.Millisecond)

	fmt.Println("=== shieldagent started ===")
	fmt.Printf("Device: %s\n", cfg.DeviceID)
	fmt.Printf("PID: %d\n", child.Process.Pid)
	fmt.Println("The agent is running in the background.")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runState := infra.NewRunStateFile(cfg.DataDir, infra.NewProcessInventorySource().IsRunning)
	running, state, err := runState.IsAgentRunning()
	if err != nil {
		return err
	}

	fmt.Println("=== shieldagent status ===")
	if !running {
		if state != nil {
			fmt.Printf("Status: NOT RUNNING (stale record for pid %d)\n", state.PID)
		} else {
			fmt.Println("Status: NOT RUNNING")
		}
		fmt.Println("\nRun 'shieldagent start' to enable protection.")
		return nil
	}

	fmt.Printf("Status: RUNNING (pid %d, version %s)\n", state.PID, state.Version)
	fmt.Printf("Started: %s\n", time.Unix(state.StartedAt, 0).Format(time.RFC3339))
	if state.LastHeartbeat > 0 {
		lastBeat := time.Unix(state.LastHeartbeat, 0)
		fmt.Printf("Last heartbeat: %s ago\n", time.Since(lastBeat).Round(time.Second))
	}
	printViolationCounts(cfg)
	return nil
}

// printViolationCounts is best effort: the encrypted log is readable from
// outside the daemon, but a locked or missing database should not break the
// status command.
func printViolationCounts(cfg config.Config) {
	key, err := infra.NewFileKeyProvider(cfg.DataDir).EnsureKey()
	if err != nil {
		return
	}
	log, err := infra.NewViolationLog(cfg.DataDir, key)
	if err != nil {
		return
	}
	defer log.Close()

	total, unnotified, err := log.Count()
	if err != nil {
		return
	}
	fmt.Printf("Violations: %d recorded", total)
	if unnotified > 0 {
		fmt.Printf(" (%d awaiting guardian notification)", unnotified)
	}
	fmt.Println()
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := createLogger(cfg, true)
	defer func() { _ = logger.Sync() }()

	agent, cleanup, err := daemon.Build(cfg, Version, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println("Running sync cycle...")
	if err := agent.Syncer().SyncNow(cmd.Context()); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	status := agent.Syncer().Status()
	fmt.Printf("Result: %s\n", status.StatusMessage())
	fmt.Printf("Apps: %d\n", status.TotalAppsCount)
	return nil
}

func runPolicy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	remote := infra.NewHTTPRemoteStore(cfg.Remote.BaseURL, cfg.Remote.APIKey)
	doc, err := remote.FetchPolicy(cmd.Context(), cfg.ChildID, cfg.DeviceID)
	if err != nil {
		return err
	}
	if doc == nil {
		fmt.Println("No policy authored for this device; local defaults apply.")
		return nil
	}

	p, err := policy.DecodeDevicePolicy(doc)
	if err != nil {
		return err
	}

	fmt.Printf("=== %s ===\n", p.Name)
	fmt.Printf("ID: %s\n", p.ID)
	fmt.Printf("Active: %t\n", p.IsActive)
	if p.BedtimeStart != "" {
		fmt.Printf("Bedtime: %s - %s\n", p.BedtimeStart, p.BedtimeEnd)
	}
	fmt.Printf("Screen time: %d min weekdays, %d min weekends\n",
		p.WeekdayScreenTime, p.WeekendScreenTime)
	if len(p.BlockedCategories) > 0 {
		fmt.Printf("Blocked categories: %v\n", p.BlockedCategories)
	}
	for _, ap := range p.AppPolicies {
		fmt.Printf("  [%s] %s", ap.Action, ap.PackageName)
		if !ap.IsActive {
			fmt.Print(" (inactive)")
		}
		fmt.Println()
	}
	return nil
}

func runViolations(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key, err := infra.NewFileKeyProvider(cfg.DataDir).EnsureKey()
	if err != nil {
		return err
	}
	log, err := infra.NewViolationLog(cfg.DataDir, key)
	if err != nil {
		return err
	}
	defer log.Close()

	violations, err := log.Recent(violationsLimit)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		fmt.Println("No violations recorded.")
		return nil
	}

	for _, v := range violations {
		ts := time.UnixMilli(v.Timestamp).Format("2006-01-02 15:04")
		fmt.Printf("%s  [%s]  %s\n", ts, v.Severity, v.DisplayMessage())
	}
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := createLogger(cfg, false)
	defer func() { _ = logger.Sync() }()

	agent, cleanup, err := daemon.Build(cfg, Version, logger)
	if err != nil {
		logger.Error("failed to build agent", zap.Error(err))
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	return agent.Run(ctx)
}

// createLogger builds a production zap logger writing to the agent log
// file, or to stderr for interactive commands.
func createLogger(cfg config.Config, interactive bool) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	if level, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	zapCfg.EncoderConfig.TimeKey = "time"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if !interactive {
		logFile := cfg.Log.File
		if logFile == "" {
			logFile = filepath.Join(cfg.DataDir, "agent.log")
		}
		_ = os.MkdirAll(filepath.Dir(logFile), 0700)
		zapCfg.OutputPaths = []string{logFile}
		zapCfg.ErrorOutputPaths = []string{logFile}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		out, _ := json.Marshal(map[string]string{
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
		})
		fmt.Println(string(out))
	} else {
		fmt.Printf("shieldagent %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
	}
}
