package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

const runStateFileName = "agent.state"

// RunState is the agent's liveness record: which PID is running and when it
// last heartbeated. The status and start commands read it to decide whether
// an agent is already up.
type RunState struct {
	PID           int    `json:"pid"`
	StartedAt     int64  `json:"startedAt"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	Version       string `json:"version"`
}

// RunStateFile persists the run state as JSON in the data directory.
// Writes are lock-guarded and atomic (write temp + rename) so a crashed
// writer never leaves a torn file.
type RunStateFile struct {
	path      string
	isRunning func(pid int) bool
}

func NewRunStateFile(dataDir string, isRunning func(pid int) bool) *RunStateFile {
	return &RunStateFile{
		path:      filepath.Join(dataDir, runStateFileName),
		isRunning: isRunning,
	}
}

// Register records the current process as the running agent.
func (r *RunStateFile) Register(version string) error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	now := time.Now().Unix()
	return r.atomicWrite(&RunState{
		PID:           os.Getpid(),
		StartedAt:     now,
		LastHeartbeat: now,
		Version:       version,
	})
}

// Heartbeat refreshes the liveness timestamp.
func (r *RunStateFile) Heartbeat() error {
	unlock, err := r.lock()
	if err != nil {
		return err
	}
	defer unlock()

	state, err := r.Read()
	if err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("agent not registered")
	}
	state.LastHeartbeat = time.Now().Unix()
	return r.atomicWrite(state)
}

// Read returns the recorded state, or nil when no agent has registered.
func (r *RunStateFile) Read() (*RunState, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var state RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// IsAgentRunning reports whether a registered agent process is still alive.
func (r *RunStateFile) IsAgentRunning() (bool, *RunState, error) {
	state, err := r.Read()
	if err != nil || state == nil {
		return false, nil, err
	}
	if r.isRunning == nil || !r.isRunning(state.PID) {
		return false, state, nil
	}
	return true, state, nil
}

// Clear removes the state file on clean shutdown.
func (r *RunStateFile) Clear() error {
	err := os.Remove(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (r *RunStateFile) lock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(r.path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	lockFile, err := os.OpenFile(r.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return func() {
		_ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)
		lockFile.Close()
	}, nil
}

// atomicWrite writes the state atomically (write temp + rename).
func (r *RunStateFile) atomicWrite(state *RunState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	tmpPath := fmt.Sprintf("%s.%d.tmp", r.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
