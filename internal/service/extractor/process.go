package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/app-updater/internal/logger"
)

// pollInterval is how often the process list is refreshed while waiting.
const pollInterval = 250 * time.Millisecond

// ErrProcessStillRunning is returned when the process outlives the timeout.
var ErrProcessStillRunning = errors.New("process is still running")

// WaitForExit polls the process list until no process other than this one
// runs the named executable. When the timeout expires the processes are
// killed if forceKill is set, otherwise ErrProcessStillRunning is returned.
func WaitForExit(ctx context.Context, name string, timeout time.Duration, forceKill bool) error {
	name = filepath.Base(name)
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		pids, err := findProcesses(name)
		if err != nil {
			return err
		}

		if len(pids) == 0 {
			return nil
		}

		if time.Now().After(deadline) {
			if !forceKill {
				return ErrProcessStillRunning
			}

			logger.WarnKV(ctx, "Terminating process forcibly", "process", name, "pids", pids)

			return killProcesses(pids)
		}

		logger.DebugKV(ctx, "Waiting for process to exit", "process", name, "pids", pids)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// findProcesses returns the PIDs running the executable name, skipping this process.
func findProcesses(name string) ([]int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return nil, err
	}

	thisProcessID := os.Getpid()

	var pids []int

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if sameExecutable(process.Executable(), name) {
			pids = append(pids, process.Pid())
		}
	}

	return pids, nil
}

// sameExecutable compares names case-insensitively and ignores a ".exe" suffix,
// so "app" matches "App.exe" on Windows.
func sameExecutable(a, b string) bool {
	trim := func(s string) string {
		return strings.TrimSuffix(strings.ToLower(s), ".exe")
	}

	return trim(a) == trim(b)
}

func killProcesses(pids []int) error {
	for _, pid := range pids {
		runningProcess, err := os.FindProcess(pid)
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}
