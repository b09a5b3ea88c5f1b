package updater

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Launch starts the install script without waiting for it, so the caller
// can exit and let the script replace its files.
func Launch(scriptPath string) error {
	var cmd *exec.Cmd

	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd.exe", "/C", "start", "", "/MIN", scriptPath) //nolint:gosec // Script path comes from configuration.
	} else {
		cmd = exec.Command("/bin/sh", scriptPath) //nolint:gosec // Script path comes from configuration.
	}

	cmd.Dir = filepath.Dir(scriptPath)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", scriptPath, err)
	}

	return cmd.Process.Release()
}
