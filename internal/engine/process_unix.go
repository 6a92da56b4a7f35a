//go:build unix

package engine

import (
	"os/exec"
	"syscall"
)

// isolate starts cmd in its own process group so a terminal interrupt
// reaches ffmpeg only through Cancel.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
