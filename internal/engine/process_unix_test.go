//go:build unix

package engine

import (
	"os/exec"
	"testing"
)

func TestIsolateStartsNewProcessGroup(t *testing.T) {
	cmd := exec.Command("ffmpeg")
	isolate(cmd)
	if cmd.SysProcAttr == nil || !cmd.SysProcAttr.Setpgid {
		t.Errorf("SysProcAttr = %+v, want Setpgid", cmd.SysProcAttr)
	}
}
