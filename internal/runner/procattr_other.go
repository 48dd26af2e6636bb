//go:build !unix

package runner

import (
	"os"
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

func signalStatus(*os.ProcessState) int { return 1 }
