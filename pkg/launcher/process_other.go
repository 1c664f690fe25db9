//go:build !unix

package launcher

import "os/exec"

func setProcessGroup(*exec.Cmd) {}
