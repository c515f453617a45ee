//go:build !windows

package playback

import (
	"os"
	"syscall"
)

func suspend(p *os.Process) error {
	return p.Signal(syscall.SIGSTOP)
}

func resume(p *os.Process) error {
	return p.Signal(syscall.SIGCONT)
}
