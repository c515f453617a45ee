//go:build windows

package playback

import (
	"errors"
	"os"
)

var errPauseUnsupported = errors.New("pausing an external player is not supported on windows")

func suspend(*os.Process) error {
	return errPauseUnsupported
}

func resume(*os.Process) error {
	return errPauseUnsupported
}
