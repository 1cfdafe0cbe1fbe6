//go:build !windows

package term

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

func (t *ANSI) pollByte(timeout time.Duration) (byte, bool, error) {
	fd := int(os.Stdin.Fd())
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if err == unix.EINTR {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}
	buffer := make([]byte, 1)
	read, err := unix.Read(fd, buffer)
	if err != nil || read == 0 {
		return 0, false, err
	}
	return buffer[0], true, nil
}
