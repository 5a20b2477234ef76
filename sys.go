package leafdb

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// flock acquires an advisory lock on a file descriptor.
func flock(file *os.File, readOnly bool) error {
	flag := unix.LOCK_SH
	if !readOnly {
		flag = unix.LOCK_EX
	}

	err := unix.Flock(int(file.Fd()), flag|unix.LOCK_NB)
	if err == nil {
		return nil
	} else if err == unix.EWOULDBLOCK || err == unix.EAGAIN { // linux & unix
		return ErrLockedByOther
	} else {
		return errors.Wrap(err, "flock failed: unknown error")
	}
}

// waitflock retries flock until it succeeds or the timeout passes.
// A zero timeout fails on the first conflict.
func waitflock(file *os.File, readOnly bool, timeout time.Duration) error {
	start := time.Now()
	for {
		err := flock(file, readOnly)
		if !errors.Is(err, ErrLockedByOther) {
			return err
		}
		if timeout <= 0 || time.Since(start) > timeout {
			return err
		}
		// Wait for a bit and try again.
		time.Sleep(50 * time.Millisecond)
	}
}

// funlock releases an advisory lock on a file descriptor.
func funlock(file *os.File) error {
	return unix.Flock(int(file.Fd()), unix.LOCK_UN)
}
