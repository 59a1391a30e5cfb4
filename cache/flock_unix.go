//go:build unix

package cache

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func tryLock(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == unix.EWOULDBLOCK {
		return errWouldBlock
	}
	if err != nil {
		return errors.Wrapf(err, "couldn't lock %s", f.Name())
	}
	return nil
}

func unlock(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return errors.Wrapf(err, "couldn't unlock %s", f.Name())
	}
	return nil
}
