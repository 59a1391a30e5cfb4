//go:build !unix

package cache

import (
	"os"
)

// No flock here. Only the in-process mutex serializes access.
func tryLock(f *os.File) error { return nil }

func unlock(f *os.File) error { return nil }
