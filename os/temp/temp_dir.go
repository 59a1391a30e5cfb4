// Package temp makes scratch directory trees for tests.
package temp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TempDir is a scratch directory, possibly nested in another one.
type TempDir struct {
	Dir string
}

// TempDirDefault creates a TempDir under os.TempDir.
func TempDirDefault() (*TempDir, error) {
	dir, err := os.MkdirTemp("", "taskstate-tmp-")
	if err != nil {
		return nil, fmt.Errorf("couldn't create temp dir: %v", err)
	}
	return &TempDir{Dir: dir}, nil
}

// FixedDir creates, if needed, the direct child name of d.
func (d *TempDir) FixedDir(name string) (*TempDir, error) {
	if name == "" || strings.ContainsRune(name, os.PathSeparator) {
		return nil, fmt.Errorf("invalid fixed dir name %q", name)
	}
	p := filepath.Join(d.Dir, name)
	if err := os.MkdirAll(p, 0777); err != nil {
		return nil, err
	}
	return &TempDir{Dir: p}, nil
}

// WriteFile writes contents to rel under d, creating parent directories,
// and returns the absolute path.
func (d *TempDir) WriteFile(rel string, contents string) (string, error) {
	p := d.Path(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0777); err != nil {
		return "", err
	}
	if err := os.WriteFile(p, []byte(contents), 0666); err != nil {
		return "", err
	}
	return p, nil
}

// Path joins rel onto d without touching the filesystem.
func (d *TempDir) Path(rel string) string {
	return filepath.Join(d.Dir, rel)
}

func (d *TempDir) RemoveAll() error {
	return os.RemoveAll(d.Dir)
}
