// Package hooks holds logrus hooks installed by the taskstate binaries.
package hooks

import (
	"runtime/debug"
	"strings"

	log "github.com/sirupsen/logrus"
)

type contextHook struct {
}

// NewContextHook returns a hook that tags every entry with the file:line of
// the logging callsite, trimmed to the path inside this module.
func NewContextHook() contextHook {
	return contextHook{}
}

func (hook contextHook) Levels() []log.Level {
	return log.AllLevels
}

func (hook contextHook) Fire(entry *log.Entry) error {
	stack := debug.Stack()
	lines := strings.Split(string(stack), "\n")
	foundLoggerBlock := false
	for i := 0; i < len(lines); i++ {
		if strings.Contains(lines[i], "context_hook.go:") {
			foundLoggerBlock = true
			continue
		}
		if !foundLoggerBlock || !strings.HasPrefix(lines[i], "\t") {
			continue
		}
		// Skip frames inside logrus itself.
		if strings.Contains(lines[i], "sirupsen/logrus") {
			continue
		}
		ctx := strings.Split(lines[i], "taskstate/")
		entry.Data["file:line"] = strings.TrimSpace(stripOffset(ctx[len(ctx)-1]))
		break
	}
	return nil
}

// Drops the " +0x1f" program counter offset from a stack frame location.
func stripOffset(loc string) string {
	if idx := strings.LastIndex(loc, " +0x"); idx >= 0 {
		return loc[:idx]
	}
	return loc
}
