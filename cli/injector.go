package cli

import (
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	taskerrors "github.com/twitter/taskstate/common/errors"
	"github.com/twitter/taskstate/common/os/exec"
	"github.com/twitter/taskstate/common/stats"
	"github.com/twitter/taskstate/config"
)

// ConfigInjector builds an Env from a YAML config file and flag overrides.
type ConfigInjector struct {
	Stat stats.StatsReceiver
	// Out replaces stdout when set.
	Out io.Writer
	// Exec replaces the real command runner when set.
	Exec exec.OsExec

	configPath string
	cacheDir   string
	longLived  bool
	logLevel   string
}

func (i *ConfigInjector) RegisterFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVar(&i.configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&i.cacheDir, "cache_dir", "", "store directory, overrides the config")
	rootCmd.PersistentFlags().BoolVar(&i.longLived, "long_lived", false, "keep caches in memory between batches")
	rootCmd.PersistentFlags().StringVar(&i.logLevel, "log_level", "info", "Log everything at this level and above (error|info|debug)")
}

func (i *ConfigInjector) Inject() (*Env, error) {
	level, err := log.ParseLevel(i.logLevel)
	if err != nil {
		return nil, taskerrors.NewError(err, taskerrors.ConfigFailureExitCode)
	}
	log.SetLevel(level)

	cfg, err := config.Load(i.configPath)
	if err != nil {
		return nil, taskerrors.NewError(err, taskerrors.ConfigFailureExitCode)
	}
	if i.cacheDir != "" {
		cfg.CacheDir = i.cacheDir
	}
	if i.longLived {
		cfg.LongLived = true
	}
	env, err := NewEnv(cfg, i.Stat)
	if err != nil {
		return nil, taskerrors.NewError(err, taskerrors.StoreOpenFailureExitCode)
	}
	if i.Out != nil {
		env.Out = i.Out
	}
	if i.Exec != nil {
		env.Exec = i.Exec
	}
	return env, nil
}
