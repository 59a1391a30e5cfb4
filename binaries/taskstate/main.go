package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/twitter/taskstate/cli"
	taskerrors "github.com/twitter/taskstate/common/errors"
	"github.com/twitter/taskstate/common/log/hooks"
	"github.com/twitter/taskstate/common/stats"
)

func main() {
	log.AddHook(hooks.NewContextHook())

	stat, _ := stats.NewCustomStatsReceiver(stats.NewFinagleStatsRegistry, 0)
	inj := &cli.ConfigInjector{Stat: stat}
	cmd := cli.MakeCLI(inj)
	err := cmd.Execute()
	log.Debugf("Stats: %s", stat.Render(false))
	if err != nil {
		log.Error(err)
		os.Exit(int(taskerrors.ExitCodeOf(err)))
	}
}
