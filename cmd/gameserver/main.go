/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"log"
	"time"

	"github.com/seednode-labs/quiznight/internal/config"
	"github.com/seednode-labs/quiznight/internal/gameserver"
	"github.com/seednode-labs/quiznight/internal/obslog"
	"github.com/spf13/cobra"
)

func run(cfg *config.GameServer) error {
	logger := obslog.New(cfg.Verbose)

	ln := gameserver.NewListener(logger)

	stop := make(chan struct{})
	ln.StartSweeper(cfg.SweepInterval, stop)
	defer close(stop)

	return ln.ListenAndServe(cfg.Addr())
}

func main() {
	log.SetFlags(0)

	cfg := &config.GameServer{SweepInterval: 30 * time.Second}
	cobra.CheckErr(config.NewGameServerCommand(cfg, run).Execute())
}
