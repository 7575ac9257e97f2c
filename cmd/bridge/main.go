/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/seednode-labs/quiznight/internal/auth"
	"github.com/seednode-labs/quiznight/internal/bridge/httpapi"
	"github.com/seednode-labs/quiznight/internal/bridge/session"
	"github.com/seednode-labs/quiznight/internal/bridge/sse"
	"github.com/seednode-labs/quiznight/internal/config"
	"github.com/seednode-labs/quiznight/internal/obslog"
	"github.com/spf13/cobra"
)

const timeout = 10 * time.Second

func run(cfg *config.Bridge) error {
	logger := obslog.New(cfg.Verbose)

	store, err := auth.NewFileStore(cfg.UsersFile)
	if err != nil {
		return fmt.Errorf("loading user store: %w", err)
	}

	tokens := auth.NewTokenSigner(cfg.JWTSecret)
	fanout := sse.NewFanout()

	pool := session.NewPool(cfg.GameServerAddr, fanout.Publish)
	bridge := httpapi.New(pool, fanout, store, tokens, logger)

	mux := httprouter.New()
	bridge.Routes(mux)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(cfg.Port)),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
	}

	logger.Logf("START: bridge listening on %s, forwarding to game server at %s", srv.Addr, cfg.GameServerAddr)

	err = srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	log.SetFlags(0)

	cfg := &config.Bridge{}
	cobra.CheckErr(config.NewBridgeCommand(cfg, run).Execute())
}
