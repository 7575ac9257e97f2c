// Package config provides the cobra/viper-backed Config structs for
// both binaries: one Config struct per binary, flags bound through
// pflag, every flag also readable from a QUIZNIGHT_-prefixed (game
// server) or QUIZNIGHT_BRIDGE_-prefixed (bridge) env var, with a few
// flags additionally bound to an unprefixed literal name for
// compatibility with existing deployments.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// GameServer holds the authoritative TCP game server's configuration:
// bind host/port, verbosity, and the ended-game sweep interval.
type GameServer struct {
	Host          string
	Port          int
	Verbose       bool
	SweepInterval time.Duration
}

func (c *GameServer) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	return nil
}

func (c *GameServer) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewGameServerCommand builds the cobra command for cmd/gameserver. Every
// flag is readable from its QUIZNIGHT_-prefixed env var; tcp-host and
// tcp-port additionally accept the unprefixed TCP_HOST/TCP_PORT names.
func NewGameServerCommand(cfg *GameServer, run func(*GameServer) error) *cobra.Command {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "gameserver",
		Short:         "Authoritative in-memory quiz game server (TCP, newline-JSON protocol).",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.Host, "tcp-host", "127.0.0.1", "address to bind the game server to (env: TCP_HOST, QUIZNIGHT_TCP_HOST)")
	fs.IntVar(&cfg.Port, "tcp-port", 4000, "port to listen on (env: TCP_PORT, QUIZNIGHT_TCP_PORT)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "display additional output (env: QUIZNIGHT_VERBOSE)")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", 30*time.Second, "interval between timer-driven ended-game sweeps (env: QUIZNIGHT_SWEEP_INTERVAL)")

	v.SetEnvPrefix("QUIZNIGHT")
	bindEnv(fs, v, map[string]string{
		"tcp-host": "TCP_HOST",
		"tcp-port": "TCP_PORT",
	})

	return cmd
}

// Bridge holds the HTTP/SSE bridge's configuration: the HTTP port,
// token-signing secret, user store path, and the game server address
// it dials out to.
type Bridge struct {
	Port           int
	GameServerAddr string
	JWTSecret      string
	UsersFile      string
	Verbose        bool
}

func (c *Bridge) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	return nil
}

// NewBridgeCommand builds the cobra command for cmd/bridge. Every flag
// is readable from its QUIZNIGHT_BRIDGE_-prefixed env var; http-port and
// jwt-secret additionally accept the unprefixed PORT/JWT_SECRET names.
func NewBridgeCommand(cfg *Bridge, run func(*Bridge) error) *cobra.Command {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "bridge",
		Short:         "HTTP/SSE bridge between browsers and the authoritative game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.IntVar(&cfg.Port, "http-port", 8080, "port to serve the HTTP/SSE bridge on (env: PORT, QUIZNIGHT_BRIDGE_HTTP_PORT)")
	fs.StringVar(&cfg.GameServerAddr, "game-server-addr", "127.0.0.1:4000", "game server's TCP_HOST:TCP_PORT (env: QUIZNIGHT_BRIDGE_GAME_SERVER_ADDR)")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "secret used to sign session tokens (env: JWT_SECRET, QUIZNIGHT_BRIDGE_JWT_SECRET)")
	fs.StringVar(&cfg.UsersFile, "users-file", "users.json", "path to the JSON-backed user store (env: QUIZNIGHT_BRIDGE_USERS_FILE)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "display additional output (env: QUIZNIGHT_BRIDGE_VERBOSE)")

	v.SetEnvPrefix("QUIZNIGHT_BRIDGE")
	bindEnv(fs, v, map[string]string{
		"http-port":  "PORT",
		"jwt-secret": "JWT_SECRET",
	})

	return cmd
}

// bindEnv binds every flag to its prefixed viper env key (v.SetEnvPrefix
// plus v.AutomaticEnv, set by the caller), and additionally binds the
// entries in flagToEnv to their literal unprefixed names. Viper checks
// the prefixed AutomaticEnv name first, so when both are set the
// prefixed form wins. Any flag left unset on the command
// line whose env var is set is then applied via fs.VisitAll.
func bindEnv(fs *pflag.FlagSet, v *viper.Viper, flagToEnv map[string]string) {
	for flagName, envKey := range flagToEnv {
		_ = v.BindEnv(flagName, envKey)
	}

	fs.VisitAll(func(f *pflag.Flag) {
		if _, explicit := flagToEnv[f.Name]; !explicit {
			_ = v.BindEnv(f.Name)
		}

		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
	})
}
