// Package relay parses relay service flags and launches the service.
package relay

import (
	"context"
	"flag"
	"fmt"
	"strings"

	entrypoint "github.com/louisbranch/connect-relay/internal/platform/cmd"
	"github.com/louisbranch/connect-relay/internal/services/ledger"
	server "github.com/louisbranch/connect-relay/internal/services/relay/app"
	"github.com/louisbranch/connect-relay/internal/services/relay/callergrant"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
)

// Config holds relay command configuration.
type Config struct {
	Port            int    `env:"RELAY_PORT" envDefault:"8095"`
	DBPath          string `env:"RELAY_DB_PATH" envDefault:"data/relay.db"`
	Initializer     string `env:"RELAY_INITIALIZER"`
	Custody         string `env:"RELAY_CUSTODY_ADDRESS"`
	DefaultFeeToken string `env:"RELAY_DEFAULT_FEE_TOKEN"`
	LedgerGenesis   string `env:"RELAY_LEDGER_GENESIS"`
	GrantIssuer     string `env:"RELAY_GRANT_ISSUER"`
	GrantAudience   string `env:"RELAY_GRANT_AUDIENCE"`
	GrantPublicKey  string `env:"RELAY_GRANT_PUBLIC_KEY"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The relay gRPC server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the relay SQLite database")
	fs.StringVar(&cfg.Initializer, "initializer", cfg.Initializer, "Owner address used when the relay is first initialized")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Options converts the configuration into server options.
func (cfg Config) Options() (server.Options, error) {
	opts := server.Options{DBPath: strings.TrimSpace(cfg.DBPath)}
	var err error
	if opts.Initializer, err = optionalAddress("RELAY_INITIALIZER", cfg.Initializer); err != nil {
		return server.Options{}, err
	}
	if opts.Custody, err = optionalAddress("RELAY_CUSTODY_ADDRESS", cfg.Custody); err != nil {
		return server.Options{}, err
	}
	if opts.FeeToken, err = optionalAddress("RELAY_DEFAULT_FEE_TOKEN", cfg.DefaultFeeToken); err != nil {
		return server.Options{}, err
	}
	if opts.Genesis, err = ledger.ParseGenesis(cfg.LedgerGenesis); err != nil {
		return server.Options{}, fmt.Errorf("RELAY_LEDGER_GENESIS: %w", err)
	}
	verifier, err := callergrant.NewVerifier(cfg.GrantIssuer, cfg.GrantAudience, cfg.GrantPublicKey, nil)
	if err != nil {
		return server.Options{}, err
	}
	opts.Grants = verifier
	return opts, nil
}

func optionalAddress(name, value string) (identity.Address, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return identity.Zero, nil
	}
	addr, err := identity.ParseAddress(value)
	if err != nil {
		return identity.Zero, fmt.Errorf("%s: %w", name, err)
	}
	return addr, nil
}

// Run starts the relay gRPC API service.
func Run(ctx context.Context, cfg Config) error {
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRelay, func(context.Context) error {
		return server.Run(ctx, cfg.Port, opts)
	})
}
