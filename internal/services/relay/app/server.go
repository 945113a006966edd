// Package server wires the relay runtime and gRPC lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/connect-relay/internal/platform/timeouts"
	"github.com/louisbranch/connect-relay/internal/services/ledger"
	"github.com/louisbranch/connect-relay/internal/services/relay/api/grpc/metadata"
	relayservice "github.com/louisbranch/connect-relay/internal/services/relay/api/grpc/relay"
	"github.com/louisbranch/connect-relay/internal/services/relay/api/grpc/relayv1"
	"github.com/louisbranch/connect-relay/internal/services/relay/api/grpc/tokens"
	"github.com/louisbranch/connect-relay/internal/services/relay/broadcast"
	"github.com/louisbranch/connect-relay/internal/services/relay/callergrant"
	"github.com/louisbranch/connect-relay/internal/services/relay/domain"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
	"github.com/louisbranch/connect-relay/internal/services/relay/storage"
	relaysqlite "github.com/louisbranch/connect-relay/internal/services/relay/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// Options configures a relay server.
type Options struct {
	// DBPath holds relay state, the record log and the token ledger.
	DBPath string
	// Initializer owns a freshly initialized relay. Ignored once state exists.
	Initializer identity.Address
	// Custody is the relay's holding address. Defaults to identity.DefaultCustody.
	Custody identity.Address
	// FeeToken overrides the default fee token at first boot.
	FeeToken identity.Address
	Genesis  []ledger.Genesis
	// Grants turns on bearer caller grants. Nil trusts the caller header.
	Grants *callergrant.Verifier
	Clock  func() time.Time
}

// Server hosts the relay and ledger gRPC APIs and their storage lifecycle.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      *relaysqlite.Store
	ledger     *ledger.Ledger
	hub        *broadcast.Hub
	relay      *domain.Relay
}

// New creates a configured relay server listening on the provided port.
func New(port int, opts Options) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port), opts)
}

// NewWithAddr creates a configured relay server for the provided address.
func NewWithAddr(addr string, opts Options) (*Server, error) {
	if strings.TrimSpace(opts.DBPath) == "" {
		opts.DBPath = filepath.Join("data", "relay.db")
	}
	if opts.Custody.IsZero() {
		opts.Custody = identity.DefaultCustody
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	server := &Server{listener: listener}
	if err := server.open(context.Background(), opts); err != nil {
		server.Close()
		return nil, err
	}
	return server, nil
}

func (s *Server) open(ctx context.Context, opts Options) error {
	if dir := filepath.Dir(opts.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := relaysqlite.Open(opts.DBPath)
	if err != nil {
		return fmt.Errorf("open relay sqlite store: %w", err)
	}
	s.store = store

	l, err := ledger.Open(opts.DBPath)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	s.ledger = l
	l.AddListener(ledger.LogListener{})
	if err := l.ApplyGenesis(ctx, opts.Genesis); err != nil {
		return fmt.Errorf("apply ledger genesis: %w", err)
	}

	state, err := loadOrInitState(ctx, store, opts)
	if err != nil {
		return err
	}

	s.hub = broadcast.NewHub()
	relay, err := domain.New(state, domain.Config{
		Store:     store,
		Tokens:    ledger.Resolver{Ledger: l},
		Publisher: s.hub,
		Custody:   opts.Custody,
		Clock:     opts.Clock,
	})
	if err != nil {
		return fmt.Errorf("build relay: %w", err)
	}
	s.relay = relay

	mdOpts := metadata.Options{}
	if opts.Grants != nil {
		mdOpts.Grants = opts.Grants
	}
	s.grpcServer = grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(metadata.UnaryServerInterceptor(mdOpts)),
		grpc.ChainStreamInterceptor(metadata.StreamServerInterceptor(mdOpts)),
	)
	s.health = health.NewServer()
	relayv1.RegisterRelayServiceServer(s.grpcServer, relayservice.NewService(relay, store, s.hub))
	relayv1.RegisterLedgerServiceServer(s.grpcServer, tokens.NewService(l, opts.Custody))
	grpc_health_v1.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(relayv1.RelayServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(relayv1.LedgerServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return nil
}

// loadOrInitState returns the persisted state, initializing it on first boot.
func loadOrInitState(ctx context.Context, store storage.StateStore, opts Options) (domain.State, error) {
	state, err := store.LoadState(ctx)
	if err == nil {
		if !opts.Initializer.IsZero() && opts.Initializer != state.Owner {
			log.Printf("relay already initialized; owner is %s", state.Owner)
		}
		return state, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return domain.State{}, fmt.Errorf("load relay state: %w", err)
	}
	if opts.Initializer.IsZero() {
		return domain.State{}, errors.New("RELAY_INITIALIZER is required to initialize a new relay")
	}
	state, err = domain.NewState(opts.Initializer)
	if err != nil {
		return domain.State{}, fmt.Errorf("new relay state: %w", err)
	}
	if !opts.FeeToken.IsZero() {
		state.FeeToken = opts.FeeToken
	}
	if err := store.InitState(ctx, state); err != nil {
		return domain.State{}, fmt.Errorf("init relay state: %w", err)
	}
	log.Printf("relay initialized; owner is %s", state.Owner)
	return state, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a relay server until context cancellation.
func Run(ctx context.Context, port int, opts Options) error {
	server, err := New(port, opts)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the gRPC server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("relay server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		// Watch streams never finish on their own.
		s.hub.Close()
		stopped := make(chan struct{})
		go func() {
			s.grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(timeouts.Shutdown):
			s.grpcServer.Stop()
		}
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

// Close releases relay server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.hub != nil {
		s.hub.Close()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			log.Printf("close ledger: %v", err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close relay store: %v", err)
		}
	}
}
