// Package app hosts the greeter service runtime.
//
// The engine's own invocation envelope belongs to the surrounding platform;
// this server exposes the gRPC health surface, owns the store lifecycle, and
// hands the engine to whatever host envelope embeds it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"

	"github.com/louisbranch/greeting.space/internal/greeter/engine"
	"github.com/louisbranch/greeting.space/internal/greeter/storage"
	storagesqlite "github.com/louisbranch/greeting.space/internal/greeter/storage/sqlite"
	platformgrpc "github.com/louisbranch/greeting.space/internal/platform/grpc"
)

// Server hosts the greeter service.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      storage.Store
	engine     *engine.Engine
}

// New creates a configured greeter server listening on the provided port,
// backed by the SQLite store at GREETING_SPACE_GREETER_DB_PATH.
func New(port int) (*Server, error) {
	store, err := openLedgerStore()
	if err != nil {
		return nil, err
	}
	server, err := NewWithStore(fmt.Sprintf(":%d", port), store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return server, nil
}

// NewWithStore creates a greeter server on addr backed by the provided store.
// The server takes ownership of the store and closes it when serving stops.
func NewWithStore(addr string, store storage.Store) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	ledgerEngine := engine.New(store)
	// Storage probe: the counter query reads through the global tier and never
	// fails semantically, so any error here is a backend problem worth failing
	// startup over.
	if _, err := ledgerEngine.Counter(context.Background()); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("probe ledger store: %w", err)
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(platformgrpc.UnaryDomainStatus()),
	)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
		engine:     ledgerEngine,
	}, nil
}

// Addr returns the listener address for the greeter server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Engine returns the ledger engine bound to this server's store.
func (s *Server) Engine() *engine.Engine {
	if s == nil {
		return nil
	}
	return s.engine
}

// Run creates and serves a greeter server until the context ends.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// RunWithAddr creates and serves a greeter server on addr until the context ends.
func RunWithAddr(ctx context.Context, addr string) error {
	store, err := openLedgerStore()
	if err != nil {
		return err
	}
	server, err := NewWithStore(addr, store)
	if err != nil {
		_ = store.Close()
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the greeter server and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		if err := s.store.Close(); err != nil {
			log.Printf("close ledger store: %v", err)
		}
	}()

	log.Printf("greeter server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}

	select {
	case <-ctx.Done():
		if s.health != nil {
			s.health.Shutdown()
		}
		s.grpcServer.GracefulStop()
		err := <-serveErr
		return handleErr(err)
	case err := <-serveErr:
		return handleErr(err)
	}
}

func openLedgerStore() (storage.Store, error) {
	path := strings.TrimSpace(os.Getenv("GREETING_SPACE_GREETER_DB_PATH"))
	if path == "" {
		path = filepath.Join("data", "greeter.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := storagesqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return store, nil
}
