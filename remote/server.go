package remote

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"

	"github.com/agentgraph-dev/agentgraph/graph"
	pkgobs "github.com/agentgraph-dev/agentgraph/pkg/observability"
)

// TLSConfig configures transport security for the graph service.
type TLSConfig struct {
	// CertFile and KeyFile hold the server certificate and key.
	CertFile string
	KeyFile  string
	// CAFile, when set, enables mutual TLS: client certificates must chain
	// to this CA.
	CAFile string
	// ServerName overrides SNI verification on the client side.
	ServerName string
	// InsecureSkipVerify disables certificate verification on the client
	// side. Development only; a warning is logged.
	InsecureSkipVerify bool
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerTLS serves with the given TLS settings instead of plaintext.
func WithServerTLS(cfg *TLSConfig) ServerOption {
	return func(s *Server) { s.tlsConfig = cfg }
}

// WithMaxConcurrentRuns bounds the runs executing at once. Further
// requests wait; zero means unlimited.
func WithMaxConcurrentRuns(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.semaphore = make(chan struct{}, n)
		}
	}
}

// Server exposes registered compiled graphs over gRPC.
type Server struct {
	mu     sync.RWMutex
	graphs map[string]*graph.CompiledGraph

	tlsConfig  *TLSConfig
	semaphore  chan struct{}
	grpcServer *grpc.Server
	listener   net.Listener
}

// NewServer creates a server with no graphs registered.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{graphs: make(map[string]*graph.CompiledGraph)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register makes a compiled graph invokable under name.
func (s *Server) Register(name string, g *graph.CompiledGraph) error {
	if name == "" {
		return fmt.Errorf("graph name cannot be empty")
	}
	if g == nil {
		return fmt.Errorf("graph %q is nil", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.graphs[name]; exists {
		return fmt.Errorf("graph %q already registered", name)
	}
	s.graphs[name] = g
	return nil
}

// Addr returns the bound listen address once Serve has started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve listens on addr and serves until ctx is cancelled, then stops
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	var serverOpts []grpc.ServerOption
	if s.tlsConfig != nil {
		creds, err := s.serverCredentials()
		if err != nil {
			listener.Close()
			return err
		}
		serverOpts = append(serverOpts, grpc.Creds(creds))
	}

	grpcServer := grpc.NewServer(serverOpts...)
	RegisterGraphServiceServer(grpcServer, s)

	s.mu.Lock()
	s.grpcServer = grpcServer
	s.listener = listener
	s.mu.Unlock()

	log.Printf("[Remote] graph service listening on %s (tls=%v)", listener.Addr(), s.tlsConfig != nil)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		grpcServer.GracefulStop()
		return nil
	})
	return eg.Wait()
}

// serverCredentials builds the server's transport credentials.
func (s *Server) serverCredentials() (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(s.tlsConfig.CertFile, s.tlsConfig.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load server certificate: %w", err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if s.tlsConfig.CAFile != "" {
		caData, err := os.ReadFile(s.tlsConfig.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caData) {
			return nil, fmt.Errorf("CA file %s contains no usable certificates", s.tlsConfig.CAFile)
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return credentials.NewTLS(cfg), nil
}

// acquire takes a concurrency slot, honoring ctx while waiting.
func (s *Server) acquire(ctx context.Context) error {
	if s.semaphore == nil {
		return nil
	}
	select {
	case s.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return status.FromContextError(ctx.Err()).Err()
	}
}

func (s *Server) release() {
	if s.semaphore != nil {
		<-s.semaphore
	}
}

func (s *Server) lookup(name string) (*graph.CompiledGraph, error) {
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "graph name is required")
	}
	s.mu.RLock()
	g, ok := s.graphs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, status.Errorf(codes.NotFound, "graph %q is not registered", name)
	}
	return g, nil
}

func runOptions(req *InvokeRequest) []graph.RunOption {
	var opts []graph.RunOption
	if req.ThreadID != "" {
		opts = append(opts, graph.WithThreadID(req.ThreadID))
	}
	if req.RunID != "" {
		opts = append(opts, graph.WithRunID(req.RunID))
	}
	if req.MaxSteps > 0 {
		opts = append(opts, graph.WithMaxSteps(req.MaxSteps))
	}
	return opts
}

// runStatus maps a graph failure to a gRPC status.
func runStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, graph.ErrMaxStepsExceeded):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// Invoke runs a registered graph to completion.
func (s *Server) Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResponse, error) {
	started := time.Now()
	g, err := s.lookup(req.Graph)
	if err != nil {
		pkgobs.RecordGRPCRequest("Invoke", "error", time.Since(started))
		return nil, err
	}
	if err := s.acquire(ctx); err != nil {
		pkgobs.RecordGRPCRequest("Invoke", "error", time.Since(started))
		return nil, err
	}
	defer s.release()

	opts := runOptions(req)
	final, err := g.Invoke(ctx, req.State, opts...)
	if err != nil {
		pkgobs.RecordGRPCRequest("Invoke", "error", time.Since(started))
		return nil, runStatus(err)
	}

	pkgobs.RecordGRPCRequest("Invoke", "success", time.Since(started))
	return &InvokeResponse{State: final, RunID: req.RunID}, nil
}

// Stream runs a registered graph, forwarding one event per node
// completion and checkpoint, then a final done event.
func (s *Server) Stream(req *InvokeRequest, stream GraphService_StreamServer) error {
	started := time.Now()
	ctx := stream.Context()

	g, err := s.lookup(req.Graph)
	if err != nil {
		pkgobs.RecordGRPCRequest("Stream", "error", time.Since(started))
		return err
	}
	if err := s.acquire(ctx); err != nil {
		pkgobs.RecordGRPCRequest("Stream", "error", time.Since(started))
		return err
	}
	defer s.release()

	events, err := g.Stream(ctx, req.State, runOptions(req)...)
	if err != nil {
		pkgobs.RecordGRPCRequest("Stream", "error", time.Since(started))
		return runStatus(err)
	}

	for ev := range events {
		if ev.Type == graph.EventError {
			pkgobs.RecordGRPCRequest("Stream", "error", time.Since(started))
			return runStatus(ev.Err)
		}
		if err := stream.Send(toStreamResponse(ev)); err != nil {
			pkgobs.RecordGRPCRequest("Stream", "error", time.Since(started))
			return err
		}
	}

	pkgobs.RecordGRPCRequest("Stream", "success", time.Since(started))
	return nil
}

// ListGraphs reports the registered graph names, sorted.
func (s *Server) ListGraphs(ctx context.Context, _ *ListGraphsRequest) (*ListGraphsResponse, error) {
	s.mu.RLock()
	names := make([]string, 0, len(s.graphs))
	for name := range s.graphs {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return &ListGraphsResponse{Graphs: names}, nil
}

func toStreamResponse(ev graph.StreamEvent) *StreamResponse {
	return &StreamResponse{
		Type:         string(ev.Type),
		Node:         ev.Node,
		Step:         ev.Step,
		Update:       ev.Update,
		State:        ev.State,
		CheckpointID: ev.CheckpointID,
		RunID:        ev.RunID,
	}
}
