package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/agentgraph-dev/agentgraph/agent"
	"github.com/agentgraph-dev/agentgraph/internal/observability"
	pkgobs "github.com/agentgraph-dev/agentgraph/pkg/observability"
	"github.com/agentgraph-dev/agentgraph/remote"
	"github.com/agentgraph-dev/agentgraph/scheduler"
)

func newServeCmd() *cobra.Command {
	var (
		grpcAddr      string
		metricsAddr   string
		tlsCert       string
		tlsKey        string
		tlsCA         string
		maxConcurrent int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve graphs over gRPC with metrics and health endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if grpcAddr == "" {
				grpcAddr = cfg.Server.GRPCAddr
			}
			if metricsAddr == "" {
				metricsAddr = cfg.Server.MetricsAddr
			}

			if err := observability.InitFromEnv(); err != nil {
				log.Printf("tracing disabled: %v", err)
			}
			pkgobs.InitMetrics()

			store, err := buildStore(cfg)
			if err != nil {
				return err
			}
			pkgobs.Health().Register(pkgobs.StoreCheck(func(ctx context.Context) error {
				_, err := store.List(ctx, "healthz")
				return err
			}))

			var serverOpts []remote.ServerOption
			if tlsCert != "" {
				serverOpts = append(serverOpts, remote.WithServerTLS(&remote.TLSConfig{
					CertFile: tlsCert,
					KeyFile:  tlsKey,
					CAFile:   tlsCA,
				}))
			}
			if maxConcurrent > 0 {
				serverOpts = append(serverOpts, remote.WithMaxConcurrentRuns(maxConcurrent))
			}
			srv := remote.NewServer(serverOpts...)

			// The starter agent plus every declarative graph in the config.
			starter, err := buildGraph(cfg, agent.GraphName, store)
			if err != nil {
				return err
			}
			if err := srv.Register(agent.GraphName, starter); err != nil {
				return err
			}
			for name := range cfg.Graphs {
				g, err := buildGraph(cfg, name, store)
				if err != nil {
					return fmt.Errorf("building graph %q: %w", name, err)
				}
				if err := srv.Register(name, g); err != nil {
					return err
				}
			}

			sched := scheduler.New()
			for _, sc := range cfg.Schedules {
				g, err := buildGraph(cfg, sc.Graph, store)
				if err != nil {
					return fmt.Errorf("building scheduled graph %q: %w", sc.Graph, err)
				}
				if _, err := sched.Add(sc.Cron, scheduler.Job{
					Name:         sc.Name,
					Graph:        g,
					ThreadPrefix: sc.ThreadPrefix,
					Initial:      sc.Input,
				}); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			obsServer := pkgobs.NewServer(metricsAddr)

			eg, ctx := errgroup.WithContext(ctx)
			eg.Go(func() error {
				return srv.Serve(ctx, grpcAddr)
			})
			eg.Go(func() error {
				log.Printf("[Serve] metrics on %s", metricsAddr)
				if err := obsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			eg.Go(func() error {
				sched.Start()
				<-ctx.Done()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := sched.Stop(shutdownCtx); err != nil {
					log.Printf("[Serve] scheduler shutdown: %v", err)
				}
				if err := obsServer.Shutdown(shutdownCtx); err != nil {
					log.Printf("[Serve] metrics shutdown: %v", err)
				}
				if err := observability.Shutdown(shutdownCtx); err != nil {
					log.Printf("[Serve] tracing shutdown: %v", err)
				}
				return nil
			})

			err = eg.Wait()
			log.Printf("[Serve] stopped")
			return err
		},
	}

	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (default from config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "metrics listen address (default from config)")
	cmd.Flags().StringVar(&tlsCert, "tls-cert", "", "TLS certificate file")
	cmd.Flags().StringVar(&tlsKey, "tls-key", "", "TLS key file")
	cmd.Flags().StringVar(&tlsCA, "tls-ca", "", "CA file for mutual TLS")
	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 0, "limit concurrent runs (0 = unlimited)")
	return cmd
}
