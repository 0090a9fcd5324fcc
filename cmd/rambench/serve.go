package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pojntfx/dudirekta/pkg/rpc"
	"github.com/pojntfx/r3map/pkg/utils"
	"github.com/pojntfx/rambench/pkg/metrics"
	"github.com/pojntfx/rambench/pkg/services"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	dudirektaAddrFlag = "dudirekta-addr"
	grpcAddrFlag      = "grpc-addr"
	metricsAddrFlag   = "metrics-addr"
	skipBusyFlag      = "skip-busy"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve measurements of this machine to remote callers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.benchmark(cmd.Context())
			if err != nil {
				return err
			}

			var m *metrics.Metrics
			if a.v.GetString(metricsAddrFlag) != "" {
				m = metrics.NewMetrics()
			}

			svc := services.NewBenchmark(b, &services.BenchmarkOptions{
				SkipBusy: a.v.GetBool(skipBusyFlag),
				Verbose:  a.v.GetBool(verboseFlag),
				Metrics:  m,
			})

			g, ctx := errgroup.WithContext(cmd.Context())

			if laddr := a.v.GetString(dudirektaAddrFlag); laddr != "" {
				lis, err := net.Listen("tcp", laddr)
				if err != nil {
					return err
				}
				defer lis.Close()

				a.logger.Info("Listening for dudirekta clients", "addr", lis.Addr())

				g.Go(func() error {
					return a.serveDudirekta(ctx, lis, svc)
				})
			}

			if laddr := a.v.GetString(grpcAddrFlag); laddr != "" {
				lis, err := net.Listen("tcp", laddr)
				if err != nil {
					return err
				}
				defer lis.Close()

				server := services.NewBenchmarkGrpcServer(svc)

				a.logger.Info("Listening for gRPC clients", "addr", lis.Addr())

				g.Go(func() error {
					<-ctx.Done()

					server.GracefulStop()

					return nil
				})

				g.Go(func() error {
					if err := server.Serve(lis); err != nil && !utils.IsClosedErr(err) {
						return err
					}

					return nil
				})
			}

			if m != nil {
				mux := http.NewServeMux()
				mux.Handle("/metrics", m.Handler())

				server := &http.Server{
					Addr:              a.v.GetString(metricsAddrFlag),
					Handler:           mux,
					ReadHeaderTimeout: 10 * time.Second,
				}

				a.logger.Info("Serving metrics", "addr", server.Addr)

				g.Go(func() error {
					<-ctx.Done()

					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()

					return server.Shutdown(shutdownCtx)
				})

				g.Go(func() error {
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return err
					}

					return nil
				})
			}

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			return nil
		},
	}

	cmd.Flags().String(dudirektaAddrFlag, ":1337", "Listen address for dudirekta clients; empty to disable")
	cmd.Flags().String(grpcAddrFlag, ":1338", "Listen address for gRPC clients; empty to disable")
	cmd.Flags().String(metricsAddrFlag, ":2112", "Listen address for Prometheus metrics; empty to disable")
	cmd.Flags().Bool(skipBusyFlag, false, "Reject measurements while another one is running instead of queueing them")

	return cmd
}

func (a *app) serveDudirekta(ctx context.Context, lis net.Listener, svc *services.Benchmark) error {
	var clients atomic.Int64
	registry := rpc.NewRegistry(
		svc,
		struct{}{},

		time.Second*10,
		ctx,
		&rpc.Options{
			ResponseBufferLen: rpc.DefaultResponseBufferLen,
			OnClientConnect: func(remoteID string) {
				a.logger.Info("Client connected", "remote", remoteID, "clients", clients.Add(1))
			},
			OnClientDisconnect: func(remoteID string) {
				a.logger.Info("Client disconnected", "remote", remoteID, "clients", clients.Add(-1))
			},
		},
	)

	go func() {
		<-ctx.Done()

		_ = lis.Close()
	}()

	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			if !utils.IsClosedErr(err) {
				a.logger.Warn("Could not accept connection, continuing", "error", err)

				continue
			}

			return nil
		}

		go func() {
			defer func() {
				_ = conn.Close()

				if err := recover(); err != nil {
					a.logger.Warn("Client disconnected with error", "error", err)
				}
			}()

			if err := registry.Link(conn); err != nil && !utils.IsClosedErr(err) {
				panic(err)
			}
		}()
	}
}
