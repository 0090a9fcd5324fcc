package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/pojntfx/dudirekta/pkg/rpc"
	"github.com/pojntfx/r3map/pkg/utils"
	"github.com/pojntfx/rambench/pkg/services"
	"github.com/pojntfx/rambench/pkg/sweep"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	raddrFlag     = "raddr"
	transportFlag = "transport"
)

var errNoPeer = errors.New("no peer found")

func newRemoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Sweep buffer sizes on a machine running rambench serve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var (
				r     sweep.Runner
				raddr = a.v.GetString(raddrFlag)
			)
			switch transport := a.v.GetString(transportFlag); transport {
			case "dudirekta":
				peer, closer, err := a.dialDudirekta(ctx, raddr)
				if err != nil {
					return err
				}
				defer closer()

				r = services.NewRemoteRunner(ctx, peer)
			case "grpc":
				conn, err := grpc.NewClient(raddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
				if err != nil {
					return err
				}
				defer conn.Close()

				r = services.NewBenchmarkGrpcClient(ctx, conn)
			default:
				return fmt.Errorf("unknown transport %q", transport)
			}

			a.logger.Info("Connected", "raddr", raddr)

			return a.sweep(cmd, r)
		},
	}

	cmd.Flags().String(raddrFlag, "localhost:1337", "Remote address")
	cmd.Flags().String(transportFlag, "dudirekta", "Transport to use (dudirekta or grpc)")

	addSweepFlags(cmd)

	return cmd
}

func (a *app) dialDudirekta(ctx context.Context, raddr string) (*services.BenchmarkRemote, func(), error) {
	ready := make(chan struct{}, 1)
	registry := rpc.NewRegistry(
		&struct{}{},
		services.BenchmarkRemote{},

		time.Second*10,
		ctx,
		&rpc.Options{
			ResponseBufferLen: rpc.DefaultResponseBufferLen,
			OnClientConnect: func(remoteID string) {
				ready <- struct{}{}
			},
		},
	)

	conn, err := net.Dial("tcp", raddr)
	if err != nil {
		return nil, nil, err
	}

	go func() {
		if err := registry.Link(conn); err != nil && !utils.IsClosedErr(err) {
			a.logger.Warn("Connection closed with error", "error", err)
		}
	}()

	select {
	case <-ready:
	case <-ctx.Done():
		_ = conn.Close()

		return nil, nil, ctx.Err()
	}

	for _, candidate := range registry.Peers() {
		peer := candidate

		return &peer, func() { _ = conn.Close() }, nil
	}

	_ = conn.Close()

	return nil, nil, errNoPeer
}
