package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pojntfx/rambench/pkg/bench"
	"github.com/pojntfx/rambench/pkg/host"
	"github.com/pojntfx/rambench/pkg/memory"
	"github.com/pojntfx/rambench/pkg/utils"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const BenchmarkServiceName = "rambench.v1.Benchmark"

var ErrInvalidArgument = errors.New("invalid argument")

// invalidArguments are recovered from the messages of InvalidArgument statuses,
// which carry the server's error text.
var invalidArguments = []error{
	bench.ErrInvalidSize,
	bench.ErrInvalidWidth,
	bench.ErrUnknownPattern,
}

type MeasureRequest struct {
	Size int `json:"size"`
}

type MeasureResponse struct {
	Throughput float64 `json:"throughput"`
}

type InfoRequest struct{}

type BenchmarkGrpcServer interface {
	Measure(ctx context.Context, p bench.Pattern, req *MeasureRequest) (*MeasureResponse, error)
	Info(ctx context.Context, req *InfoRequest) (*host.Info, error)
}

type BenchmarkGrpc struct {
	svc *Benchmark
}

func NewBenchmarkGrpc(svc *Benchmark) *BenchmarkGrpc {
	return &BenchmarkGrpc{svc}
}

func (b *BenchmarkGrpc) Measure(ctx context.Context, p bench.Pattern, req *MeasureRequest) (*MeasureResponse, error) {
	rv, err := b.svc.measure(ctx, p, req.Size)
	if err != nil {
		return nil, toStatus(err)
	}

	return &MeasureResponse{Throughput: rv}, nil
}

func (b *BenchmarkGrpc) Info(ctx context.Context, req *InfoRequest) (*host.Info, error) {
	info, err := b.svc.Info(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	return &info, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, memory.ErrAllocation):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, bench.ErrInvalidSize), errors.Is(err, bench.ErrInvalidWidth), errors.Is(err, bench.ErrUnknownPattern):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrBusy):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func fromStatus(err error) error {
	s, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch s.Code() {
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %v", memory.ErrAllocation, s.Message())
	case codes.InvalidArgument:
		for _, target := range invalidArguments {
			if strings.Contains(s.Message(), target.Error()) {
				return fmt.Errorf("%w: %v", target, s.Message())
			}
		}

		return fmt.Errorf("%w: %v", ErrInvalidArgument, s.Message())
	case codes.Unavailable:
		return fmt.Errorf("%w: %v", ErrBusy, s.Message())
	default:
		return err
	}
}

func fullMethod(method string) string {
	return "/" + BenchmarkServiceName + "/" + method
}

func methodName(p bench.Pattern) string {
	switch p {
	case bench.PatternRead:
		return "Read"
	case bench.PatternWrite:
		return "Write"
	case bench.PatternCopy:
		return "Copy"
	default:
		return string(p)
	}
}

func measureHandler(p bench.Pattern) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(MeasureRequest)
		if err := dec(in); err != nil {
			return nil, err
		}

		handler := func(ctx context.Context, req any) (any, error) {
			return srv.(BenchmarkGrpcServer).Measure(ctx, p, req.(*MeasureRequest))
		}
		if interceptor == nil {
			return handler(ctx, in)
		}

		return interceptor(ctx, in, &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(methodName(p)),
		}, handler)
	}
}

func infoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(InfoRequest)
	if err := dec(in); err != nil {
		return nil, err
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BenchmarkGrpcServer).Info(ctx, req.(*InfoRequest))
	}
	if interceptor == nil {
		return handler(ctx, in)
	}

	return interceptor(ctx, in, &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: fullMethod("Info"),
	}, handler)
}

// BenchmarkServiceDesc describes the service for servers using utils.JSONCodec.
var BenchmarkServiceDesc = grpc.ServiceDesc{
	ServiceName: BenchmarkServiceName,
	HandlerType: (*BenchmarkGrpcServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Read", Handler: measureHandler(bench.PatternRead)},
		{MethodName: "Write", Handler: measureHandler(bench.PatternWrite)},
		{MethodName: "Copy", Handler: measureHandler(bench.PatternCopy)},
		{MethodName: "Info", Handler: infoHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rambench/v1/benchmark",
}

func NewBenchmarkGrpcServer(svc *Benchmark, opts ...grpc.ServerOption) *grpc.Server {
	server := grpc.NewServer(append([]grpc.ServerOption{grpc.ForceServerCodec(utils.JSONCodec{})}, opts...)...)

	server.RegisterService(&BenchmarkServiceDesc, NewBenchmarkGrpc(svc))

	return server
}

// BenchmarkGrpcClient calls a remote BenchmarkGrpcServer.
type BenchmarkGrpcClient struct {
	ctx  context.Context
	conn grpc.ClientConnInterface
}

func NewBenchmarkGrpcClient(ctx context.Context, conn grpc.ClientConnInterface) *BenchmarkGrpcClient {
	return &BenchmarkGrpcClient{ctx, conn}
}

func (c *BenchmarkGrpcClient) Run(p bench.Pattern, size int) (float64, error) {
	if _, err := bench.ParsePattern(string(p)); err != nil {
		return bench.FailureSentinel, err
	}

	out := new(MeasureResponse)
	if err := c.conn.Invoke(c.ctx, fullMethod(methodName(p)), &MeasureRequest{Size: size}, out, grpc.ForceCodec(utils.JSONCodec{})); err != nil {
		return bench.FailureSentinel, fromStatus(err)
	}

	return out.Throughput, nil
}

func (c *BenchmarkGrpcClient) Info() (host.Info, error) {
	out := new(host.Info)
	if err := c.conn.Invoke(c.ctx, fullMethod("Info"), &InfoRequest{}, out, grpc.ForceCodec(utils.JSONCodec{})); err != nil {
		return host.Info{}, err
	}

	return *out, nil
}
