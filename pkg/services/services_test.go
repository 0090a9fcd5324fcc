package services

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/pojntfx/dudirekta/pkg/rpc"
	"github.com/pojntfx/rambench/pkg/bench"
	"github.com/pojntfx/rambench/pkg/memory"
	"github.com/pojntfx/rambench/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeRunner struct {
	started chan struct{}
	unblock chan struct{}
}

func (r *fakeRunner) Run(p bench.Pattern, size int) (float64, error) {
	if r.started != nil {
		r.started <- struct{}{}
	}

	if r.unblock != nil {
		<-r.unblock
	}

	if size > 1<<20 {
		return bench.FailureSentinel, fmt.Errorf("%w: injected", memory.ErrAllocation)
	}

	if size < bench.MinSize {
		return bench.FailureSentinel, bench.ErrInvalidSize
	}

	return float64(size), nil
}

func TestBenchmarkDispatch(t *testing.T) {
	svc := NewBenchmark(&fakeRunner{}, nil)
	ctx := context.Background()

	for name, fn := range map[string]func(context.Context, int) (float64, error){
		"read":  svc.Read,
		"write": svc.Write,
		"copy":  svc.Copy,
	} {
		t.Run(name, func(t *testing.T) {
			rv, err := fn(ctx, 4096)
			require.NoError(t, err)
			assert.Equal(t, 4096.0, rv)
		})
	}
}

func TestBenchmarkSkipBusy(t *testing.T) {
	m := metrics.NewMetrics()
	r := &fakeRunner{started: make(chan struct{}), unblock: make(chan struct{})}
	svc := NewBenchmark(r, &BenchmarkOptions{SkipBusy: true, Metrics: m})

	done := make(chan error)
	go func() {
		_, err := svc.Read(context.Background(), 4096)

		done <- err
	}()

	<-r.started

	rv, err := svc.Write(context.Background(), 4096)
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, bench.FailureSentinel, rv)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RejectedTotal))

	close(r.unblock)
	require.NoError(t, <-done)

	r.started = nil
	_, err = svc.Write(context.Background(), 4096)
	assert.NoError(t, err)
}

func TestBenchmarkQueuesWhenBusy(t *testing.T) {
	r := &fakeRunner{started: make(chan struct{}), unblock: make(chan struct{})}
	svc := NewBenchmark(r, nil)

	done := make(chan error)
	go func() {
		_, err := svc.Read(context.Background(), 4096)

		done <- err
	}()

	<-r.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := svc.Copy(ctx, 4096)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(r.unblock)
	require.NoError(t, <-done)
}

func TestBenchmarkRecordsMetrics(t *testing.T) {
	m := metrics.NewMetrics()
	svc := NewBenchmark(&fakeRunner{}, &BenchmarkOptions{Metrics: m})

	_, err := svc.Copy(context.Background(), 4096)
	require.NoError(t, err)

	_, err = svc.Copy(context.Background(), 2<<20)
	assert.ErrorIs(t, err, memory.ErrAllocation)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MeasurementsTotal.WithLabelValues("copy", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MeasurementsTotal.WithLabelValues("copy", "failure")))
	assert.Equal(t, 4096.0, testutil.ToFloat64(m.LastThroughput.WithLabelValues("copy")))
}

func TestRemoteRunner(t *testing.T) {
	calls := []string{}
	remote := &BenchmarkRemote{
		Read: func(ctx context.Context, size int) (float64, error) {
			calls = append(calls, "read")

			return 1, nil
		},
		Write: func(ctx context.Context, size int) (float64, error) {
			calls = append(calls, "write")

			return 2, nil
		},
		Copy: func(ctx context.Context, size int) (float64, error) {
			calls = append(calls, "copy")

			return 3, nil
		},
	}

	r := NewRemoteRunner(context.Background(), remote)
	for i, p := range bench.Patterns() {
		rv, err := r.Run(p, 16)
		require.NoError(t, err)
		assert.Equal(t, float64(i+1), rv)
	}
	assert.Equal(t, []string{"read", "write", "copy"}, calls)

	_, err := r.Run("random", 16)
	assert.ErrorIs(t, err, bench.ErrUnknownPattern)
}

func newGrpcClient(t *testing.T, svc *Benchmark) *BenchmarkGrpcClient {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	server := NewBenchmarkGrpcServer(svc)
	go func() {
		_ = server.Serve(lis)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})

	return NewBenchmarkGrpcClient(context.Background(), conn)
}

func TestGrpcRoundTrip(t *testing.T) {
	client := newGrpcClient(t, NewBenchmark(&fakeRunner{}, nil))

	for _, p := range bench.Patterns() {
		rv, err := client.Run(p, 4096)
		require.NoError(t, err)
		assert.Equal(t, 4096.0, rv)
	}
}

func TestGrpcErrors(t *testing.T) {
	client := newGrpcClient(t, NewBenchmark(&fakeRunner{}, nil))

	rv, err := client.Run(bench.PatternRead, 2<<20)
	assert.Equal(t, bench.FailureSentinel, rv)
	assert.ErrorIs(t, err, memory.ErrAllocation)

	_, err = client.Run(bench.PatternWrite, 1)
	assert.ErrorIs(t, err, bench.ErrInvalidSize)

	_, err = client.Run("random", 4096)
	assert.ErrorIs(t, err, bench.ErrUnknownPattern)
}

func TestGrpcInvalidWidth(t *testing.T) {
	client := newGrpcClient(t, NewBenchmark(&bench.Benchmark{Allocator: memory.HeapAllocator{}, Width: 12}, nil))

	rv, err := client.Run(bench.PatternRead, 4096)
	assert.Equal(t, bench.FailureSentinel, rv)
	assert.ErrorIs(t, err, bench.ErrInvalidWidth)
	assert.NotErrorIs(t, err, bench.ErrInvalidSize)
}

func TestFromStatusInvalidArgument(t *testing.T) {
	tests := []struct {
		name   string
		status error
		want   error
	}{
		{"size", toStatus(fmt.Errorf("%w: got 1 bytes", bench.ErrInvalidSize)), bench.ErrInvalidSize},
		{"width", toStatus(fmt.Errorf("%w: 12", bench.ErrInvalidWidth)), bench.ErrInvalidWidth},
		{"pattern", toStatus(fmt.Errorf("%w: \"random\"", bench.ErrUnknownPattern)), bench.ErrUnknownPattern},
		{"other", status.Error(codes.InvalidArgument, "size must be even"), ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fromStatus(tt.status)

			assert.ErrorIs(t, err, tt.want)
			for _, other := range append([]error{ErrInvalidArgument}, invalidArguments...) {
				if other != tt.want {
					assert.NotErrorIs(t, err, other)
				}
			}
		})
	}
}

func TestGrpcWithBenchmark(t *testing.T) {
	client := newGrpcClient(t, NewBenchmark(bench.New(), nil))

	rv, err := client.Run(bench.PatternCopy, 64*1024)
	require.NoError(t, err)
	assert.Positive(t, rv)

	info, err := client.Info()
	require.NoError(t, err)
	assert.NotEmpty(t, info.Arch)
}

func TestDudirektaRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverRegistry := rpc.NewRegistry(
		NewBenchmark(&fakeRunner{}, nil),
		struct{}{},

		time.Second*10,
		ctx,
		&rpc.Options{
			ResponseBufferLen: rpc.DefaultResponseBufferLen,
		},
	)

	ready := make(chan struct{}, 1)
	clientRegistry := rpc.NewRegistry(
		&struct{}{},
		BenchmarkRemote{},

		time.Second*10,
		ctx,
		&rpc.Options{
			ResponseBufferLen: rpc.DefaultResponseBufferLen,
			OnClientConnect: func(remoteID string) {
				ready <- struct{}{}
			},
		},
	)

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	go func() {
		_ = serverRegistry.Link(serverConn)
	}()

	go func() {
		_ = clientRegistry.Link(clientConn)
	}()

	<-ready

	var peer *BenchmarkRemote
	for _, candidate := range clientRegistry.Peers() {
		peer = &candidate

		break
	}
	require.NotNil(t, peer)

	rv, err := NewRemoteRunner(ctx, peer).Run(bench.PatternWrite, 4096)
	require.NoError(t, err)
	assert.Equal(t, 4096.0, rv)

	_, err = peer.Read(ctx, 2<<20)
	assert.Error(t, err)
}
