package internalgrpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	memorystorage "github.com/lomoval/sxodim/internal/storage/memory"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type flakyStorage struct {
	memorystorage.Storage
	err error
}

func (f *flakyStorage) Ping(_ context.Context) error {
	return f.err
}

func newHealthClient(t *testing.T, s *Server) healthpb.HealthClient {
	t.Helper()

	listener := bufconn.Listen(1024 * 1024)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = s.Serve(ctx, listener)
	}()

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close()
		cancel()
		s.Stop(context.Background())
	})
	return healthpb.NewHealthClient(conn)
}

func TestHealth(t *testing.T) {
	stor := &flakyStorage{}
	s := NewServer(Config{CheckInterval: time.Hour}, stor)
	client := newHealthClient(t, s)

	require.Eventually(t, func() bool {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, 5*time.Second, 10*time.Millisecond)

	stor.err = errors.New("connection refused")
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, s.CheckStorage(context.Background()))

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	_, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "unknown"})
	require.Equal(t, codes.NotFound, status.Code(err))
}
