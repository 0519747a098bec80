package internalgrpc

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/lomoval/sxodim/internal/storage"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// ServiceName is the name reported by the health service.
const ServiceName = "sxodim"

const (
	defaultCheckInterval = 10 * time.Second
	pingTimeout          = 2 * time.Second
)

type Config struct {
	Host          string
	Port          int
	CheckInterval time.Duration
}

// Server exposes the gRPC health protocol; the service is SERVING while the
// storage answers pings.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	storage    storage.Storage
	addr       string
	interval   time.Duration
}

func NewServer(config Config, storage storage.Storage) *Server {
	interval := config.CheckInterval
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	s := &Server{
		grpcServer: grpc.NewServer(
			grpc.UnaryInterceptor(loggingHandler),
			grpc.StreamInterceptor(streamLoggingHandler),
		),
		health:   health.NewServer(),
		storage:  storage,
		addr:     net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
		interval: interval,
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) Start(ctx context.Context) error {
	lsn, err := net.Listen("tcp", s.addr)
	if err != nil {
		log.Errorf("failed to listen grpc endpoint: %v", err)
		return err
	}
	return s.Serve(ctx, lsn)
}

// Serve accepts connections on lsn and keeps the health status current
// until ctx is done or the server is stopped.
func (s *Server) Serve(ctx context.Context, lsn net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.watchStorage(ctx)

	log.Printf("starting grpc server on %s", lsn.Addr())
	return s.grpcServer.Serve(lsn)
}

func (s *Server) Stop(_ context.Context) error {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	return nil
}

// CheckStorage pings the storage once and updates the serving status.
func (s *Server) CheckStorage(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := s.storage.Ping(ctx); err != nil {
		log.Warnf("storage ping failed: %v", err)
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
	s.health.SetServingStatus("", st)
	return st
}

func (s *Server) watchStorage(ctx context.Context) {
	s.CheckStorage(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckStorage(ctx)
		}
	}
}

func loggingHandler(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	log.WithField("method", info.FullMethod).WithField("code", status.Code(err).String()).
		WithField("latency", time.Since(start)).
		Info("grpc request processed")
	return resp, err
}

func streamLoggingHandler(
	srv interface{},
	ss grpc.ServerStream,
	info *grpc.StreamServerInfo,
	handler grpc.StreamHandler,
) error {
	start := time.Now()
	err := handler(srv, ss)
	log.WithField("method", info.FullMethod).WithField("code", status.Code(err).String()).
		WithField("latency", time.Since(start)).
		Info("grpc stream closed")
	return err
}
