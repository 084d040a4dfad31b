package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"statement-line-service/internal/cache"
	"statement-line-service/internal/config"
	hgrpc "statement-line-service/internal/handler/grpc"
	hrest "statement-line-service/internal/handler/rest"
	"statement-line-service/internal/pub"
	"statement-line-service/internal/repository"
	"statement-line-service/internal/usecase"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

// Server owns every long lived resource of the service.
type Server struct {
	cfg    config.AppConfig
	logger *zap.Logger

	db    *pgxpool.Pool
	rdb   redis.UniversalClient
	kafka *pub.KafkaPublisher
	http  *http.Server
	grpc  *grpc.Server
	errCh chan error
}

func NewStatementLineServer(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*Server, error) {
	// --- DB connection ---
	dbpool, err := config.ConnectDB(cfg.DB, logger)
	if err != nil {
		return nil, err
	}
	if cfg.DB.Migrate {
		if err := config.Migrate(ctx, dbpool, logger); err != nil {
			dbpool.Close()
			return nil, err
		}
	}

	// --- Redis client ---
	rdb := cache.NewRedisClient(cfg.RedisAddrs, cfg.RedisPass, cfg.RedisCluster)
	lineCache := cache.NewLineCache(rdb, cfg.LineCacheTTL)

	// --- Event publishers ---
	var (
		publisher pub.Publisher = pub.Nop{}
		kafkaPub  *pub.KafkaPublisher
	)
	if cfg.EventsEnabled {
		kafkaPub = pub.NewKafkaPublisher(pub.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger))
		publisher = pub.MultiPublisher{
			pub.NewRedisPublisher(rdb, cfg.EventsChannel, logger),
			kafkaPub,
		}
	}

	// --- Repositories ---
	lineRepo := repository.NewStatementLineRepo(dbpool)
	statementRepo := repository.NewStatementRepo(dbpool)
	moveRepo := repository.NewMoveRepo(dbpool)

	// --- Usecases ---
	lineUC := usecase.NewStatementLineUsecase(lineRepo, statementRepo, moveRepo, lineCache, publisher, logger)

	// --- Handlers ---
	restHandler := hrest.NewStatementLineRestHandler(lineUC, logger)
	grpcHandler := hgrpc.NewStatementLineGRPCHandler(lineUC)

	grpcServer := grpc.NewServer()
	hgrpc.RegisterStatementLineServiceServer(grpcServer, grpcHandler)
	reflection.Register(grpcServer)

	return &Server{
		cfg:    cfg,
		logger: logger,
		db:     dbpool,
		rdb:    rdb,
		kafka:  kafkaPub,
		http: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           restHandler.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		grpc:  grpcServer,
		errCh: make(chan error, 2),
	}, nil
}

// Start runs both listeners in the background. Listener failures are
// reported on Errors.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.GRPCAddr, err)
	}

	go func() {
		s.logger.Info("statement line gRPC server listening", zap.String("addr", s.cfg.GRPCAddr))
		if err := s.grpc.Serve(lis); err != nil {
			s.errCh <- fmt.Errorf("gRPC server failed: %w", err)
		}
	}()

	go func() {
		s.logger.Info("statement line REST server listening", zap.String("addr", s.cfg.HTTPAddr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- fmt.Errorf("REST server failed: %w", err)
		}
	}()
	return nil
}

func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Shutdown stops accepting requests, drains in-flight ones and closes the
// pool, redis and kafka in that order.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	stopped := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpc.Stop()
	}

	if s.kafka != nil {
		if err := s.kafka.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka close: %w", err))
		}
	}
	if err := s.rdb.Close(); err != nil {
		errs = append(errs, fmt.Errorf("redis close: %w", err))
	}
	s.db.Close()

	return errors.Join(errs...)
}
