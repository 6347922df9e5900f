package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"gosocialchat/internal/common"
	"gosocialchat/internal/config"
	"gosocialchat/internal/dbmysql"
	"gosocialchat/internal/logging"
	"gosocialchat/internal/wire"
)

func main() {
	cfg := config.LoadConfig()
	closer := logging.Init(cfg.Logging)
	defer closer.Close()
	logger := slog.Default().With("component", "chat-svc")

	app, cleanup, err := wire.InitializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize chat service: %v", err)
	}
	defer cleanup()

	if err := dbmysql.AutoMigrate(app.DB); err != nil {
		logger.Error("database migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database migration completed")

	router := mux.NewRouter()
	router.Use(common.CORS(app.Config.Server.AllowedOrigins))
	router.Use(common.RequestLogger(slog.Default().With("component", "http")))
	router.Use(app.HTTPMetrics.Middleware)
	router.Use(common.AuthMiddleware(app.Issuer))

	app.Handler.Routes(router.PathPrefix("/api/v1").Subrouter())
	router.HandleFunc("/ws", app.Hub.ServeWS)
	router.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:         app.Config.Server.Host + ":" + app.Config.Server.ChatServicePort,
		Handler:      router,
		ReadTimeout:  time.Duration(app.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(app.Config.Server.WriteTimeout) * time.Second,
	}

	// Ops port: standard gRPC health and reflection.
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(loggingUnaryInterceptor),
		grpc.StreamInterceptor(loggingStreamInterceptor),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+app.Config.Server.HealthGRPCPort)
	if err != nil {
		logger.Error("failed to listen", "port", app.Config.Server.HealthGRPCPort, "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("health service running", "port", app.Config.Server.HealthGRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve failed", "error", err)
		}
	}()

	go func() {
		logger.Info("chat service running", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			os.Exit(1)
		}
	}()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("chat", healthpb.HealthCheckResponse_SERVING)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down chat service")
	healthServer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("chat service stopped")
}

func loggingUnaryInterceptor(ctx context.Context, req interface{},
	info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	start := time.Now()
	resp, err := handler(ctx, req)

	duration := time.Since(start)
	if err != nil {
		slog.Warn("grpc call failed", "method", info.FullMethod, "duration", duration, "error", err)
	} else {
		slog.Debug("grpc call", "method", info.FullMethod, "duration", duration)
	}

	return resp, err
}

func loggingStreamInterceptor(srv interface{}, stream grpc.ServerStream,
	info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {

	slog.Debug("grpc stream started", "method", info.FullMethod)
	err := handler(srv, stream)

	if err != nil {
		slog.Warn("grpc stream ended with error", "method", info.FullMethod, "error", err)
	} else {
		slog.Debug("grpc stream completed", "method", info.FullMethod)
	}
	return err
}
