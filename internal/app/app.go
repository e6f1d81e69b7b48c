// Package app wires configuration, logging, storage, authentication and both
// transports together and runs them until a shutdown signal arrives.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/bookmarks/internal/auth"
	"github.com/patric-chuzhbe/bookmarks/internal/config"
	"github.com/patric-chuzhbe/bookmarks/internal/db/jsondb"
	"github.com/patric-chuzhbe/bookmarks/internal/db/memorystorage"
	"github.com/patric-chuzhbe/bookmarks/internal/db/postgresdb"
	"github.com/patric-chuzhbe/bookmarks/internal/db/storage"
	"github.com/patric-chuzhbe/bookmarks/internal/grpcserver"
	"github.com/patric-chuzhbe/bookmarks/internal/grpcserver/interceptor"
	"github.com/patric-chuzhbe/bookmarks/internal/hasher"
	"github.com/patric-chuzhbe/bookmarks/internal/ipchecker"
	"github.com/patric-chuzhbe/bookmarks/internal/logger"
	"github.com/patric-chuzhbe/bookmarks/internal/models"
	"github.com/patric-chuzhbe/bookmarks/internal/router"
	"github.com/patric-chuzhbe/bookmarks/internal/service"
	"github.com/patric-chuzhbe/bookmarks/internal/token"
)

const shutdownTimeout = 10 * time.Second

// App holds everything needed to serve the bookmarks API over HTTP and gRPC.
type App struct {
	cfg          *config.Config
	db           storage.Storage
	httpHandler  http.Handler
	grpcServer   *grpc.Server
	grpcListener net.Listener
}

// New loads the configuration and builds the App.
func New(optionsProto ...config.InitOption) (*App, error) {
	cfg, err := config.New(optionsProto...)
	if err != nil {
		return nil, err
	}

	return NewWithConfig(cfg)
}

// NewWithConfig initializes the logger, opens the storage selected by cfg and
// builds both transports. The gRPC listener is opened only when cfg.GRPCAddr is set.
func NewWithConfig(cfg *config.Config) (*App, error) {
	var err error
	app := &App{cfg: cfg}

	err = logger.Init(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(cfg)
	if err != nil {
		return nil, err
	}

	tokens, err := token.New([]byte(cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	ipChecker, err := ipchecker.New(cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	theAuth := auth.New(app.db, hasher.New(), tokens)
	svc := service.New(app.db)

	app.httpHandler = router.New(
		theAuth,
		svc,
		ipChecker,
		router.WithGzip(cfg.EnableGzip),
	).Handler()

	if cfg.GRPCAddr != "" {
		app.grpcServer, app.grpcListener, err = grpcserver.NewGRPCServer(
			cfg.GRPCAddr,
			grpcserver.NewBookmarksHandler(theAuth, svc),
			interceptor.NewAuthInterceptor(theAuth),
		)
		if err != nil {
			return nil, fmt.Errorf("in internal/app/app.go/NewWithConfig(): error while `grpcserver.NewGRPCServer()` calling: %w", err)
		}
	}

	return app, nil
}

// Run serves until SIGINT or SIGTERM and then shuts both servers down gracefully.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.serve(ctx)
}

func (a *App) serve(ctx context.Context) error {
	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr, "GRPCAddr", a.cfg.GRPCAddr)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 2)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	if a.grpcServer != nil {
		go func() {
			if err := a.grpcServer.Serve(a.grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				serverErrCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Saving database and exiting...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if a.grpcServer != nil {
			a.grpcServer.GracefulStop()
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		if a.grpcServer != nil {
			a.grpcServer.Stop()
		}
		_ = server.Close()
		if closeErr := a.db.Close(); closeErr != nil {
			logger.Log.Errorln("Error calling the `a.db.Close()`: ", zap.Error(closeErr))
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// Close flushes the logger.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
