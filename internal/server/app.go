// Package server assembles the application: session store, ERP connections,
// alerting, archiving and the HTTP API, with graceful shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/ropbridge/ropbridge/internal/logging"
	"github.com/ropbridge/ropbridge/internal/server/alerts"
	"github.com/ropbridge/ropbridge/internal/server/archive"
	"github.com/ropbridge/ropbridge/internal/server/clock"
	"github.com/ropbridge/ropbridge/internal/server/config"
	"github.com/ropbridge/ropbridge/internal/server/erp/logoclient"
	"github.com/ropbridge/ropbridge/internal/server/erp/stock"
	"github.com/ropbridge/ropbridge/internal/server/httpapi"
	"github.com/ropbridge/ropbridge/internal/server/repositories/repomanager"
	"github.com/ropbridge/ropbridge/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	erpDB   *sql.DB
	alerter alerts.Alerter
	httpd   *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("session store init error: %w", err)
	}

	manager := repomanager.NewPostgresRepositoryManager()
	if err := manager.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	erpDB, err := sql.Open("sqlserver", cfg.ERPDatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("erp database init error: %w", err)
	}

	stockRepo, err := stock.NewMSSQLRepository(erpDB, cfg.FirmNo, cfg.PeriodNo)
	if err != nil {
		return nil, fmt.Errorf("erp repository init error: %w", err)
	}

	var alerter alerts.Alerter
	if cfg.AMQPURL != "" {
		alerter, err = alerts.NewAMQPAlerter(cfg.AMQPURL, cfg.AlertQueue)
		if err != nil {
			return nil, fmt.Errorf("alert broker init error: %w", err)
		}
	} else {
		alerter = alerts.NewLogAlerter(logger)
	}

	var archiver archive.Archiver
	if cfg.S3Bucket != "" {
		archiver = archive.NewS3Archiver(archive.Config{
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
			Bucket:       cfg.S3Bucket,
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
		})
	}

	logo := logoclient.New(logoclient.Config{
		BaseURL:  cfg.LogoBaseURL,
		Username: cfg.LogoUsername,
		Password: cfg.LogoPassword,
		FirmNo:   cfg.FirmNo,
		APIKey:   cfg.LogoAPIKey,
	})

	clk := clock.System{}
	tokenService := services.NewTokenService(db, manager, cfg, alerter, logger, clk)
	userService := services.NewUserService(db, manager, tokenService, logger)
	mrpService := services.NewMRPService(stockRepo, logo, archiver, logger, clk)

	httpd := httpapi.New(userService, tokenService, stockRepo, mrpService,
		manager.Audit(db), logger, cfg.FirmNo)

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		erpDB:   erpDB,
		alerter: alerter,
		httpd:   httpd,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	app.logger.Info(ctx, "starting server", "addr", app.config.EndpointAddrHTTP)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.httpd.ListenAndServe(app.config.EndpointAddrHTTP)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "http server error", "error", err)
		}
	}

	app.shutdown()
}

func (app *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	app.logger.Info(ctx, "shutting down")

	if err := app.httpd.Shutdown(ctx); err != nil {
		app.logger.Error(ctx, "http shutdown error", "error", err)
	}
	if c, ok := app.alerter.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			app.logger.Error(ctx, "alert broker close error", "error", err)
		}
	}
	if err := app.erpDB.Close(); err != nil {
		app.logger.Error(ctx, "erp database close error", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "session store close error", "error", err)
	}
}
