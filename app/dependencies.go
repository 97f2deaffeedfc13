// Package app wires configuration, storage and services into a runnable application.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/upb/contact-directory/config"
	"github.com/upb/contact-directory/middleware"
	"github.com/upb/contact-directory/repositories"
	"github.com/upb/contact-directory/repositories/memory"
	"github.com/upb/contact-directory/repositories/sqlstore"
	"github.com/upb/contact-directory/services/audit"
	"github.com/upb/contact-directory/services/auth"
	"github.com/upb/contact-directory/services/contact"
	"github.com/upb/contact-directory/services/importer"
	"github.com/upb/contact-directory/services/license"
	"github.com/upb/contact-directory/services/token"
	"github.com/upb/contact-directory/services/user"
	"go.uber.org/zap"
)

const defaultStopTimeout = 10 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlstore.DB // nil when running on the in-memory store

	// Repositories
	Repos     *repositories.Repositories
	TxManager repositories.TransactionManager

	// Services
	Tokens   *token.Service
	Audit    *audit.Recorder
	Auth     *auth.Service
	Contacts *contact.Service
	Licenses *license.Service
	Users    *user.Service
	Importer *importer.Service

	// Middleware
	AuthMiddleware *middleware.AuthMiddleware
	LoginThrottle  *middleware.Throttle
}

// NewDependencies opens the configured database, migrates it and wires every service.
// The audit recorder is started; Close stops it.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := sqlstore.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := factory.Migrate(ctx); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	deps, err := newDependencies(cfg, logger, factory.NewRepositories(), factory.GetTransactionManager())
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	deps.DB = factory.GetDB()

	logger.Info("all dependencies initialized successfully",
		zap.String("database", cfg.Database.LogString()))
	return deps, nil
}

// NewInMemoryDependencies wires every service over a fresh in-memory store
func NewInMemoryDependencies(cfg *config.Config, logger *zap.Logger) (*Dependencies, *memory.Store, error) {
	store := memory.NewStore()
	deps, err := newDependencies(cfg, logger, store.Repositories(), store.TransactionManager())
	if err != nil {
		return nil, nil, err
	}
	return deps, store, nil
}

func newDependencies(cfg *config.Config, logger *zap.Logger, repos *repositories.Repositories, txMgr repositories.TransactionManager) (*Dependencies, error) {
	d := &Dependencies{
		Config:    cfg,
		Logger:    logger,
		Repos:     repos,
		TxManager: txMgr,
	}

	tokens, err := token.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	d.Tokens = tokens

	d.Audit = audit.NewRecorder(repos.AuditLogs, logger.Named("audit"), audit.Config{
		BufferSize:   cfg.Audit.BufferSize,
		WorkerCount:  cfg.Audit.WorkerCount,
		WriteTimeout: cfg.Audit.WriteTimeout,
	})
	if err := d.Audit.Start(); err != nil {
		return nil, fmt.Errorf("failed to start audit recorder: %w", err)
	}

	d.Auth = auth.NewService(repos.Users, txMgr, tokens, d.Audit,
		auth.BootstrapConfig{
			Email:    cfg.Auth.BootstrapEmail,
			Password: cfg.Auth.BootstrapPassword,
			Name:     cfg.Auth.BootstrapName,
		},
		logger.Named("auth"),
		auth.WithBcryptCost(cfg.Auth.BcryptCost))
	d.Contacts = contact.NewService(repos.Contacts, logger.Named("contacts"))
	d.Licenses = license.NewService(repos.Licenses, nil, logger.Named("licenses"))
	d.Users = user.NewService(repos.Users, txMgr, user.LicenseFileCheck(cfg.Storage.LicenseFile),
		cfg.Auth.BcryptCost, logger.Named("users"))
	d.Importer = importer.NewService(cfg.Storage.UploadDir, logger.Named("importer"))

	d.AuthMiddleware = middleware.NewAuthMiddleware(tokens, cfg.Auth.PublicPrefixes, logger.Named("authn"))
	d.LoginThrottle = middleware.NewThrottle(middleware.ThrottleConfig{
		PerMinute: cfg.Auth.LoginRatePerMin,
		Burst:     cfg.Auth.LoginBurst,
	}, logger.Named("throttle"))

	return d, nil
}

// SQLDB returns the underlying pool for health checks, or nil on the in-memory store
func (d *Dependencies) SQLDB() *sql.DB {
	if d.DB == nil {
		return nil
	}
	return d.DB.DB
}

// Close drains the audit recorder and closes the database
func (d *Dependencies) Close() error {
	var errs []error

	if d.Audit != nil {
		timeout := d.Config.Audit.StopTimeout
		if timeout <= 0 {
			timeout = defaultStopTimeout
		}
		if err := d.Audit.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("audit recorder: %w", err))
		}
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	d.Logger.Info("all dependencies closed successfully")
	return nil
}
