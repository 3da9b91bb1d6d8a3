// Package server wires the MediaVault services together and runs the HTTP
// server until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/cryptox"
	"github.com/dmitrijs2005/mediavault/internal/logging"
	"github.com/dmitrijs2005/mediavault/internal/server/config"
	"github.com/dmitrijs2005/mediavault/internal/server/httpapi"
	"github.com/dmitrijs2005/mediavault/internal/server/mail"
	"github.com/dmitrijs2005/mediavault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mediavault/internal/server/services"
	"github.com/dmitrijs2005/mediavault/internal/server/storage"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenPurgeInterval = time.Hour
	// tokenPurgeGrace keeps expired tokens around long enough to tell
	// "expired" apart from "unknown".
	tokenPurgeGrace = 7 * 24 * time.Hour
	contentURLTTL   = 5 * time.Minute
)

type App struct {
	config  *config.Config
	logger  *logging.ZapLogger
	db      *sql.DB
	closers []io.Closer

	tokens *services.TokenService
	http   *httpapi.Server
}

// NewApp opens the database, runs migrations and builds every service.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewZap(c.LogLevel, c.LogFormat)
	app := &App{config: c, logger: logger}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db)

	if err := db.PingContext(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := storage.NewS3Store(ctx, c)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("object storage init error: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("object storage bucket error: %w", err)
	}

	masterKey, err := cryptox.ParseMasterKey(c.MediaEncryptionKey)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("media encryption key: %w", err)
	}
	if masterKey == nil {
		logger.Warn(ctx, "media encryption is off; set media_encryption_key to store blobs encrypted")
	}

	var sender mail.Sender = mail.LogSender{Log: logger.With("module", "mail")}
	if c.SMTPHost != "" {
		sender = mail.NewSMTPSender(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.MailFrom)
	}
	notifier := mail.NewNotifier(sender, c.BaseURL, c.VerificationTokenTTL, c.ResetTokenTTL, logger)

	app.tokens = services.NewTokenService(db, m, c)
	authSvc := services.NewAuthService(db, m, c, app.tokens, cryptox.NewBcryptHasher(bcrypt.DefaultCost), notifier, logger)
	folders := services.NewFolderService(db, m, store, logger)
	shares := services.NewShareService(db, m, logger)
	media := services.NewMediaService(db, m, folders, store, masterKey, logger)
	documents := services.NewDocumentService(db, m, store, masterKey, logger)

	sessions, sessCloser, err := httpapi.NewSessionStore(c)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("session store init error: %w", err)
	}
	app.closers = append(app.closers, sessCloser)

	checks := map[string]httpapi.HealthCheck{
		"database": db.PingContext,
	}

	var limiter middleware.RateLimiterStore
	if c.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword})
		app.closers = append(app.closers, rdb)
		limiter = httpapi.NewRedisRateStore(rdb, httpapi.AuthRateLimit, httpapi.AuthRateWindow, logger.With("module", "ratelimit"))
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	app.http = httpapi.NewServer(httpapi.Deps{
		Address:        c.EndpointAddrHTTP,
		JWTSecret:      c.SecretKey,
		AccessTokenTTL: c.AccessTokenValidityDuration,
		ContentURLTTL:  contentURLTTL,
		Logger:         logger,
		Auth:           authSvc,
		Folders:        folders,
		Shares:         shares,
		Media:          media,
		Documents:      documents,
		Sessions:       sessions,
		RateLimit:      limiter,
		Checks:         checks,
	})

	return app, nil
}

// OpenAdminAuth connects to the database and returns an AuthService for
// maintenance commands. Mail is logged to stderr instead of sent.
func OpenAdminAuth(ctx context.Context, c *config.Config) (*services.AuthService, io.Closer, error) {
	logger := logging.NewSlogText(os.Stderr, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}
	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrations error: %w", err)
	}

	notifier := mail.NewNotifier(mail.LogSender{Log: logger}, c.BaseURL, c.VerificationTokenTTL, c.ResetTokenTTL, logger)
	tokens := services.NewTokenService(db, m, c)
	return services.NewAuthService(db, m, c, tokens, cryptox.NewBcryptHasher(bcrypt.DefaultCost), notifier, logger), db, nil
}

// Close releases every resource opened by NewApp, newest first.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	_ = app.logger.Sync()
	return errors.Join(errs...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// purgeTokens periodically removes long-expired single-use tokens.
func (app *App) purgeTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.tokens.PurgeExpired(ctx, tokenPurgeGrace)
			if err != nil {
				app.logger.Warn(ctx, "token purge failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "purged expired tokens", "count", n)
			}
		}
	}
}

// Run blocks until a signal arrives or the HTTP server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.purgeTokens(ctx)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(context.Background(), "shutdown error", "error", err)
	}
}
