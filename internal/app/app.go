// Package app initializes and runs the TinyApp server.
// It configures logging, the in-memory stores, sessions and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/tinyapp/internal/auth"
	"github.com/patric-chuzhbe/tinyapp/internal/config"
	"github.com/patric-chuzhbe/tinyapp/internal/credentialstore"
	"github.com/patric-chuzhbe/tinyapp/internal/idgenerator"
	"github.com/patric-chuzhbe/tinyapp/internal/ipchecker"
	"github.com/patric-chuzhbe/tinyapp/internal/logger"
	"github.com/patric-chuzhbe/tinyapp/internal/router"
	"github.com/patric-chuzhbe/tinyapp/internal/service"
	"github.com/patric-chuzhbe/tinyapp/internal/urlregistry"
	"github.com/patric-chuzhbe/tinyapp/internal/views"
)

// App owns the configuration and the HTTP handler of a running server.
// The stores live as long as the App does; nothing is persisted.
type App struct {
	cfg         *config.Config
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - constructing the credential store and URL registry
// - setting up sessions, views and the router
func New(optionsProto ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(optionsProto...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	authCookieSigningSecretKey, err := resolveSigningKey(app.cfg)
	if err != nil {
		return nil, err
	}

	ids := idgenerator.New()
	users := credentialstore.New(ids, app.cfg.PasswordHashCost)
	urls := urlregistry.New(ids)

	renderer, err := views.New()
	if err != nil {
		return nil, err
	}

	ipChecker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	app.httpHandler = router.New(
		service.New(users, urls, app.cfg.ShortURLBase),
		auth.New(
			users,
			app.cfg.AuthCookieName,
			authCookieSigningSecretKey,
			app.cfg.SessionTTL,
		),
		renderer,
		ipChecker,
	)

	return app, nil
}

// resolveSigningKey returns the configured session signing key or, when none is
// configured, a random one that lives as long as the process.
func resolveSigningKey(cfg *config.Config) ([]byte, error) {
	key, configured, err := cfg.SigningKey()
	if err != nil {
		return nil, err
	}
	if configured {
		return key, nil
	}

	key = make([]byte, config.MinSigningKeyLength)
	_, err = rand.Read(key)
	if err != nil {
		return nil, fmt.Errorf("in internal/app/app.go/resolveSigningKey(): error while `rand.Read()` calling: %w", err)
	}
	logger.Log.Warnln("AUTH_COOKIE_SIGNING_SECRET_KEY is not set, using a random key: sessions will not survive a restart")

	return key, nil
}

// Handler exposes the fully wired HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and stops the server upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infow("server running", "RunAddr", a.cfg.RunAddr, "BaseURL", a.cfg.ShortURLBase)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Stopping the server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return nil

	case err := <-serverErrCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Log.Errorln("server stopped unexpectedly", zap.Error(err))
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}
