// Package server wires the process together: logger, database, queue, mail
// and HTTP. Everything with a process lifetime is built here once and
// injected; nothing below reads config.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/kumarketplace/marketplace/app/controllers"
	"github.com/kumarketplace/marketplace/app/jobs"
	"github.com/kumarketplace/marketplace/app/repositories"
	"github.com/kumarketplace/marketplace/app/routes"
	"github.com/kumarketplace/marketplace/app/services"
	"github.com/kumarketplace/marketplace/config"
	"github.com/kumarketplace/marketplace/pkg/auth"
	"github.com/kumarketplace/marketplace/pkg/bind"
	"github.com/kumarketplace/marketplace/pkg/database"
	"github.com/kumarketplace/marketplace/pkg/logger"
	"github.com/kumarketplace/marketplace/pkg/mail"
	"github.com/kumarketplace/marketplace/pkg/middleware"
	"github.com/kumarketplace/marketplace/pkg/queue"
	"github.com/kumarketplace/marketplace/pkg/response"
	"github.com/kumarketplace/marketplace/pkg/router"
)

const shutdownTimeout = 10 * time.Second

// App is a fully wired process.
type App struct {
	settings Settings

	DB     *gorm.DB
	Queue  *queue.Manager
	Router *router.Router
	Users  *repositories.UserRepository

	limiter *middleware.Limiter
	closers []func()
}

// New builds the App. Call Close when done, also after a failed Serve.
func New(s Settings) (*App, error) {
	if s.Production && (s.JWTSecret == "" || s.JWTSecret == config.DefaultJWTSecret) {
		return nil, errors.New("server: JWT_SECRET must be set in production")
	}

	a := &App{settings: s}
	a.setupLogger()

	db, err := database.Open(s.Database)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, func() { _ = database.Close(db) })

	driver, err := a.queueDriver()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Queue = queue.NewManager(driver, queue.Options{MaxRetry: s.QueueMaxRetry, FailedStore: db})
	jobs.Register(a.Queue, mail.New(s.Mail), s.AdminEmail)

	users := repositories.NewUserRepository(db)
	orders := repositories.NewOrderRepository(db)
	tokens := auth.NewTokens(s.JWTSecret, s.JWTTTL)

	authService := services.NewAuthService(users, tokens)
	orderService := services.NewOrderService(orders, jobs.NewQueueNotifier(a.Queue))
	adminService := services.NewAdminService(users, orders, time.Local)

	binder := bind.New(s.MaxBodyBytes)
	a.limiter = middleware.NewLimiter(s.AuthRateLimit, s.AuthRateWindow)
	a.Users = users

	a.Router = router.New()
	routes.Register(a.Router, routes.Deps{
		Auth:          controllers.NewAuthController(authService, binder),
		Orders:        controllers.NewOrderController(orderService, binder),
		Admin:         controllers.NewAdminController(adminService, binder),
		Authenticator: tokens,
		Admins:        authService,
		AuthLimiter:   a.limiter,
		CORS:          middleware.DefaultCORSOptions(s.CORSOrigins...),
		HSTS:          s.Production,
		TrustProxy:    s.TrustProxy,
		Health:        a.health,
	})

	return a, nil
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests. With workers set, queue workers run in the same process; the
// memory queue driver requires that.
func (a *App) Serve(ctx context.Context, workers bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.limiter.Run(ctx)
	if workers {
		a.Queue.Start(ctx, a.settings.QueueWorkers)
	} else if a.settings.QueueDriver != "redis" {
		logger.Warn("server: memory queue without workers, notifications will not be sent")
	}

	srv := &http.Server{
		Addr:              ":" + a.settings.Port,
		Handler:           a.Router.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server: listening", "addr", srv.Addr, "env", envName(a.settings.Production))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		logger.Info("server: shutting down")
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = fmt.Errorf("server: shutdown: %w", err)
	}

	cancel()
	a.Queue.Wait()
	return serveErr
}

// Work runs queue workers only, until ctx is cancelled.
func (a *App) Work(ctx context.Context, n int) error {
	if a.settings.QueueDriver != "redis" {
		return errors.New("server: queue:work needs QUEUE_DRIVER=redis, the memory queue only lives inside serve")
	}
	if n <= 0 {
		n = a.settings.QueueWorkers
	}
	a.Queue.Start(ctx, n)
	<-ctx.Done()
	a.Queue.Wait()
	return nil
}

// Close releases everything New acquired, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) setupLogger() {
	s := a.settings
	if s.LogMongoURI == "" {
		logger.Setup(s.Production)
		return
	}

	h, err := logger.NewMongoHandler(s.LogMongoURI, s.LogMongoDB, s.LogMongoCollection, slog.LevelInfo)
	if err != nil {
		logger.Setup(s.Production)
		logger.Warn("server: mongo log sink disabled", "error", err)
		return
	}
	logger.Setup(s.Production, h)
	a.closers = append(a.closers, h.Close)
}

func (a *App) queueDriver() (queue.Driver, error) {
	switch a.settings.QueueDriver {
	case "", "memory":
		return queue.NewMemoryDriver(), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     a.settings.RedisAddr,
			Password: a.settings.RedisPassword,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("server: redis ping: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		return queue.NewRedisDriver(rdb), nil
	default:
		return nil, fmt.Errorf("server: unknown QUEUE_DRIVER %q", a.settings.QueueDriver)
	}
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := database.Ping(ctx, a.DB); err != nil {
		logger.WithCtx(r.Context()).Warn("health: database unreachable", "error", err)
		response.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	response.Success(w, map[string]string{"status": "ok"})
}

func envName(production bool) string {
	if production {
		return "production"
	}
	return "local"
}
