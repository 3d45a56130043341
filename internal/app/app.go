package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vegnbio/restobook/internal/clock"
	"github.com/vegnbio/restobook/internal/config"
	"github.com/vegnbio/restobook/internal/identity"
	"github.com/vegnbio/restobook/internal/notify"
	"github.com/vegnbio/restobook/internal/postgres"
	redisx "github.com/vegnbio/restobook/internal/redis"
	postgresrepo "github.com/vegnbio/restobook/internal/repository/postgres"
	redisrepo "github.com/vegnbio/restobook/internal/repository/redis"
	"github.com/vegnbio/restobook/internal/service"
	"github.com/vegnbio/restobook/internal/service/invites"
	httpgin "github.com/vegnbio/restobook/internal/transport/http/gin"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	queue      *notify.AMQPQueue
	mailer     *notify.SMTPMailer
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Name,
		cfg.Postgres.SSLMode,
	)

	pgxPool, err := postgres.New(context.Background(), postgres.Config{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	if err := postgresrepo.Migrate(context.Background(), pgxPool); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	rdb, err := redisx.New(context.Background(), redisx.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	// Notification path: services publish to the queue, the consumer
	// worker delivers over SMTP. Without a broker the mailer is used
	// directly.
	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Addr:     cfg.SMTP.Addr,
		Host:     cfg.SMTP.Host,
		From:     cfg.SMTP.From,
		Password: cfg.SMTP.Password,
	}, logger)

	var (
		queue    *notify.AMQPQueue
		notifier notify.Notifier = mailer
	)
	if cfg.AMQP.URL != "" {
		queue, err = notify.NewAMQPQueue(notify.AMQPConfig{
			URL:      cfg.AMQP.URL,
			Exchange: cfg.AMQP.Exchange,
			Queue:    cfg.AMQP.Queue,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize amqp: %w", err)
		}
		notifier = queue
	}

	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	pubsub := redisx.NewRestaurantsPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(rdb, "restobook:v1:rl:bookings", cfg.App.RateLimit, 1*time.Minute)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)
	accounts := identity.NewPostgresProvider(pgxPool)

	services := service.NewServices(
		store, cache, pubsub, limiter,
		clock.System(), accounts, notifier,
		service.Config{
			Invites: invites.Config{
				BaseURL: cfg.App.BaseURL,
				TTL:     time.Duration(cfg.App.InviteTTLDays) * 24 * time.Hour,
			},
		},
	)

	router := httpgin.NewRouter(
		services,
		idempotencyStore,
		logger,
		httpgin.AuthMiddleware(cfg.Auth.JWTSecret),
	)

	return &App{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
		queue:  queue,
		mailer: mailer,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	if a.queue != nil {
		g.Go(func() error {
			a.logger.Info("notification consumer started")
			if err := a.queue.Consume(gCtx, a.mailer); err != nil && err != context.Canceled {
				return fmt.Errorf("notification consumer: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		if a.queue != nil {
			a.queue.Close()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
