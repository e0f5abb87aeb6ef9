package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "charm.land/log/v2"
	"github.com/batimarket/batimarket/auth"
	"github.com/batimarket/batimarket/cockroach"
	"github.com/batimarket/batimarket/cockroach/migrator"
	"github.com/batimarket/batimarket/config"
	"github.com/batimarket/batimarket/pubsub"
	"github.com/batimarket/batimarket/realtime"
	"github.com/batimarket/batimarket/service"
	transporthttp "github.com/batimarket/batimarket/transport/http"
	"github.com/batimarket/batimarket/webpush"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	errLogger := slog.New(charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
	}))
	infoLogger := slog.New(charmlog.NewWithOptions(os.Stdout, charmlog.Options{
		ReportTimestamp: true,
	}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbPool, err := pgxpool.New(ctx, cfg.CockroachURL)
	if err != nil {
		return fmt.Errorf("open cockroach connection pool: %w", err)
	}

	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		return fmt.Errorf("ping cockroach: %w", err)
	}

	migrationStart := time.Now()
	infoLogger.Info("starting cockroach migrations")

	applied, err := migrator.Migrate(ctx, dbPool, cockroach.MigrationsFS)
	if err != nil {
		return fmt.Errorf("migrate cockroach schema: %w", err)
	}

	infoLogger.Info("finished cockroach migrations", "applied", applied, "took", time.Since(migrationStart))

	broker, closeBroker, err := dialBroker(cfg, infoLogger)
	if err != nil {
		return err
	}

	defer closeBroker()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store := cockroach.New(dbPool)
	gateway := realtime.New(broker, errLogger, realtime.NewMetrics(reg))

	svcCfg := &service.Config{
		Store:             store,
		Publisher:         gateway,
		Logger:            errLogger,
		Metrics:           service.NewMetrics(reg),
		BaseCtx:           context.WithoutCancel(ctx),
		BackgroundTimeout: cfg.BackgroundTimeout,
	}

	pusher := webpush.New(webpush.Config{
		Store:           store,
		Logger:          infoLogger,
		VAPIDPublicKey:  cfg.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.VAPIDPrivateKey,
		Subscriber:      cfg.VAPIDSubscriber,
	})
	if pusher.Enabled() {
		svcCfg.Pusher = pusher
	} else {
		infoLogger.Warn("web push disabled: no VAPID keys configured")
	}

	svc := service.New(svcCfg)

	go func() {
		for err := range svc.Errs() {
			errLogger.Error("service error", "error", err)
		}
	}()

	handler := &transporthttp.Handler{
		Service:        svc,
		Gateway:        gateway,
		Tokens:         auth.Tokens{Key: cfg.TokenKey},
		Logger:         errLogger,
		WebOrigin:      cfg.WebOrigin,
		VAPIDPublicKey: cfg.VAPIDPublicKey,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Sockets derive from ctx so they close on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		infoLogger.Info("starting batimarket server", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("start batimarket server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		infoLogger.Info("shutting down batimarket server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown batimarket server: %w", err)
		}
		return nil
	})

	err = g.Wait()

	// Lets pending web pushes finish.
	if cerr := svc.Close(); cerr != nil && err == nil {
		err = cerr
	}

	return err
}

// dialBroker connects to NATS when configured, otherwise every event stays
// in process.
func dialBroker(cfg config.Config, logger *slog.Logger) (pubsub.PubSub, func(), error) {
	if cfg.NATSURL == "" {
		logger.Info("using in-process realtime broker")
		return pubsub.NewMemory(), func() {}, nil
	}

	nc, err := pubsub.DialNATS(cfg.NATSURL, "batimarket")
	if err != nil {
		return nil, nil, fmt.Errorf("dial nats: %w", err)
	}

	logger.Info("using nats realtime broker", "url", cfg.NATSURL)

	return nc, func() {
		if err := nc.Close(); err != nil {
			logger.Error("close nats connection", "error", err)
		}
	}, nil
}
