package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking/internal/api"
	"github.com/hackgods/clinic-booking/internal/appointment"
	"github.com/hackgods/clinic-booking/internal/auth"
	"github.com/hackgods/clinic-booking/internal/config"
	"github.com/hackgods/clinic-booking/internal/db"
	"github.com/hackgods/clinic-booking/internal/directory"
	"github.com/hackgods/clinic-booking/internal/identity"
	"github.com/hackgods/clinic-booking/internal/logger"
	"github.com/hackgods/clinic-booking/internal/messaging"
	"github.com/hackgods/clinic-booking/internal/metrics"
	"github.com/hackgods/clinic-booking/internal/queue"
	"github.com/hackgods/clinic-booking/internal/realtime"
	redisclient "github.com/hackgods/clinic-booking/internal/redis"
	"github.com/hackgods/clinic-booking/internal/timeslot"
	"github.com/hackgods/clinic-booking/internal/tracer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("http_port", cfg.HTTPPort),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(rootCtx, tracer.Options{
		Enabled:     cfg.TracingEnabled,
		ServiceName: "clinic-booking",
		Version:     cfg.Version,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRate:  cfg.TracingSampleRate,
	})
	if err != nil {
		return fmt.Errorf("tracer init: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, cfg.DBMaxConns)
	cancelPg()
	if err != nil {
		return fmt.Errorf("postgres connection: %w", err)
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	applied, err := db.Migrate(rootCtx, pgPool)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("migrations applied", zap.Int("count", applied))

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("redis connection: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", zap.Error(err))
		}
	}()
	log.Info("connected to Redis")

	m := metrics.NewCollector()

	hub := realtime.NewHub(log.Named("hub"))
	hub.OnCountChange = func(n int) { m.WebsocketClients.Set(float64(n)) }

	bus := redisclient.NewBus(rdb, cfg.EventsChannel, log.Named("bus"))
	bus.OnPublish = func(eventType string) { m.EventsPublished.WithLabelValues(eventType).Inc() }

	busReady := make(chan struct{})
	busDone := make(chan error, 1)
	go func() { busDone <- bus.Run(rootCtx, hub, busReady) }()

	select {
	case <-busReady:
	case err := <-busDone:
		return fmt.Errorf("event bus: %w", err)
	case <-rootCtx.Done():
		return nil
	}

	// Services
	identityRepo := identity.NewPgRepository(pgPool)
	users := identity.NewService(identityRepo, cfg.AdminEmails, bus, log.Named("identity"))
	guard := users.Guard()

	clinics := directory.NewService(directory.NewPgRepository(pgPool), guard, log.Named("directory"))

	locker := redisclient.NewRedisLocker(rdb, cfg.LockTTL)
	appointments := appointment.NewService(
		appointment.NewPgRepository(pgPool),
		locker,
		clinics,
		guard,
		bus,
		m,
		log.Named("appointment"),
	)

	slots := timeslot.NewService(
		timeslot.NewPgRepository(pgPool),
		guard,
		appointments,
		bus,
		cfg.ClinicLocation,
		log.Named("timeslot"),
	)

	queues := queue.NewService(
		queue.NewPgRepository(pgPool),
		guard,
		appointments,
		bus,
		m,
		queue.Options{
			Location:    cfg.ClinicLocation,
			OpeningHour: cfg.QueueOpeningHour,
			SlotMinutes: cfg.QueueSlotMinutes,
		},
		log.Named("queue"),
	)

	messages := messaging.NewService(messaging.NewPgRepository(pgPool), guard, bus, m, log.Named("messaging"))

	var limiter *api.IPRateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = api.NewIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	router := api.NewRouter(api.RouterConfig{
		Users:        users,
		Directory:    clinics,
		Slots:        slots,
		Appointments: appointments,
		Queue:        queues,
		Messages:     messages,
		Verifier:     auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		Websocket:    realtime.NewHandler(hub, log.Named("ws"), nil),
		Metrics:      m,
		Limiter:      limiter,
		Checks: []api.Check{
			{Name: "postgres", Critical: true, Ping: pgPool.Ping},
			{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
		Location: cfg.ClinicLocation,
		Log:      log.Named("http"),
		Env:      cfg.Env,
		Version:  cfg.Version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	select {
	case <-rootCtx.Done():
	case err := <-srvErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case err := <-busDone:
		if err != nil {
			log.Error("event bus stopped", zap.Error(err))
		}
	}

	log.Info("shutting down api-server", zap.Duration("timeout", cfg.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	stop()
	return nil
}
