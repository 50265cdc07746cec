package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/fleetledger/internal/alerts"
	"github.com/example/fleetledger/internal/config"
	"github.com/example/fleetledger/internal/database"
	"github.com/example/fleetledger/internal/ledger"
	"github.com/example/fleetledger/internal/routes"
	"github.com/example/fleetledger/internal/services"
	"github.com/example/fleetledger/internal/signup"
	"github.com/example/fleetledger/internal/stats"
	"github.com/example/fleetledger/internal/store"
	"github.com/example/fleetledger/internal/utils"
)

// pendingGrace keeps expired signups around long enough to report them as expired.
const pendingGrace = 10 * time.Minute

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := utils.SystemClock{}

	var st store.Store
	switch cfg.StoreBackend {
	case "postgres":
		db, err := database.Connect(cfg.DatabaseURL, database.Options{
			Debug:           cfg.IsDevelopment(),
			MaxOpenConns:    20,
			ConnMaxLifetime: time.Hour,
		}, logger.Named("database"))
		if err != nil {
			return err
		}
		st = store.NewGormStore(db)
	default:
		logger.Warn("using in-memory store; data is lost on restart")
		st = store.NewMemoryStore()
	}

	var pending store.PendingStore
	switch cfg.PendingBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		pending = store.NewRedisPending(client, pendingGrace)
	default:
		pending = store.NewMemoryPending()
	}

	notifyLog := logger.Named("notify")
	primary, closeNotifier, err := newNotifier(cfg, notifyLog)
	if err != nil {
		return err
	}
	defer closeNotifier()

	var mirrors []services.Notifier
	if telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, notifyLog); telegram.Configured() {
		mirrors = append(mirrors, telegram)
	}
	notifier := services.NewDispatcher(primary, cfg.NotifyTimeout, notifyLog, mirrors...)

	blobs, err := services.NewDiskStore(cfg.UploadDir)
	if err != nil {
		return err
	}

	if cfg.DevEchoOTP {
		logger.Warn("DEV_ECHO_OTP is enabled; verification codes are returned to clients")
	}
	issuer, err := signup.NewIssuer(
		st,
		pending,
		utils.NewHasher(bcrypt.DefaultCost),
		utils.NewTokenSigner(cfg.JWTSecret, cfg.TokenExpiry, clock),
		notifier,
		clock,
		signup.Options{CodeTTL: cfg.OTPTTL, CodeLength: cfg.OTPLength, DevEcho: cfg.DevEchoOTP},
		logger.Named("signup"),
	)
	if err != nil {
		return err
	}

	loc := cfg.Location()
	app := routes.NewApp(routes.Deps{
		Config:   cfg,
		Logger:   logger,
		Issuer:   issuer,
		Ledger:   ledger.NewService(st, clock, logger.Named("ledger")),
		Stats:    stats.NewEngine(st, clock, loc),
		Alerts:   alerts.NewScanner(st, clock, loc),
		Notifier: notifier,
		Blobs:    blobs,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
		errCh <- app.Listen(":" + cfg.AppPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

func newNotifier(cfg *config.Config, logger *zap.Logger) (services.Notifier, func(), error) {
	switch cfg.Notifier {
	case "sms":
		gw := services.NewSMSGateway(cfg.SMSAPIURL, cfg.SMSAPIKey, cfg.SMSSenderID, &http.Client{Timeout: cfg.NotifyTimeout})
		return gw, func() {}, nil
	case "amqp":
		n, err := services.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return nil, nil, err
		}
		return n, func() {
			if err := n.Close(); err != nil {
				logger.Warn("close amqp notifier", zap.Error(err))
			}
		}, nil
	default:
		return services.NewLogNotifier(logger), func() {}, nil
	}
}
