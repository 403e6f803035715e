package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/cosmasken/paymebro-backend-sub000/internal/ctxkeys"
	"github.com/cosmasken/paymebro-backend-sub000/internal/logging"
	"github.com/cosmasken/paymebro-backend-sub000/internal/reporting"
	"github.com/cosmasken/paymebro-backend-sub000/payments"
	"github.com/cosmasken/paymebro-backend-sub000/payments/notify"
	"github.com/cosmasken/paymebro-backend-sub000/payments/pgrepo"
	"github.com/cosmasken/paymebro-backend-sub000/payments/solanaledger"
)

// app bundles the wired collaborators a running process needs, assembled
// once at startup the way the teacher's services/*/cmd packages assemble
// their service structs from viper-bound configuration.
type app struct {
	monitor *payments.Monitor
	room    *payments.NotificationRoom
}

func buildApp(ctx context.Context) (*app, error) {
	logger := logging.Module(ctx, "startup")

	if dsn := viper.GetString("sentry-dsn"); dsn != "" {
		if err := reporting.Init(dsn, "production"); err != nil {
			logger.Error().Err(err).Msg("unable to set up error reporting")
		}
	}

	db, err := pgrepo.Connect(viper.GetString("database-url"))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pgrepo.Migrate(db, viper.GetString("migrations-path")); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	repo := pgrepo.New(db)

	ledger := solanaledger.New(viper.GetString("rpc-endpoint"))

	var webhook payments.WebhookNotifier
	if endpoint := viper.GetString("webhook-endpoint"); endpoint != "" {
		webhook = notify.NewHTTPWebhookNotifier(endpoint)
	} else {
		logger.Warn().Msg("no webhook-endpoint configured; payment.confirmed will not be emitted")
	}

	room := payments.NewNotificationRoom()

	var live payments.LiveNotifier
	if addr := viper.GetString("redis-addr"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		live = notify.NewRedisLiveNotifier(rdb)
	}

	email := notify.NewLoggingEmailNotifier()

	confirmer := payments.NewConfirmer(repo, webhook, live, email, payments.SystemClock{})

	retryCfg := payments.DefaultRetryConfig()
	classifier := payments.NewClassifier(retryCfg, payments.SystemClock{}, payments.RealSleeper{})

	var fallback *payments.Fallback
	if viper.GetBool("fallback-enabled") {
		fallback = payments.NewFallback(ledger)
	}

	monCfg := payments.DefaultMonitorConfig()
	if bs := viper.GetInt("batch-size"); bs > 0 {
		monCfg.BatchSize = bs
	}
	if mc := viper.GetInt("max-concurrency"); mc > 0 {
		monCfg.MaxConcurrency = mc
	}
	monCfg.FallbackEnabled = viper.GetBool("fallback-enabled")

	monitor := payments.NewMonitor(monCfg, repo, ledger, confirmer, classifier, fallback)

	return &app{monitor: monitor, room: room}, nil
}

func newContext() context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, ctxkeys.Environment, "production")
	ctx, _ = logging.SetupLogger(ctx)
	return ctx
}

// awaitShutdown blocks until ctx is cancelled, then stops the monitor with
// a bounded grace period.
func awaitShutdown(ctx context.Context, a *app) {
	<-ctx.Done()
	stopped := make(chan struct{})
	go func() {
		a.monitor.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(30 * time.Second):
	}
}
