package cli

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/sitebuy-backend/internal/adapters/notify"
	"github.com/eshaffer321/sitebuy-backend/internal/application/invoicing"
	"github.com/eshaffer321/sitebuy-backend/internal/application/purchasing"
	"github.com/eshaffer321/sitebuy-backend/internal/application/reporting"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/forecast"
	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/config"
	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/storage"
)

// App is the wired application shared by every command.
type App struct {
	Store      *storage.Storage
	Notifier   notify.Notifier
	Invoicing  *invoicing.Service
	Purchasing *purchasing.Service
	Forecast   *reporting.ForecastService
}

// NewApp opens storage and builds the services from cfg.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}

	notifier := NewNotifier(cfg.Notifications, logger)

	markup := decimal.NewFromFloat(cfg.Forecast.RevenueMarkup)
	engine := forecast.NewEngine(forecast.Options{
		RevenueMarkup:      &markup,
		ForecastFromBudget: cfg.Forecast.FromBudget,
	})

	return &App{
		Store:    store,
		Notifier: notifier,
		Invoicing: invoicing.NewService(store, notifier, logger.With("component", "invoicing"), invoicing.Options{
			DefaultTolerance: cfg.Matching.Tolerance(),
			SweepConcurrency: cfg.Sweep.Concurrency,
			NotifyTimeout:    cfg.Notifications.Timeout,
		}),
		Purchasing: purchasing.NewService(store, logger.With("component", "purchasing"), nil),
		Forecast:   reporting.NewForecastService(store, engine, logger.With("component", "reporting")),
	}, nil
}

// NewNotifier always logs; a configured webhook is added alongside.
func NewNotifier(cfg config.NotificationsConfig, logger *slog.Logger) notify.Notifier {
	log := notify.NewLogNotifier(logger)
	if cfg.WebhookURL == "" {
		return log
	}
	webhook := notify.NewWebhookNotifier(notify.WebhookConfig{
		URL:          cfg.WebhookURL,
		MaxRetries:   cfg.MaxRetries,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
		Timeout:      cfg.Timeout,
	}, logger)
	return notify.Multi{log, webhook}
}

// Close releases the database.
func (a *App) Close() error {
	return a.Store.Close()
}
