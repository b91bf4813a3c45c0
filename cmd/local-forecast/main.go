package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httpapi "github.com/i474232898/local-forecast/internal/api/http"
	"github.com/i474232898/local-forecast/internal/config"
	"github.com/i474232898/local-forecast/internal/forecast"
	"github.com/i474232898/local-forecast/internal/location"
	"github.com/i474232898/local-forecast/internal/logging"
	"github.com/i474232898/local-forecast/internal/publish"
	"github.com/i474232898/local-forecast/internal/scheduler"
	"github.com/i474232898/local-forecast/internal/weather"
	"github.com/i474232898/local-forecast/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(logging.Config{Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("local-forecast stopped", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	locator, err := newLocator(cfg.Location)
	if err != nil {
		return err
	}
	device := location.NewDevice(location.DeviceOptions{
		Initial:    cfg.Location.Authorization,
		Grant:      cfg.Location.AutoGrant,
		Locator:    locator,
		FixTimeout: cfg.HTTPTimeout,
	}, logger)
	authority := location.NewAuthority(device, logger)

	zone, err := weather.ParseZoneResolver(cfg.ForecastTimeZone)
	if err != nil {
		return err
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	provider := providers.NewOpenWeatherProvider(httpClient, providers.OpenWeatherOptions{
		BaseURL: cfg.OpenWeatherBaseURL,
		Units:   cfg.OpenWeatherUnits,
		Zone:    zone,
		Logger:  logger,
	})

	orch := forecast.New(authority, provider, forecast.Options{
		Credential: cfg.OpenWeatherAPIKey,
		Logger:     logger,
	})
	defer orch.Close()

	if cfg.MQTT.Broker != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		client, err := publish.Connect(connectCtx, cfg.MQTT.Broker, cfg.MQTT.ClientID, logger)
		cancel()
		if err != nil {
			return err
		}
		defer client.Disconnect(250)

		pub := publish.NewPublisher(client, publish.Options{Topic: cfg.MQTT.Topic, QoS: 1}, logger)
		defer pub.Attach(orch.State())()
		go pub.Run(ctx)
	}

	// Scheduler that periodically starts a run.
	sched := scheduler.New(orch, cfg.RefreshInterval, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(orch, device)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", zap.Error(err))
			stop()
		}
	}()
	logger.Info("listening", zap.String("port", cfg.Port))

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("error during shutdown", zap.Error(err))
	}
	return nil
}

func newLocator(cfg config.LocationConfig) (location.Locator, error) {
	switch {
	case cfg.Static():
		return location.Static(location.Coordinate{Latitude: *cfg.Latitude, Longitude: *cfg.Longitude}), nil
	case cfg.City != "":
		return location.NewAddressLocator(cfg.GeocoderAPIKey, cfg.City, cfg.Country)
	default:
		return nil, fmt.Errorf("no device position source: set LOCATION_LATITUDE/LOCATION_LONGITUDE or LOCATION_ADDRESS_CITY")
	}
}
