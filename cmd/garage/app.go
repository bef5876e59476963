package main

import (
	"fmt"
	"log/slog"
	"time"

	"garage-skill/config"
	"garage-skill/internal/application"
	"garage-skill/internal/infra/homeassistant"
	"garage-skill/internal/infra/metrics"
	"garage-skill/internal/infra/myq"
	"garage-skill/internal/infra/pushover"
	"garage-skill/internal/infra/tuya"
)

// app is everything a transport needs to answer requests.
type app struct {
	cfg            *config.Config
	logger         *slog.Logger
	skill          *application.Skill
	metrics        *metrics.Metrics
	requestTimeout time.Duration
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	timeout, err := time.ParseDuration(cfg.Server.RequestTimeout)
	if err != nil || timeout <= 0 {
		logger.Warn("invalid request timeout, using default", "error", err, "value", cfg.Server.RequestTimeout)
		timeout = 10 * time.Second
	}

	service, err := newDoorService(cfg)
	if err != nil {
		return nil, err
	}

	var notifier application.Notifier
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey)
	} else {
		notifier = &application.NoopNotifier{}
	}

	var (
		recorder application.Recorder = &application.NoopRecorder{}
		m        *metrics.Metrics
	)
	if cfg.Metrics.Enabled {
		m = metrics.New()
		recorder = m
	}

	dispatcher := application.NewDispatcher(
		application.Settings{
			LeftIndex: cfg.Garage.Left,
			OnlyClose: cfg.Garage.OnlyClose,
		},
		notifier,
		recorder,
		logger,
	)

	return &app{
		cfg:            cfg,
		logger:         logger,
		skill:          application.NewSkill(service, dispatcher, recorder, logger),
		metrics:        m,
		requestTimeout: timeout,
	}, nil
}

func newDoorService(cfg *config.Config) (application.DoorService, error) {
	switch cfg.Garage.Backend {
	case config.BackendMyQ:
		return myq.NewClientWithURL(cfg.MyQ.UserName, cfg.MyQ.Password, cfg.MyQ.BaseURL), nil
	case config.BackendHomeAssistant:
		return homeassistant.NewClient(cfg.HomeAssistant.BaseURL, cfg.HomeAssistant.Token, cfg.HomeAssistant.Entities), nil
	case config.BackendTuya:
		return tuya.NewClient(cfg.Tuya.ClientID, cfg.Tuya.Secret, cfg.Tuya.Region, cfg.Tuya.DeviceIDs), nil
	}
	return nil, fmt.Errorf("%w: unknown garage backend %q", config.ErrConfiguration, cfg.Garage.Backend)
}
