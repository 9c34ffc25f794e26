package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crowdwatch/internal/alert"
	"crowdwatch/internal/api"
	"crowdwatch/internal/camera"
	"crowdwatch/internal/client"
	"crowdwatch/internal/hub"
	"crowdwatch/internal/metrics"
	"crowdwatch/internal/rules"
	"crowdwatch/internal/store"
	"crowdwatch/internal/utils"

	"github.com/sirupsen/logrus"
)

func main() {
	var (
		configFile = flag.String("config", "configs/crowdwatch.yaml", "Configuration file path (YAML)")
		listen     = flag.String("listen", "", "Listen address override")
	)
	flag.Parse()

	config, err := utils.LoadConfig(*configFile)
	if err != nil {
		fmt.Printf("Failed to load config %s: %v\n", *configFile, err)
		fmt.Println("Using default configuration...")
		config = utils.GetDefaultConfig()
	} else {
		fmt.Printf("Loaded configuration from %s\n", *configFile)
	}
	if *listen != "" {
		config.Application.Listen = *listen
	}

	logger := utils.NewLogger(config.Logging.Level, config.Logging.Format)

	m := metrics.New()

	st := store.NewStore(config.Rules.MaxIncidents, config.Rules.MaxAlerts, logger)

	engine := rules.NewEngine(st, thresholdsFromConfig(config), logger)
	engine.SetMetrics(m)
	registerAlertNotifiers(engine, config, logger)

	strategy := camera.NewRandomWalk(config.Simulation.MaxDelta)
	registry := camera.NewRegistry(engine, strategy,
		time.Duration(config.Simulation.TickIntervalSeconds)*time.Second, logger)
	registry.SetMetrics(m)
	registry.ApplyConfig(config.Cameras)

	detectionClient := client.NewDetectionClient(config.Detection.Endpoint,
		time.Duration(config.Detection.TimeoutSeconds)*time.Second)

	detectionHub := hub.New(detectionClient,
		time.Duration(config.Detection.PollIntervalSeconds)*time.Second, logger)
	detectionHub.SetMetrics(m)
	registry.BindHub(detectionHub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	detectionHub.Start(ctx)
	registry.StartSimulation(ctx)

	go logAlerts(ctx, engine, logger)

	handlers := api.NewHandlers(st, registry, engine, detectionHub, config, logger)
	handlers.SetMetrics(m)
	router := api.NewRouter(handlers, m)

	srv := &http.Server{
		Addr:              config.Application.Listen,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
	}

	logger.Infof("API server starting on %s", config.Application.Listen)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutting down...")

		registry.StopSimulation()
		detectionHub.Stop()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown error: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}

func thresholdsFromConfig(config *utils.Config) rules.Thresholds {
	return rules.Thresholds{
		BreachPercent:        config.Rules.BreachPercent,
		WarningPercent:       config.Rules.WarningPercent,
		CriticalAlertPercent: config.Rules.CriticalAlertPercent,
		WarningAlertPercent:  config.Rules.WarningAlertPercent,
		BreachWindow:         time.Duration(config.Rules.BreachWindowSeconds) * time.Second,
		WarningWindow:        time.Duration(config.Rules.WarningWindowSeconds) * time.Second,
		CriticalAlertWindow:  time.Duration(config.Rules.CriticalAlertWindow) * time.Second,
		WarningAlertWindow:   time.Duration(config.Rules.WarningAlertWindow) * time.Second,
		InfoAlertWindow:      time.Duration(config.Rules.InfoAlertWindow) * time.Second,
	}
}

func registerAlertNotifiers(engine *rules.Engine, config *utils.Config, logger *logrus.Logger) {
	if !config.Alerting.Enabled {
		return
	}

	if config.Alerting.Channels.Log {
		engine.RegisterNotifier(alert.NewLogAlertNotifier(logger))
	}

	if config.Alerting.Channels.Webhook && config.Alerting.Webhook.Enabled {
		engine.RegisterNotifier(alert.NewWebhookNotifier(
			config.Alerting.Webhook.URL,
			time.Duration(config.Alerting.Webhook.TimeoutSeconds)*time.Second,
			config.Alerting.Webhook.RetryAttempts,
			config.Alerting.Webhook.MessageTemplate,
			config.Alerting.Webhook.Enabled,
			logger,
		))
	}
}

func logAlerts(ctx context.Context, engine *rules.Engine, logger *logrus.Logger) {
	alertChannel := engine.GetAlertChannel()
	for {
		select {
		case a := <-alertChannel:
			logger.Debugf("[%s] %s - %s", a.Timestamp.Format("2006-01-02 15:04:05"), a.Priority, a.Message)
		case <-ctx.Done():
			return
		}
	}
}
