package utils

import (
	"fmt"
	"os"

	"crowdwatch/internal/model"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Application ApplicationConfig    `yaml:"application"`
	Detection   DetectionConfig      `yaml:"detection"`
	Simulation  SimulationConfig     `yaml:"simulation"`
	Rules       RulesConfig          `yaml:"rules"`
	Alerting    AlertingConfig       `yaml:"alerting"`
	Logging     LoggingConfig        `yaml:"logging"`
	Cameras     []model.CameraConfig `yaml:"cameras"`
}

type ApplicationConfig struct {
	Listen string `yaml:"listen" env:"CROWDWATCH_LISTEN"`
}

type DetectionConfig struct {
	Endpoint                 string `yaml:"endpoint" env:"DETECTION_ENDPOINT"`
	PollIntervalSeconds      int    `yaml:"poll_interval_seconds" env:"DETECTION_POLL_INTERVAL"`
	TimeoutSeconds           int    `yaml:"timeout_seconds" env:"DETECTION_TIMEOUT"`
	HeartbeatIntervalSeconds int    `yaml:"heartbeat_interval_seconds"`
}

type SimulationConfig struct {
	TickIntervalSeconds int `yaml:"tick_interval_seconds"`
	MaxDelta            int `yaml:"max_delta"`
}

type RulesConfig struct {
	BreachPercent        float64 `yaml:"breach_percent"`
	WarningPercent       float64 `yaml:"warning_percent"`
	CriticalAlertPercent float64 `yaml:"critical_alert_percent"`
	WarningAlertPercent  float64 `yaml:"warning_alert_percent"`
	BreachWindowSeconds  int     `yaml:"breach_window_seconds"`
	WarningWindowSeconds int     `yaml:"warning_window_seconds"`
	CriticalAlertWindow  int     `yaml:"critical_alert_window_seconds"`
	WarningAlertWindow   int     `yaml:"warning_alert_window_seconds"`
	InfoAlertWindow      int     `yaml:"info_alert_window_seconds"`
	MaxIncidents         int     `yaml:"max_incidents"`
	MaxAlerts            int     `yaml:"max_alerts"`
	PresentationToastCap int     `yaml:"presentation_toast_cap"`
}

type AlertingConfig struct {
	Enabled  bool                `yaml:"enabled"`
	Channels AlertChannelsConfig `yaml:"channels"`
	Webhook  WebhookConfig       `yaml:"webhook"`
}

type AlertChannelsConfig struct {
	Log     bool `yaml:"log"`
	Webhook bool `yaml:"webhook"`
}

type WebhookConfig struct {
	URL             string `yaml:"url" env:"ALERT_WEBHOOK_URL"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	RetryAttempts   int    `yaml:"retry_attempts"`
	MessageTemplate string `yaml:"message_template,omitempty"`
	Enabled         bool   `yaml:"enabled"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format"`
}

func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		filename = "configs/crowdwatch.yaml"
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %v", filename, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file %s: %v", filename, err)
	}

	// Environment variables take precedence over file values
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %v", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %v", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Application.Listen == "" {
		c.Application.Listen = ":5001"
	}

	if c.Detection.Endpoint == "" {
		return fmt.Errorf("detection endpoint cannot be empty")
	}
	if c.Detection.PollIntervalSeconds <= 0 {
		c.Detection.PollIntervalSeconds = 1
	}
	if c.Detection.TimeoutSeconds <= 0 {
		c.Detection.TimeoutSeconds = 5
	}
	if c.Detection.HeartbeatIntervalSeconds <= 0 {
		c.Detection.HeartbeatIntervalSeconds = 30
	}

	if c.Simulation.TickIntervalSeconds <= 0 {
		c.Simulation.TickIntervalSeconds = 5
	}
	if c.Simulation.MaxDelta <= 0 {
		c.Simulation.MaxDelta = 10
	}

	if c.Rules.BreachPercent <= 0 {
		c.Rules.BreachPercent = 90
	}
	if c.Rules.WarningPercent <= 0 {
		c.Rules.WarningPercent = 70
	}
	if c.Rules.CriticalAlertPercent <= 0 {
		c.Rules.CriticalAlertPercent = 95
	}
	if c.Rules.WarningAlertPercent <= 0 {
		c.Rules.WarningAlertPercent = 85
	}
	if c.Rules.BreachWindowSeconds <= 0 {
		c.Rules.BreachWindowSeconds = 60
	}
	if c.Rules.WarningWindowSeconds <= 0 {
		c.Rules.WarningWindowSeconds = 120
	}
	if c.Rules.CriticalAlertWindow <= 0 {
		c.Rules.CriticalAlertWindow = 120
	}
	if c.Rules.WarningAlertWindow <= 0 {
		c.Rules.WarningAlertWindow = 180
	}
	if c.Rules.InfoAlertWindow <= 0 {
		c.Rules.InfoAlertWindow = 300
	}
	if c.Rules.MaxIncidents <= 0 {
		c.Rules.MaxIncidents = 50
	}
	if c.Rules.MaxAlerts <= 0 {
		c.Rules.MaxAlerts = 100
	}
	if c.Rules.PresentationToastCap <= 0 {
		c.Rules.PresentationToastCap = 3
	}

	if c.Alerting.Webhook.TimeoutSeconds <= 0 {
		c.Alerting.Webhook.TimeoutSeconds = 10
	}
	if c.Alerting.Webhook.RetryAttempts <= 0 {
		c.Alerting.Webhook.RetryAttempts = 3
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	for i := range c.Cameras {
		if c.Cameras[i].ID == "" {
			return fmt.Errorf("camera at index %d has no id", i)
		}
		if c.Cameras[i].Capacity <= 0 {
			return fmt.Errorf("camera %s must have a positive capacity", c.Cameras[i].ID)
		}
	}

	return nil
}

// GetDefaultConfig returns the built-in configuration used when no config
// file is present.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Application: ApplicationConfig{Listen: ":5001"},
		Detection: DetectionConfig{
			Endpoint:                 "http://localhost:8000",
			PollIntervalSeconds:      1,
			TimeoutSeconds:           5,
			HeartbeatIntervalSeconds: 30,
		},
		Alerting: AlertingConfig{
			Enabled: true,
			Channels: AlertChannelsConfig{
				Log:     true,
				Webhook: false,
			},
		},
		Logging: LoggingConfig{Level: "INFO", Format: "text"},
	}
	// Remaining defaults come from the same path as file loading.
	_ = cfg.Validate()
	return cfg
}
