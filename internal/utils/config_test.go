package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, `
detection:
  endpoint: "http://localhost:8000"
cameras:
  - id: "cam-1"
    name: "Entrance"
    capacity: 100
    enabled: true
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if config.Application.Listen != ":5001" {
		t.Errorf("Listen = %s, want default :5001", config.Application.Listen)
	}
	if config.Detection.PollIntervalSeconds != 1 {
		t.Errorf("PollIntervalSeconds = %d, want default 1", config.Detection.PollIntervalSeconds)
	}
	if config.Detection.HeartbeatIntervalSeconds != 30 {
		t.Errorf("HeartbeatIntervalSeconds = %d, want default 30", config.Detection.HeartbeatIntervalSeconds)
	}
	if config.Rules.BreachPercent != 90 || config.Rules.WarningPercent != 70 {
		t.Errorf("incident thresholds = %.0f/%.0f, want 90/70",
			config.Rules.BreachPercent, config.Rules.WarningPercent)
	}
	if config.Rules.CriticalAlertPercent != 95 || config.Rules.WarningAlertPercent != 85 {
		t.Errorf("alert thresholds = %.0f/%.0f, want 95/85",
			config.Rules.CriticalAlertPercent, config.Rules.WarningAlertPercent)
	}
	if config.Rules.MaxIncidents != 50 || config.Rules.MaxAlerts != 100 {
		t.Errorf("retention = %d/%d, want 50/100", config.Rules.MaxIncidents, config.Rules.MaxAlerts)
	}
	if config.Rules.PresentationToastCap != 3 {
		t.Errorf("PresentationToastCap = %d, want 3", config.Rules.PresentationToastCap)
	}
	if len(config.Cameras) != 1 || config.Cameras[0].ID != "cam-1" {
		t.Errorf("Cameras = %v, want one entry cam-1", config.Cameras)
	}
}

func TestLoadConfigMissingEndpoint(t *testing.T) {
	path := writeConfigFile(t, `
application:
  listen: ":5001"
`)

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected an error for a missing detection endpoint")
	}
}

func TestLoadConfigRejectsBadCameras(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing id", `
detection:
  endpoint: "http://localhost:8000"
cameras:
  - name: "Entrance"
    capacity: 100
`},
		{"zero capacity", `
detection:
  endpoint: "http://localhost:8000"
cameras:
  - id: "cam-1"
    name: "Entrance"
    capacity: 0
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.body)
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfigFile(t, `
application:
  listen: ":5001"
detection:
  endpoint: "http://localhost:8000"
`)

	t.Setenv("CROWDWATCH_LISTEN", ":9000")
	t.Setenv("LOG_LEVEL", "DEBUG")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.Application.Listen != ":9000" {
		t.Errorf("Listen = %s, want env override :9000", config.Application.Listen)
	}
	if config.Logging.Level != "DEBUG" {
		t.Errorf("Level = %s, want env override DEBUG", config.Logging.Level)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/does/not/exist.yaml"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestGetDefaultConfig(t *testing.T) {
	config := GetDefaultConfig()
	if config.Detection.Endpoint == "" {
		t.Error("default config must carry a detection endpoint")
	}
	if config.Rules.BreachWindowSeconds != 60 || config.Rules.WarningWindowSeconds != 120 {
		t.Errorf("incident windows = %d/%d, want 60/120",
			config.Rules.BreachWindowSeconds, config.Rules.WarningWindowSeconds)
	}
	if !config.Alerting.Enabled || !config.Alerting.Channels.Log {
		t.Error("default config should enable the log alert channel")
	}
}
