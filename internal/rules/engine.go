package rules

import (
	"fmt"
	"sync"
	"time"

	"crowdwatch/internal/metrics"
	"crowdwatch/internal/model"
	"crowdwatch/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NotifierInterface delivers created alerts to an external channel.
type NotifierInterface interface {
	SendAlert(alert model.Alert) error
}

// Thresholds are the capacity rule parameters and dedup windows.
type Thresholds struct {
	BreachPercent        float64
	WarningPercent       float64
	CriticalAlertPercent float64
	WarningAlertPercent  float64

	BreachWindow        time.Duration
	WarningWindow       time.Duration
	CriticalAlertWindow time.Duration
	WarningAlertWindow  time.Duration
	InfoAlertWindow     time.Duration
}

// DefaultThresholds returns the reference rule parameters.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BreachPercent:        90,
		WarningPercent:       70,
		CriticalAlertPercent: 95,
		WarningAlertPercent:  85,
		BreachWindow:         60 * time.Second,
		WarningWindow:        120 * time.Second,
		CriticalAlertWindow:  120 * time.Second,
		WarningAlertWindow:   180 * time.Second,
		InfoAlertWindow:      300 * time.Second,
	}
}

// Engine evaluates camera state against the capacity rules on every state
// mutation and emits incidents and alerts under windowed deduplication.
//
// The rules fire on every evaluation, not only on transition edges; the
// dedup window is what keeps sustained breaches from flooding operators.
type Engine struct {
	store          *store.Store
	thresholds     Thresholds
	alertNotifiers []NotifierInterface
	logger         *logrus.Logger
	metrics        *metrics.Metrics
	mu             sync.Mutex
	alertChannel   chan model.Alert
	nowFunc        func() time.Time
}

func NewEngine(st *store.Store, thresholds Thresholds, logger *logrus.Logger) *Engine {
	return &Engine{
		store:          st,
		thresholds:     thresholds,
		alertNotifiers: make([]NotifierInterface, 0),
		logger:         logger,
		alertChannel:   make(chan model.Alert, 100),
		nowFunc:        time.Now,
	}
}

// SetMetrics attaches the metrics collector. Optional.
func (e *Engine) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

func (e *Engine) RegisterNotifier(notifier NotifierInterface) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alertNotifiers = append(e.alertNotifiers, notifier)
}

// Evaluate runs the incident and alert rules for one camera snapshot.
// Evaluations are serialized so the window checks stay atomic with their
// inserts.
func (e *Engine) Evaluate(cam model.Camera) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.nowFunc()
	e.evaluateIncidents(cam, now)
	e.evaluateAlerts(cam, now)
}

func (e *Engine) evaluateIncidents(cam model.Camera, now time.Time) {
	if cam.Capacity <= 0 {
		return
	}
	pct := cam.OccupancyPercent()

	var (
		incType model.IncidentType
		message string
		window  time.Duration
	)

	switch {
	case pct >= e.thresholds.BreachPercent && cam.CrowdLevel == model.CrowdLevelHigh:
		incType = model.IncidentTypeBreach
		message = fmt.Sprintf("Capacity breach at %s: %d of %d (%.0f%%)",
			cam.Name, cam.PeopleCount, cam.Capacity, pct)
		window = e.thresholds.BreachWindow
	case pct >= e.thresholds.WarningPercent && pct < e.thresholds.BreachPercent && cam.CrowdLevel == model.CrowdLevelMedium:
		incType = model.IncidentTypeWarning
		message = fmt.Sprintf("High occupancy at %s: %d of %d (%.0f%%)",
			cam.Name, cam.PeopleCount, cam.Capacity, pct)
		window = e.thresholds.WarningWindow
	default:
		return
	}

	inc := &model.Incident{
		ID:         uuid.NewString(),
		Timestamp:  now,
		CameraID:   cam.ID,
		CameraName: cam.Name,
		Type:       incType,
		Message:    message,
	}

	if !e.store.AddIncidentDeduped(inc, now.Add(-window)) {
		// Duplicate suppressed, the expected outcome during a sustained breach.
		return
	}

	e.logger.Infof("Incident [%s] %s", inc.Type, inc.Message)
	if e.metrics != nil {
		e.metrics.IncidentsTotal.WithLabelValues(string(incType)).Inc()
	}
}

func (e *Engine) evaluateAlerts(cam model.Camera, now time.Time) {
	pct := cam.OccupancyPercent()

	// Critical and warning density alerts are mutually exclusive for one
	// evaluation; the offline alert is independent and may co-fire.
	if cam.Capacity > 0 {
		switch {
		case pct >= e.thresholds.CriticalAlertPercent:
			e.emitAlert(cam, now, model.AlertPriorityCritical, "Capacity Breach",
				fmt.Sprintf("%s is at %.0f%% capacity (%d people)", cam.Name, pct, cam.PeopleCount),
				e.thresholds.CriticalAlertWindow)
		case pct >= e.thresholds.WarningAlertPercent:
			e.emitAlert(cam, now, model.AlertPriorityWarning, "High Crowd Density",
				fmt.Sprintf("%s is at %.0f%% capacity (%d people)", cam.Name, pct, cam.PeopleCount),
				e.thresholds.WarningAlertWindow)
		}
	}

	if cam.Status == model.CameraStatusOffline {
		e.emitAlert(cam, now, model.AlertPriorityInfo, "Camera Offline",
			fmt.Sprintf("%s is offline", cam.Name),
			e.thresholds.InfoAlertWindow)
	}
}

func (e *Engine) emitAlert(cam model.Camera, now time.Time, priority model.AlertPriority, title, message string, window time.Duration) {
	alert := &model.Alert{
		ID:         uuid.NewString(),
		Timestamp:  now,
		Priority:   priority,
		Title:      title,
		Message:    message,
		CameraID:   cam.ID,
		CameraName: cam.Name,
	}

	if !e.store.AddAlertDeduped(alert, now.Add(-window)) {
		return
	}

	e.logger.Infof("Alert [%s] %s: %s", alert.Priority, alert.Title, alert.Message)
	if e.metrics != nil {
		e.metrics.AlertsTotal.WithLabelValues(string(priority)).Inc()
	}

	select {
	case e.alertChannel <- *alert:
	default:
		e.logger.Error("Alert channel is full, dropping alert")
	}

	for _, notifier := range e.alertNotifiers {
		if err := notifier.SendAlert(*alert); err != nil {
			e.logger.Errorf("Failed to send alert: %v", err)
			if e.metrics != nil {
				e.metrics.NotifyFailures.Inc()
			}
		}
	}
}

// ResolveIncident, AcknowledgeAlert and DismissAlert are the lifecycle
// transitions. All are idempotent; unknown ids are no-ops.
func (e *Engine) ResolveIncident(id string) bool {
	return e.store.ResolveIncident(id)
}

func (e *Engine) AcknowledgeAlert(id string) bool {
	return e.store.AcknowledgeAlert(id)
}

func (e *Engine) DismissAlert(id string) bool {
	return e.store.DismissAlert(id)
}

// GetAlertChannel exposes the stream of created alerts.
func (e *Engine) GetAlertChannel() <-chan model.Alert {
	return e.alertChannel
}
