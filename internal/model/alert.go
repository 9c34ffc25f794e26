package model

import "time"

// IncidentType classifies a recorded rule breach
type IncidentType string

const (
	IncidentTypeBreach  IncidentType = "breach"
	IncidentTypeWarning IncidentType = "warning"
	IncidentTypeInfo    IncidentType = "info"
)

// Incident is a record of a capacity-rule breach tied to one camera.
// Resolved flips true only through an explicit resolution call.
type Incident struct {
	ID         string       `json:"id"`
	Timestamp  time.Time    `json:"timestamp"`
	CameraID   string       `json:"camera_id"`
	CameraName string       `json:"camera_name"`
	Type       IncidentType `json:"type"`
	Message    string       `json:"message"`
	Resolved   bool         `json:"resolved"`
}

// AlertPriority is the severity of an operator-facing alert
type AlertPriority string

const (
	AlertPriorityCritical AlertPriority = "critical"
	AlertPriorityWarning  AlertPriority = "warning"
	AlertPriorityInfo     AlertPriority = "info"
)

// IsValid checks if the alert priority is valid
func (p AlertPriority) IsValid() bool {
	switch p {
	case AlertPriorityCritical, AlertPriorityWarning, AlertPriorityInfo:
		return true
	default:
		return false
	}
}

// Alert is an operator-facing notification. Acknowledged and Dismissed are
// set independently and at most once each.
type Alert struct {
	ID           string        `json:"id"`
	Timestamp    time.Time     `json:"timestamp"`
	Priority     AlertPriority `json:"priority"`
	Title        string        `json:"title"`
	Message      string        `json:"message"`
	CameraID     string        `json:"camera_id,omitempty"`
	CameraName   string        `json:"camera_name,omitempty"`
	Acknowledged bool          `json:"acknowledged"`
	Dismissed    bool          `json:"dismissed"`
}

// AlertKey is the deduplication key for alerts. Suppression is keyed by
// camera, priority and title, never by the interpolated message text.
type AlertKey struct {
	CameraID string
	Priority AlertPriority
	Title    string
}

// Key returns the dedup key of an alert.
func (a *Alert) Key() AlertKey {
	return AlertKey{CameraID: a.CameraID, Priority: a.Priority, Title: a.Title}
}
