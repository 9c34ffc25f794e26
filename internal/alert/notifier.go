package alert

import "crowdwatch/internal/model"

// Notifier interface for alert notification
type Notifier interface {
	SendAlert(alert model.Alert) error
}
