package alert

import (
	"crowdwatch/internal/model"

	"github.com/sirupsen/logrus"
)

// LogAlertNotifier sends alerts to local logs
type LogAlertNotifier struct {
	logger *logrus.Logger
}

// NewLogAlertNotifier creates a new log alert notifier
func NewLogAlertNotifier(logger *logrus.Logger) *LogAlertNotifier {
	return &LogAlertNotifier{
		logger: logger,
	}
}

// SendAlert implements Notifier interface - sends alert to logs
func (ln *LogAlertNotifier) SendAlert(alert model.Alert) error {
	ln.logger.WithFields(logrus.Fields{
		"priority": alert.Priority,
		"camera":   alert.CameraID,
	}).Warnf("ALERT %s: %s", alert.Title, alert.Message)
	return nil
}
