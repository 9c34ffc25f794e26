package store

import (
	"sync"
	"time"

	"crowdwatch/internal/model"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Store is the in-memory retention layer for incidents and alerts plus the
// subscriber sets for the push streams. Dedup lookups are performed under
// the same lock as the insert, so check-then-act never races.
type Store struct {
	mu        sync.RWMutex
	incidents *Ring[*model.Incident]
	alerts    *Ring[*model.Alert]
	logger    *logrus.Logger

	alertSubs   map[*AlertSubscriber]bool
	alertSubsMu sync.RWMutex
}

type AlertSubscriber struct {
	ID      string
	Channel chan model.Alert
	Filter  AlertFilter
}

type AlertFilter struct {
	Priority string
	CameraID string
}

func NewStore(maxIncidents, maxAlerts int, logger *logrus.Logger) *Store {
	return &Store{
		incidents: NewRing[*model.Incident](maxIncidents),
		alerts:    NewRing[*model.Alert](maxAlerts),
		logger:    logger,
		alertSubs: make(map[*AlertSubscriber]bool),
	}
}

// AddIncidentDeduped inserts the incident unless an unresolved incident with
// the same (camera, type) was created at or after cutoff. Returns whether
// the incident was inserted.
func (s *Store) AddIncidentDeduped(inc *model.Incident, cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < s.incidents.Len(); i++ {
		prev := s.incidents.At(i)
		if prev.Timestamp.Before(cutoff) {
			break
		}
		if !prev.Resolved && prev.CameraID == inc.CameraID && prev.Type == inc.Type {
			return false
		}
	}

	if evicted, ok := s.incidents.PushFront(inc); ok {
		s.logger.Debugf("Incident buffer full, evicted %s", evicted.ID)
	}
	return true
}

// ResolveIncident marks the incident resolved. Unknown ids and repeated
// calls are no-ops.
func (s *Store) ResolveIncident(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < s.incidents.Len(); i++ {
		inc := s.incidents.At(i)
		if inc.ID == id {
			inc.Resolved = true
			return true
		}
	}
	return false
}

// Incidents returns up to limit incidents, newest first. limit <= 0 returns
// everything retained.
func (s *Store) Incidents(limit int) []model.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.incidents.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]model.Incident, 0, n)
	for i := 0; i < n; i++ {
		result = append(result, *s.incidents.At(i))
	}
	return result
}

// AddAlertDeduped inserts the alert unless an unacknowledged, undismissed
// alert with the same (camera, priority, title) key was created at or after
// cutoff. Returns whether the alert was inserted.
func (s *Store) AddAlertDeduped(alert *model.Alert, cutoff time.Time) bool {
	s.mu.Lock()

	key := alert.Key()
	for i := 0; i < s.alerts.Len(); i++ {
		prev := s.alerts.At(i)
		if prev.Timestamp.Before(cutoff) {
			break
		}
		if !prev.Acknowledged && !prev.Dismissed && prev.Key() == key {
			s.mu.Unlock()
			return false
		}
	}

	if evicted, ok := s.alerts.PushFront(alert); ok {
		s.logger.Debugf("Alert buffer full, evicted %s", evicted.ID)
	}
	snapshot := *alert
	s.mu.Unlock()

	s.notifySubscribers(snapshot)
	return true
}

// AcknowledgeAlert flips the acknowledged flag. Unknown ids and repeated
// calls are no-ops.
func (s *Store) AcknowledgeAlert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < s.alerts.Len(); i++ {
		a := s.alerts.At(i)
		if a.ID == id {
			a.Acknowledged = true
			return true
		}
	}
	return false
}

// DismissAlert flips the dismissed flag. Unknown ids and repeated calls are
// no-ops.
func (s *Store) DismissAlert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < s.alerts.Len(); i++ {
		a := s.alerts.At(i)
		if a.ID == id {
			a.Dismissed = true
			return true
		}
	}
	return false
}

// Alerts returns up to limit alerts, newest first, optionally filtered by
// priority.
func (s *Store) Alerts(limit int, priority string) []model.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Alert, 0)
	for i := 0; i < s.alerts.Len(); i++ {
		a := s.alerts.At(i)
		if priority != "" && string(a.Priority) != priority {
			continue
		}
		result = append(result, *a)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result
}

// ActiveAlerts is the presentation queue: all unacknowledged, undismissed
// alerts in buffer order (newest first), with the priority filter applied
// before the cap. limit <= 0 means uncapped.
func (s *Store) ActiveAlerts(priority string, limit int) []model.Alert {
	s.mu.RLock()
	all := make([]model.Alert, 0, s.alerts.Len())
	for i := 0; i < s.alerts.Len(); i++ {
		all = append(all, *s.alerts.At(i))
	}
	s.mu.RUnlock()

	active := lo.Filter(all, func(a model.Alert, _ int) bool {
		if a.Acknowledged || a.Dismissed {
			return false
		}
		return priority == "" || priority == "all" || string(a.Priority) == priority
	})

	if limit > 0 && len(active) > limit {
		active = active[:limit]
	}
	return active
}

// UnacknowledgedCount counts alerts that are neither acknowledged nor
// dismissed, ignoring any presentation cap.
func (s *Store) UnacknowledgedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for i := 0; i < s.alerts.Len(); i++ {
		a := s.alerts.At(i)
		if !a.Acknowledged && !a.Dismissed {
			count++
		}
	}
	return count
}

// Subscriber methods
func (s *Store) SubscribeAlerts(sub *AlertSubscriber) {
	s.alertSubsMu.Lock()
	defer s.alertSubsMu.Unlock()
	s.alertSubs[sub] = true
}

func (s *Store) UnsubscribeAlerts(sub *AlertSubscriber) {
	s.alertSubsMu.Lock()
	defer s.alertSubsMu.Unlock()
	if s.alertSubs[sub] {
		delete(s.alertSubs, sub)
		close(sub.Channel)
	}
}

// AlertSubscriberCount reports the number of registered alert subscribers.
func (s *Store) AlertSubscriberCount() int {
	s.alertSubsMu.RLock()
	defer s.alertSubsMu.RUnlock()
	return len(s.alertSubs)
}

func (s *Store) notifySubscribers(alert model.Alert) {
	s.alertSubsMu.RLock()
	defer s.alertSubsMu.RUnlock()

	for sub := range s.alertSubs {
		if sub.Filter.Priority != "" && string(alert.Priority) != sub.Filter.Priority {
			continue
		}
		if sub.Filter.CameraID != "" && alert.CameraID != sub.Filter.CameraID {
			continue
		}

		select {
		case sub.Channel <- alert:
		default:
			// Channel full, skip
		}
	}
}
