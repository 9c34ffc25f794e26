package model

import "time"

// CameraStatus represents the camera operational status
type CameraStatus string

const (
	CameraStatusOnline     CameraStatus = "online"
	CameraStatusOffline    CameraStatus = "offline"
	CameraStatusConnecting CameraStatus = "connecting"
)

// String returns the string representation of CameraStatus
func (cs CameraStatus) String() string {
	return string(cs)
}

// IsValid checks if the camera status is valid
func (cs CameraStatus) IsValid() bool {
	switch cs {
	case CameraStatusOnline, CameraStatusOffline, CameraStatusConnecting:
		return true
	default:
		return false
	}
}

// CrowdLevel is the three-tier occupancy classification
type CrowdLevel string

const (
	CrowdLevelLow    CrowdLevel = "low"
	CrowdLevelMedium CrowdLevel = "medium"
	CrowdLevelHigh   CrowdLevel = "high"
)

// ClassifyCrowdLevel derives the crowd level from occupancy.
// Below 60% of capacity is low, below 85% is medium, everything else high.
func ClassifyCrowdLevel(peopleCount, capacity int) CrowdLevel {
	if capacity <= 0 {
		return CrowdLevelLow
	}
	pct := float64(peopleCount) / float64(capacity) * 100
	switch {
	case pct < 60:
		return CrowdLevelLow
	case pct < 85:
		return CrowdLevelMedium
	default:
		return CrowdLevelHigh
	}
}

// Camera is one monitored location. CrowdLevel must stay consistent with
// ClassifyCrowdLevel(PeopleCount, Capacity); every mutation path recomputes it.
type Camera struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	URL         string       `json:"url,omitempty"`
	Zone        string       `json:"zone"`
	Capacity    int          `json:"capacity"`
	Status      CameraStatus `json:"status"`
	PeopleCount int          `json:"people_count"`
	CrowdLevel  CrowdLevel   `json:"crowd_level"`
	LastUpdate  time.Time    `json:"last_update"`
	Live        bool         `json:"is_live"`
	Enabled     bool         `json:"enabled"`
}

// OccupancyPercent returns occupancy as a percentage of capacity.
func (c *Camera) OccupancyPercent() float64 {
	if c.Capacity <= 0 {
		return 0
	}
	return float64(c.PeopleCount) / float64(c.Capacity) * 100
}

// CameraConfig is one entry of the static camera list consumed at startup
// and re-applied on config changes.
type CameraConfig struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	URL      string `yaml:"url" json:"url"`
	Zone     string `yaml:"zone" json:"zone"`
	Capacity int    `yaml:"capacity" json:"capacity"`
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Live     bool   `yaml:"live" json:"live"`
}
