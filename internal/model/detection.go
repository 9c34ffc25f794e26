package model

import "time"

// Reference coordinate frame for bounding boxes. The detection service
// reports pixel coordinates in this frame regardless of the source
// video resolution.
const (
	FrameWidth  = 640
	FrameHeight = 480
)

// BoundingBox is one detected person in the reference pixel frame.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DetectionSample is a single observation from the detection service.
// Samples are immutable once created; a new poll supersedes the previous
// sample, it never mutates it.
type DetectionSample struct {
	Timestamp        time.Time     `json:"timestamp"`
	PeopleCount      int           `json:"people_count"`
	Boxes            []BoundingBox `json:"boxes"`
	ProcessingTimeMs float64       `json:"processing_time_ms"`
}
