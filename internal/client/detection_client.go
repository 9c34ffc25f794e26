package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"crowdwatch/internal/model"
)

// Sentinel errors used by the hub to classify adapter failures.
// ErrSourceUnavailable covers network failures, timeouts and non-200
// responses; ErrMalformedResponse covers schema violations.
var (
	ErrSourceUnavailable = errors.New("detection source unavailable")
	ErrMalformedResponse = errors.New("malformed detection response")
)

// DetectionClient wraps the call to the external person-detection service.
// It carries no retry logic; retry policy belongs to the hub's poll loop.
type DetectionClient struct {
	endpoint string
	client   *http.Client
}

// detectionResponse is the wire shape returned by the detection service.
type detectionResponse struct {
	Timestamp        *time.Time          `json:"timestamp"`
	PeopleCount      *int                `json:"people_count"`
	Boxes            []model.BoundingBox `json:"boxes"`
	ProcessingTimeMs float64             `json:"processing_time_ms"`
}

func NewDetectionClient(endpoint string, timeout time.Duration) *DetectionClient {
	return &DetectionClient{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchSample polls the detection service once and returns a single sample.
func (c *DetectionClient) FetchSample(ctx context.Context) (*model.DetectionSample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/detect", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %s: %s", ErrSourceUnavailable, resp.Status, body)
	}

	var wire detectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if wire.PeopleCount == nil || *wire.PeopleCount < 0 {
		return nil, fmt.Errorf("%w: missing or negative people_count", ErrMalformedResponse)
	}
	if wire.ProcessingTimeMs < 0 {
		return nil, fmt.Errorf("%w: negative processing_time_ms", ErrMalformedResponse)
	}

	sample := &model.DetectionSample{
		PeopleCount:      *wire.PeopleCount,
		Boxes:            wire.Boxes,
		ProcessingTimeMs: wire.ProcessingTimeMs,
	}
	if wire.Timestamp != nil {
		sample.Timestamp = *wire.Timestamp
	} else {
		sample.Timestamp = time.Now()
	}
	if sample.Boxes == nil {
		sample.Boxes = []model.BoundingBox{}
	}

	return sample, nil
}
