package camera

import (
	"context"
	"sort"
	"sync"
	"time"

	"crowdwatch/internal/hub"
	"crowdwatch/internal/metrics"
	"crowdwatch/internal/model"
	"crowdwatch/internal/rules"

	"github.com/sirupsen/logrus"
)

// Registry is the camera state model: one mutable record per monitored
// location. Live cameras are driven by hub samples, non-live cameras by the
// simulation loop. The rule engine is evaluated on every mutation, so
// crowd level can never drift from people count.
type Registry struct {
	mu       sync.RWMutex
	cameras  map[string]*model.Camera
	engine   *rules.Engine
	strategy FluctuationStrategy
	interval time.Duration
	logger   *logrus.Logger
	metrics  *metrics.Metrics
	nowFunc  func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRegistry(engine *rules.Engine, strategy FluctuationStrategy, interval time.Duration, logger *logrus.Logger) *Registry {
	return &Registry{
		cameras:  make(map[string]*model.Camera),
		engine:   engine,
		strategy: strategy,
		interval: interval,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// SetMetrics attaches the metrics collector. Optional.
func (r *Registry) SetMetrics(m *metrics.Metrics) {
	r.metrics = m
}

// ApplyConfig reconciles the registry against the configured camera list:
// new entries are added, known entries updated, entries missing from the
// list removed. The hub keeps running throughout.
func (r *Registry) ApplyConfig(configs []model.CameraConfig) {
	r.mu.Lock()

	seen := make(map[string]bool, len(configs))
	var mutated []model.Camera

	for _, cfg := range configs {
		seen[cfg.ID] = true

		cam, exists := r.cameras[cfg.ID]
		if !exists {
			cam = &model.Camera{
				ID:     cfg.ID,
				Status: model.CameraStatusOffline,
			}
			r.cameras[cfg.ID] = cam
			r.logger.Infof("Camera %s added", cfg.ID)
		}

		cam.Name = cfg.Name
		cam.URL = cfg.URL
		cam.Zone = cfg.Zone
		cam.Capacity = cfg.Capacity
		cam.Live = cfg.Live
		cam.Enabled = cfg.Enabled

		switch {
		case !cfg.Enabled:
			cam.Status = model.CameraStatusOffline
		case cfg.Live:
			// Live cameras stay connecting until the first sample arrives.
			if cam.Status != model.CameraStatusOnline {
				cam.Status = model.CameraStatusConnecting
			}
		default:
			cam.Status = model.CameraStatusOnline
		}

		cam.CrowdLevel = model.ClassifyCrowdLevel(cam.PeopleCount, cam.Capacity)
		cam.LastUpdate = r.nowFunc()
		mutated = append(mutated, *cam)
	}

	for id := range r.cameras {
		if !seen[id] {
			delete(r.cameras, id)
			r.logger.Infof("Camera %s removed", id)
			if r.metrics != nil {
				r.metrics.ForgetCamera(id)
			}
		}
	}
	r.mu.Unlock()

	for _, cam := range mutated {
		r.observe(cam)
		r.engine.Evaluate(cam)
	}
}

// BindHub attaches the registry to the detection hub: samples drive the
// live cameras, poll failures degrade them to connecting.
func (r *Registry) BindHub(h *hub.Hub) hub.UnsubscribeFunc {
	h.SetErrorHook(r.onSourceError)
	return h.Subscribe(r.onSample)
}

func (r *Registry) onSample(sample model.DetectionSample) {
	r.mu.Lock()
	var mutated []model.Camera
	for _, cam := range r.cameras {
		if !cam.Live || !cam.Enabled {
			continue
		}
		cam.Status = model.CameraStatusOnline
		cam.PeopleCount = sample.PeopleCount
		cam.CrowdLevel = model.ClassifyCrowdLevel(cam.PeopleCount, cam.Capacity)
		cam.LastUpdate = r.nowFunc()
		mutated = append(mutated, *cam)
	}
	r.mu.Unlock()

	for _, cam := range mutated {
		r.observe(cam)
		r.engine.Evaluate(cam)
	}
}

func (r *Registry) onSourceError(err error) {
	r.mu.Lock()
	var mutated []model.Camera
	for _, cam := range r.cameras {
		if !cam.Live || !cam.Enabled || cam.Status != model.CameraStatusOnline {
			continue
		}
		// LastUpdate stays frozen; the stale timestamp is the degradation
		// signal surfaced to viewers.
		cam.Status = model.CameraStatusConnecting
		mutated = append(mutated, *cam)
	}
	r.mu.Unlock()

	for _, cam := range mutated {
		r.logger.Warnf("Camera %s lost its source: %v", cam.ID, err)
		r.engine.Evaluate(cam)
	}
}

// StartSimulation runs the fluctuation loop for non-live cameras until the
// context is canceled.
func (r *Registry) StartSimulation(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				r.stepSimulation()
			}
		}
	}()
	r.logger.Infof("Camera simulation started (tick %s)", r.interval)
}

// StopSimulation terminates the fluctuation loop.
func (r *Registry) StopSimulation() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
}

func (r *Registry) stepSimulation() {
	r.mu.Lock()
	var mutated []model.Camera
	for _, cam := range r.cameras {
		if cam.Live || cam.Status == model.CameraStatusOffline {
			continue
		}

		count := cam.PeopleCount + r.strategy.Delta(*cam)
		if count < 0 {
			count = 0
		}
		if count > cam.Capacity {
			count = cam.Capacity
		}

		cam.PeopleCount = count
		cam.CrowdLevel = model.ClassifyCrowdLevel(cam.PeopleCount, cam.Capacity)
		cam.LastUpdate = r.nowFunc()
		mutated = append(mutated, *cam)
	}
	r.mu.Unlock()

	for _, cam := range mutated {
		r.observe(cam)
		r.engine.Evaluate(cam)
	}
}

func (r *Registry) observe(cam model.Camera) {
	if r.metrics != nil {
		r.metrics.ObserveCamera(cam)
	}
}

// Cameras returns a snapshot of all cameras ordered by id.
func (r *Registry) Cameras() []model.Camera {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]model.Camera, 0, len(r.cameras))
	for _, cam := range r.cameras {
		result = append(result, *cam)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Camera returns one camera by id.
func (r *Registry) Camera(id string) (model.Camera, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cam, ok := r.cameras[id]
	if !ok {
		return model.Camera{}, false
	}
	return *cam, true
}

// Stats summarizes the registry for the stats endpoint.
type Stats struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	ByLevel     map[string]int `json:"by_crowd_level"`
	TotalPeople int            `json:"total_people"`
}

func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		ByStatus: make(map[string]int),
		ByLevel:  make(map[string]int),
	}
	for _, cam := range r.cameras {
		stats.Total++
		stats.ByStatus[string(cam.Status)]++
		stats.ByLevel[string(cam.CrowdLevel)]++
		stats.TotalPeople += cam.PeopleCount
	}
	return stats
}
