package camera

import (
	"io"
	"testing"
	"time"

	"crowdwatch/internal/model"
	"crowdwatch/internal/rules"
	"crowdwatch/internal/store"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fixedDelta struct {
	delta int
}

func (f fixedDelta) Delta(model.Camera) int { return f.delta }

func newTestRegistry(strategy FluctuationStrategy) (*Registry, *store.Store) {
	st := store.NewStore(50, 100, testLogger())
	engine := rules.NewEngine(st, rules.DefaultThresholds(), testLogger())
	return NewRegistry(engine, strategy, time.Second, testLogger()), st
}

func TestApplyConfigReconciles(t *testing.T) {
	r, _ := newTestRegistry(fixedDelta{})

	r.ApplyConfig([]model.CameraConfig{
		{ID: "cam-1", Name: "Entrance", Capacity: 100, Enabled: true, Live: true},
		{ID: "cam-2", Name: "Hall", Capacity: 250, Enabled: true},
		{ID: "cam-3", Name: "Parking", Capacity: 60, Enabled: false},
	})

	cams := r.Cameras()
	if len(cams) != 3 {
		t.Fatalf("got %d cameras, want 3", len(cams))
	}

	byID := make(map[string]model.Camera, len(cams))
	for _, cam := range cams {
		byID[cam.ID] = cam
	}

	if byID["cam-1"].Status != model.CameraStatusConnecting {
		t.Errorf("live camera status = %s, want connecting before the first sample", byID["cam-1"].Status)
	}
	if byID["cam-2"].Status != model.CameraStatusOnline {
		t.Errorf("simulated camera status = %s, want online", byID["cam-2"].Status)
	}
	if byID["cam-3"].Status != model.CameraStatusOffline {
		t.Errorf("disabled camera status = %s, want offline", byID["cam-3"].Status)
	}

	// Second pass: rename one, drop another.
	r.ApplyConfig([]model.CameraConfig{
		{ID: "cam-1", Name: "Main Entrance", Capacity: 120, Enabled: true, Live: true},
		{ID: "cam-2", Name: "Hall", Capacity: 250, Enabled: true},
	})

	cams = r.Cameras()
	if len(cams) != 2 {
		t.Fatalf("got %d cameras after removal, want 2", len(cams))
	}
	cam, ok := r.Camera("cam-1")
	if !ok || cam.Name != "Main Entrance" || cam.Capacity != 120 {
		t.Errorf("updated camera = %+v, want renamed with capacity 120", cam)
	}
	if _, ok := r.Camera("cam-3"); ok {
		t.Error("removed camera should be gone")
	}
}

func TestStepSimulationClampsToCapacity(t *testing.T) {
	r, _ := newTestRegistry(fixedDelta{delta: 30})
	r.ApplyConfig([]model.CameraConfig{
		{ID: "cam-1", Name: "Hall", Capacity: 50, Enabled: true},
	})

	for i := 0; i < 5; i++ {
		r.stepSimulation()
	}

	cam, _ := r.Camera("cam-1")
	if cam.PeopleCount != 50 {
		t.Errorf("people count = %d, want clamped at capacity 50", cam.PeopleCount)
	}
	if cam.CrowdLevel != model.CrowdLevelHigh {
		t.Errorf("crowd level = %s, want high at full capacity", cam.CrowdLevel)
	}

	r.strategy = fixedDelta{delta: -100}
	r.stepSimulation()

	cam, _ = r.Camera("cam-1")
	if cam.PeopleCount != 0 {
		t.Errorf("people count = %d, want clamped at 0", cam.PeopleCount)
	}
	if cam.CrowdLevel != model.CrowdLevelLow {
		t.Errorf("crowd level = %s, want low when empty", cam.CrowdLevel)
	}
}

func TestStepSimulationSkipsLiveAndOffline(t *testing.T) {
	r, _ := newTestRegistry(fixedDelta{delta: 10})
	r.ApplyConfig([]model.CameraConfig{
		{ID: "cam-live", Name: "Entrance", Capacity: 100, Enabled: true, Live: true},
		{ID: "cam-off", Name: "Parking", Capacity: 100, Enabled: false},
	})

	r.stepSimulation()

	for _, id := range []string{"cam-live", "cam-off"} {
		cam, _ := r.Camera(id)
		if cam.PeopleCount != 0 {
			t.Errorf("%s people count = %d, want 0 (untouched by simulation)", id, cam.PeopleCount)
		}
	}
}

func TestOnSampleDrivesLiveCameras(t *testing.T) {
	r, _ := newTestRegistry(fixedDelta{})
	r.ApplyConfig([]model.CameraConfig{
		{ID: "cam-live", Name: "Entrance", Capacity: 100, Enabled: true, Live: true},
		{ID: "cam-sim", Name: "Hall", Capacity: 100, Enabled: true},
	})

	r.onSample(model.DetectionSample{Timestamp: time.Now(), PeopleCount: 72})

	cam, _ := r.Camera("cam-live")
	if cam.Status != model.CameraStatusOnline {
		t.Errorf("live camera status = %s, want online after a sample", cam.Status)
	}
	if cam.PeopleCount != 72 || cam.CrowdLevel != model.CrowdLevelMedium {
		t.Errorf("live camera = %d people %s, want 72 medium", cam.PeopleCount, cam.CrowdLevel)
	}

	sim, _ := r.Camera("cam-sim")
	if sim.PeopleCount != 0 {
		t.Errorf("simulated camera people count = %d, want 0 (samples only drive live cameras)", sim.PeopleCount)
	}
}

func TestOnSourceErrorDegradesToConnecting(t *testing.T) {
	r, _ := newTestRegistry(fixedDelta{})
	r.ApplyConfig([]model.CameraConfig{
		{ID: "cam-live", Name: "Entrance", Capacity: 100, Enabled: true, Live: true},
	})

	r.onSample(model.DetectionSample{Timestamp: time.Now(), PeopleCount: 30})
	cam, _ := r.Camera("cam-live")
	updatedAt := cam.LastUpdate

	r.onSourceError(io.EOF)

	cam, _ = r.Camera("cam-live")
	if cam.Status != model.CameraStatusConnecting {
		t.Errorf("status = %s, want connecting after a poll failure", cam.Status)
	}
	if cam.PeopleCount != 30 {
		t.Errorf("people count = %d, want last known value 30", cam.PeopleCount)
	}
	if !cam.LastUpdate.Equal(updatedAt) {
		t.Error("LastUpdate must stay frozen on source failure")
	}
}

func TestLiveSequenceFiresRules(t *testing.T) {
	r, st := newTestRegistry(fixedDelta{})
	r.ApplyConfig([]model.CameraConfig{
		{ID: "cam-live", Name: "Entrance", Capacity: 100, Enabled: true, Live: true},
	})

	wantLevels := []model.CrowdLevel{
		model.CrowdLevelLow,
		model.CrowdLevelMedium,
		model.CrowdLevelHigh,
		model.CrowdLevelHigh,
		model.CrowdLevelLow,
	}
	for i, count := range []int{50, 65, 88, 96, 40} {
		r.onSample(model.DetectionSample{Timestamp: time.Now(), PeopleCount: count})
		cam, _ := r.Camera("cam-live")
		if cam.CrowdLevel != wantLevels[i] {
			t.Errorf("at %d people crowd level = %s, want %s", count, cam.CrowdLevel, wantLevels[i])
		}
	}

	incidents := st.Incidents(0)
	if len(incidents) != 1 || incidents[0].Type != model.IncidentTypeBreach {
		t.Errorf("incidents = %v, want exactly one breach at 96 people", incidents)
	}
	if got := len(st.Alerts(0, "warning")); got != 1 {
		t.Errorf("got %d warning alerts, want 1 (fired at 88 people)", got)
	}
	if got := len(st.Alerts(0, "critical")); got != 1 {
		t.Errorf("got %d critical alerts, want 1 (fired at 96 people)", got)
	}
}

func TestStatsAggregates(t *testing.T) {
	r, _ := newTestRegistry(fixedDelta{})
	r.ApplyConfig([]model.CameraConfig{
		{ID: "cam-1", Name: "Entrance", Capacity: 100, Enabled: true, Live: true},
		{ID: "cam-2", Name: "Hall", Capacity: 100, Enabled: true},
		{ID: "cam-3", Name: "Parking", Capacity: 100, Enabled: false},
	})
	r.onSample(model.DetectionSample{Timestamp: time.Now(), PeopleCount: 65})

	stats := r.Stats()
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.ByStatus["online"] != 2 || stats.ByStatus["offline"] != 1 {
		t.Errorf("ByStatus = %v, want 2 online and 1 offline", stats.ByStatus)
	}
	if stats.TotalPeople != 65 {
		t.Errorf("TotalPeople = %d, want 65", stats.TotalPeople)
	}
}
