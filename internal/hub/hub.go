package hub

import (
	"context"
	"sync"
	"time"

	"crowdwatch/internal/metrics"
	"crowdwatch/internal/model"

	"github.com/sirupsen/logrus"
)

// Fetcher is the detection source adapter contract.
type Fetcher interface {
	FetchSample(ctx context.Context) (*model.DetectionSample, error)
}

// SubscriberFunc receives every published sample.
type SubscriberFunc func(model.DetectionSample)

// UnsubscribeFunc removes the subscription. Calling it more than once is a
// no-op.
type UnsubscribeFunc func()

// Hub polls the detection source on a fixed cadence, retains the single most
// recent sample and fans every new sample out to all subscribers. It is an
// explicit service object: construct once, inject everywhere.
//
// The poll loop runs in one goroutine and fetches synchronously, so ticks
// are serialized; a slow fetch delays the next tick instead of overlapping
// it. Adapter failures are swallowed per tick: the previous latest sample
// stays in place and subscribers are not notified.
type Hub struct {
	fetcher  Fetcher
	interval time.Duration
	logger   *logrus.Logger
	metrics  *metrics.Metrics

	mu      sync.RWMutex
	latest  *model.DetectionSample
	subs    map[int]SubscriberFunc
	nextID  int
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	onError func(error)
}

func New(fetcher Fetcher, interval time.Duration, logger *logrus.Logger) *Hub {
	return &Hub{
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
		subs:     make(map[int]SubscriberFunc),
	}
}

// SetMetrics attaches the metrics collector. Optional.
func (h *Hub) SetMetrics(m *metrics.Metrics) {
	h.metrics = m
}

// SetErrorHook registers a callback invoked on every failed poll, used by
// the camera registry to degrade live cameras to connecting. The hook runs
// on the poll goroutine.
func (h *Hub) SetErrorHook(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onError = fn
}

// Start begins the poll loop. Calling Start while running is a no-op.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		h.logger.Debug("Hub already running, ignoring start request")
		return
	}
	h.running = true

	loopCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	h.done = make(chan struct{})

	go h.run(loopCtx)
	h.logger.Infof("Detection hub started (poll interval %s)", h.interval)
}

// Stop terminates the poll loop and waits for it to exit. Calling Stop on a
// stopped hub is a no-op.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	cancel := h.cancel
	done := h.done
	h.mu.Unlock()

	cancel()
	<-done
	h.logger.Info("Detection hub stopped")
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.poll(ctx)
		}
	}
}

func (h *Hub) poll(ctx context.Context) {
	sample, err := h.fetcher.FetchSample(ctx)
	if err != nil {
		// Recovered locally: keep the previous latest, try again next tick.
		h.logger.Debugf("Detection poll failed: %v", err)
		if h.metrics != nil {
			h.metrics.SourceFailures.Inc()
		}

		h.mu.RLock()
		hook := h.onError
		h.mu.RUnlock()
		if hook != nil {
			hook(err)
		}
		return
	}

	if h.metrics != nil {
		h.metrics.SamplesTotal.Inc()
		h.metrics.ProcessingTime.Observe(sample.ProcessingTimeMs)
	}

	h.Publish(*sample)
}

// Publish stores the sample as latest and synchronously notifies every
// current subscriber. A subscriber that panics does not prevent delivery to
// the remaining subscribers and never propagates back to the poll loop.
func (h *Hub) Publish(sample model.DetectionSample) {
	h.mu.Lock()
	h.latest = &sample
	subs := make([]SubscriberFunc, 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		h.deliver(fn, sample)
	}
}

func (h *Hub) deliver(fn SubscriberFunc, sample model.DetectionSample) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Errorf("Subscriber callback failed: %v", r)
		}
	}()
	fn(sample)
}

// Subscribe registers a callback for every future sample and returns its
// unsubscribe handle. No notifications are delivered after the handle
// returns, modulo an in-flight fan-out that already started.
func (h *Hub) Subscribe(fn SubscriberFunc) UnsubscribeFunc {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Latest returns the most recent sample, or nil if nothing has been
// published yet. Late joiners use it for immediate state.
func (h *Hub) Latest() *model.DetectionSample {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return nil
	}
	sample := *h.latest
	return &sample
}

// Running reports whether the poll loop is active.
func (h *Hub) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}
