package events

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gosocialchat/internal/protocol"
)

// ChatEvent is a server-originated change that must reach connected clients
// and any secondary stores.
type ChatEvent struct {
	Name           protocol.EventName
	ConversationID string
	// Recipients are the participant user ids whose every connection should
	// receive the event, in addition to the connections joined to the room.
	Recipients []string
	Payload    interface{}
	OccurredAt time.Time
}

type Observer interface {
	Name() string
	Update(event ChatEvent) error
}

type Metrics struct {
	published *prometheus.CounterVec
	dropped   prometheus.Counter
	failures  *prometheus.CounterVec
}

// NewMetrics registers the manager's collectors on reg. A nil reg yields
// working but unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		published: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "events_published_total",
			Help:      "Chat events published, by event name.",
		}, []string{"event"}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "events_dropped_total",
			Help:      "Chat events dropped because the async queue was full.",
		}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "observer_failures_total",
			Help:      "Observer update failures, by observer.",
		}, []string{"observer"}),
	}
}

// Manager fans chat events out to observers. Sync observers run on the
// publisher's goroutine, in name order, so they see events in publish order.
// Async observers run on a worker pool fed by a bounded queue.
type Manager struct {
	syncObservers  map[string]Observer
	asyncObservers map[string]Observer
	eventChannel   chan ChatEvent
	workerPool     int
	metrics        *Metrics
	logger         *slog.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	mu             sync.RWMutex
	wg             sync.WaitGroup
	once           sync.Once
}

func NewManager(workerPoolSize, bufferSize int, metrics *Metrics) *Manager {
	if workerPoolSize <= 0 {
		workerPoolSize = 1
	}
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		syncObservers:  make(map[string]Observer),
		asyncObservers: make(map[string]Observer),
		eventChannel:   make(chan ChatEvent, bufferSize),
		workerPool:     workerPoolSize,
		metrics:        metrics,
		logger:         slog.Default().With("component", "chat-events"),
		ctx:            ctx,
		cancel:         cancel,
	}

	for i := 0; i < workerPoolSize; i++ {
		m.wg.Add(1)
		go m.processEvents()
	}

	return m
}

func (m *Manager) Subscribe(observer Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncObservers[observer.Name()] = observer
	m.logger.Info("observer subscribed", "observer", observer.Name(), "mode", "sync")
}

func (m *Manager) SubscribeAsync(observer Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.asyncObservers[observer.Name()] = observer
	m.logger.Info("observer subscribed", "observer", observer.Name(), "mode", "async")
}

func (m *Manager) Unsubscribe(observer Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.syncObservers, observer.Name())
	delete(m.asyncObservers, observer.Name())
	m.logger.Info("observer unsubscribed", "observer", observer.Name())
}

// Publish delivers event to the sync observers before returning and queues it
// for the async ones. A full queue drops the event for async observers only.
func (m *Manager) Publish(event ChatEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	m.metrics.published.WithLabelValues(string(event.Name)).Inc()

	m.notify(m.snapshot(m.syncObservers), event)

	m.mu.RLock()
	hasAsync := len(m.asyncObservers) > 0
	m.mu.RUnlock()
	if !hasAsync {
		return
	}

	select {
	case <-m.ctx.Done():
		return
	default:
	}

	select {
	case m.eventChannel <- event:
	default:
		m.metrics.dropped.Inc()
		m.logger.Warn("event queue full, dropping event", "event", event.Name, "conversation_id", event.ConversationID)
	}
}

func (m *Manager) snapshot(set map[string]Observer) []Observer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	observers := make([]Observer, 0, len(set))
	for _, obs := range set {
		observers = append(observers, obs)
	}
	sort.Slice(observers, func(i, j int) bool { return observers[i].Name() < observers[j].Name() })
	return observers
}

func (m *Manager) notify(observers []Observer, event ChatEvent) {
	for _, observer := range observers {
		if err := observer.Update(event); err != nil {
			m.metrics.failures.WithLabelValues(observer.Name()).Inc()
			m.logger.Error("observer update failed", "observer", observer.Name(), "event", event.Name, "error", err)
		}
	}
}

func (m *Manager) processEvents() {
	defer m.wg.Done()

	for {
		select {
		case event := <-m.eventChannel:
			m.notify(m.snapshot(m.asyncObservers), event)
		case <-m.ctx.Done():
			return
		}
	}
}

// Shutdown stops the workers. Events still queued are discarded.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		m.cancel()
		m.wg.Wait()
		m.logger.Info("event manager shutdown complete")
	})
}
