package events

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"gosocialchat/internal/protocol"
)

type MockTestObserver struct {
	mock.Mock
	updateCount int
	received    []ChatEvent
	mu          sync.Mutex
}

func (m *MockTestObserver) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockTestObserver) Update(event ChatEvent) error {
	m.mu.Lock()
	m.updateCount++
	m.received = append(m.received, event)
	m.mu.Unlock()
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockTestObserver) GetUpdateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateCount
}

func (m *MockTestObserver) Received() []ChatEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChatEvent(nil), m.received...)
}

func newObserver(name string, err error) *MockTestObserver {
	obs := &MockTestObserver{}
	obs.On("Name").Return(name)
	obs.On("Update", mock.AnythingOfType("events.ChatEvent")).Return(err)
	return obs
}

func TestManager_SubscribeAndPublish(t *testing.T) {
	manager := NewManager(2, 10, nil)
	defer manager.Shutdown()

	obs := newObserver("hub", nil)
	manager.Subscribe(obs)

	manager.Publish(ChatEvent{Name: protocol.EventNewMessage, ConversationID: "conv-1"})

	// sync observers have run by the time Publish returns
	assert.Equal(t, 1, obs.GetUpdateCount())
	received := obs.Received()
	assert.Equal(t, "conv-1", received[0].ConversationID)
	assert.False(t, received[0].OccurredAt.IsZero())
}

func TestManager_PublishOrderPreservedForSyncObservers(t *testing.T) {
	manager := NewManager(1, 10, nil)
	defer manager.Shutdown()

	obs := newObserver("hub", nil)
	manager.Subscribe(obs)

	for _, id := range []string{"m1", "m2", "m3"} {
		manager.Publish(ChatEvent{Name: protocol.EventNewMessage, ConversationID: "conv-1", Payload: id})
	}

	received := obs.Received()
	assert.Len(t, received, 3)
	for i, id := range []string{"m1", "m2", "m3"} {
		assert.Equal(t, id, received[i].Payload)
	}
}

func TestManager_AsyncObserver(t *testing.T) {
	manager := NewManager(2, 10, nil)
	defer manager.Shutdown()

	obs := newObserver("archive", nil)
	manager.SubscribeAsync(obs)

	manager.Publish(ChatEvent{Name: protocol.EventNewMessage, ConversationID: "conv-1"})

	assert.Eventually(t, func() bool { return obs.GetUpdateCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestManager_Unsubscribe(t *testing.T) {
	manager := NewManager(1, 10, nil)
	defer manager.Shutdown()

	obs := newObserver("hub", nil)
	manager.Subscribe(obs)
	manager.Unsubscribe(obs)

	manager.Publish(ChatEvent{Name: protocol.EventNewMessage})

	assert.Equal(t, 0, obs.GetUpdateCount())
}

func TestManager_ObserverErrorDoesNotStopOthers(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	manager := NewManager(1, 10, metrics)
	defer manager.Shutdown()

	failing := newObserver("a-failing", errors.New("boom"))
	healthy := newObserver("b-healthy", nil)
	manager.Subscribe(failing)
	manager.Subscribe(healthy)

	manager.Publish(ChatEvent{Name: protocol.EventMessageDeleted})

	assert.Equal(t, 1, failing.GetUpdateCount())
	assert.Equal(t, 1, healthy.GetUpdateCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("a-failing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.published.WithLabelValues(string(protocol.EventMessageDeleted))))
}

func TestManager_FullQueueDropsAsyncEvents(t *testing.T) {
	metrics := NewMetrics(nil)
	manager := NewManager(1, 1, metrics)

	block := make(chan struct{})
	slow := &MockTestObserver{}
	slow.On("Name").Return("slow")
	slow.On("Update", mock.Anything).Run(func(mock.Arguments) { <-block }).Return(nil)
	manager.SubscribeAsync(slow)

	// first event occupies the worker, second fills the queue, the rest drop
	for i := 0; i < 5; i++ {
		manager.Publish(ChatEvent{Name: protocol.EventNewMessage})
		if i == 0 {
			assert.Eventually(t, func() bool { return slow.GetUpdateCount() == 1 }, time.Second, 5*time.Millisecond)
		}
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.dropped))

	close(block)
	manager.Shutdown()
}

func TestManager_ShutdownIsIdempotent(t *testing.T) {
	manager := NewManager(2, 10, nil)
	manager.Shutdown()
	manager.Shutdown()

	// publishing after shutdown must not panic
	manager.Publish(ChatEvent{Name: protocol.EventNewMessage})
}
