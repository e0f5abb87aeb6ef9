package pubsub

import (
	"context"
	"sync"
)

// Memory is an in-process [PubSub].
// Callbacks run synchronously on the publishing goroutine.
type Memory struct {
	mu     sync.RWMutex
	nextID uint64
	topics map[string]map[uint64]func([]byte)
}

func NewMemory() *Memory {
	return &Memory{
		topics: map[string]map[uint64]func([]byte){},
	}
}

func (m *Memory) Pub(ctx context.Context, topic string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	cbs := make([]func([]byte), 0, len(m.topics[topic]))
	for _, cb := range m.topics[topic] {
		cbs = append(cbs, cb)
	}
	m.mu.RUnlock()

	for _, cb := range cbs {
		cb(data)
	}

	return nil
}

func (m *Memory) Sub(topic string, cb func([]byte)) (func() error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	subID := m.nextID

	subs, ok := m.topics[topic]
	if !ok {
		subs = map[uint64]func([]byte){}
		m.topics[topic] = subs
	}
	subs[subID] = cb

	var once sync.Once
	return func() error {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()

			delete(m.topics[topic], subID)
			if len(m.topics[topic]) == 0 {
				delete(m.topics, topic)
			}
		})
		return nil
	}, nil
}

// Topics returns how many topics have at least one subscriber.
func (m *Memory) Topics() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.topics)
}
