package relay

import "sync"

// Broker is an in-process pub/sub keyed by topic. Delivery never blocks: a
// subscriber whose buffer is full misses the message.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

func (b *Broker) Subscribe(topic string, ch chan []byte) {
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan []byte]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
}

func (b *Broker) Unsubscribe(topic string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[topic], ch)
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
	b.mu.Unlock()
}

// Publish sends data to every subscriber of topic and reports how many
// received it.
func (b *Broker) Publish(topic string, data []byte) int {
	return b.PublishExcept(topic, data, nil)
}

// PublishExcept is Publish skipping one subscriber.
func (b *Broker) PublishExcept(topic string, data []byte, skip chan []byte) int {
	n := 0
	b.mu.RLock()
	for ch := range b.subs[topic] {
		if ch == skip {
			continue
		}
		select {
		case ch <- data:
			n++
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
	return n
}

func (b *Broker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
