package memory

import (
	"context"
	"hash/fnv"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Bus is an in-process, partitioned twin of the Redis Streams bus. Events
// sharing a key land on the same partition channel and are handled one at a
// time in publish order; partitions drain concurrently.
//
// One consumer per topic: the consumer group name is accepted for interface
// parity but a message is delivered once, to whichever consumer owns the
// topic. That matches how the pipeline is wired (one group per topic).
type Bus struct {
	partitions int
	mu         sync.Mutex
	topics     map[string][]chan []byte
	consumed   map[string]bool
}

func NewBus(partitions int) *Bus {
	if partitions <= 0 {
		partitions = 1
	}
	return &Bus{
		partitions: partitions,
		topics:     make(map[string][]chan []byte),
		consumed:   make(map[string]bool),
	}
}

// Publish blocks when a consumed topic's partition buffer is full; backpressure
// replaces redelivery here, so a slow consumer must never cost an event. A
// topic nothing consumes (the informational join topic) drops instead, or its
// buffer would fill once and wedge every publisher.
func (b *Bus) Publish(ctx context.Context, topic, key string, payload []byte) error {
	ch := b.channels(topic)[partition(key, b.partitions)]
	if b.isConsumed(topic) {
		select {
		case ch <- payload:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case ch <- payload:
	default:
		log.Printf("membus: drop event on full partition of %s", topic)
	}
	return nil
}

// Consume handles each partition serially until ctx is canceled or a handler
// reports an infrastructure failure.
func (b *Bus) Consume(ctx context.Context, topic, _ string, handler func(context.Context, []byte) error) error {
	channels := b.channels(topic)
	b.mu.Lock()
	b.consumed[topic] = true
	b.mu.Unlock()
	g, ctx := errgroup.WithContext(ctx)
	for _, ch := range channels {
		ch := ch
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case payload := <-ch:
					if err := handler(ctx, payload); err != nil {
						return err
					}
				}
			}
		})
	}
	return g.Wait()
}

func (b *Bus) isConsumed(topic string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consumed[topic]
}

func (b *Bus) channels(topic string) []chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if channels, ok := b.topics[topic]; ok {
		return channels
	}
	channels := make([]chan []byte, b.partitions)
	for i := range channels {
		channels[i] = make(chan []byte, 256)
	}
	b.topics[topic] = channels
	return channels
}

func partition(key string, partitions int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(partitions))
}
