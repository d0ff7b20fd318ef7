package redis

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Bus is a Redis Streams event bus. A topic is split across a fixed number of
// streams named <topic>.<partition>; events sharing a key always land on the
// same stream, so XADD order is their delivery order. Consumer groups give
// at-least-once delivery: an entry is acknowledged only after the handler
// returns.
type Bus struct {
	client     *redis.Client
	partitions int
	block      time.Duration
}

func NewBus(client *redis.Client, partitions int, block time.Duration) *Bus {
	if partitions <= 0 {
		partitions = 1
	}
	if block <= 0 {
		block = 5 * time.Second
	}
	return &Bus{client: client, partitions: partitions, block: block}
}

func (b *Bus) Publish(ctx context.Context, topic, key string, payload []byte) error {
	stream := b.stream(topic, partition(key, b.partitions))
	err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{"payload": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	return nil
}

// Consume runs one reader per partition. Within a partition the handler for
// one entry returns before the next entry is read; partitions drain
// concurrently. A handler error is an infrastructure failure: the entry stays
// unacknowledged and Consume returns, taking the owning process down with it.
func (b *Bus) Consume(ctx context.Context, topic, group string, handler func(context.Context, []byte) error) error {
	for p := 0; p < b.partitions; p++ {
		stream := b.stream(topic, p)
		err := b.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("create group %s on %s: %w", group, stream, err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for p := 0; p < b.partitions; p++ {
		stream := b.stream(topic, p)
		consumer := group + "-" + strconv.Itoa(p)
		g.Go(func() error {
			return b.consumePartition(ctx, stream, group, consumer, handler)
		})
	}
	return g.Wait()
}

func (b *Bus) consumePartition(ctx context.Context, stream, group, consumer string, handler func(context.Context, []byte) error) error {
	// Entries this consumer read but never acknowledged (a crash between read
	// and ack) only come back when reading from "0"; ">" returns strictly
	// never-delivered entries. Drain the pending list first so a restart
	// retries the very event that killed the previous run.
	if err := b.drainPending(ctx, stream, group, consumer, handler); err != nil {
		return err
	}

	for {
		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    1,
			Block:    b.block,
		}).Result()
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("xreadgroup %s: %w", stream, err)
		}

		for _, result := range streams {
			for _, message := range result.Messages {
				if err := b.process(ctx, stream, group, message, handler); err != nil {
					return err
				}
			}
		}
	}
}

func (b *Bus) drainPending(ctx context.Context, stream, group, consumer string, handler func(context.Context, []byte) error) error {
	for {
		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{stream, "0"},
			Count:    1,
		}).Result()
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("xreadgroup pending %s: %w", stream, err)
		}
		// An empty pending list comes back as the stream with no messages.
		if len(streams) == 0 || len(streams[0].Messages) == 0 {
			return nil
		}
		for _, message := range streams[0].Messages {
			if err := b.process(ctx, stream, group, message, handler); err != nil {
				return err
			}
		}
	}
}

func (b *Bus) process(ctx context.Context, stream, group string, message redis.XMessage, handler func(context.Context, []byte) error) error {
	payload, ok := message.Values["payload"].(string)
	if !ok {
		log.Printf("bus: drop entry %s on %s without payload", message.ID, stream)
	} else if err := handler(ctx, []byte(payload)); err != nil {
		// Unacked: the entry stays pending and the restarted consumer
		// retries it.
		return fmt.Errorf("handle %s on %s: %w", message.ID, stream, err)
	}
	if err := b.client.XAck(ctx, stream, group, message.ID).Err(); err != nil {
		return fmt.Errorf("xack %s on %s: %w", message.ID, stream, err)
	}
	return nil
}

func (b *Bus) stream(topic string, partition int) string {
	return topic + "." + strconv.Itoa(partition)
}

func partition(key string, partitions int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(partitions))
}
