// Package queue provides the Redis-backed intake queue between the external
// calendar/transcript collaborators and the series engine. Producers enqueue
// raw payloads; the engine drains them on its periodic trigger and validates
// them at the ingest boundary before they reach the core.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Poxagronka/fireflies-summary/pkg/logging"
)

// MessageType identifies what an intake message carries.
type MessageType string

const (
	// MessageTypeOccurrence carries a calendar meeting payload.
	MessageTypeOccurrence MessageType = "occurrence"

	// MessageTypeTranscriptReady signals that a summary became available for
	// an already-ingested occurrence.
	MessageTypeTranscriptReady MessageType = "transcript_ready"
)

// Message is one intake queue entry. Payload stays raw until the ingest
// boundary validates it; the core never sees untyped data.
type Message struct {
	ID         string          `json:"id"`
	Type       MessageType     `json:"type"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewMessage wraps a payload in an intake message.
func NewMessage(msgType MessageType, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshaling payload: %w", err)
	}
	return Message{
		ID:         uuid.New().String(),
		Type:       msgType,
		EnqueuedAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// DefaultRedisConfig returns the default intake queue settings.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr: "localhost:6379",
		Key:  "fireflies:intake",
	}
}

// Intake is a FIFO intake queue backed by a Redis list. Malformed entries
// are moved to a dead-letter list instead of blocking the drain.
type Intake struct {
	client *redis.Client
	key    string
	log    logging.Logger
}

// NewIntake creates an intake queue on the given client.
func NewIntake(client *redis.Client, key string, log logging.Logger) *Intake {
	if key == "" {
		key = DefaultRedisConfig().Key
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Intake{client: client, key: key, log: log}
}

// deadKey is the dead-letter list for entries that fail to decode.
func (q *Intake) deadKey() string {
	return q.key + ":dead"
}

// Enqueue appends a message to the queue.
func (q *Intake) Enqueue(ctx context.Context, msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("enqueuing message %s: %w", msg.ID, err)
	}
	return nil
}

// Dequeue pops up to max messages in FIFO order. An empty queue returns an
// empty slice, not an error.
func (q *Intake) Dequeue(ctx context.Context, max int) ([]Message, error) {
	if max <= 0 {
		return nil, nil
	}

	raws, err := q.client.RPopCount(ctx, q.key, max).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeuing from %s: %w", q.key, err)
	}

	msgs := make([]Message, 0, len(raws))
	for _, raw := range raws {
		var msg Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			q.log.Warn("dropping malformed intake entry to dead letter",
				logging.Err(err))
			q.client.LPush(ctx, q.deadKey(), raw)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Len returns the number of pending messages.
func (q *Intake) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("measuring queue %s: %w", q.key, err)
	}
	return n, nil
}
