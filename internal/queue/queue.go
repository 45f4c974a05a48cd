package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/videogen-ai/backend/internal/models"
)

const (
	QueueGenerateVideo = "queue:generate_video"

	progressChannelPrefix = "events:generation:"
)

type Queue struct {
	client *redis.Client
}

// Job is one queued generation request handed from the API to the worker.
type Job struct {
	ID           uuid.UUID `json:"id"`
	GenerationID uuid.UUID `json:"generation_id"`
	UserID       uuid.UUID `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Event is one element of the progress stream a caller subscribes to: zero
// or more progress messages followed by exactly one terminal result.
type Event struct {
	Type     string                  `json:"type"` // "progress" | "result"
	Message  string                  `json:"message,omitempty"`
	Status   models.GenerationStatus `json:"status,omitempty"`
	VideoURL *string                 `json:"video_url,omitempty"`
}

const (
	EventProgress = "progress"
	EventResult   = "result"
)

func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{client: client}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// EnqueueGeneration queues a generation request for the worker.
func (q *Queue) EnqueueGeneration(ctx context.Context, generationID, userID uuid.UUID) error {
	job := &Job{
		ID:           uuid.New(),
		GenerationID: generationID,
		UserID:       userID,
		CreatedAt:    time.Now(),
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return q.client.RPush(ctx, QueueGenerateVideo, data).Err()
}

// Dequeue blocks up to timeout waiting for a job. Returns (nil, nil) when
// none is available.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, QueueGenerateVideo).Result()
	if err == redis.Nil {
		return nil, nil // No job available
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, QueueGenerateVideo).Result()
}

// PublishEvent pushes a progress or terminal event onto the generation's
// pub/sub channel. Nobody listening is fine — the generation proceeds
// whether or not the stream has subscribers.
func (q *Queue) PublishEvent(ctx context.Context, generationID uuid.UUID, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return q.client.Publish(ctx, progressChannelPrefix+generationID.String(), data).Err()
}

// SubscribeEvents returns a channel of events for one generation. The
// returned cancel func must be called to release the subscription; the
// event channel closes when the subscription ends.
func (q *Queue) SubscribeEvents(ctx context.Context, generationID uuid.UUID) (<-chan Event, func()) {
	pubsub := q.client.Subscribe(ctx, progressChannelPrefix+generationID.String())

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		for msg := range pubsub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("[Queue] dropping malformed event: %v", err)
				continue
			}
			events <- event
		}
	}()

	return events, func() { pubsub.Close() }
}
