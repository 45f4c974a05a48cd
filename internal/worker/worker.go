package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/videogen-ai/backend/internal/db"
	"github.com/videogen-ai/backend/internal/generator"
	"github.com/videogen-ai/backend/internal/models"
	"github.com/videogen-ai/backend/internal/queue"
)

// Worker consumes queued generation requests and drives each one through
// the orchestrator. A single request is strictly sequential internally;
// concurrency here only spreads distinct requests across consumers.
type Worker struct {
	db           *db.DB
	queue        *queue.Queue
	orchestrator *generator.Orchestrator
}

func New(database *db.DB, q *queue.Queue, orch *generator.Orchestrator) *Worker {
	return &Worker{
		db:           database,
		queue:        q,
		orchestrator: orch,
	}
}

// Start runs concurrency consumers until ctx is cancelled.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			w.processQueue(gctx)
			return nil
		})
	}

	g.Wait()
	log.Println("Worker shut down")
}

func (w *Worker) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, 5*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("Error dequeuing generation job: %v", err)
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			log.Printf("Processing generation %s (user: %s)", job.GenerationID, job.UserID)

			if err := w.handleGeneration(ctx, job); err != nil {
				log.Printf("Generation %s failed: %v", job.GenerationID, err)
			}
		}
	}
}

func (w *Worker) handleGeneration(ctx context.Context, job *queue.Job) error {
	gen, err := w.db.GetGeneration(ctx, job.GenerationID)
	if err != nil {
		return fmt.Errorf("failed to load generation: %w", err)
	}

	user, err := w.db.GetUser(ctx, gen.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	if err := w.db.UpdateGenerationStatus(ctx, gen.ID, models.GenerationStatusRunning); err != nil {
		log.Printf("Failed to mark generation %s running: %v", gen.ID, err)
	}

	onProgress := func(status string) {
		if err := w.queue.PublishEvent(ctx, gen.ID, queue.Event{
			Type:    queue.EventProgress,
			Message: status,
		}); err != nil {
			log.Printf("Failed to publish progress for %s: %v", gen.ID, err)
		}
	}

	result := w.orchestrator.Run(ctx, generator.Request{
		GenerationID: gen.ID,
		User:         user,
		Prompt:       gen.Prompt,
		AspectRatio:  gen.AspectRatio,
		Batch:        gen.Batch,
	}, onProgress)

	var errMsg *string
	if result.Status != models.GenerationStatusCompleted && result.Message != "" {
		errMsg = &result.Message
	}

	if err := w.db.FinishGeneration(ctx, gen.ID, result.Status, len(result.Videos), result.FailedCount, errMsg); err != nil {
		log.Printf("Failed to finish generation %s: %v", gen.ID, err)
	}

	if err := w.db.TouchUserActivity(ctx, user.ID); err != nil {
		log.Printf("Failed to touch user activity for %s: %v", user.ID, err)
	}

	if err := w.queue.PublishEvent(ctx, gen.ID, queue.Event{
		Type:     queue.EventResult,
		Status:   result.Status,
		Message:  result.Message,
		VideoURL: result.VideoURL,
	}); err != nil {
		log.Printf("Failed to publish result for %s: %v", gen.ID, err)
	}

	log.Printf("Generation %s finished: status=%s videos=%d failed=%d",
		gen.ID, result.Status, len(result.Videos), result.FailedCount)

	return nil
}
