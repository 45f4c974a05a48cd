package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/videogen-ai/backend/internal/models"
)

func (db *DB) CreateGeneration(ctx context.Context, gen *models.Generation) error {
	query := `
		INSERT INTO generations (id, user_id, prompt, aspect_ratio, batch, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		gen.ID, gen.UserID, gen.Prompt, gen.AspectRatio, gen.Batch, gen.Status,
	).Scan(&gen.CreatedAt, &gen.UpdatedAt)
}

func (db *DB) GetGeneration(ctx context.Context, id uuid.UUID) (*models.Generation, error) {
	query := `
		SELECT id, user_id, prompt, aspect_ratio, batch, status,
		       video_count, failed_count, error_message, created_at, updated_at
		FROM generations
		WHERE id = $1
	`

	gen := &models.Generation{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&gen.ID, &gen.UserID, &gen.Prompt, &gen.AspectRatio, &gen.Batch,
		&gen.Status, &gen.VideoCount, &gen.FailedCount, &gen.ErrorMessage,
		&gen.CreatedAt, &gen.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("generation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get generation: %w", err)
	}

	return gen, nil
}

func (db *DB) UpdateGenerationStatus(ctx context.Context, id uuid.UUID, status models.GenerationStatus) error {
	_, err := db.ExecContext(ctx, `
		UPDATE generations SET status = $1, updated_at = NOW() WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update generation status: %w", err)
	}
	return nil
}

// FinishGeneration records the terminal outcome of a generation run.
func (db *DB) FinishGeneration(ctx context.Context, id uuid.UUID, status models.GenerationStatus, videoCount, failedCount int, errorMessage *string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE generations
		SET status = $1, video_count = $2, failed_count = $3, error_message = $4, updated_at = NOW()
		WHERE id = $5
	`, status, videoCount, failedCount, errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to finish generation: %w", err)
	}
	return nil
}
