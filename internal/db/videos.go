package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/videogen-ai/backend/internal/models"
)

// Library adapts the videos table to the generator's append-only record
// sink: one row per generation attempt, never mutated afterward.
type Library struct {
	db *DB
}

func NewLibrary(db *DB) *Library {
	return &Library{db: db}
}

func (l *Library) Append(ctx context.Context, video *models.Video) error {
	return l.db.CreateVideo(ctx, video)
}

func (db *DB) CreateVideo(ctx context.Context, video *models.Video) error {
	query := `
		INSERT INTO videos (
			id, user_id, generation_id, prompt, url, status,
			aspect_ratio, model, duration_sec, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		video.ID, video.UserID, video.GenerationID, video.Prompt, video.URL,
		video.Status, video.AspectRatio, video.Model, video.DurationSec, video.ErrorMessage,
	).Scan(&video.CreatedAt)
}

func (db *DB) GetVideo(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	query := `
		SELECT id, user_id, generation_id, prompt, url, status,
		       aspect_ratio, model, duration_sec, error_message, created_at
		FROM videos
		WHERE id = $1
	`

	video := &models.Video{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&video.ID, &video.UserID, &video.GenerationID, &video.Prompt, &video.URL,
		&video.Status, &video.AspectRatio, &video.Model, &video.DurationSec,
		&video.ErrorMessage, &video.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("video not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return video, nil
}

// ListUserVideos returns a user's library, newest first.
func (db *DB) ListUserVideos(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Video, error) {
	query := `
		SELECT id, user_id, generation_id, prompt, url, status,
		       aspect_ratio, model, duration_sec, error_message, created_at
		FROM videos
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

func (db *DB) CountUserVideos(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM videos WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count videos: %w", err)
	}
	return count, nil
}

// ListGenerationVideos returns the records a generation produced, in the
// order they were appended (= prompt order).
func (db *DB) ListGenerationVideos(ctx context.Context, generationID uuid.UUID) ([]models.Video, error) {
	query := `
		SELECT id, user_id, generation_id, prompt, url, status,
		       aspect_ratio, model, duration_sec, error_message, created_at
		FROM videos
		WHERE generation_id = $1
		ORDER BY created_at ASC
	`

	rows, err := db.QueryContext(ctx, query, generationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list generation videos: %w", err)
	}
	defer rows.Close()

	return scanVideos(rows)
}

func (db *DB) DeleteVideo(ctx context.Context, id uuid.UUID) error {
	result, err := db.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("video not found")
	}

	return nil
}

func scanVideos(rows *sql.Rows) ([]models.Video, error) {
	var videos []models.Video
	for rows.Next() {
		var video models.Video
		if err := rows.Scan(
			&video.ID, &video.UserID, &video.GenerationID, &video.Prompt, &video.URL,
			&video.Status, &video.AspectRatio, &video.Model, &video.DurationSec,
			&video.ErrorMessage, &video.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}
