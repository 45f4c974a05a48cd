package db

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/videogen-ai/backend/internal/models"
)

// ActivityRecorder adapts the activity_logs table to the generator's
// fire-and-forget audit sink. Write failures are logged and swallowed —
// the audit trail is never load-bearing for control flow.
type ActivityRecorder struct {
	db *DB
}

func NewActivityRecorder(db *DB) *ActivityRecorder {
	return &ActivityRecorder{db: db}
}

func (r *ActivityRecorder) Record(ctx context.Context, userID uuid.UUID, action string, outcome models.ActivityOutcome, target string) {
	entry := &models.ActivityLog{
		ID:      uuid.New(),
		UserID:  &userID,
		Action:  action,
		Outcome: outcome,
	}
	if target != "" {
		entry.Target = &target
	}

	if err := r.db.CreateActivity(ctx, entry); err != nil {
		log.Printf("[Activity] failed to record %q: %v", action, err)
	}
}

func (db *DB) CreateActivity(ctx context.Context, entry *models.ActivityLog) error {
	query := `
		INSERT INTO activity_logs (id, user_id, action, outcome, target)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		entry.ID, entry.UserID, entry.Action, entry.Outcome, entry.Target,
	).Scan(&entry.CreatedAt)
}

// ListActivity returns audit entries, newest first. Used by the admin console.
func (db *DB) ListActivity(ctx context.Context, limit, offset int) ([]models.ActivityLog, error) {
	query := `
		SELECT id, user_id, action, outcome, target, created_at
		FROM activity_logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var entries []models.ActivityLog
	for rows.Next() {
		var entry models.ActivityLog
		if err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.Action, &entry.Outcome,
			&entry.Target, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (db *DB) CountActivity(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_logs`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count activity: %w", err)
	}
	return count, nil
}
