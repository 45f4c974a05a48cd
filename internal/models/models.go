package models

import (
	"time"

	"github.com/google/uuid"
)

// Enums
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

type PlanType string

const (
	PlanFree       PlanType = "Free"
	PlanPlus       PlanType = "Plus"
	PlanPro        PlanType = "Pro"
	PlanEnterprise PlanType = "Enterprise"
)

type VideoStatus string

const (
	VideoStatusProcessing VideoStatus = "PROCESSING"
	VideoStatusCompleted  VideoStatus = "COMPLETED"
	VideoStatusFailed     VideoStatus = "FAILED"
)

type GenerationStatus string

const (
	GenerationStatusQueued          GenerationStatus = "queued"
	GenerationStatusRunning         GenerationStatus = "running"
	GenerationStatusCompleted       GenerationStatus = "completed"
	GenerationStatusPartiallyFailed GenerationStatus = "partially_failed"
	GenerationStatusAborted         GenerationStatus = "aborted"
	GenerationStatusRejected        GenerationStatus = "rejected"
)

type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusBanned UserStatus = "banned"
)

// Credit ledger entry types. Every reservation and refund writes one entry,
// including reservations by privileged users whose balance is never touched.
type CreditEntryType string

const (
	CreditEntryReserve CreditEntryType = "reserve"
	CreditEntryRefund  CreditEntryType = "refund"
)

// Activity log outcome levels (mirrors the dashboard's log badge colors).
type ActivityOutcome string

const (
	ActivityInfo    ActivityOutcome = "info"
	ActivitySuccess ActivityOutcome = "success"
	ActivityWarning ActivityOutcome = "warning"
	ActivityError   ActivityOutcome = "error"
)

// Supported aspect ratios for video generation.
const (
	AspectLandscape = "16:9"
	AspectPortrait  = "9:16"
)

// ValidAspectRatio reports whether the given ratio is one the generator accepts.
func ValidAspectRatio(ratio string) bool {
	return ratio == AspectLandscape || ratio == AspectPortrait
}

// Models

type User struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Role       UserRole   `json:"role"`
	Plan       PlanType   `json:"plan"`
	Credits    int        `json:"credits"`
	Status     UserStatus `json:"status"`
	LastActive *time.Time `json:"last_active,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Unlimited reports whether this user bypasses credit balance checks.
// Admins and Enterprise-plan users generate without spending credits.
func (u *User) Unlimited() bool {
	return u.Role == RoleAdmin || u.Plan == PlanEnterprise
}

// Video is one entry in a user's video library — one row per generation
// attempt, success or failure. Never mutated after creation, only deleted.
type Video struct {
	ID           uuid.UUID   `json:"id"`
	UserID       uuid.UUID   `json:"user_id"`
	GenerationID *uuid.UUID  `json:"generation_id,omitempty"`
	Prompt       string      `json:"prompt"`
	URL          *string     `json:"url,omitempty"`
	Status       VideoStatus `json:"status"`
	AspectRatio  string      `json:"aspect_ratio"`
	Model        string      `json:"model"`
	DurationSec  int         `json:"duration_sec"`
	ErrorMessage *string     `json:"error_message,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// Generation is one user-initiated generate request (single prompt or
// newline-delimited batch), tracked across the async queue/worker hop.
type Generation struct {
	ID           uuid.UUID        `json:"id"`
	UserID       uuid.UUID        `json:"user_id"`
	Prompt       string           `json:"prompt"`
	AspectRatio  string           `json:"aspect_ratio"`
	Batch        bool             `json:"batch"`
	Status       GenerationStatus `json:"status"`
	VideoCount   int              `json:"video_count"`
	FailedCount  int              `json:"failed_count"`
	ErrorMessage *string          `json:"error_message,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

type CreditEntry struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	GenerationID *uuid.UUID      `json:"generation_id,omitempty"`
	Type         CreditEntryType `json:"type"`
	Amount       int             `json:"amount"`
	BalanceAfter *int            `json:"balance_after,omitempty"` // nil for unlimited users
	CreatedAt    time.Time       `json:"created_at"`
}

type ActivityLog struct {
	ID        uuid.UUID       `json:"id"`
	UserID    *uuid.UUID      `json:"user_id,omitempty"`
	Action    string          `json:"action"`
	Outcome   ActivityOutcome `json:"outcome"`
	Target    *string         `json:"target,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// DTOs for API requests/responses

type CreateGenerationRequest struct {
	UserID      uuid.UUID `json:"user_id"`
	Prompt      string    `json:"prompt"`
	AspectRatio string    `json:"aspect_ratio,omitempty"` // Default: "16:9"
	Batch       bool      `json:"batch,omitempty"`
}

type CreateGenerationResponse struct {
	GenerationID uuid.UUID        `json:"generation_id"`
	Status       GenerationStatus `json:"status"`
	CreditsCost  int              `json:"credits_cost"`
}

type GenerationResponse struct {
	Generation
	Videos []Video `json:"videos,omitempty"`
}

type EnhancePromptRequest struct {
	Prompt string `json:"prompt"`
}

type EnhancePromptResponse struct {
	Prompt string `json:"prompt"`
}

type ListVideosResponse struct {
	Videos []Video `json:"videos"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

type ListActivityResponse struct {
	Entries []ActivityLog `json:"entries"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

type ListUsersResponse struct {
	Users []User `json:"users"`
	Total int    `json:"total"`
}
