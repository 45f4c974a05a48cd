package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/videogen-ai/backend/internal/models"
	"github.com/videogen-ai/backend/internal/services"
)

// Orchestrator coordinates one user-initiated generation request end to end:
// precondition checks, credit reservation, sequential per-prompt generation,
// per-prompt result recording, and refund-on-failure in single mode.
//
// Prompts within a batch are processed strictly in input order, one at a
// time. Sequential processing keeps credit accounting and per-item error
// isolation straightforward; total batch latency is the sum of per-item
// latencies.

// The model family recorded on library entries.
const videoModelFamily = "veo-3.1"

// CreditLedger mutates a user's credit balance. Reserve deducts atomically
// and returns false (without deducting) when the balance is insufficient;
// privileged users always reserve successfully without a balance change.
// A refund never exceeds the amount originally reserved.
type CreditLedger interface {
	Reserve(ctx context.Context, userID, generationID uuid.UUID, amount int) (bool, error)
	Refund(ctx context.Context, userID, generationID uuid.UUID, amount int) error
}

// VideoLibrary receives one record per prompt outcome, in prompt order.
type VideoLibrary interface {
	Append(ctx context.Context, video *models.Video) error
}

// ActivityLog is a fire-and-forget audit sink.
type ActivityLog interface {
	Record(ctx context.Context, userID uuid.UUID, action string, outcome models.ActivityOutcome, target string)
}

// VideoGenerator turns one prompt into one playable video URL.
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, prompt, aspectRatio string, onProgress services.ProgressFunc) (string, error)
}

// Validation errors — reported before any credits move.
var ErrNoPromptProvided = errors.New("no prompt provided")

type InsufficientCreditsError struct {
	Required int
	Videos   int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: need %d for %d video(s)", e.Required, e.Videos)
}

// Request is one logical generate call, already resolved to a user.
type Request struct {
	GenerationID uuid.UUID
	User         *models.User
	Prompt       string // Raw prompt text; newline-delimited in batch mode
	AspectRatio  string
	Batch        bool
}

// Result is the terminal report of a request.
type Result struct {
	Status      models.GenerationStatus
	Videos      []models.Video
	VideoURL    *string // Single mode: the playable URL, surfaced immediately
	FailedCount int
	Err         error  // Cause, for Rejected and Aborted
	Message     string // User-visible message for non-Completed terminals
}

type Orchestrator struct {
	videos        VideoGenerator
	enhancer      services.Enhancer // nil when enhancement is disabled
	ledger        CreditLedger
	library       VideoLibrary
	activity      ActivityLog
	costPerVideo  int
	hasCredential bool
}

func New(
	videos VideoGenerator,
	enhancer services.Enhancer,
	ledger CreditLedger,
	library VideoLibrary,
	activity ActivityLog,
	costPerVideo int,
	hasCredential bool,
) *Orchestrator {
	return &Orchestrator{
		videos:        videos,
		enhancer:      enhancer,
		ledger:        ledger,
		library:       library,
		activity:      activity,
		costPerVideo:  costPerVideo,
		hasCredential: hasCredential,
	}
}

// SplitPrompts resolves the raw prompt text into the ordered list of prompts
// to generate: one trimmed prompt in single mode, one per non-empty line in
// batch mode.
func SplitPrompts(prompt string, batch bool) []string {
	if !batch {
		p := strings.TrimSpace(prompt)
		if p == "" {
			return nil
		}
		return []string{p}
	}

	var prompts []string
	for _, line := range strings.Split(prompt, "\n") {
		if p := strings.TrimSpace(line); p != "" {
			prompts = append(prompts, p)
		}
	}
	return prompts
}

// Cost returns the credits a request will reserve.
func (o *Orchestrator) Cost(prompt string, batch bool) int {
	return len(SplitPrompts(prompt, batch)) * o.costPerVideo
}

// EnhancePrompt rewrites prompt via the configured enhancement provider.
// Best-effort by design: provider failures return the original prompt.
func (o *Orchestrator) EnhancePrompt(ctx context.Context, prompt string) (string, error) {
	if o.enhancer == nil {
		return "", errors.New("prompt enhancement is disabled")
	}
	return o.enhancer.Enhance(ctx, prompt)
}

// Run drives a request to a terminal state. Validation failures reject the
// request before any credits move; execution failures reconcile the ledger
// according to mode (refund in single mode, no refund in batch mode).
func (o *Orchestrator) Run(ctx context.Context, req Request, onProgress services.ProgressFunc) *Result {
	// Validating
	prompts := SplitPrompts(req.Prompt, req.Batch)
	if len(prompts) == 0 {
		return rejected(ErrNoPromptProvided, "No prompt provided.")
	}

	if !o.hasCredential {
		return rejected(services.ErrCredentialMissing,
			"System configuration error: API key is missing. Please contact administrator.")
	}

	cost := len(prompts) * o.costPerVideo

	// CreditsReserved — exactly one atomic deduction per request, before any
	// generation attempt starts.
	ok, err := o.ledger.Reserve(ctx, req.User.ID, req.GenerationID, cost)
	if err != nil {
		return rejected(fmt.Errorf("credit reservation failed: %w", err),
			"Could not reserve credits. Please try again.")
	}
	if !ok {
		insufficient := &InsufficientCreditsError{Required: cost, Videos: len(prompts)}
		return rejected(insufficient,
			fmt.Sprintf("Insufficient credits. You need %d credits for %d video(s).", cost, len(prompts)))
	}

	if req.Batch {
		emit(onProgress, fmt.Sprintf("Preparing batch generation for %d videos...", len(prompts)))
	} else {
		emit(onProgress, "Initializing Veo model...")
	}

	// Running
	result := &Result{Status: models.GenerationStatusCompleted}

	for i, prompt := range prompts {
		// Per-attempt progress detail is only wired through in single mode;
		// batch mode reports coarse per-item progress instead.
		itemProgress := onProgress
		if req.Batch {
			itemProgress = nil
			emit(onProgress, fmt.Sprintf("Generating video %d of %d...", i+1, len(prompts)))
		} else {
			emit(onProgress, "Dreaming up your video (this may take a minute)...")
		}

		url, genErr := o.videos.GenerateVideo(ctx, prompt, req.AspectRatio, itemProgress)

		video := models.Video{
			ID:           uuid.New(),
			UserID:       req.User.ID,
			GenerationID: &req.GenerationID,
			Prompt:       prompt,
			Status:       models.VideoStatusCompleted,
			AspectRatio:  req.AspectRatio,
			Model:        videoModelFamily,
			DurationSec:  8,
			CreatedAt:    time.Now(),
		}

		if genErr == nil {
			video.URL = &url
			if !req.Batch {
				result.VideoURL = &url
			}
			o.appendRecord(ctx, &video)
			o.activity.Record(ctx, req.User.ID, "Video Generated", models.ActivitySuccess, truncate(prompt, 30))
			result.Videos = append(result.Videos, video)
			continue
		}

		msg := recordMessage(genErr)
		video.Status = models.VideoStatusFailed
		video.URL = nil
		video.ErrorMessage = &msg
		o.appendRecord(ctx, &video)
		o.activity.Record(ctx, req.User.ID, "Generation Failed", models.ActivityError, truncate(prompt, 30))
		result.Videos = append(result.Videos, video)
		result.FailedCount++

		if !req.Batch {
			// Aborted — the one attempt failed; refund the full reserved
			// amount and tell the user so.
			if refundErr := o.ledger.Refund(ctx, req.User.ID, req.GenerationID, cost); refundErr != nil {
				log.Printf("[Generator] refund of %d credits failed for user %s: %v", cost, req.User.ID, refundErr)
			} else {
				o.activity.Record(ctx, req.User.ID, "Credits Refunded", models.ActivityWarning, fmt.Sprintf("%d credits", cost))
			}

			result.Status = models.GenerationStatusAborted
			result.Err = genErr
			result.Message = displayError(genErr) + " Credits have been refunded."
			return result
		}
		// Batch mode: one failure does not abort the batch, and batch
		// credits are non-refundable per item.
	}

	if result.FailedCount > 0 {
		result.Status = models.GenerationStatusPartiallyFailed
		result.Message = "Some videos in the batch may have failed. Check your library for details."
	}

	return result
}

func (o *Orchestrator) appendRecord(ctx context.Context, video *models.Video) {
	if err := o.library.Append(ctx, video); err != nil {
		log.Printf("[Generator] failed to append video record %s: %v", video.ID, err)
	}
}

func rejected(err error, message string) *Result {
	return &Result{
		Status:  models.GenerationStatusRejected,
		Err:     err,
		Message: message,
	}
}

// recordMessage is the normalized per-record error text stored in the
// library. Raw provider payloads are never shown directly.
func recordMessage(err error) string {
	switch services.KindOf(err) {
	case services.KindCredentialMissing:
		return "System API key is invalid or missing. Please contact support."
	case services.KindModelUnavailable, services.KindExhausted:
		return "Model not found. Please check Google Cloud Console to enable the Video Generation API."
	default:
		return "Generation failed: " + err.Error()
	}
}

// displayError is the aggregate user-facing text for a failed single-mode
// request.
func displayError(err error) string {
	switch services.KindOf(err) {
	case services.KindCredentialMissing:
		return "System API key is invalid or missing. Please contact support."
	case services.KindModelUnavailable, services.KindExhausted:
		return "Veo models not available. Please verify the API key has access to the Video Generation API in Google Cloud Console."
	default:
		return "Error: " + err.Error()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func emit(onProgress services.ProgressFunc, status string) {
	if onProgress != nil {
		onProgress(status)
	}
}
