package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/videogen-ai/backend/internal/db"
	"github.com/videogen-ai/backend/internal/generator"
	"github.com/videogen-ai/backend/internal/models"
	"github.com/videogen-ai/backend/internal/queue"
	"github.com/videogen-ai/backend/internal/services"
)

type Handler struct {
	db           *db.DB
	queue        *queue.Queue
	orchestrator *generator.Orchestrator
	activity     *db.ActivityRecorder

	videoGenerationEnabled bool
	enhancementEnabled     bool
}

func NewHandler(database *db.DB, q *queue.Queue, orch *generator.Orchestrator, activity *db.ActivityRecorder, videoGenerationEnabled, enhancementEnabled bool) *Handler {
	return &Handler{
		db:                     database,
		queue:                  q,
		orchestrator:           orch,
		activity:               activity,
		videoGenerationEnabled: videoGenerationEnabled,
		enhancementEnabled:     enhancementEnabled,
	}
}

// CreateGeneration handles POST /v1/generations — accepts a single prompt
// or a newline-delimited batch and queues it for the worker. Progress and
// the terminal result arrive on the generation's event stream.
func (h *Handler) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !h.videoGenerationEnabled {
		respondError(w, http.StatusServiceUnavailable, "Video generation is currently disabled")
		return
	}

	if len(generator.SplitPrompts(req.Prompt, req.Batch)) == 0 {
		respondError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	aspectRatio := req.AspectRatio
	if aspectRatio == "" {
		aspectRatio = models.AspectLandscape
	}
	if !models.ValidAspectRatio(aspectRatio) {
		respondError(w, http.StatusBadRequest, "Aspect ratio must be 16:9 or 9:16")
		return
	}

	if _, err := h.db.GetUser(r.Context(), req.UserID); err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	gen := &models.Generation{
		ID:          uuid.New(),
		UserID:      req.UserID,
		Prompt:      req.Prompt,
		AspectRatio: aspectRatio,
		Batch:       req.Batch,
		Status:      models.GenerationStatusQueued,
	}

	if err := h.db.CreateGeneration(r.Context(), gen); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create generation")
		return
	}

	if err := h.queue.EnqueueGeneration(r.Context(), gen.ID, gen.UserID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to enqueue generation")
		return
	}

	respondJSON(w, http.StatusAccepted, models.CreateGenerationResponse{
		GenerationID: gen.ID,
		Status:       gen.Status,
		CreditsCost:  h.orchestrator.Cost(req.Prompt, req.Batch),
	})
}

// GetGeneration handles GET /v1/generations/{id}
func (h *Handler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	genID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid generation ID")
		return
	}

	gen, err := h.db.GetGeneration(r.Context(), genID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Generation not found")
		return
	}

	videos, err := h.db.ListGenerationVideos(r.Context(), genID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load generation videos")
		return
	}

	respondJSON(w, http.StatusOK, models.GenerationResponse{
		Generation: *gen,
		Videos:     videos,
	})
}

// StreamGenerationEvents handles GET /v1/generations/{id}/events — an SSE
// stream of progress messages ending with one terminal result event.
func (h *Handler) StreamGenerationEvents(w http.ResponseWriter, r *http.Request) {
	genID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid generation ID")
		return
	}

	gen, err := h.db.GetGeneration(r.Context(), genID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Generation not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Already terminal: replay the result and close — nothing more will be
	// published for this generation.
	if terminal(gen.Status) {
		writeSSE(w, queue.Event{Type: queue.EventResult, Status: gen.Status, Message: deref(gen.ErrorMessage)})
		flusher.Flush()
		return
	}

	events, cancel := h.queue.SubscribeEvents(r.Context(), genID)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			writeSSE(w, event)
			flusher.Flush()
			if event.Type == queue.EventResult {
				return
			}
		}
	}
}

func terminal(status models.GenerationStatus) bool {
	switch status {
	case models.GenerationStatusCompleted, models.GenerationStatusPartiallyFailed,
		models.GenerationStatusAborted, models.GenerationStatusRejected:
		return true
	}
	return false
}

func writeSSE(w http.ResponseWriter, event queue.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// EnhancePrompt handles POST /v1/prompts/enhance — best-effort cinematic
// rewrite of a prompt. Not available in batch mode (the UI enforces that;
// the endpoint just rewrites whatever single prompt it is given).
func (h *Handler) EnhancePrompt(w http.ResponseWriter, r *http.Request) {
	var req models.EnhancePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !h.enhancementEnabled {
		respondError(w, http.StatusServiceUnavailable, "Prompt enhancement is currently disabled")
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		respondError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	improved, err := h.orchestrator.EnhancePrompt(r.Context(), req.Prompt)
	if err != nil {
		if services.KindOf(err) == services.KindCredentialMissing {
			respondError(w, http.StatusServiceUnavailable, "System API key is missing. Cannot enhance prompt.")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to enhance prompt")
		return
	}

	respondJSON(w, http.StatusOK, models.EnhancePromptResponse{Prompt: improved})
}

// ListVideos handles GET /v1/videos?user_id=...&limit=...&offset=...
func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	limit := parseQueryInt(r, "limit", 20, 100)
	offset := parseQueryInt(r, "offset", 0, 1<<30)

	total, err := h.db.CountUserVideos(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count videos")
		return
	}

	videos, err := h.db.ListUserVideos(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list videos")
		return
	}

	respondJSON(w, http.StatusOK, models.ListVideosResponse{
		Videos: videos,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// DeleteVideo handles DELETE /v1/videos/{id}
func (h *Handler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	videoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid video ID")
		return
	}

	video, err := h.db.GetVideo(r.Context(), videoID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Video not found")
		return
	}

	if err := h.db.DeleteVideo(r.Context(), videoID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete video")
		return
	}

	h.activity.Record(r.Context(), video.UserID, "Video Deleted", models.ActivityInfo, video.ID.String())

	w.WriteHeader(http.StatusNoContent)
}

// GetUser handles GET /v1/users/{id} — profile plus remaining credits.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := h.db.GetUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// ListUsers handles GET /v1/admin/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	respondJSON(w, http.StatusOK, models.ListUsersResponse{
		Users: users,
		Total: len(users),
	})
}

// ListActivity handles GET /v1/admin/activity
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r, "limit", 50, 200)
	offset := parseQueryInt(r, "offset", 0, 1<<30)

	total, err := h.db.CountActivity(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count activity")
		return
	}

	entries, err := h.db.ListActivity(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list activity")
		return
	}

	respondJSON(w, http.StatusOK, models.ListActivityResponse{
		Entries: entries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helpers

func parseQueryInt(r *http.Request, name string, def, max int) int {
	value := def
	if raw := r.URL.Query().Get(name); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			value = parsed
		}
	}
	if value > max {
		value = max
	}
	return value
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
