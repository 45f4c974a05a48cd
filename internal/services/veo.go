package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/videogen-ai/backend/internal/config"
	"google.golang.org/genai"
)

// ---------------------------------------------------------------------------
// Veo 3.1 Video Generation Service
// Turns one text prompt into one playable video URL. Model/resolution
// availability instability is hidden behind an ordered fallback chain, and
// asynchronous completion is hidden behind a polling loop with monotonic
// backoff.
// ---------------------------------------------------------------------------

const (
	defaultPollBaseDelay = 5 * time.Second
	defaultPollStepDelay = 1 * time.Second
	defaultPollMaxDelay  = 10 * time.Second
)

// ProgressFunc receives human-readable status updates during a generation.
// Purely cosmetic — it never affects control flow, and may be nil.
type ProgressFunc func(status string)

// veoAPI is the thin seam over the Gen AI SDK so the fallback and polling
// logic can be exercised without network access.
type veoAPI interface {
	generateVideos(ctx context.Context, model, prompt string, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	getOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
}

type genaiVeoAPI struct {
	client *genai.Client
}

func newGenaiVeoAPI(ctx context.Context, apiKey string) (veoAPI, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &genaiVeoAPI{client: client}, nil
}

func (a *genaiVeoAPI) generateVideos(ctx context.Context, model, prompt string, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return a.client.Models.GenerateVideos(ctx, model, prompt, nil, cfg)
}

func (a *genaiVeoAPI) getOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return a.client.Operations.GetVideosOperation(ctx, op, nil)
}

// VeoOptions tunes the fallback chain and polling behavior.
// Zero-value fields get defaults.
type VeoOptions struct {
	Fallbacks     []config.ModelConfig
	PollBaseDelay time.Duration
	PollStepDelay time.Duration
	PollMaxDelay  time.Duration

	// MaxPolls caps the polling loop. 0 polls until the external job
	// resolves, which matches the dashboard's behavior but means a stuck
	// job is waited on forever — set a cap in production.
	MaxPolls int
}

// VeoService drives video generation via Google's Veo models. Stateless
// between invocations; construct once at startup and inject.
type VeoService struct {
	apiKey    string
	fallbacks []config.ModelConfig
	pollBase  time.Duration
	pollStep  time.Duration
	pollMax   time.Duration
	maxPolls  int

	// Test seams — default to the real SDK and a context-aware sleep.
	newAPI func(ctx context.Context, apiKey string) (veoAPI, error)
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewVeoService(apiKey string, opts VeoOptions) *VeoService {
	if len(opts.Fallbacks) == 0 {
		opts.Fallbacks = config.DefaultModelFallbacks
	}
	if opts.PollBaseDelay <= 0 {
		opts.PollBaseDelay = defaultPollBaseDelay
	}
	if opts.PollStepDelay <= 0 {
		opts.PollStepDelay = defaultPollStepDelay
	}
	if opts.PollMaxDelay <= 0 {
		opts.PollMaxDelay = defaultPollMaxDelay
	}

	return &VeoService{
		apiKey:    apiKey,
		fallbacks: opts.Fallbacks,
		pollBase:  opts.PollBaseDelay,
		pollStep:  opts.PollStepDelay,
		pollMax:   opts.PollMaxDelay,
		maxPolls:  opts.MaxPolls,
		newAPI:    newGenaiVeoAPI,
		sleep:     sleepCtx,
	}
}

// GenerateVideo submits prompt against the fallback chain, polls the accepted
// job to completion, and returns a directly fetchable video URL.
//
// Submission errors classified as "model unavailable" move on to the next
// configuration; anything else aborts immediately. When every configuration
// is rejected, the returned error carries the last observed one.
func (s *VeoService) GenerateVideo(ctx context.Context, prompt, aspectRatio string, onProgress ProgressFunc) (string, error) {
	if s.apiKey == "" {
		return "", ErrCredentialMissing
	}

	api, err := s.newAPI(ctx, s.apiKey)
	if err != nil {
		return "", newError(KindSubmission, err)
	}

	// 1. Submission with fallback
	var operation *genai.GenerateVideosOperation
	var chosen config.ModelConfig
	var lastErr error

	for _, mc := range s.fallbacks {
		emit(onProgress, fmt.Sprintf("Requesting %s (%s)...", mc.Model, mc.Resolution))

		op, err := api.generateVideos(ctx, mc.Model, prompt, &genai.GenerateVideosConfig{
			NumberOfVideos: 1,
			Resolution:     mc.Resolution,
			AspectRatio:    aspectRatio,
		})
		if err == nil {
			operation = op
			chosen = mc
			break
		}

		gerr := classifySubmission(err)
		if gerr.Kind != KindModelUnavailable {
			return "", gerr
		}

		log.Printf("[Veo] %s (%s) unavailable, trying next configuration: %v", mc.Model, mc.Resolution, err)
		lastErr = err
	}

	if operation == nil {
		if lastErr == nil {
			lastErr = errors.New("no model configurations to try")
		}
		log.Printf("[Veo] All model configurations failed: %v", lastErr)
		return "", newError(KindExhausted, lastErr)
	}

	log.Printf("[Veo] Generation started (model=%s, resolution=%s, operation=%s)", chosen.Model, chosen.Resolution, operation.Name)
	emit(onProgress, "Request accepted. Rendering video...")

	// 2. Poll until done with monotonic backoff: base + step per poll, capped.
	pollCount := 0
	for !operation.Done {
		pollCount++
		if s.maxPolls > 0 && pollCount > s.maxPolls {
			return "", newError(KindTimeout, fmt.Errorf("job still running after %d polls", s.maxPolls))
		}

		emit(onProgress, pollPhaseLabel(pollCount))

		delay := s.pollBase + time.Duration(pollCount-1)*s.pollStep
		if delay > s.pollMax {
			delay = s.pollMax
		}
		if err := s.sleep(ctx, delay); err != nil {
			return "", newError(KindPolling, err)
		}

		operation, err = api.getOperation(ctx, operation)
		if err != nil {
			return "", newError(KindPolling, fmt.Errorf("poll %d failed: %w", pollCount, err))
		}
	}

	// 3. Resolve the media URI
	if len(operation.Error) > 0 {
		errJSON, _ := json.Marshal(operation.Error)
		return "", newError(KindNoMedia, fmt.Errorf("operation failed: %s", string(errJSON)))
	}

	if operation.Response == nil {
		return "", newError(KindNoMedia, fmt.Errorf("no response in completed operation after %d polls", pollCount))
	}

	if operation.Response.RAIMediaFilteredCount > 0 {
		reasons := "unknown"
		if len(operation.Response.RAIMediaFilteredReasons) > 0 {
			reasons = strings.Join(operation.Response.RAIMediaFilteredReasons, ", ")
		}
		return "", newError(KindNoMedia, fmt.Errorf("video blocked by safety filters: %s", reasons))
	}

	if len(operation.Response.GeneratedVideos) == 0 || operation.Response.GeneratedVideos[0].Video == nil {
		return "", newError(KindNoMedia, errors.New("no video in response"))
	}

	uri := operation.Response.GeneratedVideos[0].Video.URI
	if uri == "" {
		return "", newError(KindNoMedia, errors.New("no video URI in response"))
	}

	emit(onProgress, "Download ready...")
	log.Printf("[Veo] Video ready after %d polls (model=%s)", pollCount, chosen.Model)

	// The media host requires the API key on the download URL.
	return withAPIKey(uri, s.apiKey), nil
}

// pollPhaseLabel returns the rotating human-readable phase label for a poll
// iteration: "initializing" for the first two polls, then a 4-phase cycle.
func pollPhaseLabel(pollCount int) string {
	if pollCount <= 2 {
		return "Initializing render..."
	}
	switch pollCount % 4 {
	case 0:
		return "Synthesizing motion..."
	case 1:
		return "Refining details..."
	case 2:
		return "Processing textures..."
	default:
		return "Finalizing output..."
	}
}

// withAPIKey appends the key as a query parameter so the returned URL is
// directly fetchable.
func withAPIKey(rawURL, apiKey string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("key", apiKey)
	u.RawQuery = q.Encode()
	return u.String()
}

func emit(onProgress ProgressFunc, status string) {
	if onProgress != nil {
		onProgress(status)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
