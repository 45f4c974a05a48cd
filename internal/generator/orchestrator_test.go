package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/videogen-ai/backend/internal/models"
	"github.com/videogen-ai/backend/internal/services"
)

// fakeLedger tracks a single user's balance plus every reserve/refund call.
type fakeLedger struct {
	balance  int
	reserves []int
	refunds  []int
}

func (f *fakeLedger) Reserve(ctx context.Context, userID, generationID uuid.UUID, amount int) (bool, error) {
	f.reserves = append(f.reserves, amount)
	if f.balance < amount {
		return false, nil
	}
	f.balance -= amount
	return true, nil
}

func (f *fakeLedger) Refund(ctx context.Context, userID, generationID uuid.UUID, amount int) error {
	f.refunds = append(f.refunds, amount)
	f.balance += amount
	return nil
}

type fakeLibrary struct {
	records []models.Video
}

func (f *fakeLibrary) Append(ctx context.Context, video *models.Video) error {
	f.records = append(f.records, *video)
	return nil
}

type activityEntry struct {
	action  string
	outcome models.ActivityOutcome
	target  string
}

type fakeActivity struct {
	entries []activityEntry
}

func (f *fakeActivity) Record(ctx context.Context, userID uuid.UUID, action string, outcome models.ActivityOutcome, target string) {
	f.entries = append(f.entries, activityEntry{action: action, outcome: outcome, target: target})
}

// fakeGenerator scripts per-call outcomes and records whether a progress
// callback was passed through.
type fakeGenerator struct {
	results     map[string]error // prompt -> error; missing key means success
	calls       []string
	progressNil []bool
}

func (f *fakeGenerator) GenerateVideo(ctx context.Context, prompt, aspectRatio string, onProgress services.ProgressFunc) (string, error) {
	f.calls = append(f.calls, prompt)
	f.progressNil = append(f.progressNil, onProgress == nil)
	if err, failed := f.results[prompt]; failed {
		return "", err
	}
	return fmt.Sprintf("https://videos.example.com/%d.mp4?key=k", len(f.calls)), nil
}

type harness struct {
	orch     *Orchestrator
	gen      *fakeGenerator
	ledger   *fakeLedger
	library  *fakeLibrary
	activity *fakeActivity
}

func newHarness(balance int) *harness {
	gen := &fakeGenerator{results: map[string]error{}}
	ledger := &fakeLedger{balance: balance}
	library := &fakeLibrary{}
	activity := &fakeActivity{}
	return &harness{
		orch:     New(gen, nil, ledger, library, activity, 20, true),
		gen:      gen,
		ledger:   ledger,
		library:  library,
		activity: activity,
	}
}

func testUser() *models.User {
	return &models.User{
		ID:      uuid.New(),
		Email:   "user@example.com",
		Role:    models.RoleUser,
		Plan:    models.PlanPro,
		Credits: 100,
		Status:  models.UserStatusActive,
	}
}

func request(prompt string, batch bool) Request {
	return Request{
		GenerationID: uuid.New(),
		User:         testUser(),
		Prompt:       prompt,
		AspectRatio:  models.AspectLandscape,
		Batch:        batch,
	}
}

func TestRunSingleSuccess(t *testing.T) {
	h := newHarness(100)

	result := h.orch.Run(context.Background(), request("a cat surfing", false), nil)

	if result.Status != models.GenerationStatusCompleted {
		t.Fatalf("status = %q, want completed (err: %v)", result.Status, result.Err)
	}
	if result.VideoURL == nil || *result.VideoURL == "" {
		t.Error("expected VideoURL on single-mode success")
	}

	// Exactly one reservation, no refunds, balance down by one video's cost.
	if len(h.ledger.reserves) != 1 || h.ledger.reserves[0] != 20 {
		t.Errorf("reserves = %v, want [20]", h.ledger.reserves)
	}
	if len(h.ledger.refunds) != 0 {
		t.Errorf("refunds = %v, want none", h.ledger.refunds)
	}
	if h.ledger.balance != 80 {
		t.Errorf("balance = %d, want 80", h.ledger.balance)
	}

	if len(h.library.records) != 1 {
		t.Fatalf("library records = %d, want 1", len(h.library.records))
	}
	rec := h.library.records[0]
	if rec.Status != models.VideoStatusCompleted || rec.URL == nil {
		t.Errorf("record = %+v, want completed with URL", rec)
	}

	if len(h.activity.entries) != 1 || h.activity.entries[0].action != "Video Generated" {
		t.Errorf("activity = %+v, want one 'Video Generated' entry", h.activity.entries)
	}
}

func TestRunInsufficientCredits(t *testing.T) {
	h := newHarness(15) // less than one video's cost

	result := h.orch.Run(context.Background(), request("a cat surfing", false), nil)

	if result.Status != models.GenerationStatusRejected {
		t.Fatalf("status = %q, want rejected", result.Status)
	}
	var insufficient *InsufficientCreditsError
	if !errors.As(result.Err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientCreditsError", result.Err)
	}
	if insufficient.Required != 20 || insufficient.Videos != 1 {
		t.Errorf("InsufficientCreditsError = %+v, want {20 1}", insufficient)
	}
	if !strings.Contains(result.Message, "20 credits for 1 video(s)") {
		t.Errorf("message = %q, want required amount and count", result.Message)
	}

	// No generation attempt, no records, balance untouched.
	if len(h.gen.calls) != 0 {
		t.Errorf("generator called %d times, want 0", len(h.gen.calls))
	}
	if len(h.library.records) != 0 {
		t.Errorf("library records = %d, want 0", len(h.library.records))
	}
	if h.ledger.balance != 15 {
		t.Errorf("balance = %d, want untouched 15", h.ledger.balance)
	}
}

func TestRunSingleFailureRefunds(t *testing.T) {
	h := newHarness(100)
	h.gen.results["a cat surfing"] = &services.GenerationError{
		Kind: services.KindExhausted,
		Err:  errors.New("all configurations failed"),
	}

	result := h.orch.Run(context.Background(), request("a cat surfing", false), nil)

	if result.Status != models.GenerationStatusAborted {
		t.Fatalf("status = %q, want aborted", result.Status)
	}
	if !strings.HasSuffix(result.Message, "Credits have been refunded.") {
		t.Errorf("message = %q, want refund notice suffix", result.Message)
	}
	if !strings.Contains(result.Message, "Veo models not available") {
		t.Errorf("message = %q, want exhausted-specific guidance", result.Message)
	}

	// One reservation and one refund of the same amount; net balance unchanged.
	if len(h.ledger.reserves) != 1 || len(h.ledger.refunds) != 1 {
		t.Fatalf("reserves = %v, refunds = %v, want one each", h.ledger.reserves, h.ledger.refunds)
	}
	if h.ledger.reserves[0] != h.ledger.refunds[0] {
		t.Errorf("refund %d != reservation %d", h.ledger.refunds[0], h.ledger.reserves[0])
	}
	if h.ledger.balance != 100 {
		t.Errorf("balance = %d, want restored 100", h.ledger.balance)
	}

	// One FAILED record with normalized message, never the raw payload.
	if len(h.library.records) != 1 {
		t.Fatalf("library records = %d, want 1", len(h.library.records))
	}
	rec := h.library.records[0]
	if rec.Status != models.VideoStatusFailed || rec.URL != nil {
		t.Errorf("record = %+v, want failed without URL", rec)
	}
	if rec.ErrorMessage == nil || !strings.Contains(*rec.ErrorMessage, "Model not found") {
		t.Errorf("record message = %v, want normalized model-not-found text", rec.ErrorMessage)
	}

	wantActions := []string{"Generation Failed", "Credits Refunded"}
	if len(h.activity.entries) != len(wantActions) {
		t.Fatalf("activity = %+v, want %v", h.activity.entries, wantActions)
	}
	for i, want := range wantActions {
		if h.activity.entries[i].action != want {
			t.Errorf("activity[%d] = %q, want %q", i, h.activity.entries[i].action, want)
		}
	}
}

func TestRunBatchMiddleFailure(t *testing.T) {
	h := newHarness(100)
	h.gen.results["second"] = &services.GenerationError{
		Kind: services.KindExhausted,
		Err:  errors.New("all configurations failed"),
	}

	result := h.orch.Run(context.Background(), request("first\nsecond\nthird", true), nil)

	if result.Status != models.GenerationStatusPartiallyFailed {
		t.Fatalf("status = %q, want partially_failed", result.Status)
	}
	if result.FailedCount != 1 {
		t.Errorf("FailedCount = %d, want 1", result.FailedCount)
	}

	// One up-front reservation for the whole batch; batch credits are
	// non-refundable per item.
	if len(h.ledger.reserves) != 1 || h.ledger.reserves[0] != 60 {
		t.Errorf("reserves = %v, want [60]", h.ledger.reserves)
	}
	if len(h.ledger.refunds) != 0 {
		t.Errorf("refunds = %v, want none", h.ledger.refunds)
	}
	if h.ledger.balance != 40 {
		t.Errorf("balance = %d, want 40", h.ledger.balance)
	}

	// Three records in prompt order, statuses completed/failed/completed.
	if len(h.library.records) != 3 {
		t.Fatalf("library records = %d, want 3", len(h.library.records))
	}
	wantStatus := []models.VideoStatus{models.VideoStatusCompleted, models.VideoStatusFailed, models.VideoStatusCompleted}
	wantPrompt := []string{"first", "second", "third"}
	for i, rec := range h.library.records {
		if rec.Prompt != wantPrompt[i] {
			t.Errorf("record %d prompt = %q, want %q", i, rec.Prompt, wantPrompt[i])
		}
		if rec.Status != wantStatus[i] {
			t.Errorf("record %d status = %q, want %q", i, rec.Status, wantStatus[i])
		}
	}

	if !strings.Contains(result.Message, "Some videos in the batch may have failed") {
		t.Errorf("message = %q, want batch partial-failure notice", result.Message)
	}
}

func TestRunBatchAllSucceed(t *testing.T) {
	h := newHarness(100)

	result := h.orch.Run(context.Background(), request("first\n\n  second  \n", true), nil)

	if result.Status != models.GenerationStatusCompleted {
		t.Fatalf("status = %q, want completed", result.Status)
	}
	// Blank lines are dropped before costing: 2 prompts, 40 credits.
	if h.ledger.reserves[0] != 40 {
		t.Errorf("reserved %d, want 40", h.ledger.reserves[0])
	}
	if got := h.gen.calls; len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("generator calls = %v, want trimmed prompts in order", got)
	}
}

func TestRunBatchSuppressesPerAttemptProgress(t *testing.T) {
	h := newHarness(100)

	h.orch.Run(context.Background(), request("first\nsecond", true), func(string) {})
	for i, isNil := range h.gen.progressNil {
		if !isNil {
			t.Errorf("batch call %d received a per-attempt progress callback", i)
		}
	}

	h2 := newHarness(100)
	h2.orch.Run(context.Background(), request("solo", false), func(string) {})
	if len(h2.gen.progressNil) != 1 || h2.gen.progressNil[0] {
		t.Error("single mode should pass the progress callback through")
	}
}

func TestRunEmptyPrompt(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		batch  bool
	}{
		{"empty single", "", false},
		{"whitespace single", "   ", false},
		{"batch of blank lines", "\n  \n\t\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(100)
			result := h.orch.Run(context.Background(), request(tt.prompt, tt.batch), nil)

			if result.Status != models.GenerationStatusRejected {
				t.Fatalf("status = %q, want rejected", result.Status)
			}
			if !errors.Is(result.Err, ErrNoPromptProvided) {
				t.Errorf("err = %v, want ErrNoPromptProvided", result.Err)
			}
			if len(h.ledger.reserves) != 0 {
				t.Errorf("reserves = %v, want none on validation failure", h.ledger.reserves)
			}
		})
	}
}

func TestRunMissingCredential(t *testing.T) {
	gen := &fakeGenerator{results: map[string]error{}}
	ledger := &fakeLedger{balance: 100}
	orch := New(gen, nil, ledger, &fakeLibrary{}, &fakeActivity{}, 20, false)

	result := orch.Run(context.Background(), request("a cat surfing", false), nil)

	if result.Status != models.GenerationStatusRejected {
		t.Fatalf("status = %q, want rejected", result.Status)
	}
	if services.KindOf(result.Err) != services.KindCredentialMissing {
		t.Errorf("err kind = %q, want credential_missing", services.KindOf(result.Err))
	}
	if !strings.Contains(result.Message, "API key is missing") {
		t.Errorf("message = %q, want admin guidance", result.Message)
	}
	if len(ledger.reserves) != 0 {
		t.Error("credential check must run before any credits move")
	}
}

func TestRunCredentialFailureMessage(t *testing.T) {
	h := newHarness(100)
	h.gen.results["prompt"] = &services.GenerationError{
		Kind: services.KindCredentialMissing,
		Err:  errors.New("401 unauthorized"),
	}

	result := h.orch.Run(context.Background(), request("prompt", false), nil)

	if result.Status != models.GenerationStatusAborted {
		t.Fatalf("status = %q, want aborted", result.Status)
	}
	rec := h.library.records[0]
	if rec.ErrorMessage == nil || !strings.Contains(*rec.ErrorMessage, "contact support") {
		t.Errorf("record message = %v, want support guidance", rec.ErrorMessage)
	}
	if strings.Contains(*rec.ErrorMessage, "401") {
		t.Errorf("record message %q leaks the raw provider payload", *rec.ErrorMessage)
	}
}

func TestRunActivityTargetTruncated(t *testing.T) {
	h := newHarness(100)
	long := strings.Repeat("x", 80)

	h.orch.Run(context.Background(), request(long, false), nil)

	if len(h.activity.entries) != 1 {
		t.Fatalf("activity entries = %d, want 1", len(h.activity.entries))
	}
	if got := h.activity.entries[0].target; len(got) != 30 {
		t.Errorf("activity target length = %d, want 30", len(got))
	}
}

func TestSplitPrompts(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		batch  bool
		want   []string
	}{
		{"single", " a cat ", false, []string{"a cat"}},
		{"single empty", "  ", false, nil},
		{"single ignores newlines", "a\nb", false, []string{"a\nb"}},
		{"batch", "a\nb\nc", true, []string{"a", "b", "c"}},
		{"batch skips blanks", "a\n\n  \nb", true, []string{"a", "b"}},
		{"batch empty", "\n\n", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitPrompts(tt.prompt, tt.batch)
			if len(got) != len(tt.want) {
				t.Fatalf("SplitPrompts = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("SplitPrompts[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCost(t *testing.T) {
	h := newHarness(0)

	if got := h.orch.Cost("a cat", false); got != 20 {
		t.Errorf("Cost(single) = %d, want 20", got)
	}
	if got := h.orch.Cost("a\nb\nc", true); got != 60 {
		t.Errorf("Cost(batch of 3) = %d, want 60", got)
	}
	if got := h.orch.Cost("  ", false); got != 0 {
		t.Errorf("Cost(empty) = %d, want 0", got)
	}
}
