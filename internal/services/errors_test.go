package services

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"
)

func TestClassifySubmission(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"structured 404", genai.APIError{Code: 404, Message: "model not found"}, KindModelUnavailable},
		{"structured NOT_FOUND status", genai.APIError{Status: "NOT_FOUND"}, KindModelUnavailable},
		{"structured 401", genai.APIError{Code: 401}, KindCredentialMissing},
		{"structured 403", genai.APIError{Code: 403}, KindCredentialMissing},
		{"structured 500", genai.APIError{Code: 500, Status: "INTERNAL"}, KindSubmission},
		{"stringified 404", errors.New("googleapi: Error 404: model does not exist"), KindModelUnavailable},
		{"stringified NOT_FOUND", errors.New("rpc error: code = NOT_FOUND"), KindModelUnavailable},
		{"lowercase not found", errors.New("requested entity was not found"), KindModelUnavailable},
		{"unrelated", errors.New("connection refused"), KindSubmission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifySubmission(tt.err); got.Kind != tt.want {
				t.Errorf("classifySubmission(%v).Kind = %q, want %q", tt.err, got.Kind, tt.want)
			}
		})
	}
}

func TestClassifySubmissionWrapped(t *testing.T) {
	// errors.As must see through fmt.Errorf wrapping.
	wrapped := fmt.Errorf("submit failed: %w", genai.APIError{Code: 404})
	if got := classifySubmission(wrapped); got.Kind != KindModelUnavailable {
		t.Errorf("wrapped APIError classified as %q, want %q", got.Kind, KindModelUnavailable)
	}
}

func TestKindOf(t *testing.T) {
	gerr := newError(KindExhausted, errors.New("all failed"))
	if got := KindOf(gerr); got != KindExhausted {
		t.Errorf("KindOf = %q, want %q", got, KindExhausted)
	}

	wrapped := fmt.Errorf("run: %w", gerr)
	if got := KindOf(wrapped); got != KindExhausted {
		t.Errorf("KindOf through wrapping = %q, want %q", got, KindExhausted)
	}

	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf on plain error = %q, want empty", got)
	}
}

func TestGenerationErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	gerr := newError(KindPolling, cause)
	if !errors.Is(gerr, cause) {
		t.Error("GenerationError should unwrap to its cause")
	}
}
