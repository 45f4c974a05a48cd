package services

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ErrorKind classifies generation failures at the transport boundary so that
// callers never have to inspect raw provider payloads.
type ErrorKind string

const (
	// KindCredentialMissing — no API key configured, or the provider rejected it.
	KindCredentialMissing ErrorKind = "credential_missing"

	// KindModelUnavailable — the requested model/resolution does not exist or
	// is not enabled for this key (a "not found" class error). Recoverable
	// during fallback submission.
	KindModelUnavailable ErrorKind = "model_unavailable"

	// KindExhausted — every fallback configuration failed to accept the job.
	KindExhausted ErrorKind = "configurations_exhausted"

	// KindSubmission — a non-recoverable submission error (auth, quota,
	// malformed request unrelated to model availability).
	KindSubmission ErrorKind = "submission_failed"

	// KindNoMedia — the operation completed but produced no playable video.
	KindNoMedia ErrorKind = "no_media_produced"

	// KindPolling — transport failure while polling an accepted job.
	KindPolling ErrorKind = "polling_failed"

	// KindTimeout — the poll budget was exhausted before the job resolved.
	KindTimeout ErrorKind = "timeout"
)

// GenerationError wraps an underlying provider error with its classification.
type GenerationError struct {
	Kind ErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, err error) *GenerationError {
	return &GenerationError{Kind: kind, Err: err}
}

// ErrCredentialMissing is returned before any network call when no API key
// is configured.
var ErrCredentialMissing = &GenerationError{
	Kind: KindCredentialMissing,
	Err:  errors.New("no API key configured"),
}

// KindOf extracts the classification from err, or "" if err is not a
// GenerationError.
func KindOf(err error) ErrorKind {
	var gerr *GenerationError
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return ""
}

// isRecoverableSubmission reports whether a submission error means "this
// model/resolution is unavailable, try the next configuration". Structured
// API errors are checked first; the stringified-payload check is kept as a
// fallback for errors the SDK does not type.
func isRecoverableSubmission(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 404 || apiErr.Status == "NOT_FOUND"
	}

	msg := err.Error()
	return strings.Contains(msg, "404") || strings.Contains(msg, "NOT_FOUND") ||
		strings.Contains(strings.ToLower(msg), "not found")
}

// classifySubmission turns a raw submission error into a typed one.
func classifySubmission(err error) *GenerationError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return newError(KindCredentialMissing, err)
		case 404:
			return newError(KindModelUnavailable, err)
		}
		if apiErr.Status == "NOT_FOUND" {
			return newError(KindModelUnavailable, err)
		}
		return newError(KindSubmission, err)
	}

	if isRecoverableSubmission(err) {
		return newError(KindModelUnavailable, err)
	}
	return newError(KindSubmission, err)
}
