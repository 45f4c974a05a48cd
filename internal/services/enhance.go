package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

const (
	geminiEnhanceModel = "gemini-3-flash-preview"
	openaiEnhanceModel = "gpt-5-mini"
)

// Enhancer rewrites a user's prompt into a more cinematic, detailed
// description. Enhancement is best-effort: any downstream failure returns
// the original prompt unchanged so it can never block or corrupt the
// generation flow. No retries, no fallback models.
type Enhancer interface {
	Enhance(ctx context.Context, prompt string) (string, error)
}

func enhanceInstruction(prompt string) string {
	return fmt.Sprintf(`Rewrite the following video description to be more cinematic, detailed, and visually descriptive for an AI video generator. Keep it under 50 words. Description: %q`, prompt)
}

// GeminiEnhancer is the preferred enhancement provider, backed by a single
// Gemini text-generation call.
type GeminiEnhancer struct {
	apiKey string

	// Test seam — defaults to the real Gemini call.
	generate func(ctx context.Context, instruction string) (string, error)
}

func NewGeminiEnhancer(apiKey string) *GeminiEnhancer {
	e := &GeminiEnhancer{apiKey: apiKey}
	e.generate = e.generateContent
	return e
}

func (s *GeminiEnhancer) Enhance(ctx context.Context, prompt string) (string, error) {
	if s.apiKey == "" {
		return "", ErrCredentialMissing
	}

	improved, err := s.generate(ctx, enhanceInstruction(prompt))
	if err != nil {
		log.Printf("[Enhance] Gemini request failed, keeping original prompt: %v", err)
		return prompt, nil
	}

	improved = strings.TrimSpace(improved)
	if improved == "" {
		return prompt, nil
	}
	return improved, nil
}

func (s *GeminiEnhancer) generateContent(ctx context.Context, instruction string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create genai client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, geminiEnhanceModel, genai.Text(instruction), nil)
	if err != nil {
		return "", err
	}

	return resp.Text(), nil
}

// chatCompleter is the slice of the OpenAI client the enhancer needs.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIEnhancer is the legacy enhancement provider — used when no Gemini
// key is configured but an OpenAI key is.
type OpenAIEnhancer struct {
	client chatCompleter
	apiKey string
}

func NewOpenAIEnhancer(apiKey string) *OpenAIEnhancer {
	return &OpenAIEnhancer{
		client: openai.NewClient(apiKey),
		apiKey: apiKey,
	}
}

func (s *OpenAIEnhancer) Enhance(ctx context.Context, prompt string) (string, error) {
	if s.apiKey == "" {
		return "", ErrCredentialMissing
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openaiEnhanceModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: enhanceInstruction(prompt),
			},
		},
	})
	if err != nil {
		log.Printf("[Enhance] OpenAI request failed, keeping original prompt: %v", err)
		return prompt, nil
	}

	if len(resp.Choices) == 0 {
		return prompt, nil
	}

	improved := strings.TrimSpace(resp.Choices[0].Message.Content)
	if improved == "" {
		return prompt, nil
	}
	return improved, nil
}
