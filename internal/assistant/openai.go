package assistant

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a study assistant for medical students reading anatomy, histology and embryology notes. " +
	"Answer briefly and clearly, prefer bullet points, and end with one follow-up question."

var errEmptyCompletion = errors.New("assistant: completion has no choices")

// OpenAIResponder asks an OpenAI-compatible chat completion endpoint.
type OpenAIResponder struct {
	client  *openai.Client
	Model   string
	Retries uint
	Delay   time.Duration
}

func NewOpenAIResponder(apiKey, baseURL, model string, retries uint) *OpenAIResponder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIResponder{
		client:  openai.NewClientWithConfig(cfg),
		Model:   model,
		Retries: retries,
		Delay:   200 * time.Millisecond,
	}
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return errors.Is(err, errEmptyCompletion)
}

func (o *OpenAIResponder) Reply(ctx context.Context, message string) (string, error) {
	message, err := checkMessage(message)
	if err != nil {
		return "", err
	}

	var reply string
	err = retry.Do(
		func() error {
			resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model: o.Model,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
					{Role: openai.ChatMessageRoleUser, Content: message},
				},
				Temperature: 0.7,
			})
			if err == nil && len(resp.Choices) == 0 {
				err = errEmptyCompletion
			}
			if err != nil {
				if !retryable(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			reply = strings.TrimSpace(resp.Choices[0].Message.Content)
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(o.Retries+1),
		retry.Delay(o.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", err
	}
	return reply, nil
}
