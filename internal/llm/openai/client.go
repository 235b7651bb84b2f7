package openai

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"contract-backend/internal/llm"
)

const providerName = "openai"

// Client implements llm.Client on the OpenAI chat completion API.
type Client struct {
	api   *openai.Client
	model string
}

// New constructs a Client for the given model (defaults to gpt-4o-mini).
func New(apiKey, model string) *Client {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{
		api:   openai.NewClient(apiKey),
		model: model,
	}
}

// AnalyzeContract asks for a structured risk read of the contract text.
func (c *Client) AnalyzeContract(ctx context.Context, text string) (llm.AnalysisResult, error) {
	system, user := llm.AnalysisMessages(text)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	})
	if err != nil {
		return llm.AnalysisResult{}, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return llm.AnalysisResult{}, &llm.CapabilityError{
			Kind:     llm.KindBadOutput,
			Provider: providerName,
			Err:      errors.New("empty completion"),
		}
	}

	return llm.ParseAnalysisJSON(providerName, resp.Choices[0].Message.Content)
}

// Answer responds to a question grounded in the document text.
func (c *Client) Answer(ctx context.Context, docText, question string, history []llm.Turn) (llm.Answer, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: llm.ChatSystemPrompt(docText),
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: question,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: 0.3,
	})
	if err != nil {
		return llm.Answer{}, mapError(err)
	}
	if len(resp.Choices) == 0 {
		return llm.Answer{}, &llm.CapabilityError{
			Kind:     llm.KindBadOutput,
			Provider: providerName,
			Err:      errors.New("empty completion"),
		}
	}

	return llm.Answer{Text: resp.Choices[0].Message.Content}, nil
}

func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &llm.CapabilityError{Kind: llm.KindTimeout, Provider: providerName, Err: err}
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return &llm.CapabilityError{Kind: llm.KindQuota, Provider: providerName, Err: err}
	}
	return &llm.CapabilityError{Kind: llm.KindProvider, Provider: providerName, Err: err}
}

var _ llm.Client = (*Client)(nil)
