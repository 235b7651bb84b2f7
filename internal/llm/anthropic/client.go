package anthropic

import (
	"context"
	"errors"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"contract-backend/internal/llm"
)

const providerName = "anthropic"

const defaultMaxTokens = 4096

// Client implements llm.Client on the Anthropic Messages API.
type Client struct {
	api   anthropic.Client
	model anthropic.Model
}

// New constructs a Client for the given model (defaults to claude-sonnet-4).
func New(apiKey, model string) *Client {
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}
	return &Client{
		api:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		model: anthropic.Model(model),
	}
}

// AnalyzeContract asks for a structured risk read of the contract text.
func (c *Client) AnalyzeContract(ctx context.Context, text string) (llm.AnalysisResult, error) {
	system, user := llm.AnalysisMessages(text)

	resp, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: defaultMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
		Temperature: anthropic.Float(0.1),
	})
	if err != nil {
		return llm.AnalysisResult{}, mapError(err)
	}

	content := textContent(resp)
	if content == "" {
		return llm.AnalysisResult{}, &llm.CapabilityError{
			Kind:     llm.KindBadOutput,
			Provider: providerName,
			Err:      errors.New("empty completion"),
		}
	}

	return llm.ParseAnalysisJSON(providerName, content)
}

// Answer responds to a question grounded in the document text.
func (c *Client) Answer(ctx context.Context, docText, question string, history []llm.Turn) (llm.Answer, error) {
	msgs := make([]anthropic.MessageParam, 0, len(history)+1)
	for _, turn := range history {
		if turn.Role == "assistant" {
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(turn.Text)))
			continue
		}
		msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(turn.Text)))
	}
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(question)))

	resp, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: defaultMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: llm.ChatSystemPrompt(docText)},
		},
		Messages:    msgs,
		Temperature: anthropic.Float(0.3),
	})
	if err != nil {
		return llm.Answer{}, mapError(err)
	}

	content := textContent(resp)
	if content == "" {
		return llm.Answer{}, &llm.CapabilityError{
			Kind:     llm.KindBadOutput,
			Provider: providerName,
			Err:      errors.New("empty completion"),
		}
	}

	return llm.Answer{Text: content}, nil
}

func textContent(resp *anthropic.Message) string {
	var out string
	for _, block := range resp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out
}

func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &llm.CapabilityError{Kind: llm.KindTimeout, Provider: providerName, Err: err}
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return &llm.CapabilityError{Kind: llm.KindQuota, Provider: providerName, Err: err}
	}
	return &llm.CapabilityError{Kind: llm.KindProvider, Provider: providerName, Err: err}
}

var _ llm.Client = (*Client)(nil)
