package client

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"gofer/internal/logging"
)

// GeminiClient wraps the Google Gemini API.
type GeminiClient struct {
	client            *genai.Client
	model             string
	temperature       float32
	systemInstruction string
}

// GeminiOptions configures a GeminiClient.
type GeminiOptions struct {
	APIKey            string
	Model             string
	Temperature       float32
	SystemInstruction string
}

// NewGeminiClient creates a Gemini API client.
func NewGeminiClient(ctx context.Context, opts GeminiOptions) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key required. Get one at https://aistudio.google.com/apikey and set api.api_key or GEMINI_API_KEY")
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  opts.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:            c,
		model:             opts.Model,
		temperature:       opts.Temperature,
		systemInstruction: opts.SystemInstruction,
	}, nil
}

// SetSystemInstruction sets the system-level instruction for the model.
func (c *GeminiClient) SetSystemInstruction(instruction string) {
	c.systemInstruction = instruction
}

// Chat sends the history and tool declarations, returning the parsed reply.
func (c *GeminiClient) Chat(ctx context.Context, history []*genai.Content, declarations []*genai.FunctionDeclaration) (*Response, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: Ptr(c.temperature),
	}
	if c.systemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(c.systemInstruction, genai.RoleUser)
	}
	if len(declarations) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, history, cfg)
	if err != nil {
		return nil, fmt.Errorf("generate content failed: %w", err)
	}

	parsed := parseResponse(resp)
	logging.Debug("model response",
		"model", c.model,
		"function_calls", len(parsed.FunctionCalls),
		"input_tokens", parsed.InputTokens,
		"output_tokens", parsed.OutputTokens)
	return parsed, nil
}

// parseResponse flattens a Gemini response into text and function calls.
func parseResponse(resp *genai.GenerateContentResponse) *Response {
	out := &Response{}

	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	if len(resp.Candidates) == 0 {
		return out
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return out
	}

	out.Parts = candidate.Content.Parts
	for _, part := range candidate.Content.Parts {
		if part.Thought {
			continue
		}
		if part.Text != "" {
			out.Text += part.Text
		}
		if part.FunctionCall != nil {
			out.FunctionCalls = append(out.FunctionCalls, part.FunctionCall)
		}
	}
	return out
}

// Model returns the backing model identifier.
func (c *GeminiClient) Model() string {
	return c.model
}

// Close closes the client connection.
func (c *GeminiClient) Close() error {
	// The genai client has no explicit close
	return nil
}
