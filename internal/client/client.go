// Package client abstracts the model backend behind a minimal chat
// interface so the agent loop never sees SDK details.
package client

import (
	"context"

	"google.golang.org/genai"
)

// Response is one model reply: the text answer and any requested
// function calls, in the order the model emitted them.
type Response struct {
	Text          string
	FunctionCalls []*genai.FunctionCall
	Parts         []*genai.Part

	InputTokens  int
	OutputTokens int
}

// HasActions reports whether the model requested any function calls.
func (r *Response) HasActions() bool {
	return len(r.FunctionCalls) > 0
}

// Client is the interface the agent loop talks to.
type Client interface {
	// Chat sends the conversation history and the available tool
	// declarations, returning the model's next reply.
	Chat(ctx context.Context, history []*genai.Content, declarations []*genai.FunctionDeclaration) (*Response, error)

	// Model returns the backing model identifier.
	Model() string

	// Close releases client resources.
	Close() error
}

// Ptr returns a pointer to v, for optional SDK config fields.
func Ptr[T any](v T) *T {
	return &v
}
