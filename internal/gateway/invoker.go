package gateway

import (
	"context"
	"time"
)

//go:generate go tool mockgen -source=invoker.go -destination=mock_invoker.go -package=gateway

// Invoker is one backend model behind a uniform, retrying call interface.
type Invoker interface {
	// Model returns the backend model id.
	Model() string
	// Invoke sends prompt and returns the response text and the wall-clock
	// time the call took, or an *APIError once retries are exhausted.
	Invoke(ctx context.Context, prompt string, opts ...CallOption) (string, time.Duration, error)
}

// ResponseSchema constrains the model output to a JSON schema.
type ResponseSchema struct {
	Name   string
	Schema map[string]any
}

// CallOption customizes one Invoke call.
type CallOption func(*CallOptions)

// CallOptions is the resolved set of per-call options.
type CallOptions struct {
	SystemPrompt *string
	Schema       *ResponseSchema
}

// WithSystemPrompt overrides the client's system prompt for one call.
func WithSystemPrompt(prompt string) CallOption {
	return func(o *CallOptions) { o.SystemPrompt = &prompt }
}

// WithSchema requests strict structured output.
func WithSchema(name string, schema map[string]any) CallOption {
	return func(o *CallOptions) { o.Schema = &ResponseSchema{Name: name, Schema: schema} }
}

// ResolveCallOptions applies opts in order.
func ResolveCallOptions(opts ...CallOption) CallOptions {
	var o CallOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
