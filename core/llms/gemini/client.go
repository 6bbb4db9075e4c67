package gemini

import (
	"context"
	"fmt"
	"iter"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// models is the part of genai.Models used by the client.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

type Client struct {
	models models
	model  string

	systemPrompt string
	temperature  *float32
}

type ClientOption func(*Client)

// WithModel selects the model used for every prompt. Defaults to
// [DefaultModel].
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithSystemPrompt sets the instructions used when a prompt does not bring
// its own.
func WithSystemPrompt(prompt string) ClientOption {
	return func(c *Client) { c.systemPrompt = prompt }
}

func WithTemperature(temperature float32) ClientOption {
	return func(c *Client) { c.temperature = &temperature }
}

func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key not provided")
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newClient(genaiClient.Models, opts...), nil
}

func newClient(models models, opts ...ClientOption) *Client {
	client := &Client{models: models, model: DefaultModel}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Model returns the name of the model the client prompts.
func (c *Client) Model() string {
	return c.model
}
