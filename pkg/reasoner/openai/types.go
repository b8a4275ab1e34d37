package openai

import (
	"errors"

	"mercator-hq/verdict/pkg/compliance"
	"mercator-hq/verdict/pkg/reasoner"
)

// Request is a chat completion request.
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	N              int             `json:"n,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat constrains the answer format.
type ResponseFormat struct {
	Type string `json:"type"`
}

// Response is a chat completion response.
type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice is one completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token counts.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// BuildRequest builds the compliance mapping request for a pair.
func BuildRequest(cfg reasoner.Config, action, reason string) *Request {
	req := &Request{
		Model: cfg.Model,
		Messages: []Message{
			{Role: "system", Content: reasoner.SystemPrompt},
			{Role: "user", Content: reasoner.UserPrompt(action, reason)},
		},
		Temperature: cfg.SamplingTemperature(),
		MaxTokens:   cfg.MaxTokens,
		N:           1,
	}
	if cfg.JSONMode {
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}
	return req
}

// ParseResponse extracts the entry from the first choice.
func ParseResponse(provider string, resp *Response) (compliance.Entry, error) {
	if len(resp.Choices) == 0 {
		return compliance.Entry{}, &reasoner.ParseError{
			Provider: provider,
			Cause:    errors.New("no choices in response"),
		}
	}
	return reasoner.ParseEntry(provider, resp.Choices[0].Message.Content)
}
