// Package pipeline is the client of the external AI pipeline that turns a
// prompt (and an optional input image) into a final answer plus the images
// of its intermediate steps.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/PromptVision-AI/promptvision-app/internal/common"
	"github.com/PromptVision-AI/promptvision-app/internal/netx"
)

type Request struct {
	UserID         string  `json:"user_id"`
	PromptID       string  `json:"prompt_id"`
	Prompt         string  `json:"prompt"`
	ConversationID string  `json:"conversation_id"`
	InputImageURL  *string `json:"input_image_url"`
}

// Step is one image produced by the pipeline. Fields the pipeline omits
// decode as empty strings; ReasoningInfo stays nil when absent.
type Step struct {
	StepType      string          `json:"step_type"`
	PublicID      string          `json:"public_id"`
	Filename      string          `json:"filename"`
	URL           string          `json:"url"`
	ResourceType  string          `json:"resource_type"`
	Format        string          `json:"format"`
	ReasoningInfo json.RawMessage `json:"reasoning_info,omitempty"`
}

type Response struct {
	FinalResponse json.RawMessage `json:"final_response"`
	Steps         []Step          `json:"steps"`
}

// Caller is implemented by Client.
type Caller interface {
	Call(ctx context.Context, req Request) (*Response, error)
}

type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient returns a client for endpoint. A zero timeout leaves the call
// bounded only by ctx.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Call posts req once. Transport failures, non-2xx statuses and malformed
// bodies all yield an error wrapping common.ErrPipeline.
func (c *Client) Call(ctx context.Context, req Request) (*Response, error) {
	var out Response
	if err := netx.DoJSON(ctx, c.httpClient, http.MethodPost, c.endpoint, nil, req, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPipeline, err)
	}
	return &out, nil
}
