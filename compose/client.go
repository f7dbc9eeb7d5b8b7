package compose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Mode string

const MODE_COMPOSITION Mode = "composition"
const MODE_LOOKUP Mode = "lookup"

type ContextEnvelope struct {
	ContentType  string `json:"contentType"`
	AudienceType string `json:"audienceType"`
	DealStage    string `json:"dealStage"`
	CustomerInfo string `json:"customerInfo"`
}

type Request struct {
	OrganizationId string          `json:"organizationId"`
	Prompt         string          `json:"prompt"`
	Context        ContextEnvelope `json:"context"`
	ActionMode     Mode            `json:"actionMode"`
}

// WorkflowClient is the boundary to the AI content-composition workflow. The
// response shape depends on the action type, so it stays an opaque map that
// each handler decodes against its own output schema.
type WorkflowClient interface {
	Compose(ctx context.Context, req Request) (map[string]any, error)
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("composition workflow misconfigured: %s", e.Message)
}

var _ WorkflowClient = new(HttpWorkflowClient)

type HttpWorkflowClient struct {
	url        string
	httpClient *http.Client
}

// NewHttpWorkflowClient fails on an empty URL: a missing workflow endpoint is
// a deployment defect, not a data problem, and must surface at startup.
func NewHttpWorkflowClient(url string, timeout time.Duration) (*HttpWorkflowClient, error) {
	if url == "" {
		return nil, ConfigError{Message: "workflow url is empty"}
	}
	return &HttpWorkflowClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (c *HttpWorkflowClient) Compose(ctx context.Context, req Request) (map[string]any, error) {
	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal compose request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/compose", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create compose request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call composition workflow: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("composition workflow returned status %d", resp.StatusCode)
	}

	var content map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, fmt.Errorf("failed to decode composed content: %w", err)
	}
	return content, nil
}
