package reasoning

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/thebtf/tailor/pkg/models"
)

// Request is what the collaborator receives: the query, the visitor
// profile, and the rule engine's merged requirements as guidance.
type Request struct {
	Query           string                 `json:"query"`
	Intent          *models.IntentContext  `json:"intent,omitempty"`
	Profile         *models.Profile        `json:"profile,omitempty"`
	RequiredBlocks  []models.BlockType     `json:"requiredBlocks"`
	ExcludedBlocks  []models.BlockType     `json:"excludedBlocks"`
	EnhancedBlocks  []models.BlockType     `json:"enhancedBlocks"`
	ContentGuidance string                 `json:"contentGuidance,omitempty"`
	SequenceHints   []models.SequenceHint  `json:"sequenceHints,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// Client proposes a block list for a query. Implementations own their
// transport, timeout and retry policy; the orchestrator treats a call as
// one atomic request.
type Client interface {
	Propose(ctx context.Context, req *Request) (*Proposal, error)
}

// HTTPClient calls a JSON-over-HTTP reasoning endpoint.
type HTTPClient struct {
	endpoint string
	http     *http.Client
}

// NewHTTPClient creates a client for the given endpoint.
func NewHTTPClient(endpoint string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// Propose sends the request and parses the collaborator's proposal.
func (c *HTTPClient) Propose(ctx context.Context, req *Request) (*Proposal, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal reasoning request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build reasoning request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("reasoning call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reasoning call returned status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read reasoning response: %w", err)
	}

	return Parse(payload, req.Query)
}
