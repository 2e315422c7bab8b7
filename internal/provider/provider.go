// internal/provider/provider.go
package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CallRequest is the outbound dispatch to the voice provider.
type CallRequest struct {
	Phone          string            `json:"phone"`
	MaxDurationSec int               `json:"max_duration_sec"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// CallResponse carries the provider's call id, used to correlate webhooks.
type CallResponse struct {
	ExternalCallID string `json:"call_id"`
}

// Provider starts calls. The real client blocks on the provider's API; the
// mock is for local runs and tests.
type Provider interface {
	StartCall(req CallRequest) (*CallResponse, error)
}

// HTTPProvider talks to the voice provider's REST API.
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *HTTPProvider) StartCall(req CallRequest) (*CallResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, p.BaseURL+"/calls", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var out CallResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.ExternalCallID == "" {
		return nil, fmt.Errorf("provider response missing call_id")
	}
	return &out, nil
}

// MockProvider simulates the provider with a configurable failure rate.
type MockProvider struct {
	FailRate float64
}

func (p *MockProvider) StartCall(req CallRequest) (*CallResponse, error) {
	if rand.Float64() < p.FailRate {
		return nil, fmt.Errorf("mock provider call failed")
	}
	return &CallResponse{ExternalCallID: uuid.NewString()}, nil
}

var _ Provider = (*HTTPProvider)(nil)
var _ Provider = (*MockProvider)(nil)
