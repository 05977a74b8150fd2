package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opsboard/opsboard/internal/orders"
)

const proxyPath = "/data/mysheet"

// ProxySource reads orders from the backend proxy endpoint.
type ProxySource struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewProxySource constructs a proxy source. A nil client uses one with timeout.
func NewProxySource(baseURL, token string, timeout time.Duration, client *http.Client) *ProxySource {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &ProxySource{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

// Fetch calls GET /data/mysheet with the bearer token.
func (s *ProxySource) Fetch(ctx context.Context) ([]orders.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+proxyPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheets: proxy request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("sheets: read proxy response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProxyError{Status: resp.StatusCode, Message: errorMessage(body, resp.Status)}
	}
	var recs []orders.Record
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, fmt.Errorf("sheets: decode proxy response: %w", err)
	}
	if recs == nil {
		recs = []orders.Record{}
	}
	return recs, nil
}

// ProxyError is a non-2xx proxy response.
type ProxyError struct {
	Status  int
	Message string
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("sheets: proxy returned %d: %s", e.Status, e.Message)
}

func errorMessage(body []byte, fallback string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return fallback
}

var _ orders.Source = (*ProxySource)(nil)
