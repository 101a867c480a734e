package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/miradorstack/mirador-pm/internal/cache"
)

const incidentsCacheKey = "pm:incidents:resource-errors"

// IncidentClient sources per-resource error counts from an incident system.
type IncidentClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	cache      cache.Provider
	cacheTTL   time.Duration
}

// NewIncidentClient constructs a client targeting the configured incident
// system. The endpoint is required; callers wanting synthetic or zero error
// counts wire a different source instead.
func NewIncidentClient(endpoint, apiKey string, timeout time.Duration, cacheProvider cache.Provider, cacheTTL time.Duration) *IncidentClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if cacheTTL < 0 {
		cacheTTL = 0
	}
	return &IncidentClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cacheProvider,
		cacheTTL:   cacheTTL,
	}
}

// ErrorsByResource fetches error counts as reported by the incident system.
// The observed workload is not consulted; counts arrive from real signal.
func (c *IncidentClient) ErrorsByResource(ctx context.Context, _ map[string]int) (map[string]int, error) {
	if c == nil || c.endpoint == "" {
		return nil, fmt.Errorf("incident client not configured")
	}

	if c.cacheTTL > 0 {
		if data, err := c.cache.Get(ctx, incidentsCacheKey); err == nil {
			var cached map[string]int
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/v1/resource-errors", nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("incident system request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("incident system returned status %d", resp.StatusCode)
	}

	var response struct {
		Errors map[string]int `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode incident payload: %w", err)
	}

	if c.cacheTTL > 0 && len(response.Errors) > 0 {
		if payload, err := json.Marshal(response.Errors); err == nil {
			_ = c.cache.Set(ctx, incidentsCacheKey, payload, c.cacheTTL)
		}
	}
	return response.Errors, nil
}
