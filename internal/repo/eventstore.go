package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/miradorstack/mirador-pm/internal/cache"
	"github.com/miradorstack/mirador-pm/internal/models"
)

// wireEvent is the event store's JSON representation of a process event.
type wireEvent struct {
	CaseID    string    `json:"case_id"`
	Activity  string    `json:"activity"`
	Timestamp time.Time `json:"timestamp"`
	Resource  string    `json:"resource"`
}

func fromWireEvents(wire []wireEvent) []models.Event {
	events := make([]models.Event, 0, len(wire))
	for _, w := range wire {
		events = append(events, models.Event{
			CaseID:    w.CaseID,
			Activity:  w.Activity,
			Timestamp: w.Timestamp,
			Resource:  w.Resource,
		})
	}
	return events
}

const eventsCacheKey = "pm:events:all"

// EventStoreClient fetches the raw process log from the event store service.
type EventStoreClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	cache      cache.Provider
	cacheTTL   time.Duration
}

// NewEventStoreClient constructs a client targeting the configured event store.
// An empty endpoint serves a small deterministic demo log instead of calling out.
func NewEventStoreClient(endpoint, apiKey string, timeout time.Duration, cacheProvider cache.Provider, cacheTTL time.Duration) *EventStoreClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if cacheTTL < 0 {
		cacheTTL = 0
	}
	return &EventStoreClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cacheProvider,
		cacheTTL:   cacheTTL,
	}
}

// FetchEvents returns the full event collection, via cache when a TTL is
// configured.
func (c *EventStoreClient) FetchEvents(ctx context.Context) ([]models.Event, error) {
	if c == nil {
		return nil, fmt.Errorf("event store client not initialised")
	}
	if c.endpoint == "" {
		return syntheticEventLog(), nil
	}

	if c.cacheTTL > 0 {
		if data, err := c.cache.Get(ctx, eventsCacheKey); err == nil {
			var cached []wireEvent
			if err := json.Unmarshal(data, &cached); err == nil {
				return fromWireEvents(cached), nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/v1/events", nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("event store request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("event store returned status %d", resp.StatusCode)
	}

	var response struct {
		Events []wireEvent `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode event store payload: %w", err)
	}

	if c.cacheTTL > 0 && len(response.Events) > 0 {
		if payload, err := json.Marshal(response.Events); err == nil {
			_ = c.cache.Set(ctx, eventsCacheKey, payload, c.cacheTTL)
		}
	}
	return fromWireEvents(response.Events), nil
}

// Invalidate drops the cached event log so the next fetch hits the store.
func (c *EventStoreClient) Invalidate(ctx context.Context) error {
	return c.cache.Del(ctx, eventsCacheKey)
}

// syntheticEventLog is the built-in demo process: four purchase cases, one
// skipping approval, one reworked out of order, one with a slow payment leg.
func syntheticEventLog() []models.Event {
	base := time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC)
	demo := func(caseID, activity, resource string, offset time.Duration) models.Event {
		return models.Event{CaseID: caseID, Activity: activity, Timestamp: base.Add(offset), Resource: resource}
	}
	return []models.Event{
		demo("po-1001", "Create PO", "alice", 0),
		demo("po-1001", "Approve PO", "dave", 2*time.Hour),
		demo("po-1001", "Receive Goods", "bob", 28*time.Hour),
		demo("po-1001", "Pay Invoice", "carol", 48*time.Hour),

		demo("po-1002", "Create PO", "alice", 1*time.Hour),
		demo("po-1002", "Receive Goods", "bob", 30*time.Hour),
		demo("po-1002", "Pay Invoice", "carol", 55*time.Hour),

		demo("po-1003", "Approve PO", "dave", 3*time.Hour),
		demo("po-1003", "Create PO", "alice", 5*time.Hour),
		demo("po-1003", "Amend PO", "alice", 7*time.Hour),
		demo("po-1003", "Amend PO", "alice", 9*time.Hour),
		demo("po-1003", "Approve PO", "dave", 12*time.Hour),
		demo("po-1003", "Receive Goods", "bob", 40*time.Hour),
		demo("po-1003", "Pay Invoice", "carol", 70*time.Hour),

		demo("po-1004", "Create PO", "alice", 24*time.Hour),
		demo("po-1004", "Approve PO", "dave", 26*time.Hour),
		demo("po-1004", "Receive Goods", "bob", 50*time.Hour),
		demo("po-1004", "Pay Invoice", "carol", 122*time.Hour),
	}
}
