package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"awesomelights-bridge/internal/domain/model"
	"awesomelights-bridge/internal/domain/translator"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Options struct {
	URL     string
	Token   string
	Timeout time.Duration

	// RateLimit is the maximum number of requests per second; 0 disables limiting.
	RateLimit float64
	Burst     int
	CacheTTL  time.Duration

	// Brightness conversions, variable x. Empty means identity.
	ToHAFormula      string
	ToAwesomeFormula string
}

// EntityState is the subset of a Home Assistant state object the drivers read.
type EntityState struct {
	EntityID   string                 `json:"entity_id"`
	State      string                 `json:"state"`
	Attributes map[string]interface{} `json:"attributes"`
}

type cachedState struct {
	state   *EntityState
	fetched time.Time
}

type Client struct {
	url        string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	cacheTTL   time.Duration
	toHA       *translator.Formula
	toAwesome  *translator.Formula
	logger     *zap.Logger

	mu    sync.RWMutex
	cache map[string]cachedState
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		url:        strings.TrimSuffix(opts.URL, "/"),
		token:      opts.Token,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		cacheTTL:   opts.CacheTTL,
		toHA:       translator.NewFormula(opts.ToHAFormula),
		toAwesome:  translator.NewFormula(opts.ToAwesomeFormula),
		logger:     logger,
		cache:      make(map[string]cachedState),
	}
	for _, f := range []*translator.Formula{c.toHA, c.toAwesome} {
		if !f.Valid() {
			logger.Warn("invalid brightness formula, using identity", zap.String("formula", f.String()))
		}
	}
	return c
}

func (c *Client) IsConfigured() bool {
	return c.url != "" && c.token != ""
}

// GetState returns the entity state, served from cache while it is younger than the cache TTL.
func (c *Client) GetState(ctx context.Context, entityID string) (*EntityState, error) {
	c.mu.RLock()
	cached, ok := c.cache[entityID]
	c.mu.RUnlock()
	if ok && time.Since(cached.fetched) < c.cacheTTL {
		return cached.state, nil
	}

	resp, err := c.do(ctx, http.MethodGet, "/api/states/"+entityID, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("entity %s: %w", entityID, model.ErrDeviceNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HA API error: %d", resp.StatusCode)
	}

	var state EntityState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("decode state of %s: %w", entityID, err)
	}

	c.mu.Lock()
	c.cache[entityID] = cachedState{state: &state, fetched: time.Now()}
	c.mu.Unlock()

	return &state, nil
}

// CallService invokes domain.service with the entity id added to the payload.
func (c *Client) CallService(ctx context.Context, entityID, service string, params map[string]interface{}) error {
	domain := strings.Split(entityID, ".")[0]

	payload := make(map[string]interface{}, len(params)+1)
	for k, v := range params {
		payload[k] = v
	}
	payload["entity_id"] = entityID

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/services/%s/%s", domain, service), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.mu.Lock()
	delete(c.cache, entityID)
	c.mu.Unlock()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HA API error: %d", resp.StatusCode)
	}
	c.logger.Debug("service called",
		zap.String("entity_id", entityID),
		zap.String("service", domain+"."+service))
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if !c.IsConfigured() {
		return nil, model.ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}
