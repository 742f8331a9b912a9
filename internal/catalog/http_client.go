package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/catalog-reconciler/internal/domain"
	"github.com/kursadbilgin/catalog-reconciler/internal/ratelimit"
)

const defaultCatalogTimeout = 15 * time.Second

const (
	opLookup = "lookup"
	opCreate = "create"
	opUpdate = "update"
)

type lookupRequest struct {
	FederatedIDs []string `json:"federatedIds"`
}

type lookupItem struct {
	FederatedID string `json:"federatedId"`
	InternalID  string `json:"internalId"`
}

type lookupResponse struct {
	Items []lookupItem `json:"items"`
}

type upsertItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	FederatedID string `json:"federatedId"`
	Role        string `json:"role"`
	InternalID  string `json:"internalId,omitempty"`
}

type batchRequest struct {
	Items []upsertItem `json:"items"`
}

type batchResponse struct {
	InternalIDs []string `json:"internalIds"`
}

// HTTPClient talks to the external catalog's batch API. Every call is
// gated through the shared rate limiter so one batch cannot exceed the
// catalog's documented request rate.
type HTTPClient struct {
	client    *resty.Client
	baseURL   string
	limiter   ratelimit.RateLimiter
	chunkSize int
}

func NewHTTPClient(baseURL string, limiter ratelimit.RateLimiter, chunkSize int) (*HTTPClient, error) {
	client := resty.New()
	client.SetTimeout(defaultCatalogTimeout)
	client.SetRetryCount(0)

	return NewHTTPClientWithResty(baseURL, limiter, chunkSize, client)
}

func NewHTTPClientWithResty(baseURL string, limiter ratelimit.RateLimiter, chunkSize int, client *resty.Client) (*HTTPClient, error) {
	trimmedURL := strings.TrimSpace(baseURL)
	if trimmedURL == "" {
		return nil, fmt.Errorf("catalog base url is required")
	}
	if _, err := url.ParseRequestURI(trimmedURL); err != nil {
		return nil, fmt.Errorf("invalid catalog base url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if chunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be >= 1")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultCatalogTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPClient{
		client:    client,
		baseURL:   strings.TrimRight(trimmedURL, "/"),
		limiter:   limiter,
		chunkSize: chunkSize,
	}, nil
}

func (c *HTTPClient) LookupByFederatedIDs(ctx context.Context, federatedIDs []string) (map[string]string, error) {
	if len(federatedIDs) == 0 {
		return map[string]string{}, nil
	}

	var result lookupResponse
	err := c.call(ctx, opLookup, http.MethodPost, "/v1/items/lookup", lookupRequest{FederatedIDs: federatedIDs}, &result)
	if err != nil {
		return nil, err
	}

	refs := make([]domain.ExistingItemRef, 0, len(result.Items))
	for _, item := range result.Items {
		refs = append(refs, domain.ExistingItemRef{
			FederatedID: item.FederatedID,
			InternalID:  item.InternalID,
		})
	}
	return domain.ExistingItemRefsToMap(refs), nil
}

func (c *HTTPClient) CreateBatch(ctx context.Context, items []domain.ItemUpsertRequest) ([]string, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if len(items) > c.chunkSize {
		return nil, fmt.Errorf("%w: create batch of %d exceeds limit %d", domain.ErrPrecondition, len(items), c.chunkSize)
	}

	body := batchRequest{Items: make([]upsertItem, 0, len(items))}
	for _, item := range items {
		body.Items = append(body.Items, upsertItem{
			Name:        item.Name,
			Description: item.Description,
			FederatedID: item.FederatedID,
			Role:        item.Role.String(),
		})
	}

	var result batchResponse
	if err := c.call(ctx, opCreate, http.MethodPost, "/v1/items/batch", body, &result); err != nil {
		return nil, err
	}
	return result.InternalIDs, nil
}

func (c *HTTPClient) UpdateBatch(ctx context.Context, updates []domain.ItemUpdate) ([]string, error) {
	if len(updates) == 0 {
		return nil, nil
	}
	if len(updates) > c.chunkSize {
		return nil, fmt.Errorf("%w: update batch of %d exceeds limit %d", domain.ErrPrecondition, len(updates), c.chunkSize)
	}

	body := batchRequest{Items: make([]upsertItem, 0, len(updates))}
	for _, update := range updates {
		body.Items = append(body.Items, upsertItem{
			Name:        update.Item.Name,
			Description: update.Item.Description,
			FederatedID: update.Item.FederatedID,
			Role:        update.Item.Role.String(),
			InternalID:  update.InternalID,
		})
	}

	var result batchResponse
	if err := c.call(ctx, opUpdate, http.MethodPut, "/v1/items/batch", body, &result); err != nil {
		return nil, err
	}
	return result.InternalIDs, nil
}

func (c *HTTPClient) call(ctx context.Context, operation, method, path string, body, result any) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("catalog client is not initialized")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, operation); err != nil {
			return fmt.Errorf("catalog rate limiter wait failed: %w", err)
		}
	}

	request := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(result)

	response, err := request.Execute(method, c.baseURL+path)
	if err != nil {
		return &CatalogError{
			Operation: operation,
			Message:   "catalog request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return &CatalogError{
			Operation: operation,
			Message:   "catalog returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &CatalogError{
		StatusCode: statusCode,
		Operation:  operation,
		Message:    catalogErrorMessage(statusCode, strings.TrimSpace(response.String())),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func catalogErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("catalog returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
