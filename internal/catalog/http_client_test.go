package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/catalog-reconciler/internal/domain"
)

func newTestClient(t *testing.T, baseURL string, chunkSize int) *HTTPClient {
	t.Helper()

	c, err := NewHTTPClient(baseURL, nil, chunkSize)
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}
	return c
}

func TestHTTPClientLookupByFederatedIDs(t *testing.T) {
	t.Parallel()

	var gotBody lookupRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/items/lookup" {
			t.Errorf("path = %s, want /v1/items/lookup", r.URL.Path)
		}

		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"federatedId":"fam1","internalId":"int-1"},{"federatedId":"opt1","internalId":"int-2"}]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, 100)

	got, err := c.LookupByFederatedIDs(context.Background(), []string{"fam1", "opt1", "missing"})
	if err != nil {
		t.Fatalf("LookupByFederatedIDs() unexpected error: %v", err)
	}

	if len(gotBody.FederatedIDs) != 3 {
		t.Fatalf("request carried %d ids, want 3", len(gotBody.FederatedIDs))
	}
	if got["fam1"] != "int-1" || got["opt1"] != "int-2" {
		t.Fatalf("unexpected lookup result: %v", got)
	}
	if _, ok := got["missing"]; ok {
		t.Fatal("absent ids must stay absent from the result")
	}
}

func TestHTTPClientLookupEmptyInput(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "http://localhost:1", 100)

	got, err := c.LookupByFederatedIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("LookupByFederatedIDs() unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("lookup of no ids = %v, want empty map", got)
	}
}

func TestHTTPClientCreateBatch(t *testing.T) {
	t.Parallel()

	var gotBody batchRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"internalIds":["int-1","int-2"]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, 100)

	items := []domain.ItemUpsertRequest{
		{Name: "Title A", Description: "Details A", FederatedID: "fam1", Role: domain.RoleFamily},
		{Name: "Title B", Description: "Details B", FederatedID: "opt1", Role: domain.RoleOption},
	}

	ids, err := c.CreateBatch(context.Background(), items)
	if err != nil {
		t.Fatalf("CreateBatch() unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("CreateBatch() returned %d ids, want 2", len(ids))
	}

	if gotBody.Items[0].Role != "FAMILY" || gotBody.Items[1].Role != "OPTION" {
		t.Fatalf("unexpected roles in request: %+v", gotBody.Items)
	}
	if gotBody.Items[0].InternalID != "" {
		t.Fatal("create payload must not carry internal ids")
	}
}

func TestHTTPClientUpdateBatchCarriesInternalIDs(t *testing.T) {
	t.Parallel()

	var gotBody batchRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"internalIds":["int-1"]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, 100)

	updates := []domain.ItemUpdate{
		{
			Item:       domain.ItemUpsertRequest{Name: "Title A", Description: "Details A", FederatedID: "fam1", Role: domain.RoleFamily},
			InternalID: "int-1",
		},
	}

	if _, err := c.UpdateBatch(context.Background(), updates); err != nil {
		t.Fatalf("UpdateBatch() unexpected error: %v", err)
	}
	if gotBody.Items[0].InternalID != "int-1" {
		t.Fatalf("update payload internal id = %q, want int-1", gotBody.Items[0].InternalID)
	}
}

func TestHTTPClientChunkLimitPrecondition(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "http://localhost:1", 2)

	oversized := make([]domain.ItemUpsertRequest, 3)
	_, err := c.CreateBatch(context.Background(), oversized)
	if !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("CreateBatch() error = %v, want ErrPrecondition", err)
	}

	_, err = c.UpdateBatch(context.Background(), make([]domain.ItemUpdate, 3))
	if !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("UpdateBatch() error = %v, want ErrPrecondition", err)
	}
}

func TestHTTPClientStatusClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		statusCode    int
		wantTransient bool
	}{
		{name: "too many requests is transient", statusCode: http.StatusTooManyRequests, wantTransient: true},
		{name: "bad request is permanent", statusCode: http.StatusBadRequest, wantTransient: false},
		{name: "internal server error is transient", statusCode: http.StatusInternalServerError, wantTransient: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				_, _ = w.Write([]byte("catalog failed"))
			}))
			defer server.Close()

			c := newTestClient(t, server.URL, 100)

			_, err := c.LookupByFederatedIDs(context.Background(), []string{"fam1"})
			if err == nil {
				t.Fatal("expected error")
			}

			if got := IsTransient(err); got != tc.wantTransient {
				t.Fatalf("IsTransient() = %v, want %v", got, tc.wantTransient)
			}

			var catalogErr *CatalogError
			if !errors.As(err, &catalogErr) {
				t.Fatalf("expected CatalogError, got %T", err)
			}
			if catalogErr.StatusCode != tc.statusCode {
				t.Fatalf("CatalogError.StatusCode = %d, want %d", catalogErr.StatusCode, tc.statusCode)
			}
			if catalogErr.Operation != opLookup {
				t.Fatalf("CatalogError.Operation = %q, want %q", catalogErr.Operation, opLookup)
			}
		})
	}
}

func TestHTTPClientTimeoutIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	client := resty.New()
	client.SetTimeout(30 * time.Millisecond)

	c, err := NewHTTPClientWithResty(server.URL, nil, 100, client)
	if err != nil {
		t.Fatalf("NewHTTPClientWithResty() error = %v", err)
	}

	_, err = c.LookupByFederatedIDs(context.Background(), []string{"fam1"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsTransient(err) {
		t.Fatalf("IsTransient() = false, want true (err=%v)", err)
	}
}
