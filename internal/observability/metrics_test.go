package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsReconcileCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.AddItemsProcessed(100)
	metrics.AddItemsFailed(50, "create_failed")
	metrics.IncChunkFailed()
	metrics.ObserveCatalogCallDuration("lookup", 120*time.Millisecond)
	metrics.IncReconcileInFlight()
	metrics.DecReconcileInFlight()

	if got := testutil.ToFloat64(metrics.itemsProcessedTotal); got != 100 {
		t.Fatalf("items_processed_total = %v, want 100", got)
	}
	if got := testutil.ToFloat64(metrics.itemsFailedTotal.WithLabelValues("create_failed")); got != 50 {
		t.Fatalf("items_failed_total = %v, want 50", got)
	}
	if got := testutil.ToFloat64(metrics.chunksFailedTotal); got != 1 {
		t.Fatalf("chunks_failed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.reconcileInflight); got != 0 {
		t.Fatalf("reconcile_inflight = %v, want 0", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	_, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}
