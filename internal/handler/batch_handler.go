package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/catalog-reconciler/internal/domain"
	"github.com/kursadbilgin/catalog-reconciler/internal/service"
)

// maxBodyBytes caps the raw payload a single batch request may carry.
const maxBodyBytes = 16 << 20

type BatchService interface {
	ProcessBatch(ctx context.Context, raw []byte) (*service.BatchProcessingResult, error)
	GetBatch(ctx context.Context, id string) (*domain.Batch, error)
}

type BatchHandler struct {
	service BatchService
}

func NewBatchHandler(service BatchService) (*BatchHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("batch service is required")
	}
	return &BatchHandler{service: service}, nil
}

func RegisterBatchRoutes(router fiber.Router, service BatchService) error {
	h, err := NewBatchHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/batches", h.CreateBatch)
	v1.Get("/batches/:batchId", h.GetBatch)

	return nil
}

type batchResponse struct {
	BatchID        string               `json:"batchId"`
	Status         string               `json:"status"`
	TotalItems     int                  `json:"totalItems"`
	ProcessedItems int                  `json:"processedItems"`
	FailedItems    int                  `json:"failedItems"`
	Errors         []batchErrorResponse `json:"errors,omitempty"`
	CreatedAt      *time.Time           `json:"createdAt,omitempty"`
	UpdatedAt      *time.Time           `json:"updatedAt,omitempty"`
}

type batchErrorResponse struct {
	ItemFederatedID string    `json:"itemFederatedId"`
	Message         string    `json:"message"`
	Timestamp       time.Time `json:"timestamp"`
}

func (h *BatchHandler) CreateBatch(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return toHTTPError(fmt.Errorf("%w: request body is required", domain.ErrValidation))
	}
	if len(body) > maxBodyBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "request body too large")
	}

	result, err := h.service.ProcessBatch(c.Context(), body)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(toResultResponse(result))
}

func (h *BatchHandler) GetBatch(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("batchId"))
	batch, err := h.service.GetBatch(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toBatchResponse(batch))
}

func toResultResponse(result *service.BatchProcessingResult) batchResponse {
	if result == nil {
		return batchResponse{}
	}

	return batchResponse{
		BatchID:        result.BatchID,
		Status:         result.Status.String(),
		TotalItems:     result.TotalItems,
		ProcessedItems: result.ProcessedItems,
		FailedItems:    result.FailedItems,
		Errors:         toBatchErrorResponses(result.Errors),
	}
}

func toBatchResponse(batch *domain.Batch) batchResponse {
	if batch == nil {
		return batchResponse{}
	}

	createdAt := batch.CreatedAt
	updatedAt := batch.UpdatedAt

	return batchResponse{
		BatchID:        batch.ID,
		Status:         batch.Status.String(),
		TotalItems:     batch.TotalItems,
		ProcessedItems: batch.ProcessedItems,
		FailedItems:    batch.FailedItems,
		Errors:         toBatchErrorResponses(batch.Errors),
		CreatedAt:      &createdAt,
		UpdatedAt:      &updatedAt,
	}
}

func toBatchErrorResponses(errs []domain.BatchError) []batchErrorResponse {
	if len(errs) == 0 {
		return nil
	}

	responses := make([]batchErrorResponse, 0, len(errs))
	for _, batchErr := range errs {
		responses = append(responses, batchErrorResponse{
			ItemFederatedID: batchErr.ItemFederatedID,
			Message:         batchErr.Message,
			Timestamp:       batchErr.Timestamp,
		})
	}
	return responses
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrParse):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrPrecondition):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return err
	}
}
