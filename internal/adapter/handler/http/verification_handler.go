package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/services"
)

type VerificationHandler struct {
	verificationService *services.VerificationService
	logger              ports.LoggerPort
	metrics             ports.MetricsPort
}

type VerificationRequestBody struct {
	Name            string `json:"name" example:"Amina Wanjiru"`
	Email           string `json:"email" example:"amina@example.com"`
	Phone           string `json:"phone" example:"+254700000000"`
	Experience      string `json:"experience" example:"5 years"`
	LicenseNumber   string `json:"license_number" example:"DL-123456"`
	MotorcycleModel string `json:"motorcycle_model" example:"Honda Africa Twin"`
	Reason          string `json:"reason,omitempty" example:"I lead a weekend riding club"`
	DocumentRef     string `json:"document_ref,omitempty" example:"s3://safaride/verification-documents/..."`
}

type DocumentResponse struct {
	DocumentRef string `json:"document_ref"`
}

type VerificationListResponse struct {
	Requests []*domain.VerificationRequest `json:"requests"`
	Count    int                           `json:"count"`
}

func NewVerificationHandler(verificationService *services.VerificationService, logger ports.LoggerPort, metrics ports.MetricsPort) *VerificationHandler {
	return &VerificationHandler{
		verificationService: verificationService,
		logger:              logger,
		metrics:             metrics,
	}
}

// @Summary Upload a verification document
// @Description JPEG, PNG or PDF up to 5MB; returns a reference for the request form
// @Tags verification
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param document formData file true "License or ID document"
// @Success 201 {object} DocumentResponse
// @Failure 400 {object} errorResponse
// @Failure 502 {object} errorResponse
// @Router /verification/documents [post]
func (h *VerificationHandler) UploadDocument(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	id, ok := identity(c, h.logger, "UploadDocument")
	if !ok {
		return
	}

	header, err := c.FormFile("document")
	if err != nil {
		newErrorResponse(c, http.StatusBadRequest, "document file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded document", map[string]interface{}{
			"error": err.Error(),
		})
		newErrorResponse(c, http.StatusBadRequest, "could not read document")
		return
	}
	defer file.Close()

	ref, err := h.verificationService.UploadDocument(
		c.Request.Context(),
		id,
		header.Filename,
		header.Header.Get("Content-Type"),
		header.Size,
		file,
	)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, DocumentResponse{DocumentRef: ref})
}

// @Summary Request organizer verification
// @Tags verification
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body VerificationRequestBody true "Applicant details"
// @Success 201 {object} domain.VerificationRequest
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse "Already organizer or request pending"
// @Router /verification/requests [post]
func (h *VerificationHandler) SubmitRequest(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	id, ok := identity(c, h.logger, "SubmitRequest")
	if !ok {
		return
	}

	var body VerificationRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Warn("Failed JSON parse in verification request", map[string]interface{}{
			"error": err.Error(),
		})
		newErrorResponse(c, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	req, err := h.verificationService.SubmitRequest(c.Request.Context(), id, &domain.VerificationRequest{
		Name:            body.Name,
		Email:           body.Email,
		Phone:           body.Phone,
		Experience:      body.Experience,
		LicenseNumber:   body.LicenseNumber,
		MotorcycleModel: body.MotorcycleModel,
		Reason:          body.Reason,
		DocumentRef:     body.DocumentRef,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, req)
}

// @Summary Pending verification requests
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} VerificationListResponse
// @Failure 403 {object} errorResponse
// @Router /admin/verification/requests [get]
func (h *VerificationHandler) ListPending(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	id, ok := identity(c, h.logger, "ListPending")
	if !ok {
		return
	}

	reqs, err := h.verificationService.ListPending(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, VerificationListResponse{Requests: reqs, Count: len(reqs)})
}

// @Summary Approve a verification request
// @Description Promotes the applicant to organizer
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} domain.VerificationRequest
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /admin/verification/requests/{id}/approve [post]
func (h *VerificationHandler) Approve(c *gin.Context) {
	h.decide(c, "Approve", h.verificationService.Approve)
}

// @Summary Reject a verification request
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} domain.VerificationRequest
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /admin/verification/requests/{id}/reject [post]
func (h *VerificationHandler) Reject(c *gin.Context) {
	h.decide(c, "Reject", h.verificationService.Reject)
}

func (h *VerificationHandler) decide(
	c *gin.Context,
	name string,
	fn func(ctx context.Context, id domain.Identity, requestID uuid.UUID) (*domain.VerificationRequest, error),
) {
	start := time.Now()
	defer func() {
		h.metrics.RecordMetrics(c, start)
	}()

	id, ok := identity(c, h.logger, name)
	if !ok {
		return
	}
	requestID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	req, err := fn(c.Request.Context(), id, requestID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, req)
}
