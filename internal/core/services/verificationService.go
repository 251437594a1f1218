package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
)

var allowedDocumentTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

type VerificationService struct {
	verificationRepo ports.VerificationRepository
	userRepo         ports.UserRepository
	blobs            ports.BlobStore
	logger           ports.LoggerPort
	validate         *validator.Validate
	notifier         *Notifier
	now              func() time.Time
}

func NewVerificationService(
	verificationRepo ports.VerificationRepository,
	userRepo ports.UserRepository,
	blobs ports.BlobStore,
	logger ports.LoggerPort,
	validate *validator.Validate,
	notifier *Notifier,
) *VerificationService {
	return &VerificationService{
		verificationRepo: verificationRepo,
		userRepo:         userRepo,
		blobs:            blobs,
		logger:           logger,
		validate:         validate,
		notifier:         notifier,
		now:              time.Now,
	}
}

func (s *VerificationService) SubmitRequest(ctx context.Context, id domain.Identity, req *domain.VerificationRequest) (*domain.VerificationRequest, error) {
	const op = "VerificationService.SubmitRequest"

	user, err := actor(ctx, s.userRepo, op, id)
	if err != nil {
		s.logger.Warn("Verification request rejected", map[string]interface{}{
			"error":   err.Error(),
			"user_id": id.UserID.String(),
		})
		return nil, err
	}
	if user.Role != domain.Rider {
		return nil, domain.StateError(op, "user is already %s", user.Role)
	}

	pending, err := retryRead(ctx, op, func() (bool, error) {
		return s.verificationRepo.HasPendingRequest(ctx, user.ID)
	})
	if err != nil {
		s.logger.Error("Failed to check pending requests", map[string]interface{}{
			"error":   err.Error(),
			"user_id": user.ID.String(),
		})
		return nil, err
	}
	if pending {
		return nil, domain.StateError(op, "a verification request is already pending review")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	req.Experience = strings.TrimSpace(req.Experience)
	req.LicenseNumber = strings.TrimSpace(req.LicenseNumber)
	req.MotorcycleModel = strings.TrimSpace(req.MotorcycleModel)
	req.Reason = strings.TrimSpace(req.Reason)

	if err := s.validate.Struct(req); err != nil {
		verr := validationError(op, err)
		s.logger.Warn("Verification request validation failed", map[string]interface{}{
			"error":   verr.Error(),
			"user_id": user.ID.String(),
		})
		return nil, verr
	}

	req.ID = uuid.New()
	req.UserID = user.ID
	req.Status = domain.VerificationPending
	req.CreatedAt = s.now().UTC()
	req.ReviewedBy, req.ApprovedAt, req.RejectedAt = nil, nil, nil

	created, err := s.verificationRepo.CreateRequest(ctx, req)
	if err != nil {
		err = upstream(op, err)
		s.logger.Error("Failed to create verification request", map[string]interface{}{
			"error":   err.Error(),
			"user_id": user.ID.String(),
		})
		return nil, err
	}

	s.logger.Info("Verification request submitted", map[string]interface{}{
		"request_id": created.ID.String(),
		"user_id":    created.UserID.String(),
	})
	s.notifier.Publish(ctx, domain.NewEvent(domain.EventVerificationSubmitted, uuid.Nil, user.ID, map[string]interface{}{
		"request_id": created.ID,
	}, created.CreatedAt))

	return created, nil
}

// UploadDocument stores an identity document and returns its opaque reference.
func (s *VerificationService) UploadDocument(
	ctx context.Context,
	id domain.Identity,
	filename, contentType string,
	size int64,
	body io.Reader,
) (string, error) {
	const op = "VerificationService.UploadDocument"

	if id.UserID == uuid.Nil {
		return "", domain.PermissionError(op, "authentication required")
	}
	if size <= 0 {
		return "", domain.ValidationError(op, "document is empty")
	}
	if size > domain.MaxDocumentSize {
		return "", domain.ValidationError(op, "file size must be less than 5MB")
	}
	ext, ok := allowedDocumentTypes[contentType]
	if !ok {
		return "", domain.ValidationError(op, "unsupported document type %q", contentType)
	}
	if s.blobs == nil {
		return "", domain.UpstreamError(op, errors.New("document storage not configured"))
	}

	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "." || base == "/" || base == "" {
		base = "document"
	}
	key := fmt.Sprintf("verification-documents/%s/%s-%s%s", id.UserID, uuid.NewString(), base, ext)

	ref, err := s.blobs.Upload(ctx, key, contentType, io.LimitReader(body, domain.MaxDocumentSize))
	if err != nil {
		err = upstream(op, err)
		s.logger.Error("Failed to upload verification document", map[string]interface{}{
			"error":   err.Error(),
			"user_id": id.UserID.String(),
		})
		return "", err
	}

	s.logger.Info("Verification document uploaded", map[string]interface{}{
		"user_id": id.UserID.String(),
		"key":     key,
	})
	return ref, nil
}

func (s *VerificationService) Approve(ctx context.Context, id domain.Identity, requestID uuid.UUID) (*domain.VerificationRequest, error) {
	return s.decide(ctx, "VerificationService.Approve", id, requestID, domain.VerificationApproved, domain.EventVerificationApproved)
}

func (s *VerificationService) Reject(ctx context.Context, id domain.Identity, requestID uuid.UUID) (*domain.VerificationRequest, error) {
	return s.decide(ctx, "VerificationService.Reject", id, requestID, domain.VerificationRejected, domain.EventVerificationRejected)
}

func (s *VerificationService) decide(
	ctx context.Context,
	op string,
	id domain.Identity,
	requestID uuid.UUID,
	status domain.VerificationStatus,
	eventType domain.EventType,
) (*domain.VerificationRequest, error) {
	fields := map[string]interface{}{
		"request_id": requestID.String(),
		"admin_id":   id.UserID.String(),
	}

	admin, err := actor(ctx, s.userRepo, op, id)
	if err == nil {
		err = domain.Authorize(admin, domain.ActionReviewVerification, nil)
	}
	if err != nil {
		fields["error"] = err.Error()
		s.logger.Warn("Verification review rejected", fields)
		return nil, err
	}

	req, err := retryRead(ctx, op, func() (*domain.VerificationRequest, error) {
		return s.verificationRepo.GetRequestByID(ctx, requestID)
	})
	if err != nil {
		fields["error"] = err.Error()
		s.logger.Error("Failed to get verification request", fields)
		return nil, err
	}
	if req.Status != domain.VerificationPending {
		return nil, domain.StateError(op, "request already %s", req.Status)
	}

	decided, err := s.verificationRepo.DecideRequest(ctx, requestID, domain.Decision{
		Status:     status,
		ReviewerID: admin.ID,
		At:         s.now().UTC(),
	})
	if err != nil {
		err = upstream(op, err)
		fields["error"] = err.Error()
		s.logger.Error("Failed to decide verification request", fields)
		return nil, err
	}

	s.logger.Info("Verification request decided", map[string]interface{}{
		"request_id": requestID.String(),
		"user_id":    decided.UserID.String(),
		"status":     string(decided.Status),
		"admin_id":   admin.ID.String(),
	})
	s.notifier.Publish(ctx, domain.NewEvent(eventType, uuid.Nil, admin.ID, map[string]interface{}{
		"request_id": decided.ID,
		"user_id":    decided.UserID,
	}, s.now().UTC()))

	return decided, nil
}

func (s *VerificationService) ListPending(ctx context.Context, id domain.Identity) ([]*domain.VerificationRequest, error) {
	const op = "VerificationService.ListPending"

	admin, err := actor(ctx, s.userRepo, op, id)
	if err == nil {
		err = domain.Authorize(admin, domain.ActionReviewVerification, nil)
	}
	if err != nil {
		return nil, err
	}

	reqs, err := retryRead(ctx, op, func() ([]*domain.VerificationRequest, error) {
		return s.verificationRepo.ListRequests(ctx, domain.VerificationPending)
	})
	if err != nil {
		s.logger.Error("Failed to list verification requests", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}
	return reqs, nil
}
