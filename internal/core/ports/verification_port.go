package ports

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
)

type VerificationRepository interface {
	CreateRequest(ctx context.Context, req *domain.VerificationRequest) (*domain.VerificationRequest, error)
	GetRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.VerificationRequest, error)
	ListRequests(ctx context.Context, status domain.VerificationStatus) ([]*domain.VerificationRequest, error)
	HasPendingRequest(ctx context.Context, userID uuid.UUID) (bool, error)
	// DecideRequest moves a pending request to d.Status. On approval the
	// requesting user becomes a verified organizer in the same transaction.
	DecideRequest(ctx context.Context, requestID uuid.UUID, d domain.Decision) (*domain.VerificationRequest, error)
}

// BlobStore keeps uploaded verification documents and returns an opaque reference.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}
