package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
)

type VerificationRepository struct {
	db *sql.DB
}

func NewVerificationRepository(db *sql.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

const requestColumns = `id, user_id, name, email, phone, experience, license_number,
	motorcycle_model, reason, document_ref, status, reviewed_by, created_at,
	approved_at, rejected_at`

func scanRequest(row rowScanner) (*domain.VerificationRequest, error) {
	var (
		req                domain.VerificationRequest
		reviewedBy         uuid.NullUUID
		approved, rejected sql.NullTime
	)
	err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.Name,
		&req.Email,
		&req.Phone,
		&req.Experience,
		&req.LicenseNumber,
		&req.MotorcycleModel,
		&req.Reason,
		&req.DocumentRef,
		&req.Status,
		&reviewedBy,
		&req.CreatedAt,
		&approved,
		&rejected,
	)
	if err != nil {
		return nil, err
	}
	if reviewedBy.Valid {
		id := reviewedBy.UUID
		req.ReviewedBy = &id
	}
	req.ApprovedAt = nullTime(approved)
	req.RejectedAt = nullTime(rejected)
	return &req, nil
}

func (r *VerificationRepository) CreateRequest(ctx context.Context, req *domain.VerificationRequest) (*domain.VerificationRequest, error) {
	const op = "postgres.CreateRequest"

	query := `INSERT INTO verification_requests (id, user_id, name, email, phone, experience,
		license_number, motorcycle_model, reason, document_ref, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING ` + requestColumns

	created, err := scanRequest(r.db.QueryRowContext(ctx, query,
		req.ID,
		req.UserID,
		req.Name,
		req.Email,
		req.Phone,
		req.Experience,
		req.LicenseNumber,
		req.MotorcycleModel,
		req.Reason,
		req.DocumentRef,
		req.Status,
		req.CreatedAt,
	))
	if err != nil {
		switch pqCode(err) {
		case "23503":
			return nil, domain.NotFoundError(op, "user")
		case "23505":
			return nil, domain.StateError(op, "a verification request is already pending review")
		}
		return nil, mapError(op, err)
	}
	return created, nil
}

func (r *VerificationRepository) GetRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.VerificationRequest, error) {
	return getRequest(ctx, r.db, "postgres.GetRequestByID", requestID)
}

func getRequest(ctx context.Context, q querier, op string, requestID uuid.UUID) (*domain.VerificationRequest, error) {
	req, err := scanRequest(q.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM verification_requests WHERE id = $1`, requestID))
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundError(op, "verification request")
	}
	if err != nil {
		return nil, mapError(op, err)
	}
	return req, nil
}

// ListRequests returns requests newest first. An empty status lists all.
func (r *VerificationRepository) ListRequests(ctx context.Context, status domain.VerificationStatus) ([]*domain.VerificationRequest, error) {
	const op = "postgres.ListRequests"

	query := `SELECT ` + requestColumns + ` FROM verification_requests
		WHERE ($1::text = '' OR status = $1::text)
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	reqs := []*domain.VerificationRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		reqs = append(reqs, req)
	}
	if err = rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return reqs, nil
}

func (r *VerificationRepository) HasPendingRequest(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (
		SELECT 1 FROM verification_requests WHERE user_id = $1 AND status = 'pending')`, userID).Scan(&exists)
	if err != nil {
		return false, mapError("postgres.HasPendingRequest", err)
	}
	return exists, nil
}

// DecideRequest closes a pending request and, on approval, promotes the
// requesting user in the same transaction.
func (r *VerificationRepository) DecideRequest(ctx context.Context, requestID uuid.UUID, d domain.Decision) (*domain.VerificationRequest, error) {
	const op = "postgres.DecideRequest"

	var decided *domain.VerificationRequest
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `UPDATE verification_requests
			SET status = $2::text,
				reviewed_by = $3,
				approved_at = CASE WHEN $2::text = 'approved' THEN $4::timestamptz END,
				rejected_at = CASE WHEN $2::text = 'rejected' THEN $4::timestamptz END
			WHERE id = $1 AND status = 'pending'
			RETURNING ` + requestColumns

		req, err := scanRequest(tx.QueryRowContext(ctx, query, requestID, string(d.Status), d.ReviewerID, d.At))
		if err == sql.ErrNoRows {
			current, err := getRequest(ctx, tx, op, requestID)
			if err != nil {
				return err
			}
			return domain.StateError(op, "request already %s", current.Status)
		}
		if err != nil {
			return err
		}

		if d.Status == domain.VerificationApproved {
			res, err := tx.ExecContext(ctx, `UPDATE users
				SET role = CASE WHEN role = 'rider' THEN 'organizer' ELSE role END,
					verified = TRUE,
					updated_at = $2
				WHERE id = $1`, req.UserID, d.At)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return domain.NotFoundError(op, "user")
			}
		}

		decided = req
		return nil
	})
	if err != nil {
		return nil, mapError(op, err)
	}
	return decided, nil
}
