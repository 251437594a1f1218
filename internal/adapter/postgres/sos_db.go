package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
)

type SOSRepository struct {
	db *sql.DB
}

func NewSOSRepository(db *sql.DB) *SOSRepository {
	return &SOSRepository{db: db}
}

func (r *SOSRepository) CreateAlert(ctx context.Context, alert *domain.SOSAlert) (*domain.SOSAlert, error) {
	const op = "postgres.CreateAlert"

	contacts, err := json.Marshal(alert.Contacts)
	if err != nil {
		return nil, domain.UpstreamError(op, err)
	}
	lat, lng := coordsArgs(alert.Location)

	_, err = r.db.ExecContext(ctx, `INSERT INTO sos_alerts (id, ride_id, user_id, display_name, message, lat, lng, contacts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		alert.ID,
		alert.RideID,
		alert.UserID,
		alert.DisplayName,
		alert.Message,
		lat,
		lng,
		string(contacts),
		alert.CreatedAt,
	)
	if err != nil {
		if pqCode(err) == "23503" {
			return nil, domain.NotFoundError(op, "ride")
		}
		return nil, mapError(op, err)
	}
	return alert, nil
}

func (r *SOSRepository) ListAlertsByRide(ctx context.Context, rideID uuid.UUID) ([]*domain.SOSAlert, error) {
	const op = "postgres.ListAlertsByRide"

	rows, err := r.db.QueryContext(ctx, `SELECT id, ride_id, user_id, display_name, message, lat, lng, contacts, created_at
		FROM sos_alerts WHERE ride_id = $1 ORDER BY created_at`, rideID)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	alerts := []*domain.SOSAlert{}
	for rows.Next() {
		var (
			a        domain.SOSAlert
			lat, lng sql.NullFloat64
			contacts []byte
		)
		if err := rows.Scan(&a.ID, &a.RideID, &a.UserID, &a.DisplayName, &a.Message, &lat, &lng, &contacts, &a.CreatedAt); err != nil {
			return nil, mapError(op, err)
		}
		if err := json.Unmarshal(contacts, &a.Contacts); err != nil {
			return nil, domain.UpstreamError(op, err)
		}
		a.Location = coords(lat, lng)
		alerts = append(alerts, &a)
	}
	if err = rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return alerts, nil
}
