package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
)

type RideRepository struct {
	db *sql.DB
}

func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{db: db}
}

const rideColumns = `r.id, r.title, r.meeting_point, r.meeting_lat, r.meeting_lng,
	r.destination, r.destination_lat, r.destination_lng, r.ride_date, r.ride_time,
	r.duration, r.ride_type, r.description, r.organizer_id, r.organizer_name,
	r.organizer_email, r.max_participants, r.status, r.version, r.created_at,
	r.updated_at, r.started_at, r.completed_at, r.cancelled_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var (
		ride                               domain.Ride
		meetLat, meetLng, destLat, destLng sql.NullFloat64
		started, completed, cancelled      sql.NullTime
	)
	err := row.Scan(
		&ride.ID,
		&ride.Title,
		&ride.MeetingPoint,
		&meetLat,
		&meetLng,
		&ride.Destination,
		&destLat,
		&destLng,
		&ride.Date,
		&ride.Time,
		&ride.Duration,
		&ride.RideType,
		&ride.Description,
		&ride.OrganizerID,
		&ride.OrganizerName,
		&ride.OrganizerEmail,
		&ride.MaxParticipants,
		&ride.Status,
		&ride.Version,
		&ride.CreatedAt,
		&ride.UpdatedAt,
		&started,
		&completed,
		&cancelled,
	)
	if err != nil {
		return nil, err
	}
	ride.MeetingPointCoords = coords(meetLat, meetLng)
	ride.DestinationCoords = coords(destLat, destLng)
	ride.StartedAt = nullTime(started)
	ride.CompletedAt = nullTime(completed)
	ride.CancelledAt = nullTime(cancelled)
	ride.Participants = []domain.Participant{}
	return &ride, nil
}

func (r *RideRepository) CreateRide(ctx context.Context, ride *domain.Ride) (*domain.Ride, error) {
	const op = "postgres.CreateRide"
	query := `INSERT INTO rides (id, title, meeting_point, meeting_lat, meeting_lng,
		destination, destination_lat, destination_lng, ride_date, ride_time, duration,
		ride_type, description, organizer_id, organizer_name, organizer_email,
		max_participants, participant_count, status, version, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 0, $18, $19, $20, $21)`

	meetLat, meetLng := coordsArgs(ride.MeetingPointCoords)
	destLat, destLng := coordsArgs(ride.DestinationCoords)

	_, err := r.db.ExecContext(ctx, query,
		ride.ID,
		ride.Title,
		ride.MeetingPoint,
		meetLat,
		meetLng,
		ride.Destination,
		destLat,
		destLng,
		ride.Date,
		ride.Time,
		ride.Duration,
		ride.RideType,
		ride.Description,
		ride.OrganizerID,
		ride.OrganizerName,
		ride.OrganizerEmail,
		ride.MaxParticipants,
		ride.Status,
		ride.Version,
		ride.CreatedAt,
		ride.UpdatedAt,
	)
	if err != nil {
		switch pqCode(err) {
		case "23503":
			return nil, domain.NotFoundError(op, "organizer")
		case "23505":
			return nil, domain.ValidationError(op, "ride already exists")
		}
		return nil, mapError(op, err)
	}
	return ride, nil
}

func (r *RideRepository) GetRideByID(ctx context.Context, rideID uuid.UUID) (*domain.Ride, error) {
	return getRide(ctx, r.db, "postgres.GetRideByID", rideID)
}

func getRide(ctx context.Context, q querier, op string, rideID uuid.UUID) (*domain.Ride, error) {
	row := q.QueryRowContext(ctx, `SELECT `+rideColumns+` FROM rides r WHERE r.id = $1`, rideID)
	ride, err := scanRide(row)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundError(op, "ride")
	}
	if err != nil {
		return nil, mapError(op, err)
	}
	if err := loadParticipants(ctx, q, []*domain.Ride{ride}); err != nil {
		return nil, mapError(op, err)
	}
	return ride, nil
}

// loadParticipants fills the roster of every ride with one query.
func loadParticipants(ctx context.Context, q querier, rides []*domain.Ride) error {
	if len(rides) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*domain.Ride, len(rides))
	ids := make([]string, 0, len(rides))
	for _, ride := range rides {
		byID[ride.ID] = ride
		ids = append(ids, ride.ID.String())
	}

	rows, err := q.QueryContext(ctx, `SELECT ride_id, user_id, display_name, email, joined_at
		FROM ride_participants
		WHERE ride_id = ANY($1::uuid[])
		ORDER BY joined_at, user_id`, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rideID uuid.UUID
			p      domain.Participant
		)
		if err := rows.Scan(&rideID, &p.UserID, &p.DisplayName, &p.Email, &p.JoinedAt); err != nil {
			return err
		}
		if ride, ok := byID[rideID]; ok {
			ride.Participants = append(ride.Participants, p)
		}
	}
	return rows.Err()
}

func (r *RideRepository) ListRides(ctx context.Context, f domain.RideFilter) ([]*domain.Ride, error) {
	const op = "postgres.ListRides"

	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		conds = append(conds, "r.status = ANY("+arg(pq.Array(statuses))+"::text[])")
	}
	if f.RideType != "" {
		conds = append(conds, "r.ride_type = "+arg(f.RideType))
	}
	if f.ParticipantID != uuid.Nil {
		conds = append(conds, "EXISTS (SELECT 1 FROM ride_participants p WHERE p.ride_id = r.id AND p.user_id = "+arg(f.ParticipantID)+")")
	}
	if f.MemberID != uuid.Nil {
		ph := arg(f.MemberID)
		conds = append(conds, "(r.organizer_id = "+ph+" OR EXISTS (SELECT 1 FROM ride_participants p WHERE p.ride_id = r.id AND p.user_id = "+ph+"))")
	}
	order := "ASC"
	if f.Newest {
		order = "DESC"
	}
	if f.After != nil {
		cmp := ">"
		if f.Newest {
			cmp = "<"
		}
		conds = append(conds, fmt.Sprintf("(r.created_at, r.id) %s (%s, %s)", cmp, arg(f.After.CreatedAt), arg(f.After.ID)))
	}

	query := `SELECT ` + rideColumns + ` FROM rides r`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY r.created_at %s, r.id %s", order, order)
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer rows.Close()

	rides := []*domain.Ride{}
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, mapError(op, err)
		}
		rides = append(rides, ride)
	}
	if err = rows.Err(); err != nil {
		return nil, mapError(op, err)
	}

	if err := loadParticipants(ctx, r.db, rides); err != nil {
		return nil, mapError(op, err)
	}
	return rides, nil
}

func (r *RideRepository) CountRides(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rides`).Scan(&n); err != nil {
		return 0, mapError("postgres.CountRides", err)
	}
	return n, nil
}

// AddParticipant reserves a seat with a guarded counter update and inserts
// the roster row in the same transaction. The row lock taken by the UPDATE
// serializes concurrent joins on one ride.
func (r *RideRepository) AddParticipant(ctx context.Context, rideID uuid.UUID, p domain.Participant) (*domain.Ride, error) {
	const op = "postgres.AddParticipant"

	var ride *domain.Ride
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE rides
			SET participant_count = participant_count + 1,
				version = version + 1,
				updated_at = $2
			WHERE id = $1
				AND status IN ('upcoming', 'ongoing')
				AND participant_count < max_participants`, rideID, p.JoinedAt)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return joinFailure(ctx, tx, op, rideID, p.UserID)
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO ride_participants (ride_id, user_id, display_name, email, joined_at)
			VALUES ($1, $2, $3, $4, $5)`, rideID, p.UserID, p.DisplayName, p.Email, p.JoinedAt)
		if err != nil {
			switch pqCode(err) {
			case "23505":
				return domain.AlreadyJoinedError(op)
			case "23503":
				return domain.NotFoundError(op, "user")
			}
			return err
		}

		ride, err = getRide(ctx, tx, op, rideID)
		return err
	})
	if err != nil {
		return nil, mapError(op, err)
	}
	return ride, nil
}

// joinFailure explains why the guarded update matched no row.
func joinFailure(ctx context.Context, q querier, op string, rideID, userID uuid.UUID) error {
	var (
		status        domain.RideStatus
		maxRiders     int
		count, member int
	)
	err := q.QueryRowContext(ctx, `SELECT r.status, r.max_participants, r.participant_count,
			(SELECT COUNT(*) FROM ride_participants p WHERE p.ride_id = r.id AND p.user_id = $2)
		FROM rides r WHERE r.id = $1`, rideID, userID).Scan(&status, &maxRiders, &count, &member)
	if err == sql.ErrNoRows {
		return domain.NotFoundError(op, "ride")
	}
	if err != nil {
		return err
	}
	switch {
	case !status.Joinable():
		return domain.StateError(op, "ride is %s", status)
	case member > 0:
		return domain.AlreadyJoinedError(op)
	case count >= maxRiders:
		return domain.CapacityError(op, maxRiders)
	}
	return domain.StateError(op, "ride changed concurrently")
}

func (r *RideRepository) RemoveParticipant(ctx context.Context, rideID, userID uuid.UUID, at time.Time) (*domain.Ride, error) {
	const op = "postgres.RemoveParticipant"

	var ride *domain.Ride
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var status domain.RideStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM rides WHERE id = $1 FOR UPDATE`, rideID).Scan(&status)
		if err == sql.ErrNoRows {
			return domain.NotFoundError(op, "ride")
		}
		if err != nil {
			return err
		}
		if !status.Joinable() {
			return domain.StateError(op, "ride is %s", status)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM ride_participants WHERE ride_id = $1 AND user_id = $2`, rideID, userID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NotParticipantError(op)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE rides
			SET participant_count = participant_count - 1,
				version = version + 1,
				updated_at = $2::timestamptz
			WHERE id = $1`, rideID, at); err != nil {
			return err
		}

		ride, err = getRide(ctx, tx, op, rideID)
		return err
	})
	if err != nil {
		return nil, mapError(op, err)
	}
	return ride, nil
}

func (r *RideRepository) TransitionStatus(ctx context.Context, rideID uuid.UUID, from, to domain.RideStatus, at time.Time) (*domain.Ride, error) {
	const op = "postgres.TransitionStatus"

	var ride *domain.Ride
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE rides
			SET status = $3::text,
				version = version + 1,
				updated_at = $4::timestamptz,
				started_at = CASE WHEN $3::text = 'ongoing' THEN $4::timestamptz ELSE started_at END,
				completed_at = CASE WHEN $3::text = 'completed' THEN $4::timestamptz ELSE completed_at END,
				cancelled_at = CASE WHEN $3::text = 'cancelled' THEN $4::timestamptz ELSE cancelled_at END
			WHERE id = $1 AND status = $2::text`, rideID, string(from), string(to), at)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			var current domain.RideStatus
			err := tx.QueryRowContext(ctx, `SELECT status FROM rides WHERE id = $1`, rideID).Scan(&current)
			if err == sql.ErrNoRows {
				return domain.NotFoundError(op, "ride")
			}
			if err != nil {
				return err
			}
			return domain.StateError(op, "ride is %s", current)
		}

		ride, err = getRide(ctx, tx, op, rideID)
		return err
	})
	if err != nil {
		return nil, mapError(op, err)
	}
	return ride, nil
}

// DeleteRide removes the ride and writes the audit row atomically.
func (r *RideRepository) DeleteRide(ctx context.Context, rideID uuid.UUID, audit domain.RideAudit) error {
	const op = "postgres.DeleteRide"

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO ride_audit_log (ride_id, action, actor_id, reason, snapshot, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			audit.RideID, audit.Action, audit.ActorID, audit.Reason, string(audit.Snapshot), audit.CreatedAt); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM rides WHERE id = $1`, rideID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NotFoundError(op, "ride")
		}
		return nil
	})
	return mapError(op, err)
}
