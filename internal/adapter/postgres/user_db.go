package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, display_name, email, password_hash, role, verified,
	emergency_contacts, medical_info, created_at, updated_at`

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user              domain.User
		contacts, medical []byte
	)
	err := row.Scan(
		&user.ID,
		&user.DisplayName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Verified,
		&contacts,
		&medical,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(contacts, &user.EmergencyContacts); err != nil {
		return nil, fmt.Errorf("decode emergency contacts: %w", err)
	}
	if err := json.Unmarshal(medical, &user.MedicalInfo); err != nil {
		return nil, fmt.Errorf("decode medical info: %w", err)
	}
	if user.EmergencyContacts == nil {
		user.EmergencyContacts = []domain.EmergencyContact{}
	}
	return &user, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	const op = "postgres.CreateUser"

	contacts, err := json.Marshal(user.EmergencyContacts)
	if err != nil {
		return nil, domain.UpstreamError(op, err)
	}
	medical, err := json.Marshal(user.MedicalInfo)
	if err != nil {
		return nil, domain.UpstreamError(op, err)
	}

	query := `INSERT INTO users (id, display_name, email, password_hash, role, verified,
		emergency_contacts, medical_info, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING ` + userColumns

	created, err := scanUser(r.db.QueryRowContext(ctx, query,
		user.ID,
		user.DisplayName,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Verified,
		string(contacts),
		string(medical),
		user.CreatedAt,
		user.UpdatedAt,
	))
	if err != nil {
		if pqCode(err) == "23505" {
			return nil, domain.ValidationError(op, "email already in use")
		}
		return nil, mapError(op, err)
	}
	return created, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	const op = "postgres.GetUserByID"

	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundError(op, "user")
	}
	if err != nil {
		return nil, mapError(op, err)
	}
	return user, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const op = "postgres.GetUserByEmail"

	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundError(op, "user")
	}
	if err != nil {
		return nil, mapError(op, err)
	}
	return user, nil
}

func (r *UserRepository) UpdateEmergencyInfo(
	ctx context.Context,
	userID uuid.UUID,
	contacts []domain.EmergencyContact,
	medical domain.MedicalInfo,
) (*domain.User, error) {
	const op = "postgres.UpdateEmergencyInfo"

	if contacts == nil {
		contacts = []domain.EmergencyContact{}
	}
	contactsJSON, err := json.Marshal(contacts)
	if err != nil {
		return nil, domain.UpstreamError(op, err)
	}
	medicalJSON, err := json.Marshal(medical)
	if err != nil {
		return nil, domain.UpstreamError(op, err)
	}

	query := `UPDATE users
		SET emergency_contacts = $1,
			medical_info = $2,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query, string(contactsJSON), string(medicalJSON), userID))
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundError(op, "user")
	}
	if err != nil {
		return nil, mapError(op, err)
	}
	return user, nil
}

// CountUsers counts users with the given role, or all users when role is empty.
func (r *UserRepository) CountUsers(ctx context.Context, role domain.UserRole) (int, error) {
	var (
		n   int
		err error
	)
	if role == "" {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, string(role)).Scan(&n)
	}
	if err != nil {
		return 0, mapError("postgres.CountUsers", err)
	}
	return n, nil
}
