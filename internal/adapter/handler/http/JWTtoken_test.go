package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTTokenService("secret", time.Hour, nopLogger{})
	user := &domain.User{ID: uuid.New(), DisplayName: "Grace", Email: "grace@example.com", Role: domain.Organizer}

	token, err := svc.IssueToken(user)
	require.NoError(t, err)

	payload, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, payload.UserID)
	assert.Equal(t, domain.Organizer, payload.Role)
	assert.Equal(t, domain.Identity{UserID: user.ID, DisplayName: "Grace", Email: "grace@example.com"}, payload.Identity())
}

func TestJWTRejects(t *testing.T) {
	svc := NewJWTTokenService("secret", time.Hour, nopLogger{})
	userID := uuid.NewString()

	sign := func(method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"id":      uuid.NewString(),
			"user_id": userID,
			"role":    "rider",
			"exp":     time.Now().Add(time.Hour).Unix(),
		}
	}

	expired := valid()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noExp := valid()
	delete(noExp, "exp")
	badRole := valid()
	badRole["role"] = "superuser"
	badUser := valid()
	badUser["user_id"] = "nope"

	tests := map[string]string{
		"wrong secret": sign(jwt.SigningMethodHS256, []byte("other"), valid()),
		"wrong alg":    sign(jwt.SigningMethodHS512, []byte("secret"), valid()),
		"none alg":     sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid()),
		"expired":      sign(jwt.SigningMethodHS256, []byte("secret"), expired),
		"no expiry":    sign(jwt.SigningMethodHS256, []byte("secret"), noExp),
		"unknown role": sign(jwt.SigningMethodHS256, []byte("secret"), badRole),
		"bad user id":  sign(jwt.SigningMethodHS256, []byte("secret"), badUser),
		"garbage":      "a.b.c",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VerifyToken(token)
			assert.Error(t, err)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ValidationError("op", "bad"), http.StatusBadRequest},
		{domain.PermissionError("op", "no"), http.StatusForbidden},
		{domain.StateError("op", "ride is completed"), http.StatusConflict},
		{domain.CapacityError("op", 2), http.StatusConflict},
		{domain.AlreadyJoinedError("op"), http.StatusConflict},
		{domain.NotParticipantError("op"), http.StatusConflict},
		{domain.NotFoundError("op", "ride"), http.StatusNotFound},
		{domain.UpstreamError("op", assert.AnError), http.StatusBadGateway},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
