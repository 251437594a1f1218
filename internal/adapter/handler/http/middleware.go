package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
)

const (
	authorizationHeaderKey  = "Authorization"
	authorizationTypeBearer = "bearer"
	authorizationPayloadKey = "authorization_payload"
)

type errorResponse struct {
	Error string `json:"error" example:"ride is full (10/10)"`
}

type messageResponse struct {
	Message string `json:"message" example:"ok"`
}

func newErrorResponse(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, errorResponse{Error: msg})
}

// AuthMiddleware verifies the bearer token. Browsers cannot set headers on a
// websocket handshake, so a token query parameter is accepted as well.
func AuthMiddleware(tokenService ports.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			newErrorResponse(c, http.StatusUnauthorized, err.Error())
			return
		}

		payload, err := tokenService.VerifyToken(token)
		if err != nil {
			newErrorResponse(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		c.Set(authorizationPayloadKey, payload)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader(authorizationHeaderKey)
	if header == "" {
		if q := c.Query("token"); q != "" {
			return q, nil
		}
		return "", errors.New("authorization header is not provided")
	}
	fields := strings.Fields(header)
	if len(fields) != 2 {
		return "", errors.New("invalid authorization header format")
	}
	if strings.ToLower(fields[0]) != authorizationTypeBearer {
		return "", errors.New("unsupported authorization type")
	}
	return fields[1], nil
}

func getAuthPayload(c *gin.Context, key string) (*domain.TokenPayload, bool) {
	v, exists := c.Get(key)
	if !exists {
		return nil, false
	}
	payload, ok := v.(*domain.TokenPayload)
	return payload, ok
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindPermission:
		return http.StatusForbidden
	case domain.KindState, domain.KindCapacity, domain.KindAlreadyJoined, domain.KindNotParticipant:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// handleError writes the error response matching err's kind.
func handleError(c *gin.Context, err error) {
	newErrorResponse(c, statusFor(err), domain.MessageOf(err))
}
