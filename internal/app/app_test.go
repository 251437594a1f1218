package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sm8ta/safaride_ride_microservice/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inProcessConfig leaves every external service unset so New picks the
// in-process fallbacks.
func inProcessConfig() *config.Container {
	return &config.Container{
		App:   &config.App{Name: "safaride-test", Env: "production", LogLevel: "error"},
		Token: &config.Token{Secret: "test-secret", Duration: time.Hour},
		DB:    &config.DB{},
		HTTP:  &config.HTTP{Port: "0", AllowedOrigins: []string{"*"}, ShutdownTimeout: time.Second},
		Redis: &config.Redis{},
		Kafka: &config.Kafka{Topic: "safaride.ride-events"},
		S3:    &config.S3{Region: "eu-west-1"},
		OSRM:  &config.OSRM{Timeout: time.Second},
		Rides: &config.Rides{PageSize: 10},
	}
}

func TestNew_InProcessFallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	application, err := New(context.Background(), inProcessConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Stop(context.Background()) })

	assert.Nil(t, application.DB)
	assert.Nil(t, application.RedisClient)
	require.NotNil(t, application.Events)
	require.NotNil(t, application.Hub)
	engine := application.HTTPRouter.Engine()

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := `{"full_name":"Wanjiku","email":"wanjiku@example.com","password":"secret123"}`
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"wanjiku@example.com","password":"secret123"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)
}
