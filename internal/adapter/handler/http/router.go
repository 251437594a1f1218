package http

import (
	"context"
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "github.com/sm8ta/safaride_ride_microservice/docs"
	"github.com/sm8ta/safaride_ride_microservice/internal/config"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Router struct {
	router *gin.Engine
	server *http.Server
}

type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Ride         *RideHandler
	Verification *VerificationHandler
	SOS          *SOSHandler
	Admin        *AdminHandler
	Route        *RouteHandler
}

func NewRouter(
	cfg *config.HTTP,
	tokenService ports.TokenService,
	h Handlers,
) (*Router, error) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// CORS
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	router.Use(cors.New(corsCfg))

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := router.Group("/auth")
	{
		auth.POST("/signup", h.Auth.SignUp)
		auth.POST("/login", h.Auth.Login)
	}

	users := router.Group("/users")
	users.Use(AuthMiddleware(tokenService))
	{
		users.GET("/me", h.User.GetMe)
		users.PUT("/me/emergency-contacts", h.User.UpdateEmergencyContacts)
	}

	rides := router.Group("/rides")
	rides.Use(AuthMiddleware(tokenService))
	{
		rides.POST("", h.Ride.CreateRide)
		rides.GET("", h.Ride.ListRides)
		rides.GET("/my", h.Ride.MyRides)
		rides.GET("/:id", h.Ride.GetRide)
		rides.DELETE("/:id", h.Ride.DeleteRide)
		rides.POST("/:id/join", h.Ride.JoinRide)
		rides.POST("/:id/leave", h.Ride.LeaveRide)
		rides.POST("/:id/start", h.Ride.StartRide)
		rides.POST("/:id/complete", h.Ride.CompleteRide)
		rides.POST("/:id/cancel", h.Ride.CancelRide)
		rides.POST("/:id/sos", h.SOS.Trigger)
		rides.GET("/:id/sos", h.SOS.ListAlerts)
		rides.GET("/:id/alerts/ws", h.SOS.WatchAlerts)
	}

	verification := router.Group("/verification")
	verification.Use(AuthMiddleware(tokenService))
	{
		verification.POST("/documents", h.Verification.UploadDocument)
		verification.POST("/requests", h.Verification.SubmitRequest)
	}

	admin := router.Group("/admin")
	admin.Use(AuthMiddleware(tokenService))
	{
		admin.GET("/dashboard", h.Admin.Dashboard)
		admin.GET("/verification/requests", h.Verification.ListPending)
		admin.POST("/verification/requests/:id/approve", h.Verification.Approve)
		admin.POST("/verification/requests/:id/reject", h.Verification.Reject)
	}

	routes := router.Group("/routes")
	routes.Use(AuthMiddleware(tokenService))
	{
		routes.GET("/estimate", h.Route.Estimate)
	}

	return &Router{router: router}, nil
}

// Serve blocks until the server stops. A clean Shutdown returns nil.
func (r *Router) Serve(addr string) error {
	r.server = &http.Server{
		Addr:    addr,
		Handler: r.router,
	}
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (r *Router) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}

func (r *Router) Engine() *gin.Engine {
	return r.router
}
