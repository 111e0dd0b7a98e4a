package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	limiter "github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/nikohapp/nikoh-api/internal/admin"
	"github.com/nikohapp/nikoh-api/internal/config"
	"github.com/nikohapp/nikoh-api/internal/identities"
	"github.com/nikohapp/nikoh-api/internal/interests"
	"github.com/nikohapp/nikoh-api/internal/matches"
	"github.com/nikohapp/nikoh-api/internal/messages"
	"github.com/nikohapp/nikoh-api/internal/payments"
	"github.com/nikohapp/nikoh-api/internal/preferences"
	"github.com/nikohapp/nikoh-api/internal/profiles"
	"github.com/nikohapp/nikoh-api/internal/reports"
	"github.com/nikohapp/nikoh-api/internal/verifications"
	"github.com/nikohapp/nikoh-api/pkg/metrics"
)

// Services bundles the domain services the API server exposes
type Services struct {
	Identities    identities.IdentityService
	Profiles      profiles.ProfileService
	Interests     interests.InterestService
	Matches       matches.MatchService
	Messages      messages.MessageService
	ChatHub       *messages.Hub
	Preferences   preferences.PreferenceService
	Verifications verifications.VerificationService
	Payments      payments.PaymentService
	Reports       reports.ReportService
	Admin         admin.AdminService
}

// Server represents the API server
type Server struct {
	router      *gin.Engine
	logger      *zap.Logger
	services    Services
	rateLimiter gin.HandlerFunc
}

// NewServer creates a new API server with injected services
func NewServer(logger *zap.Logger, cfg *config.Config, services Services) (*Server, error) {
	server := &Server{
		logger:   logger,
		services: services,
	}

	registerValidations()

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(otelgin.Middleware("nikoh-api"))
	router.Use(metrics.GinMiddleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	rate, err := limiter.NewRateFromFormatted(cfg.Server.RateLimit)
	if err != nil {
		return nil, err
	}
	server.rateLimiter = ginlimiter.NewMiddleware(limiter.New(memory.NewStore(), rate))

	server.router = router
	server.registerRoutes()
	return server, nil
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router returns the internal Gin engine for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := s.router.Group("/api/v1")
	{
		public.GET("/health", s.healthCheck)

		// API documentation (ReDoc)
		public.GET("/docs/openapi.yaml", func(c *gin.Context) {
			c.File("docs/openapi.yaml")
		})
		docsHandler := func(c *gin.Context) {
			html := `<!DOCTYPE html>
			<html>
			<head>
			  <title>Nikoh API Docs</title>
			  <meta charset="utf-8" />
			  <meta name="viewport" content="width=device-width, initial-scale=1">
			  <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
			</head>
			<body>
			  <redoc spec-url='/api/v1/docs/openapi.yaml'></redoc>
			</body>
			</html>`
			c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
		}
		public.GET("/docs", docsHandler)
		public.GET("/redoc", docsHandler)
	}

	protected := s.router.Group("/api/v1")
	protected.Use(identities.AuthMiddleware(s.services.Identities, s.logger))

	adminGroup := s.router.Group("/api/v1/admin")
	adminGroup.Use(
		identities.AuthMiddleware(s.services.Identities, s.logger),
		identities.AdminMiddleware(s.services.Identities, s.logger),
	)

	identities.Routes(public, protected, s.services.Identities, s.logger, s.rateLimiter)
	profiles.Routes(protected, s.services.Profiles, s.logger)
	interests.Routes(protected, s.services.Interests, s.logger)
	matches.Routes(protected, s.services.Matches, s.logger)
	messages.Routes(protected, s.services.Messages, s.services.ChatHub, s.logger)
	preferences.Routes(protected, s.services.Preferences, s.logger)
	verifications.Routes(protected, s.services.Verifications, s.logger)
	payments.Routes(public, protected, s.services.Payments, s.logger)
	reports.Routes(protected, s.services.Reports, s.logger)
	admin.Routes(adminGroup, s.services.Admin, s.services.Verifications, s.services.Reports, s.services.Payments, s.logger)
}

// healthCheck handles the health check endpoint
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now(),
	})
}
