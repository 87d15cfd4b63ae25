package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
)

// Pinger reports whether the backing database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the domain services the handlers call.
type Services struct {
	Users        *services.UserService
	Wallets      *services.WalletService
	Transactions *services.TransactionService
	Categories   *services.TaxonomyService
	Tags         *services.TaxonomyService
}

type Options struct {
	Addr               string
	Logger             *log.Logger
	Verifier           TokenVerifier
	Services           Services
	DB                 Pinger
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server
	engine   *gin.Engine
	svc      Services
	db       Pinger
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time
	now      func() time.Time
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		svc:      opts.Services,
		db:       opts.DB,
		logger:   logger.WithComponent(log.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
		started:  time.Now(),
		now:      time.Now,
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	s.engine = s.routes(opts)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

func (s *Server) routes(opts Options) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoRoute(notFoundRoute)
	r.NoMethod(func(c *gin.Context) {
		writeError(c, http.StatusMethodNotAllowed, errorResponse{Code: "method_not_allowed", Message: "method not allowed"})
	})

	r.Use(
		gin.CustomRecovery(s.recover),
		s.tracer.Handler(),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Handler(),
		s.detector.Handler(),
		cors.New(corsConfig(opts.CORSAllowedOrigins)),
	)

	r.GET("/healthz", s.handleHealth)
	r.GET("/readyz", s.handleReady)
	r.GET("/metrics", s.handleMetrics)

	api := r.Group("")
	api.Use(
		ratelimit.Middleware(s.limiter, func(c *gin.Context) string { return s.detector.ExtractClientIP(c.Request) }, rateLimited),
		authMiddleware(opts.Verifier, opts.Services.Users),
	)

	api.GET("/me", s.handleGetMe)
	api.DELETE("/me", s.handleDeleteMe)

	api.GET("/wallets", s.handleListWallets)
	api.POST("/wallets", s.handleCreateWallet)
	api.GET("/wallets/:id", s.handleGetWallet)
	api.PUT("/wallets/:id", s.handleReplaceWallet)
	api.PATCH("/wallets/:id", s.handlePatchWallet)
	api.DELETE("/wallets/:id", s.handleDeleteWallet)
	api.GET("/wallets/:id/summary", s.handleWalletSummary)
	api.GET("/wallets/:id/export", s.handleExportWallet)
	api.GET("/wallets/:id/transactions", s.handleListTransactions)
	api.POST("/wallets/:id/transactions", s.handleCreateTransaction)

	api.GET("/transactions/:id", s.handleGetTransaction)
	api.PUT("/transactions/:id", s.handleReplaceTransaction)
	api.PATCH("/transactions/:id", s.handlePatchTransaction)
	api.DELETE("/transactions/:id", s.handleDeleteTransaction)

	newLabelHandlers(opts.Services.Categories).register(api.Group("/categories"))
	newLabelHandlers(opts.Services.Tags).register(api.Group("/tags"))

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", trace.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", trace.RequestIDHeader, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) recover(c *gin.Context, err any) {
	ctx := c.Request.Context()
	log.FromContext(ctx).ErrorContext(ctx, "Panic recovered",
		log.FieldError, err,
		log.FieldPath, c.Request.URL.Path)
	writeError(c, http.StatusInternalServerError, errorResponse{Code: codeInternal, Message: "internal server error"})
}

// Engine exposes the router for tests and embedding.
func (s *Server) Engine() http.Handler {
	return s.engine
}

// Shutdown drains connections and stops background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
