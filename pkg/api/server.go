package api

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"multiswap/pkg/telemetry"
	"multiswap/pkg/types"
)

// Swapper is the service behind the HTTP routes
type Swapper interface {
	Swap(ctx context.Context, chain types.Chain, req types.SwapRequest) (*types.SwapReceipt, error)
	Balance(ctx context.Context, chain types.Chain, token string) (decimal.Decimal, error)
	Chains() []types.Chain
	Ping(ctx context.Context, chain types.Chain) error
}

// BuildInfo is reported on /version
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

// Server exposes the swap service over HTTP
type Server struct {
	svc       Swapper
	log       zerolog.Logger
	buildInfo BuildInfo
	origins   []string
}

// Option configures a Server
type Option func(*Server)

// WithAllowedOrigins restricts CORS to origins. Empty or "*" allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// NewServer creates a server for svc
func NewServer(svc Swapper, log zerolog.Logger, buildInfo BuildInfo, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, errors.New("swap service must not be nil")
	}
	s := &Server{svc: svc, log: log, buildInfo: buildInfo}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler builds the gin engine with one route group per enabled chain
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(s.requestLogger(), gin.CustomRecovery(s.recover), s.cors())

	r.GET("/healthz", s.handleHealth)
	r.GET("/readyz", s.handleReady)
	r.GET("/version", s.handleVersion)
	r.GET("/metrics", gin.WrapH(telemetry.Handler()))

	for _, chain := range s.svc.Chains() {
		group := r.Group("/" + string(chain))
		group.POST("/", s.handleSwap(chain))
		group.GET("/balance/:mintAddress", s.handleBalance(chain))
	}
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", addr).Interface("chains", s.svc.Chains()).Msg("http server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) cors() gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(s.origins) == 0 || slices.Contains(s.origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.origins
	}
	return cors.New(cfg)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) recover(c *gin.Context, recovered any) {
	s.log.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("handler panicked")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unknown error"})
}
