// Package server exposes the webhook, maintenance and metrics endpoints over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/iamwavecut/groupwarden/internal/moderation"
)

const (
	secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"
	webhookPath       = "/webhook"
	readHeaderTimeout = 5 * time.Second
)

type (
	UpdateProcessor interface {
		Process(ctx context.Context, u *api.Update) error
	}

	Sweeper interface {
		Sweep(ctx context.Context) (moderation.SweepResult, error)
	}

	WebhookRegistrar interface {
		SetWebhook(ctx context.Context, url, secret string) error
	}

	Config struct {
		Addr             string
		ServiceName      string
		WebhookURL       string
		WebhookSecret    string
		MaintenanceToken string
		// UpdateTimeout bounds the synchronous processing of one webhook update.
		UpdateTimeout time.Duration
	}

	Server struct {
		cfg     Config
		updates UpdateProcessor
		sweeper Sweeper
		webhook WebhookRegistrar
		engine  *gin.Engine
		srv     *http.Server
	}
)

func New(cfg Config, updates UpdateProcessor, sweeper Sweeper, webhook WebhookRegistrar) *Server {
	if cfg.UpdateTimeout <= 0 {
		cfg.UpdateTimeout = 30 * time.Second
	}
	s := &Server{
		cfg:     cfg,
		updates: updates,
		sweeper: sweeper,
		webhook: webhook,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		engine.Use(otelgin.Middleware(cfg.ServiceName))
	}
	engine.POST(webhookPath, s.handleWebhook)
	maintenance := engine.Group("/", s.requireMaintenanceToken)
	maintenance.POST("/maintenance/sweep", s.handleSweep)
	maintenance.GET("/setwebhook", s.handleSetWebhook)
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine = engine
	return s
}

func (s *Server) getLogEntry() *log.Entry {
	return log.WithField("object", "Server")
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.srv = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.getLogEntry().WithError(err).Error("http server stopped")
		}
	}()
	s.getLogEntry().WithField("addr", ln.Addr().String()).Info("http server started")
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleWebhook(c *gin.Context) {
	if s.cfg.WebhookSecret != "" && !tokensEqual(c.GetHeader(secretTokenHeader), s.cfg.WebhookSecret) {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	var u api.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.UpdateTimeout)
	defer cancel()
	if err := s.updates.Process(ctx, &u); err != nil {
		// acknowledged anyway, a redelivery would repeat the same failure
		s.getLogEntry().WithError(err).WithField("update_id", u.UpdateID).Warn("update processing failed")
	}
	c.Status(http.StatusOK)
}

func (s *Server) handleSweep(c *gin.Context) {
	result, err := s.sweeper.Sweep(c.Request.Context())
	if err != nil {
		s.getLogEntry().WithError(err).Error("sweep finished with errors")
		c.JSON(http.StatusInternalServerError, gin.H{
			"deletedCount": result.DeletedCount,
			"unmutedCount": result.UnmutedCount,
			"error":        err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSetWebhook(c *gin.Context) {
	if s.cfg.WebhookURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook url is not configured"})
		return
	}
	url := strings.TrimRight(s.cfg.WebhookURL, "/") + webhookPath
	if err := s.webhook.SetWebhook(c.Request.Context(), url, s.cfg.WebhookSecret); err != nil {
		s.getLogEntry().WithError(err).Error("failed to set webhook")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to set webhook"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"webhook": url})
}

func (s *Server) requireMaintenanceToken(c *gin.Context) {
	if s.cfg.MaintenanceToken == "" {
		c.Next()
		return
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || !tokensEqual(parts[1], s.cfg.MaintenanceToken) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
		return
	}
	c.Next()
}

func tokensEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
