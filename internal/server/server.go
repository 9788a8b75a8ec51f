// Package server exposes evaluation, submission registration and the
// leaderboard over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/evaluator"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/report"
	"github.com/HARSHCHAUDHARY04/ai-arena-masters/internal/result"
)

type Evaluator interface {
	Evaluate(ctx context.Context, req evaluator.Request) (*result.Scores, error)
}

type Store interface {
	report.Lister
	SaveSubmission(ctx context.Context, s *result.Submission) error
	ListSubmissions(ctx context.Context, eventID string) ([]result.Submission, error)
}

type Options struct {
	AuthToken string
	Release   bool
	Metrics   bool
}

// allowedHeaders matches what the browser dashboard sends.
var allowedHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}

// New builds the HTTP handler. /healthz is always open; /api requires the
// bearer token when opts.AuthToken is set.
func New(ev Evaluator, st Store, logger *zap.Logger, opts Options) http.Handler {
	if opts.Release {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(ginzap.Ginzap(logger, "", false))
	r.Use(ginzap.RecoveryWithZap(logger, true))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    allowedHeaders,
		MaxAge:          12 * time.Hour,
	}))

	if opts.Metrics {
		initGinMetrics(r)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	if opts.AuthToken != "" {
		api.Use(tokenAuth(opts.AuthToken))
		logger.Info("Attach token auth")
	}
	h := &handle{evaluator: ev, store: st, logger: logger}
	h.Register(api)
	return r
}

func initGinMetrics(r *gin.Engine) {
	p := ginprometheus.NewWithConfig(ginprometheus.Config{
		Subsystem:          "gin",
		DisableBodyReading: true,
	})
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		return c.FullPath()
	}
	r.Use(p.HandlerFunc())
}

func tokenAuth(token string) gin.HandlerFunc {
	const bearer = "Bearer "
	return func(c *gin.Context) {
		reqToken := c.GetHeader("Authorization")
		if strings.HasPrefix(reqToken, bearer) && reqToken[len(bearer):] == token {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, failure("unauthorized"))
	}
}

type handle struct {
	evaluator Evaluator
	store     Store
	logger    *zap.Logger
}

func (h *handle) Register(r gin.IRouter) {
	r.POST("/evaluate-api", h.handleEvaluate)
	r.POST("/submissions", h.handleCreateSubmission)
	r.GET("/submissions", h.handleListSubmissions)
	r.GET("/leaderboard", h.handleLeaderboard)
}

func failure(msg string) gin.H {
	return gin.H{"success": false, "error": msg}
}

func (h *handle) handleEvaluate(c *gin.Context) {
	var req evaluator.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, failure("invalid request body: "+err.Error()))
		return
	}
	scores, err := h.evaluator.Evaluate(c.Request.Context(), req)
	if err != nil {
		var verr *evaluator.ValidationError
		if errors.As(err, &verr) {
			c.AbortWithStatusJSON(http.StatusBadRequest, failure(err.Error()))
			return
		}
		h.logger.Error("evaluation failed", zap.String("team_id", req.TeamID), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, failure(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "scores": scores})
}

type submissionRequest struct {
	TeamID      string `json:"team_id"`
	EventID     string `json:"event_id"`
	EndpointURL string `json:"endpoint_url"`
}

func (h *handle) handleCreateSubmission(c *gin.Context) {
	var body submissionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, failure("invalid request body: "+err.Error()))
		return
	}
	req, err := evaluator.Normalize(evaluator.Request{
		TeamID:      body.TeamID,
		EventID:     body.EventID,
		EndpointURL: body.EndpointURL,
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, failure(err.Error()))
		return
	}
	sub := &result.Submission{
		TeamID:      req.TeamID,
		EventID:     req.EventID,
		EndpointURL: req.EndpointURL,
	}
	if err := h.store.SaveSubmission(c.Request.Context(), sub); err != nil {
		h.logger.Error("saving submission failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, failure(err.Error()))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": sub.ID})
}

func (h *handle) handleListSubmissions(c *gin.Context) {
	subs, err := h.store.ListSubmissions(c.Request.Context(), c.Query("event_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, failure(err.Error()))
		return
	}
	if subs == nil {
		subs = []result.Submission{}
	}
	c.JSON(http.StatusOK, subs)
}

func (h *handle) handleLeaderboard(c *gin.Context) {
	limit := report.DefaultLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, failure("limit must be a positive integer"))
			return
		}
		limit = n
	}
	standings, err := report.Leaderboard(c.Request.Context(), h.store, c.Query("event_id"), limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, failure(err.Error()))
		return
	}
	c.JSON(http.StatusOK, standings)
}
