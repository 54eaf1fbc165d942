package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/zaidmukaddam/scira/pkg/library"
	"github.com/zaidmukaddam/scira/pkg/wrapped"
)

type WrappedBuilder interface {
	Build(ctx context.Context, username string, year int) (*wrapped.Summary, error)
}

type LibrarySearcher interface {
	Search(ctx context.Context, query string, k int, jobID string) ([]library.Hit, error)
}

type Handler struct {
	Service  *Service
	Research Researcher
	Wrapped  WrappedBuilder
	Library  LibrarySearcher
	Metrics  *Metrics
	MCP      http.Handler
	Logger   *slog.Logger
}

func NewHandler(s *Service, researcher Researcher, builder WrappedBuilder, lib LibrarySearcher) *Handler {
	return &Handler{
		Service:  s,
		Research: researcher,
		Wrapped:  builder,
		Library:  lib,
		Logger:   slog.Default(),
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	useJSONFieldNames()

	if h.MCP != nil {
		r.Any("/mcp", gin.WrapH(h.MCP))
	}
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		api.POST("/research", h.streamResearch)
		api.POST("/x-wrapped", h.xWrapped)
		api.GET("/library/search", h.searchLibrary)

		if h.Service != nil {
			api.POST("/research/jobs", h.createJob)
			api.GET("/research/jobs", h.listJobs)
			api.GET("/research/jobs/:id", h.getJob)
			api.GET("/research/jobs/:id/logs", h.getJobLogs)
		}
	}
}

type researchRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

func (h *Handler) streamResearch(c *gin.Context) {
	var req researchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startStream(c)
	final, err := h.Research.Run(c.Request.Context(), req.Prompt, sseSink(c.Writer))
	if h.Metrics != nil {
		h.Metrics.observeRun(err)
	}
	if err != nil {
		h.Logger.Error("Research stream failed", "error", err)
		_ = writeEvent(c.Writer, StreamEvent{Type: "error", Payload: err.Error()})
		return
	}
	_ = writeEvent(c.Writer, StreamEvent{Type: "result", Payload: final})
	_ = writeEvent(c.Writer, StreamEvent{Type: "done"})
}

type wrappedRequest struct {
	Username string `json:"username" binding:"required"`
	Year     *int   `json:"year" binding:"omitempty,min=2006,max=2100"`
}

func (h *Handler) xWrapped(c *gin.Context) {
	var req wrappedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": flattenErrors(err),
		})
		return
	}
	if wrapped.NormalizeUsername(req.Username) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request",
			"details": validationDetails{
				FormErrors:  []string{},
				FieldErrors: map[string][]string{"username": {"username is required"}},
			},
		})
		return
	}

	year := 0
	if req.Year != nil {
		year = *req.Year
	}
	summary, err := h.Wrapped.Build(c.Request.Context(), req.Username, year)
	if err != nil {
		h.Logger.Error("X-Wrapped failed", "username", req.Username, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

type validationDetails struct {
	FormErrors  []string            `json:"formErrors"`
	FieldErrors map[string][]string `json:"fieldErrors"`
}

// flattenErrors groups validator failures by JSON field name; anything else,
// such as malformed JSON, becomes a form error.
func flattenErrors(err error) validationDetails {
	details := validationDetails{FormErrors: []string{}, FieldErrors: map[string][]string{}}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		details.FormErrors = append(details.FormErrors, err.Error())
		return details
	}
	for _, fe := range verrs {
		field := fe.Field()
		details.FieldErrors[field] = append(details.FieldErrors[field], fieldMessage(field, fe))
	}
	return details
}

var registerFieldNames sync.Once

// useJSONFieldNames makes validation errors report json tag names.
func useJSONFieldNames() {
	registerFieldNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			switch name {
			case "-":
				return ""
			case "":
				return fld.Name
			}
			return name
		})
	})
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + fe.Param()
	case "max":
		return field + " must be at most " + fe.Param()
	default:
		return field + " is invalid"
	}
}

func (h *Handler) searchLibrary(c *gin.Context) {
	if h.Library == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "library is not configured"})
		return
	}
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	k, err := strconv.Atoi(c.DefaultQuery("k", "5"))
	if err != nil || k < 1 || k > 50 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "k must be between 1 and 50"})
		return
	}

	hits, err := h.Library.Search(c.Request.Context(), query, k, c.Query("job_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if hits == nil {
		hits = []library.Hit{}
	}
	c.JSON(http.StatusOK, hits)
}

func (h *Handler) createJob(c *gin.Context) {
	var req CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.Service.CreateJob(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, job)
}

func (h *Handler) listJobs(c *gin.Context) {
	jobs, err := h.Service.ListJobs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if jobs == nil {
		jobs = []Job{}
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *Handler) getJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}

	job, err := h.Service.GetJob(c.Request.Context(), id)
	if errors.Is(err, ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, job)
}

func (h *Handler) getJobLogs(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid"})
		return
	}

	logs, err := h.Service.GetJobLogs(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []LogEntry{}
	}
	c.JSON(http.StatusOK, logs)
}
