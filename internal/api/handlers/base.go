package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/sitebuy-backend/internal/api/dto"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
	"github.com/eshaffer321/sitebuy-backend/internal/infrastructure/storage"
)

// Base provides shared functionality for all handlers.
type Base struct {
	logger *slog.Logger
}

// NewBase creates a new base handler.
func NewBase(logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{logger: logger}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// WriteError maps a service error onto a status code and APIError body.
func (b *Base) WriteError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.NotFoundError(err.Error()))
	case errors.Is(err, procurement.ErrInvalidTransition):
		c.JSON(http.StatusConflict, dto.ConflictError(err.Error()))
	case errors.Is(err, procurement.ErrValidation):
		c.JSON(http.StatusBadRequest, dto.ValidationError(err.Error()))
	default:
		b.logger.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
	}
}

// Bind decodes the JSON body into req and writes a 400 when it is
// malformed or fails its binding rules.
func (b *Base) Bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return false
	}
	return true
}

// BindOptional is Bind for bodies that may be absent.
func (b *Base) BindOptional(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return b.Bind(c, req)
}

// ParseBoolParam parses a boolean query parameter with a default value.
func ParseBoolParam(c *gin.Context, name string, defaultVal bool) bool {
	val := c.Query(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}
