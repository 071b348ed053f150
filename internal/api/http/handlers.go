package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/browser"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/session"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/surface"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	manager *session.Manager
	state   *browser.State
	surface *surface.Headless
	logger  *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(manager *session.Manager, state *browser.State, s *surface.Headless, logger *logging.Logger) *Handlers {
	return &Handlers{
		manager: manager,
		state:   state,
		surface: s,
		logger:  logging.OrNop(logger).Named("api"),
	}
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/health", h.Health)
	r.GET("/status", h.Status)

	r.POST("/navigate", h.Navigate)
	r.POST("/reload", h.Reload)
	r.POST("/reconnect", h.Reconnect)
	r.DELETE("/indicator", h.DismissIndicator)
	r.PUT("/mode", h.SetMode)
	r.PUT("/css", h.SetCSS)
	r.PUT("/identity", h.SetIdentity)

	r.POST("/events", h.DispatchEvent)
	r.GET("/document", h.Document)
	r.GET("/document/query", h.QueryDocument)
}

// Health handles health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "browsersync",
		"attached": h.manager.Current() != nil,
	})
}

// current returns the live session or writes 503.
func (h *Handlers) current(c *gin.Context) (*session.Session, bool) {
	sess := h.manager.Current()
	if sess == nil {
		fail(c, http.StatusServiceUnavailable, session.ErrDetached)
		return nil, false
	}
	return sess, true
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

// statusOf maps session errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, session.ErrDetached):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrURLBlocked), errors.Is(err, session.ErrURLFailing):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
