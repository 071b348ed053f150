package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/browser"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/cookies"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/session"
)

// NavigateRequest points the view at a new URL.
type NavigateRequest struct {
	URL     string `json:"url" binding:"required"`
	BaseURL string `json:"baseurl"`
}

// ModeRequest switches the interaction mode.
type ModeRequest struct {
	Mode browser.Mode `json:"mode" binding:"required"`
}

// CSSRequest toggles stylesheet mirroring.
type CSSRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// IdentityRequest sets the project/spider pair.
type IdentityRequest struct {
	Project string `json:"project"`
	Spider  string `json:"spider"`
}

// Status reports the live session.
func (h *Handlers) Status(c *gin.Context) {
	sess, ok := h.current(c)
	if !ok {
		return
	}
	st, err := sess.Status(c.Request.Context())
	if err != nil {
		fail(c, statusOf(err), err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Navigate sets the navigation target and waits for it to be evaluated.
func (h *Handlers) Navigate(c *gin.Context) {
	var req NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if !session.ValidURL(req.URL) {
		fail(c, http.StatusBadRequest, errors.New("invalid url"))
		return
	}
	sess, ok := h.current(c)
	if !ok {
		return
	}

	sess.Navigate(req.URL, req.BaseURL)
	if err := sess.Flush(c.Request.Context()); err != nil {
		fail(c, statusOf(err), err)
		return
	}
	h.Status(c)
}

// Reload loads the current target again. While the reconnect indicator is
// shown this is the user's confirmation to retry a failing URL.
func (h *Handlers) Reload(c *gin.Context) {
	sess, ok := h.current(c)
	if !ok {
		return
	}
	if err := sess.Reload(c.Request.Context()); err != nil {
		h.logger.Info("reload refused",
			zap.String("trace_id", string(tracing.FromContext(c.Request.Context()))),
			zap.Error(err),
		)
		c.JSON(statusOf(err), gin.H{
			"success":   false,
			"error":     err.Error(),
			"indicator": h.state.Indicator(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "browser": h.state.Snapshot()})
}

// Reconnect dials the remote session immediately.
func (h *Handlers) Reconnect(c *gin.Context) {
	sess, ok := h.current(c)
	if !ok {
		return
	}
	if err := sess.Reconnect(c.Request.Context()); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, session.ErrDetached) {
			status = http.StatusServiceUnavailable
		}
		fail(c, status, err)
		return
	}
	if err := sess.Flush(c.Request.Context()); err != nil {
		fail(c, statusOf(err), err)
		return
	}
	h.Status(c)
}

// DismissIndicator hides the reconnect indicator without reloading.
func (h *Handlers) DismissIndicator(c *gin.Context) {
	h.state.SetIndicator("")
	c.Status(http.StatusNoContent)
}

// SetMode switches between navigation and annotation.
func (h *Handlers) SetMode(c *gin.Context) {
	var req ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if !req.Mode.Valid() {
		fail(c, http.StatusBadRequest, errors.New("unknown mode "+string(req.Mode)))
		return
	}
	h.state.SetMode(req.Mode)
	c.JSON(http.StatusOK, gin.H{"success": true, "mode": req.Mode})
}

// SetCSS toggles stylesheet mirroring for documents built afterwards.
func (h *Handlers) SetCSS(c *gin.Context) {
	var req CSSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	h.state.SetCSSEnabled(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"success": true, "css_enabled": *req.Enabled})
}

// SetIdentity changes the project/spider pair used for cookies and
// interaction messages.
func (h *Handlers) SetIdentity(c *gin.Context) {
	var req IdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	identity := cookies.Identity{Project: req.Project, Spider: req.Spider}
	h.state.SetIdentity(identity)
	c.JSON(http.StatusOK, gin.H{"success": true, "identity": identity})
}
