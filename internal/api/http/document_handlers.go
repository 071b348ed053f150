package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/dom"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/surface"
)

var errNoDocument = errors.New("no mirrored document")

// DispatchEvent delivers a local input event to the headless surface, as if
// the user had interacted with the mirrored page.
func (h *Handlers) DispatchEvent(c *gin.Context) {
	var ev surface.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if ev.Type == "" {
		fail(c, http.StatusBadRequest, errors.New("event type required"))
		return
	}
	if err := h.surface.Dispatch(&ev); err != nil {
		fail(c, http.StatusConflict, err)
		return
	}
	if sess := h.manager.Current(); sess != nil {
		if err := sess.Flush(c.Request.Context()); err != nil {
			fail(c, statusOf(err), err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"default_prevented":   ev.DefaultPrevented(),
		"propagation_stopped": ev.PropagationStopped(),
	})
}

func (h *Handlers) document(c *gin.Context) (*dom.Document, bool) {
	doc := h.state.Document()
	if doc == nil {
		fail(c, http.StatusNotFound, errNoDocument)
		return nil, false
	}
	return doc, true
}

// Document renders the mirrored document as HTML. sanitize=true strips it
// down to user-generated-content markup.
func (h *Handlers) Document(c *gin.Context) {
	doc, ok := h.document(c)
	if !ok {
		return
	}

	render := doc.HTML
	if c.Query("sanitize") == "true" {
		render = doc.SanitizedHTML
	}
	out, err := render()
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(out))
}

// QueryDocument selects nodes of the mirrored document by CSS selector or
// XPath expression.
func (h *Handlers) QueryDocument(c *gin.Context) {
	css, xpath := c.Query("css"), c.Query("xpath")
	if (css == "") == (xpath == "") {
		fail(c, http.StatusBadRequest, errors.New("exactly one of css or xpath is required"))
		return
	}
	doc, ok := h.document(c)
	if !ok {
		return
	}

	var (
		matches []dom.Match
		err     error
	)
	if css != "" {
		matches, err = doc.Find(css)
	} else {
		matches, err = doc.XPath(xpath)
	}
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	if matches == nil {
		matches = []dom.Match{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(matches), "matches": matches})
}
