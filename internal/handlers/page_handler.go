package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"deepfake-detector/internal/navigation"
	"deepfake-detector/internal/web"
)

// PageHandler renders the landing page
type PageHandler struct {
	maxSizeMB int64
	now       func() time.Time
}

// NewPageHandler creates a new page handler
func NewPageHandler(maxSizeMB int64) *PageHandler {
	return &PageHandler{
		maxSizeMB: maxSizeMB,
		now:       time.Now,
	}
}

// Index renders the landing page. The engine must have web.Templates loaded.
func (h *PageHandler) Index(c *gin.Context) {
	nav := make([]web.NavItem, 0, len(navigation.DefaultLayout))
	for i, s := range navigation.DefaultLayout {
		nav = append(nav, web.NavItem{ID: s.ID, Label: s.Label, Active: i == 0})
	}

	c.HTML(http.StatusOK, web.IndexTemplate, web.Page{
		Nav:        nav,
		MaxSizeMB:  h.maxSizeMB,
		Steps:      web.Steps,
		Features:   web.Features,
		Year:       h.now().Year(),
		UploadHint: fmt.Sprintf("JPEG, PNG, or GIF (Max %dMB)", h.maxSizeMB),
	})
}
