package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"deepfake-detector/internal/models"
	"deepfake-detector/internal/navigation"
)

// NavigationHandler answers which navbar entry to highlight for a scroll offset
type NavigationHandler struct {
	validate *validator.Validate
}

// NewNavigationHandler creates a new navigation handler
func NewNavigationHandler() *NavigationHandler {
	return &NavigationHandler{validate: validator.New()}
}

// Active returns the active section for ?offset=N&current=id&layout=id:top:height,...
func (h *NavigationHandler) Active(c *gin.Context) {
	var req models.NavigationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid query: " + err.Error(),
		})
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Validation failed: " + err.Error(),
		})
		return
	}

	layout, err := navigation.ParseLayout(req.Layout)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid layout: " + err.Error(),
		})
		return
	}

	current := req.Current
	if current == "" {
		current = navigation.DefaultLayout[0].ID
	}

	c.JSON(http.StatusOK, models.NavigationResponse{
		Active:        navigation.ActiveSection(req.Offset, layout, current),
		Scrolled:      navigation.Scrolled(req.Offset),
		ScrollTargets: navigation.ScrollTargets(layout),
	})
}
