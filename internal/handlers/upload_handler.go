package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"deepfake-detector/internal/middleware"
	"deepfake-detector/internal/models"
	"deepfake-detector/internal/services"
)

// UploadForm carries the optional fields sent along with the file
type UploadForm struct {
	Source string `form:"source" validate:"omitempty,oneof=drop picker"`
}

// UploadHandler exposes the upload flow of the caller's session
type UploadHandler struct {
	service  *services.DetectorService
	validate *validator.Validate
	maxBytes int64
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(service *services.DetectorService, maxBytes int64) *UploadHandler {
	return &UploadHandler{
		service:  service,
		validate: validator.New(),
		maxBytes: maxBytes,
	}
}

// State returns the current flow state
func (h *UploadHandler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.State(middleware.SessionID(c)))
}

// Upload accepts a multipart file from the drop area or the file picker
func (h *UploadHandler) Upload(c *gin.Context) {
	// leave room for the multipart envelope around the file
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)

	file, err := c.FormFile(services.UploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			verr := &services.ValidationError{
				Reason:  services.ReasonTooLarge,
				Size:    maxErr.Limit,
				Message: fmt.Sprintf("The selected file exceeds the %d MB limit", h.maxBytes/(1024*1024)),
			}
			h.service.Reject(middleware.SessionID(c), verr)
			writeFlowError(c, verr)
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Failed to get file from form: " + err.Error(),
		})
		return
	}

	var form UploadForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid form: " + err.Error(),
		})
		return
	}
	if err := h.validate.Struct(&form); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Validation failed: " + err.Error(),
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to open file: " + err.Error(),
		})
		return
	}
	defer src.Close()

	// one byte past the limit is enough for the flow to reject it
	data, err := io.ReadAll(io.LimitReader(src, h.maxBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: "Failed to read file: " + err.Error(),
		})
		return
	}

	source := services.SourcePicker
	if form.Source != "" {
		source = services.InputSource(form.Source)
	}

	state, err := h.service.Accept(c.Request.Context(), middleware.SessionID(c), services.Input{
		Source:      source,
		FileName:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeFlowError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.UploadResponse{State: state})
}

// Clear discards the selected image and any verdict
func (h *UploadHandler) Clear(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Clear(middleware.SessionID(c)))
}

// Analyze submits the selected image and waits until the analysis settles
func (h *UploadHandler) Analyze(c *gin.Context) {
	resp, err := h.service.Analyze(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		writeFlowError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// writeFlowError maps flow error kinds to status codes and attaches the user notice
func writeFlowError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var (
		validationErr   *services.ValidationError
		preconditionErr *services.PreconditionError
		transportErr    *services.TransportError
	)
	switch {
	case errors.As(err, &validationErr):
		switch validationErr.Reason {
		case services.ReasonTooLarge:
			status = http.StatusRequestEntityTooLarge
		case services.ReasonNotImage:
			status = http.StatusUnsupportedMediaType
		default:
			status = http.StatusBadRequest
		}
	case errors.As(err, &preconditionErr):
		status = http.StatusConflict
	case errors.As(err, &transportErr):
		status = http.StatusBadGateway
	}

	resp := models.ErrorResponse{Error: err.Error()}
	var noticer services.Noticer
	if errors.As(err, &noticer) {
		notice := noticer.Notice()
		resp.Notice = &notice
	}

	c.JSON(status, resp)
}
