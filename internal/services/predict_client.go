package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"deepfake-detector/internal/config"
)

const (
	// UploadField is the multipart field the inference endpoint reads the image from.
	UploadField = "file"

	maxResponseBytes = 1 << 20
)

// Payload is the image sent for analysis
type Payload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Prediction is the decoded answer of the inference endpoint
type Prediction struct {
	Deepfake       bool
	ProcessingTime time.Duration
}

// Predictor classifies one image. Implementations return *TransportError on failure.
type Predictor interface {
	Predict(ctx context.Context, payload Payload) (*Prediction, error)
}

// PredictClient calls the remote /predict endpoint
type PredictClient struct {
	url        string
	strict     bool
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewPredictClient creates a client for the configured inference endpoint
func NewPredictClient(cfg *config.Config, logger *zap.Logger) *PredictClient {
	return &PredictClient{
		url:        cfg.PredictURL,
		strict:     cfg.StrictPrediction,
		timeout:    cfg.PredictTimeout,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Limit(cfg.PredictRatePerSec), cfg.PredictBurst),
		logger:     logger,
	}
}

// URL returns the endpoint the client posts to
func (c *PredictClient) URL() string {
	return c.url
}

// Predict posts the image as multipart form data and decodes the classification
func (c *PredictClient) Predict(ctx context.Context, payload Payload) (*Prediction, error) {
	startTime := time.Now()

	// Outbound calls share one budget across all sessions
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("rate limiter: %w", err)}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, contentType, err := encodeMultipart(payload)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Sending image for analysis",
		zap.String("url", c.url),
		zap.String("file_name", payload.FileName),
		zap.Int("size", len(payload.Data)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Inference request failed", zap.Error(err))
		return nil, &TransportError{Err: fmt.Errorf("failed to call inference endpoint: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		c.logger.Warn("Inference endpoint returned an error status", zap.Int("status_code", resp.StatusCode))
		return nil, &TransportError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	deepfake, err := ParsePrediction(data, c.strict)
	if err != nil {
		c.logger.Warn("Malformed prediction response", zap.Error(err))
		return nil, &TransportError{Malformed: true, Err: err}
	}

	return &Prediction{
		Deepfake:       deepfake,
		ProcessingTime: time.Since(startTime),
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart builds a form with a single file field, keeping the declared content type
func encodeMultipart(payload Payload) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileName := payload.FileName
	if fileName == "" {
		fileName = "upload"
	}
	contentType := payload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, UploadField, quoteEscaper.Replace(fileName)))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(payload.Data); err != nil {
		return nil, "", fmt.Errorf("failed to write form part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}
