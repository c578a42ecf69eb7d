package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"deepfake-detector/internal/models"
)

// InputSource tells how the file reached the page. Both sources are handled identically.
type InputSource string

const (
	SourceDrop   InputSource = "drop"
	SourcePicker InputSource = "picker"
)

// Input is one file offered to the flow
type Input struct {
	Source      InputSource
	FileName    string
	ContentType string
	Data        []byte
}

// PendingImage is the currently selected file
type PendingImage struct {
	FileName    string
	ContentType string
	Data        []byte
	Generation  uint64

	previewDone chan struct{}
	preview     string
}

// Size returns the payload length in bytes
func (p *PendingImage) Size() int64 {
	return int64(len(p.Data))
}

// Preview waits for the data URL derived from the image bytes
func (p *PendingImage) Preview(ctx context.Context) (string, error) {
	select {
	case <-p.previewDone:
		return p.preview, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *PendingImage) previewIfReady() (string, bool) {
	select {
	case <-p.previewDone:
		return p.preview, true
	default:
		return "", false
	}
}

func (p *PendingImage) payload() Payload {
	return Payload{FileName: p.FileName, ContentType: p.ContentType, Data: p.Data}
}

type analysisRequest struct {
	generation uint64
	startedAt  time.Time
}

// UploadFlow owns the lifecycle of one user-submitted image: acceptance, preview,
// submission to the predictor and the resulting verdict. At most one analysis is in
// flight at a time.
type UploadFlow struct {
	predictor Predictor
	maxBytes  int64
	logger    *zap.Logger

	mu         sync.Mutex
	image      *PendingImage
	verdict    *models.Verdict
	request    *analysisRequest
	notice     *models.Notice
	generation uint64
	resetToken uint64
}

// NewUploadFlow creates an empty flow. maxBytes <= 0 disables the size check.
func NewUploadFlow(predictor Predictor, maxBytes int64, logger *zap.Logger) *UploadFlow {
	return &UploadFlow{
		predictor: predictor,
		maxBytes:  maxBytes,
		logger:    logger,
	}
}

// AcceptInput validates a file and makes it the selected image. A rejected file leaves
// the previous selection untouched.
func (f *UploadFlow) AcceptInput(in Input) (*PendingImage, error) {
	contentType := resolveContentType(in.ContentType, in.Data)

	var verr *ValidationError
	switch {
	case !strings.HasPrefix(contentType, "image/"):
		verr = &ValidationError{Reason: ReasonNotImage, ContentType: contentType, Size: int64(len(in.Data)), Message: MsgNotAnImage}
	case len(in.Data) == 0:
		verr = &ValidationError{Reason: ReasonEmpty, ContentType: contentType, Message: MsgEmptyFile}
	case f.maxBytes > 0 && int64(len(in.Data)) > f.maxBytes:
		verr = &ValidationError{
			Reason:      ReasonTooLarge,
			ContentType: contentType,
			Size:        int64(len(in.Data)),
			Message:     fmt.Sprintf("The selected file exceeds the %d MB limit", f.maxBytes/(1024*1024)),
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if verr != nil {
		notice := verr.Notice()
		f.notice = &notice
		f.logger.Debug("Rejected input",
			zap.String("source", string(in.Source)),
			zap.String("content_type", contentType),
			zap.Error(verr))
		return nil, verr
	}

	f.generation++
	img := &PendingImage{
		FileName:    in.FileName,
		ContentType: contentType,
		Data:        in.Data,
		Generation:  f.generation,
		previewDone: make(chan struct{}),
	}
	go derivePreview(img)

	f.image = img
	f.verdict = nil
	f.notice = nil

	f.logger.Debug("Accepted input",
		zap.String("source", string(in.Source)),
		zap.String("file_name", in.FileName),
		zap.Uint64("generation", img.Generation))

	return img, nil
}

// Reject records a file refused before it reached AcceptInput, such as a body cut off by
// the server's size limit. The current selection is untouched.
func (f *UploadFlow) Reject(verr *ValidationError) {
	f.mu.Lock()
	defer f.mu.Unlock()

	notice := verr.Notice()
	f.notice = &notice
	f.logger.Debug("Rejected input before acceptance", zap.Error(verr))
}

// ClearSelection discards the image and any verdict and resets the input control
func (f *UploadFlow) ClearSelection() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.image = nil
	f.verdict = nil
	f.notice = nil
	f.resetToken++
}

// SubmitForAnalysis sends the selected image to the predictor and waits for the verdict.
// The call is detached from ctx cancellation: a submitted analysis cannot be aborted.
// When the image was replaced or cleared meanwhile the verdict comes back with Stale set
// and the flow keeps neither it nor its notice.
func (f *UploadFlow) SubmitForAnalysis(ctx context.Context) (*models.Verdict, error) {
	f.mu.Lock()
	if f.image == nil || f.request != nil {
		err := &PreconditionError{Pending: f.request != nil}
		notice := err.Notice()
		f.notice = &notice
		f.mu.Unlock()
		return nil, err
	}

	img := f.image
	f.request = &analysisRequest{generation: img.Generation, startedAt: time.Now()}
	f.verdict = nil
	f.mu.Unlock()

	defer f.settle()

	prediction, err := f.predict(context.WithoutCancel(ctx), img.payload())
	if err != nil {
		var transportErr *TransportError
		if !errors.As(err, &transportErr) {
			transportErr = &TransportError{Err: err}
		}
		f.setNotice(transportErr.Notice())
		return nil, transportErr
	}

	verdict := NewVerdict(prediction.Deepfake, img.Generation)

	f.mu.Lock()
	// A verdict for an image that is no longer selected is never shown, nor is its notice
	if f.image != nil && f.image.Generation == img.Generation {
		f.verdict = &verdict
		notice := VerdictNotice(verdict)
		f.notice = &notice
	} else {
		verdict.Stale = true
		f.logger.Debug("Discarding verdict for replaced image", zap.Uint64("generation", img.Generation))
	}
	f.mu.Unlock()

	return &verdict, nil
}

// predict converts a predictor panic into a transport error so the flow stays usable
func (f *UploadFlow) predict(ctx context.Context, payload Payload) (prediction *Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("Predictor panicked", zap.Any("panic", r))
			prediction, err = nil, &TransportError{Err: fmt.Errorf("predictor panic: %v", r)}
		}
	}()

	prediction, err = f.predictor.Predict(ctx, payload)
	if err == nil && prediction == nil {
		err = &TransportError{Err: errors.New("predictor returned no result")}
	}
	return prediction, err
}

func (f *UploadFlow) settle() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.request != nil {
		f.logger.Debug("Analysis settled",
			zap.Uint64("generation", f.request.generation),
			zap.Duration("elapsed", time.Since(f.request.startedAt)))
	}
	f.request = nil
}

func (f *UploadFlow) setNotice(n models.Notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notice = &n
}

// Pending reports whether an analysis is in flight
func (f *UploadFlow) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.request != nil
}

// Image returns the selected image, or nil
func (f *UploadFlow) Image() *PendingImage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.image
}

// Verdict returns the verdict for the selected image, or nil
func (f *UploadFlow) Verdict() *models.Verdict {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.verdict == nil {
		return nil
	}
	v := *f.verdict
	return &v
}

// State returns a snapshot for rendering
func (f *UploadFlow) State() models.FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()

	state := models.FlowState{
		Pending:         f.request != nil,
		InputResetToken: f.resetToken,
	}

	if f.image != nil {
		preview, ready := f.image.previewIfReady()
		state.Image = &models.ImageInfo{
			FileName:    f.image.FileName,
			ContentType: f.image.ContentType,
			Size:        f.image.Size(),
			Generation:  f.image.Generation,
			Preview:     preview,
		}
		// the page enables the button once the preview is showing
		state.TriggerEnabled = ready && f.request == nil
	}
	if f.verdict != nil {
		v := *f.verdict
		state.Verdict = &v
	}
	if f.notice != nil {
		n := *f.notice
		state.Notice = &n
	}

	return state
}

func derivePreview(img *PendingImage) {
	defer close(img.previewDone)
	img.preview = "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// resolveContentType trusts the declared media type and falls back to sniffing the bytes
// when the client did not declare one
func resolveContentType(declared string, data []byte) string {
	mediaType := stripParams(declared)
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType = stripParams(mimetype.Detect(data).String())
	}
	return mediaType
}

func stripParams(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
