package services

import (
	"fmt"

	"deepfake-detector/internal/models"
)

// User-visible notices.
const (
	MsgNotAnImage      = "Please select an image file (.jpg, .png, etc.)"
	MsgEmptyFile       = "The selected file is empty"
	MsgNoImage         = "Please upload an image to analyze"
	MsgAlreadyPending  = "An analysis is already in progress"
	MsgAnalysisFailed  = "Error analyzing the image."
	MsgDeepfakeNotice  = "Analysis complete! Deepfake detected!"
	MsgAuthenticNotice = "Analysis complete! Image is authentic."
)

// Noticer is implemented by every flow error so the boundary can show it to the user.
type Noticer interface {
	Notice() models.Notice
}

// ValidationReason tells why a file was rejected
type ValidationReason int

const (
	ReasonNotImage ValidationReason = iota
	ReasonEmpty
	ReasonTooLarge
)

// ValidationError reports a rejected input file.
type ValidationError struct {
	Reason      ValidationReason
	ContentType string
	Size        int64
	Message     string
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonTooLarge:
		return fmt.Sprintf("validation failed: file of %d bytes exceeds the upload limit", e.Size)
	case ReasonEmpty:
		return "validation failed: empty file"
	default:
		return fmt.Sprintf("validation failed: content type %q is not an image", e.ContentType)
	}
}

func (e *ValidationError) Notice() models.Notice {
	return models.Notice{Level: models.NoticeError, Message: e.Message}
}

// PreconditionError reports an analysis triggered without an image or while one is pending.
type PreconditionError struct {
	Pending bool
}

func (e *PreconditionError) Error() string {
	if e.Pending {
		return "precondition failed: analysis already pending"
	}
	return "precondition failed: no image selected"
}

func (e *PreconditionError) Notice() models.Notice {
	if e.Pending {
		return models.Notice{Level: models.NoticeError, Message: MsgAlreadyPending}
	}
	return models.Notice{Level: models.NoticeError, Message: MsgNoImage}
}

// TransportError reports a failed call to the inference endpoint.
// StatusCode is zero when no response was received.
type TransportError struct {
	StatusCode int
	Malformed  bool
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Malformed:
		return fmt.Sprintf("transport failed: malformed prediction response: %v", e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("transport failed: unexpected status code %d", e.StatusCode)
	default:
		return fmt.Sprintf("transport failed: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Notice() models.Notice {
	return models.Notice{Level: models.NoticeError, Message: MsgAnalysisFailed}
}
