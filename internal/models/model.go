package models

// Verdict labels shown to the user.
const (
	LabelDeepfake  = "Deepfake Detected"
	LabelAuthentic = "Authentic Image"
)

// Notice levels, the server-side rendition of a toast.
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// Verdict is the outcome of one completed analysis
type Verdict struct {
	Label      string `json:"label"`
	Deepfake   bool   `json:"deepfake"`
	Generation uint64 `json:"generation"`
	// Stale marks a verdict for an image that is no longer selected
	Stale bool `json:"stale,omitempty"`
}

// Notice is a transient user-visible message
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// ImageInfo describes the currently selected image without its bytes
type ImageInfo struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Generation  uint64 `json:"generation"`
	Preview     string `json:"preview,omitempty"`
}

// FlowState is a snapshot of one upload flow, enough for the page to render itself
type FlowState struct {
	Image           *ImageInfo `json:"image,omitempty"`
	Pending         bool       `json:"pending"`
	Verdict         *Verdict   `json:"verdict,omitempty"`
	TriggerEnabled  bool       `json:"trigger_enabled"`
	InputResetToken uint64     `json:"input_reset_token"`
	Notice          *Notice    `json:"notice,omitempty"`
}

// UploadResponse is returned after an image has been accepted
type UploadResponse struct {
	State FlowState `json:"state"`
}

// AnalyzeResponse is returned after an analysis has settled successfully.
// Notice is omitted for a stale verdict.
type AnalyzeResponse struct {
	Verdict          Verdict   `json:"verdict"`
	Notice           *Notice   `json:"notice,omitempty"`
	State            FlowState `json:"state"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
}

// NavigationRequest carries the page scroll offset
type NavigationRequest struct {
	Offset  int    `form:"offset" validate:"min=0"`
	Current string `form:"current" validate:"omitempty,oneof=hero upload howto about"`
	Layout  string `form:"layout" validate:"max=512"`
}

// NavigationResponse represents the highlighted navigation entry
type NavigationResponse struct {
	Active        string         `json:"active"`
	Scrolled      bool           `json:"scrolled"`
	ScrollTargets map[string]int `json:"scroll_targets"`
}

// StatsResponse represents statistics response
type StatsResponse struct {
	TotalScans        int64   `json:"total_scans"`
	DeepfakesDetected int64   `json:"deepfakes_detected"`
	Failures          int64   `json:"failures"`
	ActiveSessions    int     `json:"active_sessions"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status     string `json:"status"`
	PredictURL string `json:"predict_url"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error  string  `json:"error"`
	Notice *Notice `json:"notice,omitempty"`
}
