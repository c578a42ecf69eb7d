package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"deepfake-detector/internal/models"
)

// PredictionField is the response field carrying the classification.
const PredictionField = "prediction"

var errPredictionMissing = errors.New("prediction field missing")

// Truthy reports whether a raw JSON value is truthy under JavaScript rules:
// false, 0, "", null and an absent value are falsy, everything else is truthy.
func Truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}

	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		// NaN cannot appear in JSON, so only zero is falsy
		return v != 0
	case string:
		return v != ""
	default:
		// objects and arrays, even empty ones
		return true
	}
}

// ParsePrediction extracts the classification from a response body. In strict mode a
// missing or non-boolean field is an error instead of falling through to falsy.
func ParsePrediction(body []byte, strict bool) (bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return false, fmt.Errorf("failed to decode prediction response: %w", err)
	}

	raw, ok := fields[PredictionField]
	if !strict {
		return Truthy(raw), nil
	}
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return false, errPredictionMissing
	}

	var prediction bool
	if err := json.Unmarshal(raw, &prediction); err != nil {
		return false, fmt.Errorf("prediction field is not a boolean: %s", raw)
	}
	return prediction, nil
}

// NewVerdict derives the verdict label from a classification.
func NewVerdict(deepfake bool, generation uint64) models.Verdict {
	label := models.LabelAuthentic
	if deepfake {
		label = models.LabelDeepfake
	}
	return models.Verdict{Label: label, Deepfake: deepfake, Generation: generation}
}

// VerdictNotice is the success notice echoing a verdict.
func VerdictNotice(v models.Verdict) models.Notice {
	message := MsgAuthenticNotice
	if v.Deepfake {
		message = MsgDeepfakeNotice
	}
	return models.Notice{Level: models.NoticeSuccess, Message: message}
}
