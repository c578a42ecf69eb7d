package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"deepfake-detector/internal/config"
	"deepfake-detector/internal/models"
	"deepfake-detector/internal/monitoring"
)

// DetectorService resolves the upload flow of a session and runs flow operations on it
type DetectorService struct {
	config     *config.Config
	logger     *zap.Logger
	predictor  Predictor
	predictURL string
	sessions   *SessionStore
	metrics    *monitoring.Metrics
	stats      *Stats
	statsMutex sync.RWMutex
}

// Stats keeps track of service statistics
type Stats struct {
	TotalScans          int64
	DeepfakesDetected   int64
	Failures            int64
	TotalProcessingTime time.Duration
}

// NewDetectorService creates a new detector service
func NewDetectorService(cfg *config.Config, predictor Predictor, metrics *monitoring.Metrics, logger *zap.Logger) *DetectorService {
	service := &DetectorService{
		config:     cfg,
		logger:     logger,
		predictor:  predictor,
		predictURL: cfg.PredictURL,
		metrics:    metrics,
		stats:      &Stats{},
	}

	service.sessions = NewSessionStore(cfg.SessionTTL, func() *UploadFlow {
		return NewUploadFlow(predictor, cfg.MaxFileSizeBytes(), logger)
	})

	return service
}

// IsReady checks if the service can forward analyses
func (s *DetectorService) IsReady() bool {
	return s.predictor != nil && s.predictURL != ""
}

// PredictURL returns the configured inference endpoint
func (s *DetectorService) PredictURL() string {
	return s.predictURL
}

// State returns the flow snapshot of a session
func (s *DetectorService) State(sessionID string) models.FlowState {
	return s.flow(sessionID).State()
}

// Accept offers a file to the session's flow and waits for its preview
func (s *DetectorService) Accept(ctx context.Context, sessionID string, in Input) (models.FlowState, error) {
	flow := s.flow(sessionID)

	img, err := flow.AcceptInput(in)
	if err != nil {
		s.metrics.IncUploads("rejected")
		s.metrics.IncErrors("validation")
		return flow.State(), err
	}
	s.metrics.IncUploads("accepted")

	if _, err := img.Preview(ctx); err != nil {
		// preview keeps rendering in the background; the state just won't carry it yet
		s.logger.Debug("Preview not ready before request ended", zap.Error(err))
	}

	return flow.State(), nil
}

// Reject records a file refused at the HTTP boundary on the session's flow
func (s *DetectorService) Reject(sessionID string, verr *ValidationError) models.FlowState {
	flow := s.flow(sessionID)
	flow.Reject(verr)

	s.metrics.IncUploads("rejected")
	s.metrics.IncErrors("validation")
	return flow.State()
}

// Clear resets the session's flow
func (s *DetectorService) Clear(sessionID string) models.FlowState {
	flow := s.flow(sessionID)
	flow.ClearSelection()
	return flow.State()
}

// Analyze submits the session's image and returns the settled result
func (s *DetectorService) Analyze(ctx context.Context, sessionID string) (*models.AnalyzeResponse, error) {
	flow := s.flow(sessionID)

	startTime := time.Now()
	verdict, err := flow.SubmitForAnalysis(ctx)
	elapsed := time.Since(startTime)

	if err != nil {
		var preconditionErr *PreconditionError
		if errors.As(err, &preconditionErr) {
			s.metrics.IncErrors("precondition")
			return nil, err
		}

		s.metrics.IncErrors("transport")
		s.metrics.ObserveAnalysis(elapsed.Seconds())
		s.updateStats(elapsed, false, true)
		s.logger.Warn("Analysis failed", zap.String("session", sessionID), zap.Error(err))
		return nil, err
	}

	label := "authentic"
	if verdict.Deepfake {
		label = "deepfake"
	}
	s.metrics.IncAnalyses(label)
	s.metrics.ObserveAnalysis(elapsed.Seconds())
	s.updateStats(elapsed, verdict.Deepfake, false)

	s.logger.Info("Analysis complete",
		zap.String("session", sessionID),
		zap.String("verdict", verdict.Label),
		zap.Bool("stale", verdict.Stale),
		zap.Duration("elapsed", elapsed))

	resp := &models.AnalyzeResponse{
		Verdict:          *verdict,
		State:            flow.State(),
		ProcessingTimeMs: elapsed.Milliseconds(),
	}
	if !verdict.Stale {
		notice := VerdictNotice(*verdict)
		resp.Notice = &notice
	}
	return resp, nil
}

// GetStats returns service statistics
func (s *DetectorService) GetStats() *models.StatsResponse {
	s.statsMutex.RLock()
	defer s.statsMutex.RUnlock()

	var avgResponseTimeMs float64
	if s.stats.TotalScans > 0 {
		avgResponseTimeMs = float64(s.stats.TotalProcessingTime.Milliseconds()) / float64(s.stats.TotalScans)
	}

	return &models.StatsResponse{
		TotalScans:        s.stats.TotalScans,
		DeepfakesDetected: s.stats.DeepfakesDetected,
		Failures:          s.stats.Failures,
		ActiveSessions:    s.sessions.Count(),
		AvgResponseTimeMs: avgResponseTimeMs,
	}
}

func (s *DetectorService) flow(sessionID string) *UploadFlow {
	flow := s.sessions.Get(sessionID)
	s.metrics.SetActiveSessions(s.sessions.Count())
	return flow
}

// updateStats updates service statistics
func (s *DetectorService) updateStats(processingTime time.Duration, deepfake, failed bool) {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	s.stats.TotalScans++
	s.stats.TotalProcessingTime += processingTime
	if deepfake {
		s.stats.DeepfakesDetected++
	}
	if failed {
		s.stats.Failures++
	}
}
