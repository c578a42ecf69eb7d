package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deepfake-detector/internal/models"
)

func TestAcceptInput_RejectsNonImages(t *testing.T) {
	tests := []struct {
		name  string
		input Input
	}{
		{"plain text", textInput()},
		{"pdf", Input{FileName: "doc.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7")}},
		{"json with params", Input{FileName: "a.json", ContentType: "application/json; charset=utf-8", Data: []byte("{}")}},
		{"undeclared text", Input{FileName: "notes", Data: []byte("just some words")}},
		{"octet stream text", Input{FileName: "blob", ContentType: "application/octet-stream", Data: []byte("just some words")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := newTestFlow(&stubPredictor{})
			previous, err := flow.AcceptInput(pngInput())
			require.NoError(t, err)
			waitPreview(t, previous)

			img, err := flow.AcceptInput(tt.input)

			require.Error(t, err)
			assert.Nil(t, img)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, ReasonNotImage, verr.Reason)
			assert.Equal(t, MsgNotAnImage, verr.Notice().Message)

			// previous selection untouched
			assert.Same(t, previous, flow.Image())
			state := flow.State()
			require.NotNil(t, state.Notice)
			assert.Equal(t, models.NoticeError, state.Notice.Level)
			assert.Equal(t, MsgNotAnImage, state.Notice.Message)
		})
	}
}

func TestAcceptInput_TextFileNeverReachesPredictor(t *testing.T) {
	predictor := &stubPredictor{}
	flow := newTestFlow(predictor)

	_, err := flow.AcceptInput(textInput())
	require.Error(t, err)

	state := flow.State()
	assert.Nil(t, state.Image, "no preview for a rejected file")
	assert.False(t, state.TriggerEnabled)

	_, err = flow.SubmitForAnalysis(context.Background())
	var perr *PreconditionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 0, predictor.callCount())
}

func TestAcceptInput_SizeLimits(t *testing.T) {
	flow := NewUploadFlow(&stubPredictor{}, 1024, zapNop())

	_, err := flow.AcceptInput(Input{FileName: "empty.png", ContentType: "image/png"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonEmpty, verr.Reason)
	assert.Equal(t, MsgEmptyFile, verr.Message)

	_, err = flow.AcceptInput(jpegInput(2048))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonTooLarge, verr.Reason)
	assert.Equal(t, int64(2048), verr.Size)

	img, err := flow.AcceptInput(jpegInput(1024))
	require.NoError(t, err)
	waitPreview(t, img)
}

func TestAcceptInput_SniffsUndeclaredType(t *testing.T) {
	flow := newTestFlow(&stubPredictor{})

	img, err := flow.AcceptInput(Input{Source: SourceDrop, FileName: "face", Data: pngHeader})

	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.True(t, isDataURL(waitPreview(t, img), "image/png"))
}

func TestAcceptInput_DerivesPreview(t *testing.T) {
	flow := newTestFlow(&stubPredictor{})

	img, err := flow.AcceptInput(pngInput())
	require.NoError(t, err)

	preview := waitPreview(t, img)
	assert.True(t, isDataURL(preview, "image/png"))

	state := flow.State()
	require.NotNil(t, state.Image)
	assert.Equal(t, preview, state.Image.Preview)
	assert.Equal(t, "face.png", state.Image.FileName)
	assert.Equal(t, int64(len(pngHeader)), state.Image.Size)
	assert.True(t, state.TriggerEnabled)
}

func TestAcceptInput_ReplacesImageAndClearsVerdict(t *testing.T) {
	predictor := &stubPredictor{result: &Prediction{Deepfake: true}}
	flow := newTestFlow(predictor)

	first, err := flow.AcceptInput(pngInput())
	require.NoError(t, err)
	waitPreview(t, first)

	_, err = flow.SubmitForAnalysis(context.Background())
	require.NoError(t, err)
	require.NotNil(t, flow.Verdict())

	second, err := flow.AcceptInput(jpegInput(4096))
	require.NoError(t, err)
	waitPreview(t, second)

	assert.Same(t, second, flow.Image())
	assert.Greater(t, second.Generation, first.Generation)
	assert.Nil(t, flow.Verdict())
	assert.Nil(t, flow.State().Verdict)
}

func TestSubmitForAnalysis_NoImage(t *testing.T) {
	predictor := &stubPredictor{result: &Prediction{}}
	flow := newTestFlow(predictor)

	verdict, err := flow.SubmitForAnalysis(context.Background())

	assert.Nil(t, verdict)
	var perr *PreconditionError
	require.ErrorAs(t, err, &perr)
	assert.False(t, perr.Pending)
	assert.Equal(t, MsgNoImage, perr.Notice().Message)
	assert.Equal(t, 0, predictor.callCount())
	assert.False(t, flow.Pending())
}

func TestSubmitForAnalysis_WhilePending(t *testing.T) {
	predictor := blockingPredictor(&Prediction{Deepfake: false})
	flow := newTestFlow(predictor)

	img, err := flow.AcceptInput(pngInput())
	require.NoError(t, err)
	waitPreview(t, img)

	type outcome struct {
		verdict *models.Verdict
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := flow.SubmitForAnalysis(context.Background())
		done <- outcome{v, err}
	}()
	<-predictor.started

	// pending for the whole span between issuance and settlement
	assert.True(t, flow.Pending())
	state := flow.State()
	assert.True(t, state.Pending)
	assert.False(t, state.TriggerEnabled)

	_, err = flow.SubmitForAnalysis(context.Background())
	var perr *PreconditionError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.Pending)
	assert.Equal(t, MsgAlreadyPending, perr.Notice().Message)

	close(predictor.release)
	result := <-done

	require.NoError(t, result.err)
	assert.Equal(t, models.LabelAuthentic, result.verdict.Label)
	assert.False(t, flow.Pending())
	assert.True(t, flow.State().TriggerEnabled)
	assert.Equal(t, 1, predictor.callCount())
}

func TestSubmitForAnalysis_Verdicts(t *testing.T) {
	tests := []struct {
		name     string
		deepfake bool
		label    string
		notice   string
	}{
		{"deepfake", true, models.LabelDeepfake, MsgDeepfakeNotice},
		{"authentic", false, models.LabelAuthentic, MsgAuthenticNotice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			predictor := &stubPredictor{result: &Prediction{Deepfake: tt.deepfake}}
			flow := newTestFlow(predictor)
			img, err := flow.AcceptInput(pngInput())
			require.NoError(t, err)
			waitPreview(t, img)

			verdict, err := flow.SubmitForAnalysis(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.label, verdict.Label)
			assert.Equal(t, img.Generation, verdict.Generation)

			state := flow.State()
			require.NotNil(t, state.Verdict)
			assert.Equal(t, tt.label, state.Verdict.Label)
			require.NotNil(t, state.Notice)
			assert.Equal(t, models.NoticeSuccess, state.Notice.Level)
			assert.Equal(t, tt.notice, state.Notice.Message)
			assert.False(t, state.Pending)

			assert.Equal(t, pngHeader, predictor.lastPayload.Data)
			assert.Equal(t, "image/png", predictor.lastPayload.ContentType)
			assert.Equal(t, "face.png", predictor.lastPayload.FileName)
		})
	}
}

func TestSubmitForAnalysis_TransportFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"http 500", &TransportError{StatusCode: 500}},
		{"network error", &TransportError{Err: errors.New("connection refused")}},
		{"untyped error", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			predictor := &stubPredictor{err: tt.err}
			flow := newTestFlow(predictor)
			img, err := flow.AcceptInput(pngInput())
			require.NoError(t, err)
			waitPreview(t, img)

			verdict, err := flow.SubmitForAnalysis(context.Background())

			assert.Nil(t, verdict)
			var terr *TransportError
			require.ErrorAs(t, err, &terr)
			assert.Nil(t, flow.Verdict())
			assert.False(t, flow.Pending())

			state := flow.State()
			require.NotNil(t, state.Notice)
			assert.Equal(t, MsgAnalysisFailed, state.Notice.Message)
			assert.True(t, state.TriggerEnabled, "user may retry once the request settled")
		})
	}
}

func TestSubmitForAnalysis_PredictorPanicClearsPending(t *testing.T) {
	predictor := &stubPredictor{panicValue: "kaboom"}
	flow := newTestFlow(predictor)
	img, err := flow.AcceptInput(pngInput())
	require.NoError(t, err)
	waitPreview(t, img)

	verdict, err := flow.SubmitForAnalysis(context.Background())

	assert.Nil(t, verdict)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.False(t, flow.Pending())
	assert.True(t, flow.State().TriggerEnabled)
}

func TestSubmitForAnalysis_NilPredictionIsTransportError(t *testing.T) {
	flow := newTestFlow(&stubPredictor{})
	img, err := flow.AcceptInput(pngInput())
	require.NoError(t, err)
	waitPreview(t, img)

	_, err = flow.SubmitForAnalysis(context.Background())

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
}

func TestSubmitForAnalysis_StaleVerdictNotStored(t *testing.T) {
	predictor := blockingPredictor(&Prediction{Deepfake: true})
	flow := newTestFlow(predictor)
	first, err := flow.AcceptInput(pngInput())
	require.NoError(t, err)
	waitPreview(t, first)

	done := make(chan *models.Verdict, 1)
	go func() {
		v, _ := flow.SubmitForAnalysis(context.Background())
		done <- v
	}()
	<-predictor.started

	second, err := flow.AcceptInput(jpegInput(1024))
	require.NoError(t, err)
	waitPreview(t, second)
	assert.True(t, flow.Pending(), "a new selection does not abort the request")

	close(predictor.release)
	verdict := <-done

	require.NotNil(t, verdict)
	assert.Equal(t, first.Generation, verdict.Generation)
	assert.True(t, verdict.Stale)
	assert.Nil(t, flow.Verdict(), "verdict belongs to the replaced image")
	assert.False(t, flow.Pending())

	state := flow.State()
	assert.Nil(t, state.Verdict)
	assert.Nil(t, state.Notice, "no success notice next to the new image")
}

func TestSubmitForAnalysis_ClearedWhilePendingIsStale(t *testing.T) {
	predictor := blockingPredictor(&Prediction{Deepfake: true})
	flow := newTestFlow(predictor)
	img, err := flow.AcceptInput(pngInput())
	require.NoError(t, err)
	waitPreview(t, img)

	done := make(chan *models.Verdict, 1)
	go func() {
		v, _ := flow.SubmitForAnalysis(context.Background())
		done <- v
	}()
	<-predictor.started

	flow.ClearSelection()
	close(predictor.release)
	verdict := <-done

	require.NotNil(t, verdict)
	assert.True(t, verdict.Stale)
	assert.Nil(t, flow.State().Notice)
}

func TestSubmitForAnalysis_IgnoresCallerCancellation(t *testing.T) {
	predictor := &stubPredictor{result: &Prediction{}}
	flow := newTestFlow(predictor)
	img, err := flow.AcceptInput(pngInput())
	require.NoError(t, err)
	waitPreview(t, img)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = flow.SubmitForAnalysis(ctx)

	require.NoError(t, err)
	assert.NoError(t, predictor.lastCtxErr)
}

func TestClearSelection_AfterAnalysis(t *testing.T) {
	flow := newTestFlow(&stubPredictor{result: &Prediction{Deepfake: true}})
	img, err := flow.AcceptInput(pngInput())
	require.NoError(t, err)
	waitPreview(t, img)
	_, err = flow.SubmitForAnalysis(context.Background())
	require.NoError(t, err)

	before := flow.State().InputResetToken
	flow.ClearSelection()

	state := flow.State()
	assert.Nil(t, state.Image)
	assert.Nil(t, state.Verdict)
	assert.False(t, state.TriggerEnabled)
	assert.Greater(t, state.InputResetToken, before)
	assert.Nil(t, flow.Image())

	// clearing twice is harmless
	flow.ClearSelection()
	assert.Nil(t, flow.State().Image)
}
