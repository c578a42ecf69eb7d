package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// go-cache stops its janitor from a finalizer
		goleak.IgnoreAnyFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
)

func jpegBytes(size int) []byte {
	data := make([]byte, size)
	copy(data, jpegHeader)
	return data
}

func pngInput() Input {
	return Input{Source: SourceDrop, FileName: "face.png", ContentType: "image/png", Data: pngHeader}
}

func jpegInput(size int) Input {
	return Input{Source: SourcePicker, FileName: "photo.jpg", ContentType: "image/jpeg", Data: jpegBytes(size)}
}

func textInput() Input {
	return Input{Source: SourcePicker, FileName: "notes.txt", ContentType: "text/plain", Data: []byte("hello")}
}

// stubPredictor records calls and optionally blocks until released
type stubPredictor struct {
	mu          sync.Mutex
	calls       int
	lastPayload Payload
	lastCtxErr  error

	started chan struct{}
	release chan struct{}

	result     *Prediction
	err        error
	panicValue interface{}
}

func (p *stubPredictor) Predict(ctx context.Context, payload Payload) (*Prediction, error) {
	p.mu.Lock()
	p.calls++
	p.lastPayload = payload
	p.lastCtxErr = ctx.Err()
	p.mu.Unlock()

	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.release != nil {
		<-p.release
	}
	if p.panicValue != nil {
		panic(p.panicValue)
	}
	return p.result, p.err
}

func (p *stubPredictor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func blockingPredictor(result *Prediction) *stubPredictor {
	return &stubPredictor{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		result:  result,
	}
}

func newTestFlow(p Predictor) *UploadFlow {
	return NewUploadFlow(p, 10*1024*1024, zapNop())
}

func waitPreview(t *testing.T, img *PendingImage) string {
	t.Helper()
	preview, err := img.Preview(context.Background())
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	return preview
}

func isDataURL(preview, contentType string) bool {
	return strings.HasPrefix(preview, "data:"+contentType+";base64,")
}

func zapNop() *zap.Logger {
	return zap.NewNop()
}
