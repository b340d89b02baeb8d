package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/quotify/api/internal/checkout"
	"github.com/quotify/api/internal/editor"
	"github.com/quotify/api/internal/handlers/api"
	"github.com/quotify/api/internal/quote"
	"github.com/quotify/api/internal/snapshot"
	"github.com/quotify/api/internal/stripe"
)

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCreator stands in for the payment provider.
type fakeCreator struct {
	mu      sync.Mutex
	inputs  []stripe.CheckoutInput
	err     error
	block   chan struct{}
	started chan struct{}
}

func (f *fakeCreator) CreateCheckoutSession(_ context.Context, in stripe.CheckoutInput) (stripe.CheckoutResult, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return stripe.CheckoutResult{}, f.err
	}
	return stripe.CheckoutResult{
		SessionID:    "cs_test_123",
		ClientSecret: "cs_test_123_secret",
	}, nil
}

type recordingRenders struct {
	mu       sync.Mutex
	surfaces []string
}

func (r *recordingRenders) Rendered(surface string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		surface += ":error"
	}
	r.surfaces = append(r.surfaces, surface)
}

type testServer struct {
	mux     *http.ServeMux
	editor  *editor.Controller
	orch    *checkout.Orchestrator
	creator *fakeCreator
	renders *recordingRenders
}

type serverOptions struct {
	policy     editor.Policy
	amountMode checkout.AmountMode
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	logger := discardLogger()
	ed := editor.New(context.Background(), editor.Options{
		Store:  snapshot.NewMemory(),
		Logger: logger,
		Policy: opts.policy,
		Now:    func() time.Time { return testNow },
	})
	creator := &fakeCreator{}
	orch := checkout.New(creator, ed, checkout.Config{
		Mode:       stripe.ModeEmbedded,
		AmountMode: opts.amountMode,
		BaseURL:    "https://quotify.test",
	}, nil, logger)
	renders := &recordingRenders{}

	mux := http.NewServeMux()
	exports := api.NewExportHandler(ed, renders, logger)
	api.NewQuoteHandler(ed, logger).RegisterRoutes(mux)
	exports.RegisterRoutes(mux)
	api.NewCheckoutHandler(orch, exports, ed, "pk_test_123", logger).RegisterRoutes(mux)

	return &testServer{mux: mux, editor: ed, orch: orch, creator: creator, renders: renders}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	return rr
}

type documentJSON struct {
	State   quote.State         `json:"state"`
	Totals  quote.GroupedTotals `json:"totals"`
	Summary string              `json:"summary"`
}

func decodeDocument(t *testing.T, rr *httptest.ResponseRecorder) documentJSON {
	t.Helper()
	var doc documentJSON
	if err := json.NewDecoder(rr.Body).Decode(&doc); err != nil {
		t.Fatalf("decoding document: %v (body %q)", err, rr.Body.String())
	}
	return doc
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) (string, bool) {
	t.Helper()
	var body struct {
		Error     string `json:"error"`
		Retryable bool   `json:"retryable"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body.Error, body.Retryable
}

func solidPNG(t *testing.T, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}
