package api

import (
	"bytes"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/james-see/multienv/pkg/envelope"
	"github.com/james-see/multienv/pkg/patch"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func do(t *testing.T, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	NewRouter().ServeHTTP(w, req)
	return w
}

func postJSON(t *testing.T, target string, v any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return do(t, http.MethodPost, target, body, "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("response is not json: %v\n%s", err, w.Body.String())
	}
}

func TestHealth(t *testing.T) {
	for _, path := range []string{"/health", "/api/v1/health"} {
		t.Run(path, func(t *testing.T) {
			w := do(t, http.MethodGet, path, nil, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			var got map[string]string
			decode(t, w, &got)
			if got["status"] != "healthy" {
				t.Errorf("status = %q, want healthy", got["status"])
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	w := do(t, http.MethodOptions, "/api/v1/formats", nil, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestListFormats(t *testing.T) {
	w := do(t, http.MethodGet, "/api/v1/formats", nil, "")
	var got struct {
		Formats    []string          `json:"formats"`
		Extensions map[string]string `json:"extensions"`
		Revision   int               `json:"revision"`
	}
	decode(t, w, &got)
	if len(got.Formats) != 3 {
		t.Errorf("formats = %v, want 3 entries", got.Formats)
	}
	if got.Extensions["menv"] != ".menv" {
		t.Errorf("menv extension = %q", got.Extensions["menv"])
	}
	if got.Revision != patch.Revision {
		t.Errorf("revision = %d, want %d", got.Revision, patch.Revision)
	}
}

func doc(def *envelope.Definition) patch.Document {
	return patch.NewDocument(def.Snapshot())
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		req     EvaluateRequest
		wantLen int
		checks  map[int]float64
	}{
		{
			name:    "times",
			req:     EvaluateRequest{Envelope: doc(envelope.NewAR(10, 10)), Times: []float64{0, 5, 10, 15, 20}},
			wantLen: 5,
			checks:  map[int]float64{0: 0, 1: 0.5, 2: 1, 3: 0.5, 4: 0},
		},
		{
			name:    "sampled gate",
			req:     EvaluateRequest{Envelope: doc(envelope.NewADSR(10, 10, 0.5, 20)), Gate: &GateRequest{Hold: 50}},
			wantLen: 71,
			checks:  map[int]float64{30: 0.5, 60: 0.25, 70: 0},
		},
		{
			name:    "times with release and amplitude",
			req:     EvaluateRequest{Envelope: doc(envelope.NewADSR(10, 10, 0.5, 20)), Times: []float64{30, 60}, Gate: &GateRequest{Hold: 50, Amplitude: 2}},
			wantLen: 2,
			checks:  map[int]float64{0: 1, 1: 0.5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, "/api/v1/envelopes/evaluate", tt.req)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", w.Code, w.Body.String())
			}
			var got EvaluateResponse
			decode(t, w, &got)
			if len(got.Values) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got.Values), tt.wantLen)
			}
			for i, want := range tt.checks {
				if math.Abs(got.Values[i]-want) > 1e-6 {
					t.Errorf("values[%d] = %v, want %v", i, got.Values[i], want)
				}
			}
		})
	}
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	newer := doc(envelope.NewAR(10, 10))
	newer.Revision = patch.Revision + 1

	adsr := doc(envelope.NewADSR(10, 100, 0.5, 100))

	tests := []struct {
		name string
		body []byte
	}{
		{"malformed", []byte(`{"envelope":`)},
		{"newer revision", mustJSON(t, EvaluateRequest{Envelope: newer, Times: []float64{0}})},
		{"tiny step", mustJSON(t, EvaluateRequest{Envelope: adsr, Gate: &GateRequest{Hold: 500, Step: 1e-20}})},
		{"huge length", mustJSON(t, EvaluateRequest{Envelope: adsr, Gate: &GateRequest{Length: 1e30}})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, http.MethodPost, "/api/v1/envelopes/evaluate", tt.body, "application/json")
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestPreview(t *testing.T) {
	w := postJSON(t, "/api/v1/envelopes/preview", PreviewRequest{
		Envelope:   doc(envelope.NewAR(100, 100)),
		Points:     10,
		ViewLength: 1000,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var got PreviewResponse
	decode(t, w, &got)
	if len(got.Values) != 10 {
		t.Fatalf("len = %d, want 10", len(got.Values))
	}
	if math.Abs(got.Values[1]-1) > 1e-9 {
		t.Errorf("values[1] = %v, want 1", got.Values[1])
	}
	if got.Release != 1000 {
		t.Errorf("release = %v, want the view length", got.Release)
	}

	w = postJSON(t, "/api/v1/envelopes/preview", PreviewRequest{Envelope: doc(envelope.NewAR(1, 1))})
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero points: status = %d, want 400", w.Code)
	}
}

func TestRandomize(t *testing.T) {
	body := mustJSON(t, doc(envelope.NewADSR(10, 10, 0.5, 10)))
	var first, second patch.Document
	decode(t, do(t, http.MethodPost, "/api/v1/envelopes/randomize?seed=5", body, "application/json"), &first)
	decode(t, do(t, http.MethodPost, "/api/v1/envelopes/randomize?seed=5", body, "application/json"), &second)

	if len(first.Stages) != 4 {
		t.Fatalf("stages = %d, want 4", len(first.Stages))
	}
	if first.Stages[0].Target != 1 || first.Stages[3].Target != 0 {
		t.Errorf("first and last targets = %v, %v", first.Stages[0].Target, first.Stages[3].Target)
	}
	for i := range first.Stages {
		if first.Stages[i] != second.Stages[i] {
			t.Errorf("stage %d differs for the same seed: %+v vs %+v", i, first.Stages[i], second.Stages[i])
		}
	}

	w := do(t, http.MethodPost, "/api/v1/envelopes/randomize?seed=x", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad seed: status = %d, want 400", w.Code)
	}
	w = do(t, http.MethodPost, "/api/v1/envelopes/randomize", nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("empty body: status = %d, want 200", w.Code)
	}
}

func TestRender(t *testing.T) {
	req := EvaluateRequest{Envelope: doc(envelope.NewADSR(10, 10, 0.5, 20)), Gate: &GateRequest{Hold: 50}}
	tests := []struct {
		query      string
		wantStatus int
		wantMagic  string
	}{
		{"format=wav&rate=8000", http.StatusOK, "RIFF"},
		{"format=mid&cc=74", http.StatusOK, "MThd"},
		{"format=wav&rate=0", http.StatusBadRequest, ""},
		{"format=mid&cc=200", http.StatusBadRequest, ""},
		{"format=aiff", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := postJSON(t, "/api/v1/envelopes/render?"+tt.query, req)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantMagic != "" && !bytes.HasPrefix(w.Body.Bytes(), []byte(tt.wantMagic)) {
				t.Errorf("body does not start with %q", tt.wantMagic)
			}
		})
	}
}

func upload(t *testing.T, target, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(data)
	}
	_ = mw.Close()
	return do(t, http.MethodPost, target, body.Bytes(), mw.FormDataContentType())
}

func TestConvert(t *testing.T) {
	def := envelope.NewADSR(12, 34, 0.6, 78)
	data, err := patch.Encode(patch.FormatJSON, def)
	if err != nil {
		t.Fatal(err)
	}

	w := upload(t, "/api/v1/envelopes/convert?to=menv", "lead.json", data)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Disposition"); got != "attachment; filename=lead.menv" {
		t.Errorf("Content-Disposition = %q", got)
	}
	back, err := patch.Decode(patch.FormatBinary, w.Body.Bytes())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if st, _ := back.Stage(1); st.Duration != 34 {
		t.Errorf("decay = %v, want 34", st.Duration)
	}

	tests := []struct {
		name     string
		target   string
		filename string
		data     []byte
	}{
		{"unknown target", "/api/v1/envelopes/convert?to=wav", "lead.json", data},
		{"no file", "/api/v1/envelopes/convert?to=yaml", "", nil},
		{"garbage", "/api/v1/envelopes/convert?to=yaml", "lead.bin", []byte("not an envelope")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := upload(t, tt.target, tt.filename, tt.data)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}
