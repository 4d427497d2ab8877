// Package api provides the REST API server for multienv
package api

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/james-see/multienv/pkg/editor"
	"github.com/james-see/multienv/pkg/envelope"
	"github.com/james-see/multienv/pkg/patch"
	"github.com/james-see/multienv/pkg/render"
)

// @title Multienv API
// @version 1.0
// @description API for evaluating, previewing and converting multi-stage envelopes
// @host localhost:8080
// @BasePath /api/v1

// MaxTimes bounds the number of evaluation points in one request
const MaxTimes = 100_000

// GateRequest is the note an envelope is evaluated against
type GateRequest struct {
	Hold      float64 `json:"hold"`
	Length    float64 `json:"length,omitempty"`
	Step      float64 `json:"step,omitempty"`
	Amplitude float64 `json:"amplitude,omitempty"`
}

func (g *GateRequest) gate() render.Gate {
	if g == nil {
		return render.DefaultGate
	}
	return render.Gate{Hold: g.Hold, Length: g.Length, Step: g.Step, Amplitude: g.Amplitude}
}

// EvaluateRequest asks for envelope levels. When Times is empty the
// envelope is sampled across the whole gate.
type EvaluateRequest struct {
	Envelope patch.Document `json:"envelope"`
	Times    []float64      `json:"times,omitempty"`
	Gate     *GateRequest   `json:"gate,omitempty"`
}

// EvaluateResponse holds one level per requested time or per step
type EvaluateResponse struct {
	Values []float64 `json:"values"`
	Step   float64   `json:"step,omitempty"`
}

// PreviewRequest asks for the editor preview of an envelope
type PreviewRequest struct {
	Envelope   patch.Document `json:"envelope"`
	Points     int            `json:"points"`
	ViewLength float64        `json:"viewLength,omitempty"`
}

// PreviewResponse is the sampled preview curve
type PreviewResponse struct {
	Values     []float64 `json:"values"`
	Release    float64   `json:"release"`
	ViewLength float64   `json:"viewLength"`
}

// NewRouter builds the gin engine with every route registered
func NewRouter() *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/formats", listFormats)
		v1.POST("/envelopes/evaluate", handleEvaluate)
		v1.POST("/envelopes/preview", handlePreview)
		v1.POST("/envelopes/randomize", handleRandomize)
		v1.POST("/envelopes/render", handleRender)
		v1.POST("/envelopes/convert", handleConvert)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// StartServer starts the API server on the specified port
func StartServer(port int) error {
	return NewRouter().Run(fmt.Sprintf(":%d", port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "multienv",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns the envelope file formats and the current record revision
// @Tags info
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	formats := patch.SupportedFormats()
	exts := make(map[patch.Format]string, len(formats))
	for _, f := range formats {
		codec, _ := patch.CodecFor(f)
		exts[f] = codec.Extension()
	}
	c.JSON(http.StatusOK, gin.H{
		"formats":    formats,
		"extensions": exts,
		"revision":   patch.Revision,
		"renders":    []string{"wav", "mid"},
	})
}

// bindJSON decodes the request body into v
func bindJSON(c *gin.Context, v any) bool {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errors.Wrap(err, "invalid request").Error()})
		return false
	}
	return true
}

func definitionOf(c *gin.Context, doc patch.Document) (*envelope.Definition, bool) {
	def, err := documentDefinition(doc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return def, true
}

// handleEvaluate godoc
// @Summary Evaluate an envelope
// @Description Returns envelope levels at the requested times, or sampled across the gate
// @Tags envelopes
// @Accept json
// @Produce json
// @Param request body EvaluateRequest true "Envelope and times"
// @Success 200 {object} EvaluateResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/envelopes/evaluate [post]
func handleEvaluate(c *gin.Context) {
	var req EvaluateRequest
	if !bindJSON(c, &req) {
		return
	}
	def, ok := definitionOf(c, req.Envelope)
	if !ok {
		return
	}
	gate := req.Gate.gate()

	if len(req.Times) == 0 {
		if gate.Samples(def) > MaxTimes {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("at most %d samples per request, raise the gate step", MaxTimes)})
			return
		}
		c.JSON(http.StatusOK, EvaluateResponse{Values: render.Sample(def, gate), Step: gate.Interval()})
		return
	}
	if len(req.Times) > MaxTimes {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("at most %d times per request", MaxTimes)})
		return
	}

	amp := gate.Amplitude
	if amp == 0 {
		amp = 1
	}
	rt := envelope.NewRuntime(def)
	rt.Start(0, amp)
	if req.Gate != nil {
		rt.Stop(math.Max(gate.Hold, 0))
	}
	values := make([]float64, len(req.Times))
	for i, t := range req.Times {
		values[i] = rt.Value(t)
	}
	c.JSON(http.StatusOK, EvaluateResponse{Values: values})
}

// handlePreview godoc
// @Summary Preview an envelope
// @Description Returns the curve the editor draws for an envelope
// @Tags envelopes
// @Accept json
// @Produce json
// @Param request body PreviewRequest true "Envelope and resolution"
// @Success 200 {object} PreviewResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/envelopes/preview [post]
func handlePreview(c *gin.Context) {
	var req PreviewRequest
	if !bindJSON(c, &req) {
		return
	}
	def, ok := definitionOf(c, req.Envelope)
	if !ok {
		return
	}
	if req.Points <= 0 || req.Points > MaxTimes {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("points must be between 1 and %d", MaxTimes)})
		return
	}

	ed := editor.New(editor.Config{Width: float64(req.Points), Height: 1, ViewLength: req.ViewLength})
	ed.AttachEnvelope(def)
	p := ed.Preview(req.Points)
	c.JSON(http.StatusOK, PreviewResponse{Values: p.Values, Release: p.Release, ViewLength: p.ViewLength})
}

// handleRandomize godoc
// @Summary Randomize an envelope
// @Description Randomizes targets and durations, keeping the stage count and sustain of the posted envelope
// @Tags envelopes
// @Accept json
// @Produce json
// @Param seed query int false "Random seed (default: 1)"
// @Param request body patch.Document false "Envelope to randomize (default: ADSR)"
// @Success 200 {object} patch.Document
// @Failure 400 {object} map[string]string
// @Router /api/v1/envelopes/randomize [post]
func handleRandomize(c *gin.Context) {
	seed, err := strconv.ParseInt(c.DefaultQuery("seed", "1"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seed must be an integer"})
		return
	}

	def := envelope.NewADSR(10, 100, 0.5, 200)
	if c.Request.ContentLength != 0 {
		var doc patch.Document
		if !bindJSON(c, &doc) {
			return
		}
		if len(doc.Stages) > 0 {
			if def, err = documentDefinition(doc); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
	}

	envelope.Randomize(def, rand.New(rand.NewSource(seed)))
	c.JSON(http.StatusOK, patch.NewDocument(def.Snapshot()))
}

// documentDefinition treats a missing revision as the current one
func documentDefinition(doc patch.Document) (*envelope.Definition, error) {
	if doc.Revision == 0 {
		doc.Revision = patch.Revision
	}
	s, err := doc.Snapshot()
	if err != nil {
		return nil, err
	}
	return envelope.FromSnapshot(s), nil
}

// handleRender godoc
// @Summary Render an envelope
// @Description Plays the envelope against a gate and returns a WAV control signal or MIDI controller automation
// @Tags envelopes
// @Accept json
// @Produce application/octet-stream
// @Param format query string false "wav or mid (default: wav)"
// @Param rate query int false "WAV sample rate (default: 1000)"
// @Param cc query int false "MIDI controller (default: 1)"
// @Param request body EvaluateRequest true "Envelope and gate"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/envelopes/render [post]
func handleRender(c *gin.Context) {
	var req EvaluateRequest
	if !bindJSON(c, &req) {
		return
	}
	def, ok := definitionOf(c, req.Envelope)
	if !ok {
		return
	}
	gate := req.Gate.gate()

	switch strings.ToLower(c.DefaultQuery("format", "wav")) {
	case "wav":
		rate, err := strconv.Atoi(c.DefaultQuery("rate", "1000"))
		if err != nil || rate <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rate must be a positive integer"})
			return
		}
		gate.Step = render.StepForRate(rate)
		data, err := renderWAV(render.Sample(def, gate), rate)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=envelope.wav")
		c.Data(http.StatusOK, "audio/wav", data)
	case "mid", "midi":
		cc, err := strconv.Atoi(c.DefaultQuery("cc", "1"))
		if err != nil || cc < 0 || cc > 127 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cc must be between 0 and 127"})
			return
		}
		opts := render.DefaultMIDIOptions
		opts.Controller = uint8(cc)
		if gate.Step > 0 {
			opts.Step = gate.Step
		}
		gate.Step = opts.Step
		var buf bytes.Buffer
		if err := render.WriteMIDI(&buf, render.Sample(def, gate), opts); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=envelope.mid")
		c.Data(http.StatusOK, "audio/midi", buf.Bytes())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported render format"})
	}
}

// renderWAV encodes through a temporary file since the encoder seeks back
// to patch the header sizes
func renderWAV(values []float64, rate int) ([]byte, error) {
	f, err := os.CreateTemp("", "multienv-*.wav")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temp file")
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()
	if err := render.WriteWAV(f, values, rate); err != nil {
		return nil, err
	}
	return os.ReadFile(f.Name())
}

// handleConvert godoc
// @Summary Convert an envelope file
// @Description Upload an envelope file and receive it in another format
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true "Envelope file to convert"
// @Param to query string true "Target format (menv, json, yaml)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/envelopes/convert [post]
func handleConvert(c *gin.Context) {
	codec, err := patch.CodecFor(patch.Format(strings.ToLower(c.Query("to"))))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported target format"})
		return
	}

	// Get uploaded file
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	def, err := patch.Decode(patch.DetectFormat(header.Filename), data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := patch.Encode(codec.Format(), def)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Generate output filename
	base := strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	if base == "" || base == "." {
		base = "converted"
	}
	outputName := base + codec.Extension()

	contentType := "application/octet-stream"
	switch codec.Format() {
	case patch.FormatJSON:
		contentType = "application/json"
	case patch.FormatYAML:
		contentType = "application/yaml"
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName))
	c.Data(http.StatusOK, contentType, result)
}
