package capture

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Kanthalon/tassled-cap/internal/metrics"
	"github.com/Kanthalon/tassled-cap/pkg/classify"
	"github.com/Kanthalon/tassled-cap/pkg/config"
	"github.com/Kanthalon/tassled-cap/pkg/responseformat"
	"github.com/golang/geo/r2"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ErrCaptureTimeout is returned when no client answers a prompt in time.
var ErrCaptureTimeout = errors.New("timed out waiting for polygon")

// StatusResponse describes the prompt currently waiting for a client.
type StatusResponse struct {
	Pending    bool   `json:"pending"`
	Period     string `json:"period,omitempty"`
	Label      string `json:"label,omitempty"`
	PointCount int    `json:"point_count"`
}

// PointsResponse carries the points a polygon should be drawn over.
type PointsResponse struct {
	Period string       `json:"period"`
	Label  string       `json:"label"`
	Points [][2]float64 `json:"points"`
}

// VerticesRequest is the polygon a client submits for the pending prompt.
type VerticesRequest struct {
	Period   string      `json:"period"`
	Label    string      `json:"label"`
	Vertices [][]float64 `json:"vertices"`
}

// CaptureRecord is a completed capture.
type CaptureRecord struct {
	Period     string       `json:"period"`
	Label      string       `json:"label"`
	Vertices   [][2]float64 `json:"vertices"`
	CapturedAt time.Time    `json:"captured_at"`
}

type pendingCapture struct {
	prompt Prompt
	points []r2.Point
	result chan []r2.Point
}

// HTTPCapturer serves each prompt over HTTP and blocks until a client
// submits its polygon.
type HTTPCapturer struct {
	ctx       context.Context
	wg        *sync.WaitGroup
	Server    http.Server
	formatter *responseformat.Formatter
	metrics   *metrics.Metrics
	logger    *zap.SugaredLogger
	timeout   time.Duration
	listener  net.Listener

	mu      sync.Mutex
	current *pendingCapture
	history []CaptureRecord
}

// NewHTTPCapturer creates the capture server. m may be nil, in which case
// /metrics is not served.
func NewHTTPCapturer(ctx context.Context, wg *sync.WaitGroup, cc config.CaptureData, m *metrics.Metrics, logger *zap.SugaredLogger) (*HTTPCapturer, error) {
	timeout, err := cc.TimeoutDuration()
	if err != nil {
		return nil, fmt.Errorf("invalid capture timeout: %w", err)
	}

	if cc.ListenAddr == "" {
		logger.Info("capture.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		cc.ListenAddr = "0.0.0.0"
	}
	if cc.Port == 0 {
		logger.Info("capture.port not provided; defaulting to 8080")
		cc.Port = 8080
	}

	h := &HTTPCapturer{
		ctx:       ctx,
		wg:        wg,
		formatter: responseformat.NewFormatter(),
		metrics:   m,
		logger:    logger,
		timeout:   timeout,
	}
	h.Server.Addr = fmt.Sprintf("%v:%v", cc.ListenAddr, cc.Port)
	h.Server.Handler = handlers.CORS(
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedOrigins([]string{"*"}),
	)(h.setupRouter())
	return h, nil
}

// Start binds the listen address and serves until the context is cancelled.
// A bind failure is returned rather than left to the serving goroutine.
func (h *HTTPCapturer) Start() error {
	h.logger.Infof("Starting capture server on %s...", h.Server.Addr)
	l, err := net.Listen("tcp", h.Server.Addr)
	if err != nil {
		return fmt.Errorf("error starting capture server: %w", err)
	}
	h.listener = l

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if err := h.Server.Serve(l); err != http.ErrServerClosed {
			h.logger.Errorf("capture server error: %v", err)
		}
	}()

	go func() {
		<-h.ctx.Done()
		h.logger.Info("Shutting down the capture server...")
		h.Server.Shutdown(context.Background())
	}()

	return nil
}

// Addr is the bound address once Start has succeeded.
func (h *HTTPCapturer) Addr() net.Addr {
	if h.listener == nil {
		return nil
	}
	return h.listener.Addr()
}

func (h *HTTPCapturer) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(h.loggingMiddleware)
	if h.metrics != nil {
		router.Use(h.metrics.Middleware)
		router.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	}

	router.HandleFunc("/capture", h.getStatus).Methods(http.MethodGet)
	router.HandleFunc("/capture/points", h.getPoints).Methods(http.MethodGet)
	router.HandleFunc("/capture/vertices", h.postVertices).Methods(http.MethodPost)
	router.HandleFunc("/captures", h.getHistory).Methods(http.MethodGet)
	return router
}

// Capture publishes prompt and waits for a client, the timeout or ctx.
func (h *HTTPCapturer) Capture(ctx context.Context, prompt Prompt, points []r2.Point) (classify.Polygon, error) {
	pc := &pendingCapture{prompt: prompt, points: points, result: make(chan []r2.Point, 1)}

	h.mu.Lock()
	if h.current != nil {
		h.mu.Unlock()
		return classify.Polygon{}, fmt.Errorf("capture for %s/%s already in progress", h.current.prompt.Period, h.current.prompt.Label)
	}
	h.current = pc
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		if h.current == pc {
			h.current = nil
		}
		h.mu.Unlock()
	}()

	h.logger.Infow("waiting for polygon", "period", prompt.Period, "class", prompt.Label, "points", len(points))

	var expired <-chan time.Time
	if h.timeout > 0 {
		timer := time.NewTimer(h.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case vertices := <-pc.result:
		return classify.NewPolygon(vertices), nil
	case <-expired:
		return classify.Polygon{}, fmt.Errorf("%s/%s: %w", prompt.Period, prompt.Label, ErrCaptureTimeout)
	case <-ctx.Done():
		return classify.Polygon{}, ctx.Err()
	}
}

func (h *HTTPCapturer) getStatus(w http.ResponseWriter, req *http.Request) {
	h.mu.Lock()
	resp := StatusResponse{}
	if h.current != nil {
		resp = StatusResponse{
			Pending:    true,
			Period:     h.current.prompt.Period,
			Label:      h.current.prompt.Label,
			PointCount: len(h.current.points),
		}
	}
	h.mu.Unlock()

	h.formatter.WriteResponse(w, req, resp, nil)
}

func (h *HTTPCapturer) getPoints(w http.ResponseWriter, req *http.Request) {
	h.mu.Lock()
	pc := h.current
	h.mu.Unlock()

	if pc == nil {
		h.formatter.WriteError(w, req, http.StatusNotFound, "no capture pending")
		return
	}

	resp := PointsResponse{
		Period: pc.prompt.Period,
		Label:  pc.prompt.Label,
		Points: make([][2]float64, len(pc.points)),
	}
	for i, p := range pc.points {
		resp.Points[i] = [2]float64{p.X, p.Y}
	}
	h.formatter.WriteResponse(w, req, resp, nil)
}

func (h *HTTPCapturer) postVertices(w http.ResponseWriter, req *http.Request) {
	var body VerticesRequest
	if err := h.formatter.DecodeRequest(req, &body); err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	vertices := make([]r2.Point, len(body.Vertices))
	for i, v := range body.Vertices {
		if len(v) != 2 {
			h.formatter.WriteError(w, req, http.StatusBadRequest, fmt.Sprintf("vertex %d: expected [x, y]", i))
			return
		}
		vertices[i] = r2.Point{X: v[0], Y: v[1]}
	}

	h.mu.Lock()
	pc := h.current
	if pc == nil || pc.prompt.Period != body.Period || pc.prompt.Label != body.Label {
		h.mu.Unlock()
		h.formatter.WriteError(w, req, http.StatusConflict, fmt.Sprintf("no capture pending for %s/%s", body.Period, body.Label))
		return
	}
	h.current = nil

	record := CaptureRecord{Period: body.Period, Label: body.Label, CapturedAt: time.Now(), Vertices: make([][2]float64, len(vertices))}
	for i, v := range vertices {
		record.Vertices[i] = [2]float64{v.X, v.Y}
	}
	h.history = append(h.history, record)
	h.mu.Unlock()

	pc.result <- vertices

	h.formatter.WriteResponse(w, req, record, nil)
}

func (h *HTTPCapturer) getHistory(w http.ResponseWriter, req *http.Request) {
	h.mu.Lock()
	records := append([]CaptureRecord(nil), h.history...)
	h.mu.Unlock()

	h.formatter.WriteResponse(w, req, records, nil)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (h *HTTPCapturer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		h.logger.Debugw("http request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"size", rec.size,
			"remote_addr", req.RemoteAddr,
			"user_agent", req.UserAgent(),
		)
	})
}
