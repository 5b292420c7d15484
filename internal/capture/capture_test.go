package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Kanthalon/tassled-cap/internal/metrics"
	"github.com/Kanthalon/tassled-cap/pkg/classify"
	"github.com/Kanthalon/tassled-cap/pkg/config"
	"github.com/golang/geo/r2"
	"go.uber.org/zap"
)

var square = []config.VertexData{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}

func TestStaticCapturer(t *testing.T) {
	periods := []config.PeriodData{
		{Label: "2003", Polygons: map[string][]config.VertexData{
			"urban": {{X: 2, Y: 2}, {X: 3, Y: 2}, {X: 3, Y: 3}},
		}},
	}
	classes := []config.ClassData{
		{Label: "urban", Polygon: square},
		{Label: "water"},
	}
	s := NewStaticCapturer(periods, classes)
	ctx := context.Background()

	tests := []struct {
		name     string
		prompt   Prompt
		point    r2.Point
		expected bool
	}{
		{"class default", Prompt{Period: "1999", Label: "urban"}, r2.Point{X: 0.5, Y: 0.5}, true},
		{"period override", Prompt{Period: "2003", Label: "urban"}, r2.Point{X: 0.5, Y: 0.5}, false},
		{"period override inside", Prompt{Period: "2003", Label: "urban"}, r2.Point{X: 2.9, Y: 2.1}, true},
		{"no polygon", Prompt{Period: "1999", Label: "water"}, r2.Point{X: 0.5, Y: 0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poly, err := s.Capture(ctx, tt.prompt, nil)
			if err != nil {
				t.Fatalf("Capture: %v", err)
			}
			if got := poly.Contains(tt.point); got != tt.expected {
				t.Errorf("Contains(%v) = %v, expected %v", tt.point, got, tt.expected)
			}
		})
	}
}

func TestTerminalCapturer(t *testing.T) {
	in := strings.NewReader("0 0\n1, 0\nbogus\n1\t1\n\n5 5\n")
	var out bytes.Buffer
	tc := NewTerminalCapturer(in, &out)

	poly, err := tc.Capture(context.Background(), Prompt{Period: "1999", Label: "Vegetation"}, []r2.Point{{X: 0.2, Y: 0.1}})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(poly.Vertices) != 3 {
		t.Fatalf("got %d vertices, expected 3: %v", len(poly.Vertices), poly.Vertices)
	}
	if !poly.Contains(r2.Point{X: 0.9, Y: 0.1}) {
		t.Error("triangle should contain (0.9, 0.1)")
	}
	if !strings.Contains(out.String(), "Polygon vertices for vegetation (1999):") {
		t.Errorf("prompt missing: %q", out.String())
	}
	if !strings.Contains(out.String(), `ignoring "bogus"`) {
		t.Errorf("bad line not reported: %q", out.String())
	}

	// the next prompt continues after the blank line
	poly, err = tc.Capture(context.Background(), Prompt{Period: "1999", Label: "Urban"}, nil)
	if err != nil {
		t.Fatalf("second Capture: %v", err)
	}
	if len(poly.Vertices) != 1 || !poly.Empty() {
		t.Errorf("expected one-vertex empty polygon, got %v", poly.Vertices)
	}
}

func TestTerminalCapturerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tc := NewTerminalCapturer(strings.NewReader("0 0\n"), &bytes.Buffer{})
	if _, err := tc.Capture(ctx, Prompt{}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func newTestHTTPCapturer(t *testing.T, timeout string) (*HTTPCapturer, *httptest.Server) {
	t.Helper()
	var wg sync.WaitGroup
	h, err := NewHTTPCapturer(context.Background(), &wg, config.CaptureData{Mode: config.CaptureHTTP, Timeout: timeout}, metrics.New(), zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewHTTPCapturer: %v", err)
	}
	srv := httptest.NewServer(h.Server.Handler)
	t.Cleanup(srv.Close)
	return h, srv
}

func waitForPending(t *testing.T, srv *httptest.Server) StatusResponse {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(srv.URL + "/capture")
		if err != nil {
			t.Fatalf("GET /capture: %v", err)
		}
		var status StatusResponse
		err = json.NewDecoder(resp.Body).Decode(&status)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if status.Pending {
			return status
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("capture never became pending")
	return StatusResponse{}
}

func TestHTTPCapturer(t *testing.T) {
	h, srv := newTestHTTPCapturer(t, "")
	points := []r2.Point{{X: 0.3, Y: 0.1}, {X: 0.6, Y: 0.2}}

	type result struct {
		poly classify.Polygon
		err  error
	}
	done := make(chan result, 1)
	go func() {
		poly, err := h.Capture(context.Background(), Prompt{Period: "1999", Label: "vegetation"}, points)
		done <- result{poly, err}
	}()

	status := waitForPending(t, srv)
	if status.Period != "1999" || status.Label != "vegetation" || status.PointCount != 2 {
		t.Errorf("status = %+v", status)
	}

	resp, err := http.Get(srv.URL + "/capture/points")
	if err != nil {
		t.Fatalf("GET points: %v", err)
	}
	var pts PointsResponse
	json.NewDecoder(resp.Body).Decode(&pts)
	resp.Body.Close()
	if len(pts.Points) != 2 || pts.Points[1] != [2]float64{0.6, 0.2} {
		t.Errorf("points = %+v", pts)
	}

	wrong := `{"period":"1999","label":"urban","vertices":[[0,0],[1,0],[1,1]]}`
	resp, err = http.Post(srv.URL+"/capture/vertices", "application/json", strings.NewReader(wrong))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("mismatched prompt status = %d, expected 409", resp.StatusCode)
	}

	body := `{"period":"1999","label":"vegetation","vertices":[[0,0],[1,0],[1,1],[0,1]]}`
	resp, err = http.Post(srv.URL+"/capture/vertices", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("POST status = %d", resp.StatusCode)
	}

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("Capture: %v", r.err)
		}
		if !r.poly.Contains(r2.Point{X: 0.5, Y: 0.5}) {
			t.Error("captured polygon should contain (0.5, 0.5)")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Capture did not return")
	}

	resp, err = http.Get(srv.URL + "/captures")
	if err != nil {
		t.Fatalf("GET captures: %v", err)
	}
	var history []CaptureRecord
	json.NewDecoder(resp.Body).Decode(&history)
	resp.Body.Close()
	if len(history) != 1 || len(history[0].Vertices) != 4 {
		t.Errorf("history = %+v", history)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}
}

func TestHTTPCapturerBadVertex(t *testing.T) {
	_, srv := newTestHTTPCapturer(t, "")
	resp, err := http.Post(srv.URL+"/capture/vertices", "application/json", strings.NewReader(`{"vertices":[[1,2,3]]}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, expected 400", resp.StatusCode)
	}
}

func TestHTTPCapturerTimeout(t *testing.T) {
	h, _ := newTestHTTPCapturer(t, "20ms")
	_, err := h.Capture(context.Background(), Prompt{Period: "1999", Label: "urban"}, nil)
	if !errors.Is(err, ErrCaptureTimeout) {
		t.Errorf("expected ErrCaptureTimeout, got %v", err)
	}

	status := h.current
	if status != nil {
		t.Error("pending capture not cleared after timeout")
	}
}

func TestHTTPCapturerStartPortInUse(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	var wg sync.WaitGroup
	cc := config.CaptureData{Mode: config.CaptureHTTP, ListenAddr: "127.0.0.1", Port: l.Addr().(*net.TCPAddr).Port}
	h, err := NewHTTPCapturer(context.Background(), &wg, cc, nil, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewHTTPCapturer: %v", err)
	}
	if err := h.Start(); err == nil {
		t.Fatal("expected Start to fail on a port already in use")
	}
	if h.Addr() != nil {
		t.Errorf("Addr = %v after failed start", h.Addr())
	}
	wg.Wait()
}

func TestHTTPCapturerStart(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	cc := config.CaptureData{Mode: config.CaptureHTTP, ListenAddr: "127.0.0.1", Port: port}
	h, err := NewHTTPCapturer(ctx, &wg, cc, nil, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewHTTPCapturer: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	resp, err := http.Get("http://" + h.Addr().String() + "/capture")
	if err != nil {
		t.Fatalf("GET /capture: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, expected 200", resp.StatusCode)
	}

	cancel()
	wg.Wait()
}

func TestHTTPCapturerCORS(t *testing.T) {
	_, srv := newTestHTTPCapturer(t, "")
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/capture", nil)
	req.Header.Set("Origin", "http://analyst.local")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, expected *", got)
	}
}
