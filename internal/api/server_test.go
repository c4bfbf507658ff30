package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gazelink/gazelink/internal/display"
	"github.com/gazelink/gazelink/internal/edf"
	"github.com/gazelink/gazelink/internal/linkmux"
	"github.com/gazelink/gazelink/internal/settings"
	"github.com/gazelink/gazelink/internal/tracker"
)

// newTestServer connects a tracker to a controllable port and returns the
// API server over it. The port records commands and feeds lines to the pump.
func newTestServer(t *testing.T) (*Server, *tracker.Tracker, *linkmux.TestablePort) {
	t.Helper()

	s := settings.Default()
	s.Filepath = t.TempDir()
	s.Backend = settings.BackendHeadless

	port := linkmux.NewTestablePort()
	port.BlockReads = true
	mux := linkmux.New(port)

	tr, err := tracker.New(s, tracker.Options{
		Mux:     mux,
		Display: display.NewHeadless(s),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mux.Close() })

	return NewServer(tr, nil), tr, port
}

// feedSample pushes one gaze sample through the link and waits for the pump.
func feedSample(t *testing.T, tr *tracker.Tracker, port *linkmux.TestablePort) {
	t.Helper()
	port.AddReadData([]byte("1000 512.5 384.2 900.0\n"))
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := tr.NewestSample(); ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("sample never reached the ring buffer")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStatusHandler(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var st Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if !st.Connected || st.Recording || st.DummyMode {
		t.Errorf("status = %+v, want connected, not recording, not dummy", st)
	}
	if st.EDFName != "test.edf" {
		t.Errorf("EDFName = %q, want test.edf", st.EDFName)
	}
}

func TestSendCommandHandler(t *testing.T) {
	srv, _, port := newTestServer(t)
	mux := srv.ServeMux()

	form := url.Values{"command": {"set_idle_mode"}}
	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(string(port.WrittenData()), "set_idle_mode") {
		t.Error("command never reached the link")
	}

	// Empty command rejected.
	req = httptest.NewRequest(http.MethodPost, "/command", strings.NewReader("command="))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty command status = %d, want 400", rec.Code)
	}

	// Wrong method rejected.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/command", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /command status = %d, want 405", rec.Code)
	}
}

func TestSendMessageHandler(t *testing.T) {
	srv, _, port := newTestServer(t)

	form := url.Values{"message": {"TRIALID 1"}}
	req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(string(port.WrittenData()), "data_message TRIALID 1") {
		t.Error("message never reached the link")
	}
}

func TestListSamples(t *testing.T) {
	srv, tr, port := newTestServer(t)
	feedSample(t, tr, port)

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/samples", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var samples []edf.Sample
	if err := json.NewDecoder(rec.Body).Decode(&samples); err != nil {
		t.Fatal(err)
	}
	if len(samples) != 1 || samples[0].TimeMS != 1000 {
		t.Errorf("samples = %+v, want one at t=1000", samples)
	}

	rec = httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/samples?limit=0", nil))
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("limit=0 body = %q, want []", body)
	}

	rec = httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/samples?limit=nope", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestListSessionsWithoutStore(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestGazeReportHandler(t *testing.T) {
	srv, tr, port := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report/gaze", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("empty buffer status = %d, want 404", rec.Code)
	}

	feedSample(t, tr, port)

	rec = httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report/gaze", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Gaze Trace") {
		t.Error("report missing title")
	}
}

func TestTailSSE(t *testing.T) {
	srv, _, port := newTestServer(t)

	ts := httptest.NewServer(srv.ServeMux())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/tail", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	if scanner.Scan() && !strings.HasPrefix(scanner.Text(), ": ping") {
		t.Errorf("expected initial ping, got %q", scanner.Text())
	}

	port.AddReadData([]byte("MSG 1300 SYNCTIME\n"))

	gotData := false
	for i := 0; i < 5 && scanner.Scan(); i++ {
		if strings.Contains(scanner.Text(), "SYNCTIME") {
			gotData = true
			break
		}
	}
	if !gotData {
		t.Error("did not receive SSE data event")
	}
}
