// Package api exposes the running tracker session over HTTP: status, manual
// link commands, buffered samples, stored sessions, and a live line tail.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gazelink/gazelink/internal/db"
	"github.com/gazelink/gazelink/internal/monitoring"
	"github.com/gazelink/gazelink/internal/report"
	"github.com/gazelink/gazelink/internal/tracker"
)

type Server struct {
	tracker *tracker.Tracker
	db      *db.DB
}

func NewServer(t *tracker.Tracker, store *db.DB) *Server {
	return &Server{
		tracker: t,
		db:      store,
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.homeHandler)
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/command", s.sendCommandHandler)
	mux.HandleFunc("/message", s.sendMessageHandler)
	mux.HandleFunc("/samples", s.listSamples)
	mux.HandleFunc("/sessions", s.listSessions)
	mux.HandleFunc("/report/gaze", s.gazeReportHandler)
	mux.HandleFunc("/tail", s.tailHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Welcome to the Gazelink Server!"))
}

// Status mirrors the tracker state for dashboards and smoke checks.
type Status struct {
	Connected bool   `json:"connected"`
	Recording bool   `json:"recording"`
	DummyMode bool   `json:"dummy_mode"`
	EDFName   string `json:"edf_name"`
	SessionID string `json:"session_id,omitempty"`
	Samples   int    `json:"samples_buffered"`
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, Status{
		Connected: s.tracker.IsConnected(),
		Recording: s.tracker.IsRecording(),
		DummyMode: s.tracker.DummyMode(),
		EDFName:   s.tracker.EDFName(),
		SessionID: s.tracker.SessionID(),
		Samples:   len(s.tracker.Samples()),
	})
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	command := strings.TrimSpace(r.FormValue("command"))
	if command == "" {
		http.Error(w, "Missing command", http.StatusBadRequest)
		return
	}

	if err := s.tracker.SendCommand(command); err != nil {
		http.Error(w, "Failed to send command", http.StatusInternalServerError)
		return
	}
	io.WriteString(w, "Command sent successfully")
}

func (s *Server) sendMessageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	message := strings.TrimSpace(r.FormValue("message"))
	if message == "" {
		http.Error(w, "Missing message", http.StatusBadRequest)
		return
	}

	if err := s.tracker.SendMessage(message); err != nil {
		http.Error(w, "Failed to send message", http.StatusInternalServerError)
		return
	}
	io.WriteString(w, "Message sent successfully")
}

func (s *Server) listSamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	samples := s.tracker.Samples()
	if lim := r.URL.Query().Get("limit"); lim != "" {
		n, err := strconv.Atoi(lim)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		if n < len(samples) {
			samples = samples[len(samples)-n:]
		}
	}
	s.writeJSON(w, samples)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		http.Error(w, "No session store configured", http.StatusServiceUnavailable)
		return
	}

	sessions, err := s.db.Sessions()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve sessions: %v", err), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, sessions)
}

func (s *Server) gazeReportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	samples := s.tracker.Samples()
	if len(samples) == 0 {
		http.Error(w, "No samples buffered", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.WriteGazeTrace(w, samples, s.tracker.Settings()); err != nil {
		http.Error(w, fmt.Sprintf("Failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}
}

// tailHandler streams raw link lines as Server-Sent Events.
func (s *Server) tailHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	id, lines, err := s.tracker.Subscribe()
	if err != nil {
		http.Error(w, "Tracker not connected", http.StatusServiceUnavailable)
		return
	}
	defer s.tracker.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	// Initial ping so clients see the stream is up before any data arrives.
	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", line); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("api: failed to encode response: %v", err)
	}
}
