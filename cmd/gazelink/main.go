// Command gazelink runs a tracker session: it connects to the Host PC (or
// dummy mode), optionally calibrates, records gaze data, and serves the HTTP
// API until interrupted. On shutdown the EDF file is transferred from the
// host and the session is closed.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gazelink/gazelink/internal/api"
	"github.com/gazelink/gazelink/internal/db"
	"github.com/gazelink/gazelink/internal/linkmux"
	"github.com/gazelink/gazelink/internal/report"
	"github.com/gazelink/gazelink/internal/settings"
	"github.com/gazelink/gazelink/internal/tracker"
)

var (
	settingsPath = flag.String("settings", "", "Path to a settings JSON file (defaults apply when empty)")
	listen       = flag.String("listen", ":8080", "HTTP listen address")
	dbFile       = flag.String("db", "gazelink.db", "Session database path (empty disables the store)")
	hostAddr     = flag.String("host", "", "Override the Host PC address (\"dummy\" for no hardware)")
	backend      = flag.String("backend", "", "Override the display backend")
	calibrate    = flag.Bool("calibrate", false, "Run calibration and validation before recording")
	rawData      = flag.Bool("raw", false, "Stream raw pupil/CR data over the link")
	devMode      = flag.Bool("dev", false, "Replay fixture lines instead of real hardware")
	fixtures     = flag.String("fixtures", "fixtures.txt", "Fixture file replayed on the link in dev mode")
)

func main() {
	flag.Parse()

	s := settings.Default()
	if *settingsPath != "" {
		var err error
		s, err = settings.LoadFile(*settingsPath)
		if err != nil {
			log.Fatalf("failed to load settings: %v", err)
		}
	}
	if *hostAddr != "" {
		s.HostAddr = *hostAddr
	}
	if *backend != "" {
		s.Backend = *backend
	}

	var store *db.DB
	if *dbFile != "" {
		var err error
		store, err = db.Open(*dbFile)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer store.Close()
	}

	opts := tracker.Options{
		Store:         store,
		RecordRawData: *rawData,
	}
	if *devMode {
		data, err := os.ReadFile(*fixtures)
		if err != nil {
			log.Fatalf("failed to open fixtures file: %v", err)
		}
		mux, _ := linkmux.NewMockLinkMux(data, 100*time.Millisecond)
		opts.Mux = mux
		// Dummy host: commands are logged, the replayed lines still flow,
		// and shutdown skips the EDF transfer there is no host for.
		s.HostAddr = "dummy"
	}

	tr, err := tracker.New(s, opts)
	if err != nil {
		log.Fatalf("invalid settings: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tr.Connect(ctx); err != nil {
		log.Fatalf("failed to connect to tracker: %v", err)
	}

	if *calibrate {
		result, err := tr.Calibrate(ctx, true)
		if err != nil {
			log.Fatalf("calibration failed: %v", err)
		}
		if result != nil {
			path := filepath.Join(s.Filepath, "validation.html")
			if err := report.SaveValidation(path, *result, s); err != nil {
				log.Printf("failed to write validation report: %v", err)
			} else {
				log.Printf("validation report written to %s", path)
			}
			if !result.Passed {
				log.Printf("validation over threshold (mean %.2f deg); continuing, consider recalibrating", result.MeanErrorDeg)
			}
		}
	}

	if err := tr.StartRecording(true); err != nil {
		log.Fatalf("failed to start recording: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(tr, store).ServeMux()
		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	<-ctx.Done()
	stop()

	// Fresh context: the signal context is already cancelled and the EDF
	// transfer still has to run.
	endCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := tr.EndExperiment(endCtx); err != nil {
		log.Printf("experiment cleanup error: %v", err)
	}

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
