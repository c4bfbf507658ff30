// Command calibrate runs a standalone calibration and validation pass and
// writes the accuracy report. Useful for checking a rig without starting a
// full recording session.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gazelink/gazelink/internal/report"
	"github.com/gazelink/gazelink/internal/settings"
	"github.com/gazelink/gazelink/internal/tracker"
)

var (
	settingsPath = flag.String("settings", "", "Path to a settings JSON file (defaults apply when empty)")
	hostAddr     = flag.String("host", "", "Override the Host PC address (\"dummy\" for no hardware)")
	backend      = flag.String("backend", "", "Override the display backend")
	out          = flag.String("out", "", "Report output path (defaults to validation.html next to the EDF)")
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

	tr, err := tracker.New(s, tracker.Options{})
	if err != nil {
		log.Fatalf("invalid settings: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tr.Connect(ctx); err != nil {
		log.Fatalf("failed to connect to tracker: %v", err)
	}
	defer func() {
		if err := tr.EndExperiment(context.Background()); err != nil {
			log.Printf("cleanup error: %v", err)
		}
	}()

	result, err := tr.Calibrate(ctx, false)
	if err != nil {
		log.Fatalf("calibration failed: %v", err)
	}
	if result == nil {
		log.Print("dummy mode, nothing to report")
		return
	}

	log.Printf("validation: mean %.2f deg, max %.2f deg, passed=%v",
		result.MeanErrorDeg, result.MaxErrorDeg, result.Passed)

	path := *out
	if path == "" {
		path = filepath.Join(s.Filepath, "validation.html")
	}
	if err := report.SaveValidation(path, *result, s); err != nil {
		log.Fatalf("failed to write report: %v", err)
	}
	log.Printf("report written to %s", path)
}
