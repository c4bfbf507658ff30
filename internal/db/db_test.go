package db

import (
	"path/filepath"
	"testing"

	"github.com/gazelink/gazelink/internal/edf"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenAppliesMigrations(t *testing.T) {
	db := testDB(t)

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if dirty {
		t.Error("database dirty after migration")
	}
	if version == 0 {
		t.Error("no migration applied")
	}

	for _, table := range []string{"sessions", "samples", "events", "messages"} {
		var count int
		err := db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&count)
		if err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := testDB(t)

	id, err := db.BeginSession("ABC123", "100.1.1.1:589")
	if err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if id == "" {
		t.Fatal("empty session id")
	}

	sessions, err := db.Sessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	if sessions[0].ID != id || sessions[0].EDFName != "ABC123" {
		t.Errorf("session = %+v", sessions[0])
	}
	if sessions[0].EndedAt != nil {
		t.Error("session already ended")
	}

	if err := db.EndSession(id); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	sessions, err = db.Sessions()
	if err != nil {
		t.Fatal(err)
	}
	if sessions[0].EndedAt == nil {
		t.Error("EndSession did not stamp ended_at")
	}

	// Ending twice fails.
	if err := db.EndSession(id); err == nil {
		t.Error("expected error ending a closed session")
	}
	if err := db.EndSession("nope"); err == nil {
		t.Error("expected error ending an unknown session")
	}
}

func TestRecordAndQuerySamples(t *testing.T) {
	db := testDB(t)
	id, err := db.BeginSession("TEST", "dummy")
	if err != nil {
		t.Fatal(err)
	}

	for i := int64(0); i < 5; i++ {
		s := edf.Sample{
			TimeMS: 1000 + i*2,
			Left:   edf.GazePoint{X: 100 + float64(i), Y: 200, Pupil: 900, Valid: true},
			Right:  edf.GazePoint{X: 105 + float64(i), Y: 201, Pupil: 910, Valid: true},
		}
		if err := db.RecordSample(id, s); err != nil {
			t.Fatalf("RecordSample: %v", err)
		}
	}

	samples, err := db.RecentSamples(id, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}
	if samples[0].TimeMS != 1008 {
		t.Errorf("newest sample at %d, want 1008", samples[0].TimeMS)
	}
	if !samples[0].Left.Valid || samples[0].Left.X != 104 {
		t.Errorf("newest left gaze = %+v", samples[0].Left)
	}

	// Default limit when given zero.
	samples, err = db.RecentSamples(id, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 5 {
		t.Errorf("got %d samples with default limit, want 5", len(samples))
	}
}

func TestRecordEventAndMessage(t *testing.T) {
	db := testDB(t)
	id, err := db.BeginSession("TEST", "dummy")
	if err != nil {
		t.Fatal(err)
	}

	ev := edf.Event{
		Type:    edf.FixationEnd,
		StartMS: 1000, EndMS: 1250, DurMS: 250,
		X: 640, Y: 512, Pupil: 950,
	}
	if err := db.RecordEvent(id, ev); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if err := db.RecordMessage(id, 1300, "TRIALID 1"); err != nil {
		t.Fatalf("RecordMessage: %v", err)
	}

	sum, err := db.SessionSummary(id)
	if err != nil {
		t.Fatal(err)
	}
	if sum.EventCount != 1 || sum.MessageCount != 1 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestSessionSummarySpan(t *testing.T) {
	db := testDB(t)
	id, err := db.BeginSession("TEST", "dummy")
	if err != nil {
		t.Fatal(err)
	}

	for _, ms := range []int64{5000, 5002, 5004} {
		s := edf.Sample{TimeMS: ms, Left: edf.GazePoint{Valid: true}}
		if err := db.RecordSample(id, s); err != nil {
			t.Fatal(err)
		}
	}

	sum, err := db.SessionSummary(id)
	if err != nil {
		t.Fatal(err)
	}
	if sum.SampleCount != 3 || sum.FirstMS != 5000 || sum.LastMS != 5004 {
		t.Errorf("summary = %+v", sum)
	}

	// Empty session summarises to zeros.
	empty, err := db.BeginSession("EMPTY", "dummy")
	if err != nil {
		t.Fatal(err)
	}
	sum, err = db.SessionSummary(empty)
	if err != nil {
		t.Fatal(err)
	}
	if sum.SampleCount != 0 || sum.FirstMS != 0 || sum.LastMS != 0 {
		t.Errorf("empty summary = %+v", sum)
	}
}

func TestMigrateDown(t *testing.T) {
	db := testDB(t)
	if err := db.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}
	version, _, err := db.MigrateVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != 0 {
		t.Errorf("version = %d after down, want 0", version)
	}
}
