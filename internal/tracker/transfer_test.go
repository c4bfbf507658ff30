package tracker

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gazelink/gazelink/internal/settings"
)

func TestReceiveDataFile(t *testing.T) {
	h := newHarness(t, nil, Options{})
	n := len(h.commands())

	errc := make(chan error, 1)
	go func() { errc <- h.tracker.ReceiveDataFile(context.Background()) }()

	h.waitForCommand(t, "receive_data_file test.edf")

	payload := []byte("hello world")
	h.port.AddReadData([]byte("FILE test.edf 11\n"))
	h.port.AddReadData([]byte(base64.StdEncoding.EncodeToString(payload[:6]) + "\n"))
	h.port.AddReadData([]byte(base64.StdEncoding.EncodeToString(payload[6:]) + "\n"))
	h.port.AddReadData([]byte("FILE END\n"))

	if err := <-errc; err != nil {
		t.Fatalf("ReceiveDataFile: %v", err)
	}

	equalCommands(t, h.commandsSince(n), []string{
		"set_idle_mode",
		"close_data_file",
		"receive_data_file test.edf",
	})

	local := filepath.Join(h.tracker.Settings().Filepath, "test.edf")
	data, err := os.ReadFile(local)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello world" {
		t.Errorf("received file = %q, want %q", data, "hello world")
	}
}

func TestReceiveDataFileSkipsUnrelatedLines(t *testing.T) {
	h := newHarness(t, nil, Options{})

	errc := make(chan error, 1)
	go func() { errc <- h.tracker.ReceiveDataFile(context.Background()) }()

	h.waitForCommand(t, "receive_data_file test.edf")

	// Samples still in flight before the header must not break the transfer.
	h.port.AddReadData([]byte("1000 512.5 384.2 900.0\n"))
	h.port.AddReadData([]byte("MSG 1001 still recording\n"))
	h.port.AddReadData([]byte("FILE test.edf 5\n"))
	h.port.AddReadData([]byte(base64.StdEncoding.EncodeToString([]byte("gazes")) + "\n"))
	h.port.AddReadData([]byte("FILE END\n"))

	if err := <-errc; err != nil {
		t.Fatalf("ReceiveDataFile: %v", err)
	}
}

func TestReceiveDataFileIncomplete(t *testing.T) {
	h := newHarness(t, nil, Options{})

	errc := make(chan error, 1)
	go func() { errc <- h.tracker.ReceiveDataFile(context.Background()) }()

	h.waitForCommand(t, "receive_data_file test.edf")
	h.port.AddReadData([]byte("FILE test.edf 100\n"))
	h.port.AddReadData([]byte(base64.StdEncoding.EncodeToString([]byte("short")) + "\n"))
	h.port.AddReadData([]byte("FILE END\n"))

	err := <-errc
	if err == nil || !strings.Contains(err.Error(), "incomplete") {
		t.Errorf("truncated transfer error = %v, want incomplete", err)
	}
}

func TestReceiveDataFileWrongName(t *testing.T) {
	h := newHarness(t, nil, Options{})

	errc := make(chan error, 1)
	go func() { errc <- h.tracker.ReceiveDataFile(context.Background()) }()

	h.waitForCommand(t, "receive_data_file test.edf")
	h.port.AddReadData([]byte("FILE other.edf 5\n"))

	if err := <-errc; err == nil {
		t.Error("mismatched file name did not fail the transfer")
	}
}

func TestReceiveDataFileCancelled(t *testing.T) {
	h := newHarness(t, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- h.tracker.ReceiveDataFile(ctx) }()

	h.waitForCommand(t, "receive_data_file test.edf")
	cancel()

	if err := <-errc; err == nil {
		t.Error("cancelled transfer did not return an error")
	}
}

func TestReceiveDataFileNotConnected(t *testing.T) {
	tr, err := New(settings.Default(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.ReceiveDataFile(context.Background()); err == nil {
		t.Error("ReceiveDataFile before Connect did not fail")
	}
}
