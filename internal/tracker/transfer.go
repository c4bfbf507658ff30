package tracker

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gazelink/gazelink/internal/monitoring"
)

// transferLineTimeout bounds the wait for each transfer line from the host.
const transferLineTimeout = 30 * time.Second

// offlineSettleDelay follows set_idle_mode before closing the data file; the
// host flushes buffered samples during the transition.
const offlineSettleDelay = 500 * time.Millisecond

// closeFileSettleDelay follows close_data_file before the transfer request.
const closeFileSettleDelay = time.Second

// ReceiveDataFile closes the EDF file on the host and streams it to the
// configured local path. The host sends a header line with the file size,
// base64 data lines, and an end marker; the received byte count is checked
// against the header.
//
// Transfer can be slow on large files; run it from a terminal session, not
// under a display loop.
func (t *Tracker) ReceiveDataFile(ctx context.Context) error {
	t.mu.Lock()
	dummy := t.dummy
	mux := t.mux
	t.mu.Unlock()

	if mux == nil {
		return fmt.Errorf("tracker not connected: call Connect first")
	}
	if dummy {
		monitoring.Logf("tracker: dummy mode, no data file to transfer")
		return nil
	}

	if err := t.SendCommand("set_idle_mode"); err != nil {
		return err
	}
	t.clock.Sleep(offlineSettleDelay)

	if err := t.SendCommand("close_data_file"); err != nil {
		return err
	}
	t.clock.Sleep(closeFileSettleDelay)

	id, lines := mux.Subscribe()
	defer mux.Unsubscribe(id)

	if err := t.SendCommand("receive_data_file " + t.edfName); err != nil {
		return err
	}

	localPath := filepath.Join(t.settings.Filepath, t.edfName)
	monitoring.Logf("tracker: receiving data file: %s -> %s", t.edfName, localPath)

	size, err := readTransferHeader(ctx, lines, t.edfName)
	if err != nil {
		return err
	}

	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local data file: %w", err)
	}
	defer out.Close()

	var received int64
	for received < size {
		line, err := nextTransferLine(ctx, lines)
		if err != nil {
			return err
		}
		if strings.HasPrefix(line, "FILE END") {
			break
		}
		chunk, err := base64.StdEncoding.DecodeString(strings.TrimSpace(line))
		if err != nil {
			return fmt.Errorf("corrupt transfer chunk: %w", err)
		}
		if _, err := out.Write(chunk); err != nil {
			return fmt.Errorf("failed to write data file: %w", err)
		}
		received += int64(len(chunk))
	}

	if received != size {
		return fmt.Errorf("data file transfer incomplete: got %d of %d bytes", received, size)
	}
	monitoring.Logf("tracker: data file transfer complete (%d bytes)", size)
	return nil
}

// readTransferHeader waits for the "FILE <name> <size>" line, skipping any
// unrelated link traffic still in flight.
func readTransferHeader(ctx context.Context, lines <-chan string, name string) (int64, error) {
	for {
		line, err := nextTransferLine(ctx, lines)
		if err != nil {
			return 0, err
		}
		fields := strings.Fields(line)
		if len(fields) != 3 || fields[0] != "FILE" {
			continue
		}
		if fields[1] != name {
			return 0, fmt.Errorf("host offered file %q, requested %q", fields[1], name)
		}
		size, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil || size < 0 {
			return 0, fmt.Errorf("bad transfer size %q", fields[2])
		}
		return size, nil
	}
}

func nextTransferLine(ctx context.Context, lines <-chan string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(transferLineTimeout):
		return "", fmt.Errorf("timed out waiting for data file transfer")
	case line, ok := <-lines:
		if !ok {
			return "", fmt.Errorf("link closed during data file transfer")
		}
		return line, nil
	}
}
