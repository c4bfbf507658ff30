// Package linkmux provides an abstraction over the tracker link with the
// ability for multiple clients to subscribe to lines arriving from the Host
// PC and to send commands to the single link device.
package linkmux

import (
	"bufio"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

// ErrWriteFailed reports a short write to the link port.
var ErrWriteFailed = fmt.Errorf("failed to write to link port")

// Muxer is the interface the tracker and the API server consume.
type Muxer interface {
	// Subscribe creates a new channel receiving line events from the link.
	// The returned ID identifies the channel when unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes a channel from the subscriber set and closes it.
	Unsubscribe(string)
	// SendCommand writes one newline-terminated command to the link.
	SendCommand(string) error
	// Monitor reads lines from the link and fans them out to subscribers.
	// It blocks until the context is cancelled or the link fails.
	Monitor(context.Context) error
	// Close closes all subscriber channels and the underlying port.
	Close() error
}

// LinkMux multiplexes a single link port to any number of line subscribers.
type LinkMux[T Porter] struct {
	port         T
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// New creates a LinkMux backed by the given port.
func New[T Porter](port T) *LinkMux[T] {
	return &LinkMux[T]{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value).
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// subscriberBuffer absorbs line bursts (sample batches, file transfer
// chunks) so a briefly busy subscriber does not lose data.
const subscriberBuffer = 512

func (m *LinkMux[T]) Subscribe() (string, chan string) {
	id := randomID()
	ch := make(chan string, subscriberBuffer)
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

func (m *LinkMux[T]) Unsubscribe(id string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// SendCommand writes a command to the link, appending the newline terminator
// if absent. Commands are serialised by a mutex so interleaved callers cannot
// corrupt the stream.
func (m *LinkMux[T]) SendCommand(command string) error {
	m.commandMu.Lock()
	defer m.commandMu.Unlock()
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	n, err := m.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor reads lines from the link port and sends them to subscribers. A
// subscriber that is not keeping up misses lines rather than stalling the
// reader: real-time sample delivery must never block on a slow consumer.
func (m *LinkMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(m.port)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// Read in a separate goroutine so the blocking scan.Scan cannot prevent
	// the outer loop from observing context cancellation.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				// Port reached EOF; surface any scanner error.
				if err := scan.Err(); err != nil {
					return err
				}
				return nil
			}

			m.closingMu.Lock()
			if m.closing {
				m.closingMu.Unlock()
				return nil
			}
			m.closingMu.Unlock()

			m.subscriberMu.Lock()
			for _, ch := range m.subscribers {
				select {
				case ch <- line:
				default:
					// subscriber not ready; drop rather than block
				}
			}
			m.subscriberMu.Unlock()
		}
	}
}

func (m *LinkMux[T]) Close() error {
	m.closingMu.Lock()
	m.closing = true
	m.closingMu.Unlock()

	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
	return m.port.Close()
}
