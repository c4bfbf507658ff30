package linkmux

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"
)

// MockPort implements Porter for the replay mux: it reads from a pipe fed by
// a fixture generator and captures writes in memory for inspection.
type MockPort struct {
	io.Reader

	mu      sync.Mutex
	written bytes.Buffer
	closer  io.Closer
}

func (m *MockPort) Write(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.written.Write(p)
}

func (m *MockPort) Close() error {
	if m.closer != nil {
		return m.closer.Close()
	}
	return nil
}

// Written returns everything written to the mock port so far.
func (m *MockPort) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.written.Bytes()...)
}

// NewMockLinkMux creates a mux backed by a mock port that replays fixture
// bytes at the given interval, simulating a live link without hardware. The
// fixture should contain newline-terminated lines.
func NewMockLinkMux(fixture []byte, interval time.Duration) (*LinkMux[*MockPort], *MockPort) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	r, w := io.Pipe()
	port := &MockPort{Reader: r, closer: r}

	go func() {
		defer w.Close()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := w.Write(fixture); err != nil {
				return
			}
		}
	}()

	return New(port), port
}

// TestablePort implements Porter with fine-grained control over reads,
// writes, and errors for unit tests.
type TestablePort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls.
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port.
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set.
	ReadError error

	// WriteError is returned by the next Write call if set.
	WriteError error

	// CloseError is returned by Close if set.
	CloseError error

	// Closed indicates whether Close was called.
	Closed bool

	// BlockReads causes Read to wait until data is added or Close is called.
	BlockReads bool

	readCond *sync.Cond
}

// NewTestablePort creates an empty TestablePort.
func NewTestablePort() *TestablePort {
	p := &TestablePort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	p.readCond = sync.NewCond(&p.mu)
	return p
}

func (p *TestablePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Closed {
		return 0, errors.New("link port closed")
	}
	if p.ReadError != nil {
		err := p.ReadError
		p.ReadError = nil
		return 0, err
	}
	if p.BlockReads && p.ReadBuffer.Len() == 0 {
		for !p.Closed && p.ReadBuffer.Len() == 0 {
			p.readCond.Wait()
		}
		if p.Closed {
			return 0, errors.New("link port closed")
		}
	}
	return p.ReadBuffer.Read(b)
}

func (p *TestablePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Closed {
		return 0, errors.New("link port closed")
	}
	if p.WriteError != nil {
		err := p.WriteError
		p.WriteError = nil
		return 0, err
	}
	return p.WriteBuffer.Write(b)
}

func (p *TestablePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	p.readCond.Broadcast()
	return p.CloseError
}

// AddReadData appends data for subsequent Read calls and wakes a blocked
// reader.
func (p *TestablePort) AddReadData(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ReadBuffer.Write(data)
	p.readCond.Signal()
}

// WrittenData returns all data written to the port.
func (p *TestablePort) WrittenData() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.WriteBuffer.Bytes()...)
}

// MockPortFactory implements PortFactory for testing.
type MockPortFactory struct {
	mu sync.Mutex

	// Port is returned from Open unless Error is set.
	Port Porter

	// Error is returned by Open if set.
	Error error

	// OpenCalls records the addresses passed to Open.
	OpenCalls []string
}

func (f *MockPortFactory) Open(addr string, opts PortOptions) (Porter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OpenCalls = append(f.OpenCalls, addr)
	if f.Error != nil {
		return nil, f.Error
	}
	return f.Port, nil
}
