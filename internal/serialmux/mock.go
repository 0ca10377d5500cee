package serialmux

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// SimulatedBoard is a SerialPorter that behaves like a sensor board carried
// on a walk. It answers commands written to it and, while the matching streams
// are enabled, emits step counter, accelerometer and location lines.
type SimulatedBoard struct {
	pr *io.PipeReader
	pw *io.PipeWriter

	out  chan string
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	caps    []string
	steps   bool
	accel   bool
	gps     bool
	raw     float64
	lat     float64
	lon     float64
	ticks   int
	written bytes.Buffer
}

// NewSimulatedBoard starts a simulated board at the given position. Every
// cadence it takes one step; every fourth step it reports a fix about three
// metres further north.
func NewSimulatedBoard(lat, lon float64, cadence time.Duration, caps ...string) *SimulatedBoard {
	if len(caps) == 0 {
		caps = []string{CapStepCounter, CapAccelerometer, CapLocation}
	}
	pr, pw := io.Pipe()
	b := &SimulatedBoard{
		pr:   pr,
		pw:   pw,
		out:  make(chan string, 256),
		done: make(chan struct{}),
		caps: caps,
		raw:  1000,
		lat:  lat,
		lon:  lon,
	}
	go b.writeLoop()
	go b.walk(cadence)
	return b
}

func (b *SimulatedBoard) Read(p []byte) (int, error) { return b.pr.Read(p) }

// Write interprets each command line and queues the board's reply.
func (b *SimulatedBoard) Write(p []byte) (int, error) {
	select {
	case <-b.done:
		return 0, errors.New("serial port closed")
	default:
	}

	b.mu.Lock()
	b.written.Write(p)
	b.mu.Unlock()

	scan := bufio.NewScanner(bytes.NewReader(p))
	for scan.Scan() {
		b.handle(strings.TrimSpace(scan.Text()))
	}
	return len(p), nil
}

// Close stops the walk and unblocks readers.
func (b *SimulatedBoard) Close() error {
	b.once.Do(func() {
		close(b.done)
		b.pw.Close()
	})
	return nil
}

// Commands returns everything written to the board so far.
func (b *SimulatedBoard) Commands() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written.String()
}

func (b *SimulatedBoard) has(capability string) bool {
	for _, c := range b.caps {
		if c == capability {
			return true
		}
	}
	return false
}

func (b *SimulatedBoard) handle(cmd string) {
	if cmd == "" {
		return
	}
	b.mu.Lock()
	reply := EventTypeAck
	switch {
	case cmd == CmdCapabilities:
		reply = EventTypeCapabilities + "," + strings.Join(b.caps, ",")
	case cmd == CmdStepCounterOn && b.has(CapStepCounter):
		b.steps = true
	case cmd == CmdStepCounterOff:
		b.steps = false
	case cmd == CmdAccelOn && b.has(CapAccelerometer):
		b.accel = true
	case cmd == CmdAccelOff:
		b.accel = false
	case strings.HasPrefix(cmd, "G1,") && b.has(CapLocation):
		b.gps = true
	case cmd == CmdLocationOff:
		b.gps = false
	case strings.HasPrefix(cmd, "T="):
	default:
		reply = fmt.Sprintf("%s,unsupported command %s", EventTypeError, cmd)
	}
	b.mu.Unlock()
	b.emit(reply)
}

func (b *SimulatedBoard) emit(line string) {
	select {
	case b.out <- line + "\n":
	case <-b.done:
	default:
		// nobody is reading; drop like a UART overrun
	}
}

func (b *SimulatedBoard) writeLoop() {
	for {
		select {
		case line := <-b.out:
			if _, err := io.WriteString(b.pw, line); err != nil {
				return
			}
		case <-b.done:
			return
		}
	}
}

func (b *SimulatedBoard) walk(cadence time.Duration) {
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
		}

		var lines []string
		b.mu.Lock()
		b.ticks++
		if b.steps {
			b.raw++
			lines = append(lines, fmt.Sprintf("%s,%.0f", EventTypeStep, b.raw))
		}
		if b.accel {
			// one sample above the step threshold per tick
			lines = append(lines,
				fmt.Sprintf("%s,0.4,9.6,1.1", EventTypeAccel),
				fmt.Sprintf("%s,2.1,12.4,3.0", EventTypeAccel))
		}
		if b.gps && b.ticks%4 == 0 {
			b.lat += 0.000027
			lines = append(lines, fmt.Sprintf("%s,%.6f,%.6f,4.5", EventTypeFix, b.lat, b.lon))
		}
		b.mu.Unlock()

		for _, l := range lines {
			b.emit(l)
		}
	}
}

// NewMockSerialMux creates a SerialMux backed by a SimulatedBoard walking from
// the given position.
func NewMockSerialMux(lat, lon float64, cadence time.Duration) *SerialMux[*SimulatedBoard] {
	return NewSerialMux(NewSimulatedBoard(lat, lon, cadence))
}

// TestableSerialPort implements SerialPorter with configurable behaviour for testing.
// It provides fine-grained control over reads, writes, errors, and latency.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// ReadLatency adds a delay to each Read call
	ReadLatency time.Duration

	// WriteLatency adds a delay to each Write call
	WriteLatency time.Duration

	// ReadError is returned by the next Read call if set
	ReadError error

	// WriteError is returned by the next Write call if set
	WriteError error

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// ReadCalls records the number of Read calls
	ReadCalls int

	// WriteCalls records the number of Write calls
	WriteCalls int

	// ReadTimeout is the current read timeout
	ReadTimeout time.Duration

	// BlockReads causes Read to block until data is added or Close is called
	BlockReads bool

	// readCond is used to signal blocked readers
	readCond *sync.Cond
}

// NewTestableSerialPort creates a new TestableSerialPort for testing.
func NewTestableSerialPort() *TestableSerialPort {
	tsp := &TestableSerialPort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	tsp.readCond = sync.NewCond(&tsp.mu)
	return tsp
}

// Read reads from the read buffer, optionally simulating latency and errors.
func (t *TestableSerialPort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++

	if t.Closed {
		return 0, errors.New("serial port closed")
	}

	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	if t.ReadLatency > 0 {
		t.mu.Unlock()
		time.Sleep(t.ReadLatency)
		t.mu.Lock()
	}

	// If blocking reads are enabled and buffer is empty, wait for data
	if t.BlockReads && t.ReadBuffer.Len() == 0 {
		for !t.Closed && t.ReadBuffer.Len() == 0 {
			t.readCond.Wait()
		}
		if t.Closed {
			return 0, errors.New("serial port closed")
		}
	}

	return t.ReadBuffer.Read(p)
}

// Write writes to the write buffer, optionally simulating latency and errors.
func (t *TestableSerialPort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteCalls++

	if t.Closed {
		return 0, errors.New("serial port closed")
	}

	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}

	if t.WriteLatency > 0 {
		t.mu.Unlock()
		time.Sleep(t.WriteLatency)
		t.mu.Lock()
	}

	return t.WriteBuffer.Write(p)
}

// Close marks the port as closed.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.readCond.Broadcast() // Wake up any blocked readers

	return t.CloseError
}

// SetReadTimeout implements TimeoutSerialPorter.
func (t *TestableSerialPort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadTimeout = timeout
	return nil
}

// AddReadData adds data to be returned by subsequent Read calls.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
	t.readCond.Signal() // Wake up a blocked reader
}

// GetWrittenData returns all data written to the port.
func (t *TestableSerialPort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.WriteBuffer.Bytes()
}

// Reset clears all buffers and resets state.
func (t *TestableSerialPort) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Reset()
	t.WriteBuffer.Reset()
	t.ReadCalls = 0
	t.WriteCalls = 0
	t.Closed = false
	t.ReadError = nil
	t.WriteError = nil
	t.CloseError = nil
	t.ReadLatency = 0
	t.WriteLatency = 0
}
