// Package serialmux provides an abstraction over the sensor board's serial
// port with the ability for multiple clients to subscribe to lines from the
// board and send commands to it.
package serialmux

import (
	"bufio"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"tailscale.com/tsweb"
)

var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

//go:embed templates/*
var adminTemplateFS embed.FS

var sendCommandTemplate = template.Must(template.ParseFS(adminTemplateFS, "templates/send-command.html.tmpl"))

// SerialMux fans the board's lines out to subscribers and serialises
// commands written to it.
type SerialMux[T SerialPorter] struct {
	port T

	mu          sync.Mutex // guards subscribers and closed
	subscribers map[string]chan string
	closed      bool

	writeMu sync.Mutex
}

// SerialMuxInterface is implemented by the real, simulated and disabled
// board connections.
type SerialMuxInterface interface {
	// Subscribe returns a channel of board lines and its id for Unsubscribe.
	Subscribe() (string, chan string)
	Unsubscribe(string)
	SendCommand(string) error
	// Monitor reads board lines until ctx is done or the port closes.
	Monitor(context.Context) error
	// Close closes every subscriber channel and the port.
	Close() error

	// Initialize synchronises the board clock and puts every sensor stream
	// into its stopped state.
	Initialize() error

	// AttachAdminRoutes adds the command console and line tail to /debug/.
	AttachAdminRoutes(*http.ServeMux)
}

// subscriberBuffer is the number of lines a slow subscriber may fall behind
// before lines are dropped for it.
const subscriberBuffer = 64

func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

func (s *SerialMux[T]) Subscribe() (string, chan string) {
	id := uuid.NewString()
	ch := make(chan string, subscriberBuffer)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return id, ch
	}
	s.subscribers[id] = ch
	return id, ch
}

func (s *SerialMux[T]) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// Initialize syncs the board clock to the host, stops every stream and asks
// for the capability list. Streams are enabled later on demand.
func (s *SerialMux[T]) Initialize() error {
	if err := s.SendCommand(ClockCommand(time.Now())); err != nil {
		return fmt.Errorf("failed to synchronize clock: %w", err)
	}
	for _, command := range []string{CmdStepCounterOff, CmdAccelOff, CmdLocationOff, CmdCapabilities} {
		if err := s.SendCommand(command); err != nil {
			return fmt.Errorf("failed to send start command %q: %w", command, err)
		}
	}
	return nil
}

// SendCommand writes one newline-terminated command line.
func (s *SerialMux[T]) SendCommand(command string) error {
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	n, err := s.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor scans the port and offers every non-empty line to each
// subscriber. A subscriber whose buffer is full misses the line.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)
	lines := make(chan string)
	scanErr := make(chan error, 1)

	// scan.Scan blocks, so it runs apart from the ctx select below
	go func() {
		defer close(lines)
		for scan.Scan() {
			select {
			case lines <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			scanErr <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-scanErr:
			return err
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimRight(line, "\r")
			if line == "" {
				continue
			}
			if !s.publish(line) {
				return nil
			}
		}
	}
}

// publish reports false once the mux is closed.
func (s *SerialMux[T]) publish(line string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	for _, ch := range s.subscribers {
		select {
		case ch <- line:
		default:
		}
	}
	return true
}

func (s *SerialMux[T]) Close() error {
	s.mu.Lock()
	s.closed = true
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	s.mu.Unlock()
	return s.port.Close()
}

func (s *SerialMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("send-command", "send a command to the sensor board", func(w http.ResponseWriter, r *http.Request) {
		if err := sendCommandTemplate.Execute(w, commandHelp); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
		}
	})
	debug.HandleSilentFunc("send-command-api", s.handleSendCommand)
	debug.HandleSilentFunc("tail", s.handleTail)
	debug.HandleSilentFunc("tail.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		w.Header().Set("Cache-Control", "no-cache")
		f, err := adminTemplateFS.Open("templates/tail.js")
		if err != nil {
			http.Error(w, "Failed to open tail.js", http.StatusInternalServerError)
			return
		}
		defer f.Close()
		io.Copy(w, f)
	})
}

// handleSendCommand writes a host command from the console form. Only the
// commands the board documents are accepted.
func (s *SerialMux[T]) handleSendCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	command := strings.TrimSpace(r.FormValue("command"))
	if command == "" {
		http.Error(w, "Missing command", http.StatusBadRequest)
		return
	}
	if !IsHostCommand(command) {
		http.Error(w, fmt.Sprintf("Unknown command %q", command), http.StatusBadRequest)
		return
	}
	if err := s.SendCommand(command); err != nil {
		http.Error(w, "Failed to write command", http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, "Wrote command %q to serial port", command)
}

// handleTail streams board lines as server-sent events.
func (s *SerialMux[T]) handleTail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id, lines := s.Subscribe()
	defer s.Unsubscribe(id)

	io.WriteString(w, ": ping\n\n")
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
