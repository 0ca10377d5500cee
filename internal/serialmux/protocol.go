package serialmux

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Board to host line types. Each line is a comma separated record whose first
// field names the record.
const (
	EventTypeStep         = "STEP"
	EventTypeAccel        = "ACC"
	EventTypeFix          = "FIX"
	EventTypeCapabilities = "CAPS"
	EventTypeError        = "ERR"
	EventTypeAck          = "OK"
	EventTypeUnknown      = "unknown"
)

// Capability tokens reported in a CAPS line.
const (
	CapStepCounter   = "step"
	CapAccelerometer = "accel"
	CapLocation      = "gps"
)

// Host to board commands.
const (
	CmdStepCounterOn  = "S1"
	CmdStepCounterOff = "S0"
	CmdAccelOn        = "A1"
	CmdAccelOff       = "A0"
	CmdLocationOff    = "G0"
	CmdCapabilities   = "CAPS"
)

var ErrMalformedLine = errors.New("malformed board line")

// Event is a parsed board line.
type Event struct {
	Type    string
	Values  []float64
	Caps    []string
	Message string
	Raw     string
}

// ClassifyPayload returns the record type of a board line without parsing its
// fields. Lines that do not start with a known record name are reported as
// EventTypeUnknown.
func ClassifyPayload(payload string) string {
	head, _, _ := strings.Cut(strings.TrimSpace(payload), ",")
	switch head {
	case EventTypeStep, EventTypeAccel, EventTypeFix, EventTypeCapabilities, EventTypeError, EventTypeAck:
		return head
	}
	return EventTypeUnknown
}

// ParseEvent parses one line received from the board.
func ParseEvent(line string) (Event, error) {
	line = strings.TrimSpace(line)
	ev := Event{Type: ClassifyPayload(line), Raw: line}
	fields := strings.Split(line, ",")[1:]

	switch ev.Type {
	case EventTypeStep:
		return ev, ev.parseValues(fields, 1)
	case EventTypeAccel:
		return ev, ev.parseValues(fields, 3)
	case EventTypeFix:
		if err := ev.parseValues(fields, 3); err != nil {
			return ev, err
		}
		if ev.Values[0] < -90 || ev.Values[0] > 90 || ev.Values[1] < -180 || ev.Values[1] > 180 {
			return ev, fmt.Errorf("%w: coordinates out of range in %q", ErrMalformedLine, line)
		}
		return ev, nil
	case EventTypeCapabilities:
		for _, f := range fields {
			if f = strings.TrimSpace(f); f != "" {
				ev.Caps = append(ev.Caps, strings.ToLower(f))
			}
		}
		return ev, nil
	case EventTypeError:
		ev.Message = strings.TrimSpace(strings.Join(fields, ","))
		return ev, nil
	case EventTypeAck:
		return ev, nil
	}
	return ev, fmt.Errorf("%w: unknown record %q", ErrMalformedLine, line)
}

func (ev *Event) parseValues(fields []string, n int) error {
	if len(fields) != n {
		return fmt.Errorf("%w: %s wants %d values, got %d", ErrMalformedLine, ev.Type, n, len(fields))
	}
	ev.Values = make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return fmt.Errorf("%w: %s field %d: %v", ErrMalformedLine, ev.Type, i+1, err)
		}
		ev.Values[i] = v
	}
	return nil
}

// ClockCommand returns the command that sets the board clock to t.
func ClockCommand(t time.Time) string {
	return fmt.Sprintf("T=%d", t.Unix())
}

// LocationCommand returns the command that starts location updates with the
// given cadence, minimum displacement in metres and priority name.
func LocationCommand(interval, minInterval time.Duration, minDistanceM float64, priority string) string {
	return fmt.Sprintf("G1,%d,%d,%s,%s",
		interval.Milliseconds(), minInterval.Milliseconds(),
		strconv.FormatFloat(minDistanceM, 'f', -1, 64), priority)
}

// IsHostCommand reports whether command is something the board understands.
func IsHostCommand(command string) bool {
	command = strings.TrimSpace(command)
	switch command {
	case CmdStepCounterOn, CmdStepCounterOff, CmdAccelOn, CmdAccelOff, CmdLocationOff, CmdCapabilities:
		return true
	}
	if rest, ok := strings.CutPrefix(command, "T="); ok {
		_, err := strconv.ParseInt(rest, 10, 64)
		return err == nil
	}
	if rest, ok := strings.CutPrefix(command, "G1,"); ok {
		return len(strings.Split(rest, ",")) == 4
	}
	return false
}

type commandDoc struct {
	Command     string
	Description string
}

var commandHelp = []commandDoc{
	{"T=<unix>", "set the board clock"},
	{CmdCapabilities, "report available sensors"},
	{CmdStepCounterOn + " / " + CmdStepCounterOff, "start / stop the hardware step counter"},
	{CmdAccelOn + " / " + CmdAccelOff, "start / stop accelerometer samples"},
	{"G1,<interval_ms>,<min_interval_ms>,<min_m>,<priority>", "start location fixes"},
	{CmdLocationOff, "stop location fixes"},
}
