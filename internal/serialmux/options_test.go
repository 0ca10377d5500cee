package serialmux

import (
	"testing"

	"go.bug.st/serial"
)

func TestPortOptions_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		in      PortOptions
		want    PortOptions
		wantErr bool
	}{
		{
			name: "defaults",
			in:   PortOptions{},
			want: PortOptions{BaudRate: DefaultBaudRate, DataBits: 8, StopBits: 1, Parity: "N"},
		},
		{
			name: "explicit values",
			in:   PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "even"},
			want: PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "E"},
		},
		{
			name: "negative baud falls back",
			in:   PortOptions{BaudRate: -5, Parity: " odd "},
			want: PortOptions{BaudRate: DefaultBaudRate, DataBits: 8, StopBits: 1, Parity: "O"},
		},
		{name: "data bits too small", in: PortOptions{DataBits: 4}, wantErr: true},
		{name: "data bits too large", in: PortOptions{DataBits: 9}, wantErr: true},
		{name: "stop bits", in: PortOptions{StopBits: 3}, wantErr: true},
		{name: "parity", in: PortOptions{Parity: "mark"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Normalize()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPortOptions_Equal(t *testing.T) {
	if !(PortOptions{}).Equal(PortOptions{BaudRate: DefaultBaudRate, Parity: "none"}) {
		t.Error("zero options should equal explicit defaults")
	}
	if (PortOptions{BaudRate: 9600}).Equal(PortOptions{}) {
		t.Error("different baud rates should not be equal")
	}
	if (PortOptions{DataBits: 9}).Equal(PortOptions{DataBits: 9}) {
		t.Error("invalid options are never equal")
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	tests := []struct {
		name     string
		in       PortOptions
		stopBits serial.StopBits
		parity   serial.Parity
	}{
		{name: "default", in: PortOptions{}, stopBits: serial.OneStopBit, parity: serial.NoParity},
		{name: "two stop bits", in: PortOptions{StopBits: 2}, stopBits: serial.TwoStopBits, parity: serial.NoParity},
		{name: "even", in: PortOptions{Parity: "E"}, stopBits: serial.OneStopBit, parity: serial.EvenParity},
		{name: "odd", in: PortOptions{Parity: "O"}, stopBits: serial.OneStopBit, parity: serial.OddParity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := tt.in.SerialMode()
			if err != nil {
				t.Fatalf("SerialMode() error = %v", err)
			}
			if mode.BaudRate != DefaultBaudRate || mode.DataBits != 8 {
				t.Errorf("mode = %+v", mode)
			}
			if mode.StopBits != tt.stopBits {
				t.Errorf("StopBits = %v, want %v", mode.StopBits, tt.stopBits)
			}
			if mode.Parity != tt.parity {
				t.Errorf("Parity = %v, want %v", mode.Parity, tt.parity)
			}
		})
	}

	if _, err := (PortOptions{StopBits: 3}).SerialMode(); err == nil {
		t.Error("expected error for invalid options")
	}
}
