package serialmux

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDisabledSerialMux_Subscribers(t *testing.T) {
	d := NewDisabledSerialMux()
	id, ch := d.Subscribe()
	_, other := d.Subscribe()

	d.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Error("channel should be closed on Unsubscribe")
	}

	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-other; ok {
		t.Error("channel should be closed on Close")
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	_, late := d.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscribing after Close should return a closed channel")
	}
}

func TestDisabledSerialMux_NoOps(t *testing.T) {
	d := NewDisabledSerialMux()
	if err := d.Initialize(); err != nil {
		t.Errorf("Initialize: %v", err)
	}
	if err := d.SendCommand(CmdStepCounterOn); err != nil {
		t.Errorf("SendCommand: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := d.Monitor(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Monitor returned %v", err)
	}

	httpMux := http.NewServeMux()
	d.AttachAdminRoutes(httpMux)
	w := httptest.NewRecorder()
	httpMux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/serial-disabled", nil))
	if w.Code != http.StatusOK || w.Body.String() != "sensor board disabled" {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}
