package webcam

import (
	"context"
	"errors"
	"testing"
)

func TestCamera_StoppedState(t *testing.T) {
	c := New(0)

	if c.Active() {
		t.Error("expected new camera to be inactive")
	}
	if err := c.Stop(); err != nil {
		t.Errorf("Stop on inactive camera failed: %v", err)
	}
	if _, err := c.Frame(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("expected ErrNotStarted, got %v", err)
	}
}

func TestCamera_StartCancelled(t *testing.T) {
	c := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if c.Active() {
		t.Error("expected camera to stay inactive")
	}
}
