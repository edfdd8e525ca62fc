package ratelimit

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestDelayBounds(t *testing.T) {
	p := NewPacer(2*time.Second, 3*time.Second, nil)
	p.SetRand(rand.New(rand.NewSource(7)))

	for i := 0; i < 100; i++ {
		d := p.Delay()
		if d < 2*time.Second || d >= 5*time.Second {
			t.Fatalf("delay out of bounds: %v", d)
		}
	}
}

func TestDelayNoJitter(t *testing.T) {
	p := NewPacer(2*time.Second, 0, nil)
	if got := p.Delay(); got != 2*time.Second {
		t.Errorf("Delay = %v, want 2s", got)
	}
}

func TestWaitSkipsLastItem(t *testing.T) {
	p := NewPacer(time.Hour, 0, nil)
	p.SetSleep(func(ctx context.Context, d time.Duration) error {
		t.Fatal("sleep must not be called for the last item")
		return nil
	})

	if err := p.Wait(context.Background(), true); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestWaitSleepsBetweenItems(t *testing.T) {
	p := NewPacer(2*time.Second, 0, nil)

	var slept time.Duration
	p.SetSleep(func(ctx context.Context, d time.Duration) error {
		slept = d
		return nil
	})

	if err := p.Wait(context.Background(), false); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if slept != 2*time.Second {
		t.Errorf("slept %v, want 2s", slept)
	}
}

func TestWaitCancelled(t *testing.T) {
	p := NewPacer(time.Hour, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Wait(ctx, false); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
