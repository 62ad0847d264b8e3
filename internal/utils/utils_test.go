package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitFor(t *testing.T) {
	original := sleep
	defer func() { sleep = original }()

	var slept time.Duration
	sleep = func(d time.Duration) { slept = d }

	if err := WaitFor(context.Background(), 3*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slept != 3*time.Second {
		t.Fatalf("expected to sleep 3s, slept %s", slept)
	}

	slept = 0
	if err := WaitFor(context.Background(), 0); err != nil || slept != 0 {
		t.Fatalf("expected no wait for zero duration, err=%v slept=%s", err, slept)
	}
}

func TestWaitForCancelled(t *testing.T) {
	original := sleep
	defer func() { sleep = original }()

	started := make(chan struct{})
	release := make(chan struct{})
	sleep = func(time.Duration) {
		close(started)
		<-release
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitFor(ctx, time.Hour)
	<-started
	close(release)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
