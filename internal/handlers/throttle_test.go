package handlers

import (
	"testing"
	"time"
)

func TestPlacementThrottleWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	throttle := newPlacementThrottle(2, time.Minute, func() time.Time { return now })

	for i := 0; i < 2; i++ {
		if ok, _ := throttle.Admit("203.0.113.1"); !ok {
			t.Fatalf("attempt %d: expected admission", i)
		}
	}

	now = now.Add(15 * time.Second)
	ok, wait := throttle.Admit("203.0.113.1")
	if ok {
		t.Fatalf("expected third attempt in window to be rejected")
	}
	if wait != 45*time.Second {
		t.Fatalf("expected 45s until the window reopens, got %s", wait)
	}

	if ok, _ := throttle.Admit("203.0.113.2"); !ok {
		t.Fatalf("expected another origin to be admitted")
	}

	now = now.Add(45 * time.Second)
	if ok, _ := throttle.Admit("203.0.113.1"); !ok {
		t.Fatalf("expected admission once the window reopens")
	}
}

func TestPlacementThrottleSweepsClosedWindows(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	throttle := newPlacementThrottle(1, time.Minute, func() time.Time { return now })

	throttle.Admit("198.51.100.1")
	throttle.Admit("198.51.100.2")
	if n := throttle.tracked(); n != 2 {
		t.Fatalf("expected 2 tracked origins, got %d", n)
	}

	now = now.Add(2 * time.Minute)
	throttle.Admit("198.51.100.3")
	if n := throttle.tracked(); n != 1 {
		t.Fatalf("expected closed windows to be swept, got %d tracked", n)
	}
}

func TestPlacementThrottleDisabled(t *testing.T) {
	throttle := newPlacementThrottle(0, time.Minute, nil)
	if throttle != nil {
		t.Fatalf("expected nil throttle when limit is zero")
	}
	if ok, _ := throttle.Admit("203.0.113.1"); !ok {
		t.Fatalf("expected nil throttle to admit everything")
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	cases := map[time.Duration]int{
		0:                      1,
		300 * time.Millisecond: 1,
		45 * time.Second:       45,
		44*time.Second + 1:     45,
	}
	for in, want := range cases {
		if got := retryAfterSeconds(in); got != want {
			t.Fatalf("retryAfterSeconds(%s) = %d, want %d", in, got, want)
		}
	}
}
