package handlers

import (
	"math"
	"strings"
	"sync"
	"time"
)

// placementThrottle caps order attempts per origin address in fixed windows.
// It sheds bursts before they reach the database; the cooldown rule between
// committed orders is enforced inside the placement transaction.
type placementThrottle struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu        sync.Mutex
	origins   map[string]originWindow
	nextSweep time.Time
}

type originWindow struct {
	attempts int
	opened   time.Time
}

// newPlacementThrottle returns nil, which admits everything, when limit or
// window is not positive.
func newPlacementThrottle(limit int, window time.Duration, clock func() time.Time) *placementThrottle {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &placementThrottle{
		limit:   limit,
		window:  window,
		clock:   clock,
		origins: make(map[string]originWindow),
	}
}

// Admit records an attempt from origin. A rejected attempt reports how long
// until the origin's window reopens.
func (t *placementThrottle) Admit(origin string) (bool, time.Duration) {
	if t == nil {
		return true, 0
	}
	origin = strings.TrimSpace(origin)

	now := t.clock()
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweepLocked(now)

	w, ok := t.origins[origin]
	if !ok || now.Sub(w.opened) >= t.window {
		t.origins[origin] = originWindow{attempts: 1, opened: now}
		return true, 0
	}
	if w.attempts >= t.limit {
		return false, w.opened.Add(t.window).Sub(now)
	}
	w.attempts++
	t.origins[origin] = w
	return true, 0
}

// sweepLocked drops closed windows at most once per window length.
func (t *placementThrottle) sweepLocked(now time.Time) {
	if now.Before(t.nextSweep) {
		return
	}
	for origin, w := range t.origins {
		if now.Sub(w.opened) >= t.window {
			delete(t.origins, origin)
		}
	}
	t.nextSweep = now.Add(t.window)
}

func (t *placementThrottle) tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.origins)
}

// retryAfterSeconds rounds d up to whole seconds, with a floor of one.
func retryAfterSeconds(d time.Duration) int {
	return max(int(math.Ceil(d.Seconds())), 1)
}
