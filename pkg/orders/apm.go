package orders

import (
	"fmt"
	"sync"
	"time"

	"github.com/jediswimmer/ironcurtain/pkg/config"
)

// apmWindow is the sliding window over which admitted orders are counted.
const apmWindow = 60 * time.Second

// Tracker enforces an agent's rate profile over a sliding 60-second window.
// One tracker exists per agent per session; batch checks from the same agent
// are serialized by the mutex, so two batches never race on the window.
type Tracker struct {
	mu        sync.Mutex
	profile   *config.APMProfile
	stamps    []time.Time // admitted-order timestamps, oldest first
	lastBatch time.Time
	now       func() time.Time
}

// NewTracker creates a tracker for the given profile.
func NewTracker(profile *config.APMProfile) *Tracker {
	return &Tracker{profile: profile, now: time.Now}
}

// newTrackerAt creates a tracker with an injected clock, for tests.
func newTrackerAt(profile *config.APMProfile, now func() time.Time) *Tracker {
	return &Tracker{profile: profile, now: now}
}

// AdmitBatch decides whether a batch of batchSize orders is admissible.
// On admission the window is charged with batchSize timestamps and the
// last-batch time advances; on refusal the tracker is left untouched.
func (t *Tracker) AdmitBatch(batchSize int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.profile.Unlimited() {
		return nil
	}

	now := t.now()

	// 1. Inter-batch gap.
	if !t.lastBatch.IsZero() {
		if gap := now.Sub(t.lastBatch); gap < t.profile.MinBatchGap {
			return &RateError{
				Code:     CodeTooFast,
				Cooldown: t.profile.MinBatchGap - gap,
				Message:  fmt.Sprintf("minimum gap between batches is %s", t.profile.MinBatchGap),
			}
		}
	}

	// 2. Per-tick order cap.
	if batchSize > t.profile.MaxOrdersPerBatch {
		return &RateError{
			Code:    CodeBatchTooLarge,
			Message: fmt.Sprintf("batch of %d exceeds cap of %d orders", batchSize, t.profile.MaxOrdersPerBatch),
		}
	}

	// 3. Sliding-window ceiling. Pruned here, on every check, never on a timer.
	t.prune(now)
	if len(t.stamps)+batchSize > t.profile.MaxAPM {
		cooldown := time.Duration(0)
		if len(t.stamps) > 0 {
			cooldown = t.stamps[0].Add(apmWindow).Sub(now)
		}
		return &RateError{
			Code:     CodeAPMCeiling,
			Cooldown: cooldown,
			Message:  fmt.Sprintf("%d orders in window, ceiling is %d", len(t.stamps), t.profile.MaxAPM),
		}
	}

	// 4. Admit: charge the window and advance the last-batch stamp.
	for i := 0; i < batchSize; i++ {
		t.stamps = append(t.stamps, now)
	}
	t.lastBatch = now
	return nil
}

// CurrentAPM returns the number of admitted orders in the last 60 seconds.
// The window is pruned before counting.
func (t *Tracker) CurrentAPM() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(t.now())
	return len(t.stamps)
}

// prune drops timestamps at or older than now-60s. Caller holds the mutex.
func (t *Tracker) prune(now time.Time) {
	cutoff := now.Add(-apmWindow)
	i := 0
	for i < len(t.stamps) && !t.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		t.stamps = append(t.stamps[:0], t.stamps[i:]...)
	}
}
