package breaker

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sentinel-hq/sentinel/pkg/store"
)

// admit requires the breaker to let the call through.
func admit(t *testing.T, b *Breaker) *Admission {
	t.Helper()
	adm, err := b.Allow()
	if err != nil {
		t.Fatalf("Allow rejected: %v", err)
	}
	return adm
}

func TestBreaker_TripsAtThreshold(t *testing.T) {
	b := New("openai", 3, time.Minute, nil)

	for i := 0; i < 2; i++ {
		admit(t, b).Failure()
	}
	if b.State() != StateClosed {
		t.Fatalf("state = %s after 2 failures, want closed", b.State())
	}

	admit(t, b).Failure()

	if b.State() != StateOpen {
		t.Fatalf("state = %s after 3 failures, want open", b.State())
	}

	// The next call is short-circuited.
	_, err := b.Allow()
	var openErr *OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("want OpenError, got %v", err)
	}
	if openErr.RetryAfter <= 0 {
		t.Errorf("retry after = %s, want positive", openErr.RetryAfter)
	}
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := New("openai", 3, time.Minute, nil)

	admit(t, b).Failure()
	admit(t, b).Failure()
	admit(t, b).Success()
	if b.Failures() != 0 {
		t.Errorf("failures = %d after success, want 0", b.Failures())
	}

	// The counter starts over; two more failures do not trip.
	admit(t, b).Failure()
	admit(t, b).Failure()
	if b.State() != StateClosed {
		t.Errorf("state = %s, want closed", b.State())
	}
}

func TestBreaker_ExactlyOneProbe(t *testing.T) {
	b := New("openai", 1, 20*time.Millisecond, nil)
	admit(t, b).Failure()
	if b.State() != StateOpen {
		t.Fatal("breaker should be open")
	}

	time.Sleep(30 * time.Millisecond)

	// Many concurrent callers race for the probe slot.
	const callers = 16
	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := b.Allow(); err == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := admitted.Load(); n != 1 {
		t.Errorf("admitted %d probes, want exactly 1", n)
	}
	if b.State() != StateHalfOpen {
		t.Errorf("state = %s, want half_open", b.State())
	}
}

func TestBreaker_ProbeSuccessCloses(t *testing.T) {
	b := New("openai", 1, 10*time.Millisecond, nil)
	admit(t, b).Failure()
	time.Sleep(20 * time.Millisecond)

	probe, err := b.Allow()
	if err != nil {
		t.Fatalf("probe not admitted: %v", err)
	}
	probe.Success()

	if b.State() != StateClosed {
		t.Errorf("state = %s after probe success, want closed", b.State())
	}
	if b.Failures() != 0 {
		t.Errorf("failures = %d after probe success, want 0", b.Failures())
	}
	if _, err := b.Allow(); err != nil {
		t.Errorf("closed breaker rejected a call: %v", err)
	}
}

func TestBreaker_ProbeFailureReopens(t *testing.T) {
	b := New("openai", 1, 15*time.Millisecond, nil)
	admit(t, b).Failure()
	time.Sleep(25 * time.Millisecond)

	probe, err := b.Allow()
	if err != nil {
		t.Fatalf("probe not admitted: %v", err)
	}
	probe.Failure()

	if b.State() != StateOpen {
		t.Fatalf("state = %s after probe failure, want open", b.State())
	}
	// Cooldown restarted: an immediate call is still rejected.
	if _, err := b.Allow(); err == nil {
		t.Error("call admitted immediately after probe failure")
	}
}

func TestBreaker_HalfOpenRejectsWhileProbeInFlight(t *testing.T) {
	b := New("openai", 1, 10*time.Millisecond, nil)
	admit(t, b).Failure()
	time.Sleep(20 * time.Millisecond)

	if _, err := b.Allow(); err != nil {
		t.Fatalf("probe not admitted: %v", err)
	}
	// Probe unresolved: everyone else is short-circuited.
	for i := 0; i < 3; i++ {
		if _, err := b.Allow(); err == nil {
			t.Fatal("second caller admitted while probe in flight")
		}
	}
}

func TestBreaker_ReleasedProbeHandsSlotToNextCaller(t *testing.T) {
	b := New("openai", 1, 10*time.Millisecond, nil)
	admit(t, b).Failure()
	time.Sleep(20 * time.Millisecond)

	probe, err := b.Allow()
	if err != nil {
		t.Fatalf("probe not admitted: %v", err)
	}
	if _, err := b.Allow(); err == nil {
		t.Fatal("second caller admitted while probe in flight")
	}

	// The probe ended without a verdict (say, the client hung up). The
	// slot must go to the next caller instead of wedging half-open.
	probe.Release()

	next, err := b.Allow()
	if err != nil {
		t.Fatalf("released probe slot not handed out: %v", err)
	}
	next.Success()
	if b.State() != StateClosed {
		t.Errorf("state = %s after replacement probe success, want closed", b.State())
	}
}

func TestBreaker_StaleSuccessCannotCloseHalfOpen(t *testing.T) {
	b := New("openai", 1, 10*time.Millisecond, nil)

	// A slow call admitted while the circuit is still closed.
	slow := admit(t, b)

	admit(t, b).Failure()
	if b.State() != StateOpen {
		t.Fatal("breaker should be open")
	}
	time.Sleep(20 * time.Millisecond)

	probe, err := b.Allow()
	if err != nil {
		t.Fatalf("probe not admitted: %v", err)
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %s, want half_open", b.State())
	}

	// The slow call finally completes. Its verdict predates the OPEN
	// transition, so it must not close the probe window.
	slow.Success()
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %s, stale success closed the circuit", b.State())
	}

	probe.Success()
	if b.State() != StateClosed {
		t.Errorf("state = %s after real probe success, want closed", b.State())
	}
}

func TestBreaker_AdmissionSettlesOnce(t *testing.T) {
	b := New("openai", 2, time.Minute, nil)

	adm := admit(t, b)
	adm.Failure()
	adm.Failure() // ignored: already settled
	if b.Failures() != 1 {
		t.Errorf("failures = %d, want 1 per admission", b.Failures())
	}
	if b.State() != StateClosed {
		t.Errorf("state = %s, want closed", b.State())
	}
}

// ===== Table tests =====

func TestTable_PerProviderIsolation(t *testing.T) {
	table := NewTable(1, time.Minute, nil, nil)

	admit(t, table.Get("openai")).Failure()
	if table.Get("openai").State() != StateOpen {
		t.Error("openai breaker should be open")
	}
	if table.Get("anthropic").State() != StateClosed {
		t.Error("anthropic breaker should be unaffected")
	}

	states := table.States()
	if states["openai"] != StateOpen || states["anthropic"] != StateClosed {
		t.Errorf("states = %v", states)
	}
}

func TestTable_GetReturnsSameBreaker(t *testing.T) {
	table := NewTable(3, time.Minute, nil, nil)
	if table.Get("openai") != table.Get("openai") {
		t.Error("Get should return the same breaker per name")
	}
}

func TestTable_PersistsAndRestoresOpenState(t *testing.T) {
	st := store.NewMemory()

	table := NewTable(1, time.Minute, st, nil)
	admit(t, table.Get("openai")).Failure()
	if table.Get("openai").State() != StateOpen {
		t.Fatal("breaker should be open")
	}

	// A fresh table over the same store sees the open circuit.
	reborn := NewTable(1, time.Minute, st, nil)
	b := reborn.Get("openai")
	if b.State() != StateOpen {
		t.Errorf("restored state = %s, want open", b.State())
	}
	if _, err := b.Allow(); err == nil {
		t.Error("restored open breaker admitted a call within cooldown")
	}
}
