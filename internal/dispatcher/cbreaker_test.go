package dispatcher

import (
	"testing"
	"time"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewMicroBreaker(3, time.Hour)

	for i := 0; i < 2; i++ {
		b.OnFailure()
	}
	if !b.Ready() {
		t.Fatal("opened below the threshold")
	}

	b.OnFailure()
	if b.Ready() {
		t.Fatal("still ready after threshold failures")
	}
	if b.TryAcquire() {
		t.Fatal("acquired while open")
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := NewMicroBreaker(1, time.Millisecond)
	b.OnFailure()
	time.Sleep(5 * time.Millisecond)

	if !b.TryAcquire() {
		t.Fatal("probe refused after the open window")
	}
	// only one probe at a time
	if b.TryAcquire() {
		t.Fatal("second concurrent probe allowed")
	}

	b.OnSuccess()
	if !b.Ready() || !b.TryAcquire() {
		t.Fatal("did not close after a successful probe")
	}
}

func TestBreakerReopensOnFailedProbe(t *testing.T) {
	b := NewMicroBreaker(1, time.Millisecond)
	b.OnFailure()
	time.Sleep(5 * time.Millisecond)

	if !b.TryAcquire() {
		t.Fatal("probe refused after the open window")
	}
	b.OnFailure()
	if b.Ready() {
		t.Fatal("ready immediately after a failed probe")
	}
}
