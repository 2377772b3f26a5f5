package clock

import (
	"testing"
	"time"
)

func TestFakeAdvance(t *testing.T) {
	t.Parallel()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	fake := Fake(start)

	if got := fake.Now(); !got.Equal(start) {
		t.Fatalf("Now: got %v, want %v", got, start)
	}
	fake.Advance(16 * time.Minute)
	if got, want := fake.Now(), start.Add(16*time.Minute); !got.Equal(want) {
		t.Errorf("after Advance: got %v, want %v", got, want)
	}
	fake.Set(start)
	if got := fake.Now(); !got.Equal(start) {
		t.Errorf("after Set: got %v, want %v", got, start)
	}
}

func TestRealIsUTC(t *testing.T) {
	t.Parallel()
	if loc := Real().Now().Location(); loc != time.UTC {
		t.Errorf("location: got %v, want UTC", loc)
	}
}
