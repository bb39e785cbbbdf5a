package store

import (
	"testing"
	"time"
)

func newTestMemory(start time.Time) (*Memory, *time.Time) {
	clock := start
	m := NewMemory(15 * time.Second)
	m.now = func() time.Time { return clock }
	return m, &clock
}

func TestMemoryExpiresAfterTTL(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m, now := newTestMemory(clock)

	m.SaveSpotPrice("binance", "BTCUSDT", 100)

	if px, ok := m.SpotPrice("binance", "BTCUSDT"); !ok || px != 100 {
		t.Fatalf("expected fresh price 100, got %v ok=%v", px, ok)
	}

	*now = now.Add(16 * time.Second)
	if px, ok := m.SpotPrice("binance", "BTCUSDT"); ok {
		t.Fatalf("expected stale key to be absent, got %v", px)
	}
}

func TestMemoryWriteRefreshesTTL(t *testing.T) {
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m, now := newTestMemory(clock)

	m.SaveSpotPrice("binance", "BTCUSDT", 100)
	*now = now.Add(10 * time.Second)
	m.SaveSpotPrice("binance", "BTCUSDT", 100)
	*now = now.Add(10 * time.Second)

	// 20s after first write but only 10s after refresh
	if _, ok := m.SpotPrice("binance", "BTCUSDT"); !ok {
		t.Fatal("refreshed key should still be fresh")
	}
}

func TestMemoryLastWriteWins(t *testing.T) {
	m, _ := newTestMemory(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	m.SaveSpotPrice("binance", "BTCUSDT", 100)
	m.SaveSpotPrice("binance", "BTCUSDT", 101)

	if px, _ := m.SpotPrice("binance", "BTCUSDT"); px != 101 {
		t.Fatalf("expected last write 101, got %v", px)
	}
}

func TestMemoryFieldsAreIndependent(t *testing.T) {
	m, _ := newTestMemory(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	m.SaveSpotPrice("binance", "BTCUSDT", 100)

	if _, ok := m.FuturesPrice("binance", "BTCUSDT"); ok {
		t.Fatal("futures price should be absent when only spot was written")
	}
	if _, ok := m.SpotPrice("okx", "BTCUSDT"); ok {
		t.Fatal("other exchange should be absent")
	}
}

func TestMemoryFundingTimeDefault(t *testing.T) {
	// 05:00 UTC -> next settlement is 08:00 UTC the same day
	clock := time.Date(2025, 6, 1, 5, 0, 0, 0, time.UTC)
	m, _ := newTestMemory(clock)

	m.SaveFundingRate("binance", "BTCUSDT", 0.0001, 0)

	want := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC).UnixMilli()
	got, ok := m.NextFundingTime("binance", "BTCUSDT")
	if !ok || got != want {
		t.Fatalf("expected default next funding time %d, got %d ok=%v", want, got, ok)
	}
}

func TestMemoryFundingTimeSuppliedWins(t *testing.T) {
	m, _ := newTestMemory(time.Date(2025, 6, 1, 5, 0, 0, 0, time.UTC))

	supplied := int64(1_750_000_000_000)
	m.SaveFundingRate("binance", "BTCUSDT", 0.0001, supplied)

	if got, _ := m.NextFundingTime("binance", "BTCUSDT"); got != supplied {
		t.Fatalf("expected supplied time %d, got %d", supplied, got)
	}
}

func TestNextFundingTimeAfterRollsToNextDay(t *testing.T) {
	now := time.Date(2025, 6, 1, 17, 30, 0, 0, time.UTC)
	want := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	if got := NextFundingTimeAfter(now); got != want {
		t.Fatalf("expected next-day 00:00 = %d, got %d", want, got)
	}
}

func TestNextFundingTimeAfterExactBoundary(t *testing.T) {
	// exactly 08:00 -> strictly after, so 16:00
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	want := time.Date(2025, 6, 1, 16, 0, 0, 0, time.UTC).UnixMilli()
	if got := NextFundingTimeAfter(now); got != want {
		t.Fatalf("expected 16:00 = %d, got %d", want, got)
	}
}
