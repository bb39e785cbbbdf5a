package service

import (
	"testing"

	"spreadwatch/internal/infrastructure/fees"
)

// fakeStore 手写的 MarketStore 桩，键为 exchange:symbol
type fakeStore struct {
	funding     map[string]float64
	nextFunding map[string]int64
	futures     map[string]float64
	spot        map[string]float64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		funding:     map[string]float64{},
		nextFunding: map[string]int64{},
		futures:     map[string]float64{},
		spot:        map[string]float64{},
	}
}

func (f *fakeStore) SaveFundingRate(ex, sym string, rate float64, next int64) {
	f.funding[ex+":"+sym] = rate
	f.nextFunding[ex+":"+sym] = next
}
func (f *fakeStore) SaveFuturesPrice(ex, sym string, price float64) { f.futures[ex+":"+sym] = price }
func (f *fakeStore) SaveSpotPrice(ex, sym string, price float64)   { f.spot[ex+":"+sym] = price }

func (f *fakeStore) FundingRate(ex, sym string) (float64, bool) {
	v, ok := f.funding[ex+":"+sym]
	return v, ok
}
func (f *fakeStore) NextFundingTime(ex, sym string) (int64, bool) {
	v, ok := f.nextFunding[ex+":"+sym]
	return v, ok && v > 0
}
func (f *fakeStore) FuturesPrice(ex, sym string) (float64, bool) {
	v, ok := f.futures[ex+":"+sym]
	return v, ok
}
func (f *fakeStore) SpotPrice(ex, sym string) (float64, bool) {
	v, ok := f.spot[ex+":"+sym]
	return v, ok
}

func TestMarketViewCoversAllExchanges(t *testing.T) {
	svc := NewMarketService(newFakeStore(), fees.NewStatic())

	rows := svc.MarketView("btc")
	if len(rows) != 19 {
		t.Fatalf("expected 19 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.FundingRate != nil || row.SpotPrice != nil {
			t.Fatalf("empty store should yield empty rows, got %+v", row)
		}
		if row.SpotFeeRate == "" {
			t.Fatalf("fee display missing for %s", row.Exchange)
		}
	}
}

func TestMarketViewSortsByFundingDesc(t *testing.T) {
	st := newFakeStore()
	st.SaveFundingRate("okx", "BTCUSDT", 0.0003, 1)
	st.SaveFundingRate("bybit", "BTCUSDT", 0.0001, 1)
	st.SaveFundingRate("binance", "BTCUSDT", 0.0002, 1)

	svc := NewMarketService(st, fees.NewStatic())
	rows := svc.MarketView("BTC")

	if rows[0].Exchange != "okx" || rows[1].Exchange != "binance" || rows[2].Exchange != "bybit" {
		t.Fatalf("unexpected order: %s, %s, %s", rows[0].Exchange, rows[1].Exchange, rows[2].Exchange)
	}
}

func TestMarketViewMissingFundingSortsAsZero(t *testing.T) {
	st := newFakeStore()
	// 真实负费率排在无数据的交易所之后（已知局限）
	st.SaveFundingRate("binance", "BTCUSDT", -0.0001, 1)

	svc := NewMarketService(st, fees.NewStatic())
	rows := svc.MarketView("BTC")

	if rows[len(rows)-1].Exchange != "binance" {
		t.Fatalf("negative funding should sort last, got %s", rows[len(rows)-1].Exchange)
	}
}

func TestMarketViewAppendsQuoteToSymbol(t *testing.T) {
	st := newFakeStore()
	st.SaveSpotPrice("binance", "ETHUSDT", 2500)

	svc := NewMarketService(st, fees.NewStatic())
	for _, row := range svc.MarketView("eth") {
		if row.Exchange == "binance" {
			if row.SpotPrice == nil || *row.SpotPrice != 2500 {
				t.Fatalf("expected spot price via ETH -> ETHUSDT lookup, got %+v", row.SpotPrice)
			}
			return
		}
	}
	t.Fatal("binance row not found")
}
