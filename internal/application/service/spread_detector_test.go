package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"spreadwatch/internal/domain/model"
	"spreadwatch/internal/infrastructure/fees"
)

// 静态费率表中 binance(maker 0.10/taker 0.10) 与 okx(maker 0.08/taker 0.10)
// 正好构成扣费示例：totalA=0.20, totalB=0.18，取 B。

func newDetector(st *fakeStore, repo *captureRepo) *SpreadDetector {
	schedule := fees.NewStatic()
	market := NewMarketService(st, schedule)
	return NewSpreadDetector(market, schedule, repo, []string{"BTC"}, DefaultThresholdPct)
}

type captureRepo struct {
	batches [][]model.SpreadSnapshot
	err     error
}

func (r *captureRepo) SaveSnapshots(ctx context.Context, rows []model.SpreadSnapshot) error {
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, rows)
	return nil
}

func (r *captureRepo) TopPairStats(ctx context.Context) (map[string][]model.PairStat, error) {
	return nil, nil
}

func (r *captureRepo) Close() error { return nil }

func TestCollectBelowThresholdEmitsNothing(t *testing.T) {
	st := newFakeStore()
	st.SaveSpotPrice("binance", "BTCUSDT", 100.00)
	st.SaveSpotPrice("okx", "BTCUSDT", 100.20)

	d := newDetector(st, &captureRepo{})

	// gross 0.2000, 最小总费 0.18 -> net 0.02 <= 0.05，不产出
	if out := d.Collect("BTC"); len(out) != 0 {
		t.Fatalf("expected no opportunity at net 0.02, got %d", len(out))
	}
}

func TestCollectEmitsAboveThreshold(t *testing.T) {
	st := newFakeStore()
	st.SaveSpotPrice("binance", "BTCUSDT", 100.00)
	st.SaveSpotPrice("okx", "BTCUSDT", 101.00)

	d := newDetector(st, &captureRepo{})
	out := d.Collect("BTC")
	if len(out) != 1 {
		t.Fatalf("expected exactly one opportunity, got %d", len(out))
	}

	snap := out[0]
	if snap.ExchangeBuy != "binance" || snap.ExchangeSell != "okx" {
		t.Fatalf("buy/sell sides wrong: %s -> %s", snap.ExchangeBuy, snap.ExchangeSell)
	}
	if !snap.ProfitMarginPct.Equal(decimal.RequireFromString("0.82")) {
		t.Fatalf("expected net margin 0.82, got %s", snap.ProfitMarginPct)
	}
	// 买 taker(binance 0.10)、卖 maker(okx 0.08) 的组合总费更低
	if !snap.SpotFeeBuyPct.Equal(decimal.RequireFromString("0.1")) ||
		!snap.SpotFeeSellPct.Equal(decimal.RequireFromString("0.08")) {
		t.Fatalf("fee assignment wrong: buy=%s sell=%s", snap.SpotFeeBuyPct, snap.SpotFeeSellPct)
	}
	if !snap.SpotSpread.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected absolute spread 1, got %s", snap.SpotSpread)
	}
}

func TestCollectGrossMarginRoundedHalfUp(t *testing.T) {
	st := newFakeStore()
	// (100.000001-100)/100 = 0.0000000100 -> 6 位 0.000000 -> gross 0.0000
	st.SaveSpotPrice("binance", "BTCUSDT", 100.0)
	st.SaveSpotPrice("okx", "BTCUSDT", 100.000001)

	d := newDetector(st, &captureRepo{})
	if out := d.Collect("BTC"); len(out) != 0 {
		t.Fatalf("rounded-to-zero margin should not emit, got %d", len(out))
	}
}

func TestCollectSingleSourceSkipsSymbol(t *testing.T) {
	st := newFakeStore()
	st.SaveSpotPrice("binance", "BTCUSDT", 100.00)

	d := newDetector(st, &captureRepo{})
	if out := d.Collect("BTC"); len(out) != 0 {
		t.Fatalf("single source must emit nothing, got %d", len(out))
	}
}

func TestCollectIgnoresNonPositiveSpot(t *testing.T) {
	st := newFakeStore()
	st.SaveSpotPrice("binance", "BTCUSDT", 100.00)
	st.SaveSpotPrice("okx", "BTCUSDT", 0)

	d := newDetector(st, &captureRepo{})
	if out := d.Collect("BTC"); len(out) != 0 {
		t.Fatalf("zero spot price must not participate, got %d", len(out))
	}
}

func TestCollectFuturesNeverSubstitutesSpot(t *testing.T) {
	st := newFakeStore()
	st.SaveSpotPrice("binance", "BTCUSDT", 100.00)
	// bybit 只有期货价：不得参与现货价差
	st.SaveFuturesPrice("bybit", "BTCUSDT", 150.00)

	d := newDetector(st, &captureRepo{})
	if out := d.Collect("BTC"); len(out) != 0 {
		t.Fatalf("futures price must not stand in for spot, got %d pairs", len(out))
	}
}

func TestCollectDropsPairWithMissingFees(t *testing.T) {
	st := newFakeStore()
	st.SaveSpotPrice("binance", "BTCUSDT", 100.00)
	st.SaveSpotPrice("okx", "BTCUSDT", 120.00)

	schedule := fees.New(
		map[string]decimal.Decimal{"binance": decimal.RequireFromString("0.1")},
		map[string]decimal.Decimal{"binance": decimal.RequireFromString("0.1")},
		nil, nil,
	)
	market := NewMarketService(st, schedule)
	d := NewSpreadDetector(market, schedule, &captureRepo{}, []string{"BTC"}, DefaultThresholdPct)

	// okx 无费率配置：该组合静默排除，即使价差巨大
	if out := d.Collect("BTC"); len(out) != 0 {
		t.Fatalf("pair with missing fee quote must be dropped, got %d", len(out))
	}
}

func TestScanOnceSavesSingleBatch(t *testing.T) {
	st := newFakeStore()
	st.SaveSpotPrice("binance", "BTCUSDT", 100.00)
	st.SaveSpotPrice("okx", "BTCUSDT", 101.00)
	st.SaveSpotPrice("bybit", "BTCUSDT", 102.00)

	repo := &captureRepo{}
	d := newDetector(st, repo)
	d.ScanOnce(context.Background())

	if len(repo.batches) != 1 {
		t.Fatalf("expected one batch, got %d", len(repo.batches))
	}
	// 3 个交易所两两组合 = 3 对，均超阈值
	if len(repo.batches[0]) != 3 {
		t.Fatalf("expected 3 snapshots in batch, got %d", len(repo.batches[0]))
	}
}

func TestScanOnceBatchFailureIsDropped(t *testing.T) {
	st := newFakeStore()
	st.SaveSpotPrice("binance", "BTCUSDT", 100.00)
	st.SaveSpotPrice("okx", "BTCUSDT", 101.00)

	repo := &captureRepo{err: errors.New("disk full")}
	d := newDetector(st, repo)

	// 失败不 panic，不重试；下一周期成功后正常入库
	d.ScanOnce(context.Background())
	repo.err = nil
	d.ScanOnce(context.Background())

	if len(repo.batches) != 1 {
		t.Fatalf("expected one successful batch after recovery, got %d", len(repo.batches))
	}
}
