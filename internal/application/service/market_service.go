package service

import (
	"sort"
	"strings"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain/model"
	"spreadwatch/internal/infrastructure/fees"
)

// exchanges 聚合视图的固定交易所清单（顺序即未排序时的展示顺序）
var exchanges = []string{
	"binance", "okx", "bybit", "gateio", "mexc", "bitget",
	"coinex", "cryptocom",
	"kucoin", "htx", "bingx", "coinw",
	"kraken", "bitfinex", "hyperliquid", "bitunix",
	"whitebit", "lbank", "dydx",
}

// MarketService 汇总每个交易所当前未过期的行情，组装成按币种的视图。
// 只读，无副作用，可与所有写入方并发调用。
type MarketService struct {
	store port.MarketStore
	fees  *fees.Schedule
}

func NewMarketService(store port.MarketStore, schedule *fees.Schedule) *MarketService {
	return &MarketService{store: store, fees: schedule}
}

// Exchanges 返回固定交易所清单的拷贝。
func (s *MarketService) Exchanges() []string {
	out := make([]string, len(exchanges))
	copy(out, exchanges)
	return out
}

// MarketView 返回某币种在所有交易所的行情行，按资金费率降序。
// 缺失的资金费率按 0 参与排序（已知局限：可能把无数据的交易所
// 排在真实小幅负费率之上）。
func (s *MarketService) MarketView(symbol string) []model.MarketRow {
	symbolKey := strings.ToUpper(strings.TrimSpace(symbol)) + "USDT"

	rows := make([]model.MarketRow, 0, len(exchanges))
	for _, ex := range exchanges {
		row := model.MarketRow{
			Exchange:       ex,
			SpotFeeRate:    s.fees.SpotFeeDisplay(ex),
			FuturesFeeRate: s.fees.FuturesFeeDisplay(ex),
		}
		if rate, ok := s.store.FundingRate(ex, symbolKey); ok {
			row.FundingRate = &rate
		}
		if next, ok := s.store.NextFundingTime(ex, symbolKey); ok {
			row.NextFundingTime = &next
		}
		if px, ok := s.store.FuturesPrice(ex, symbolKey); ok {
			row.FuturesPrice = &px
		}
		if px, ok := s.store.SpotPrice(ex, symbolKey); ok {
			row.SpotPrice = &px
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return fundingOrZero(rows[i]) > fundingOrZero(rows[j])
	})
	return rows
}

func fundingOrZero(r model.MarketRow) float64 {
	if r.FundingRate == nil {
		return 0
	}
	return *r.FundingRate
}
