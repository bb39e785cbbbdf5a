package model

import "github.com/shopspring/decimal"

// ========== Market Data Models ==========

// Field 行情字段类型（资金费率 / 期货价 / 现货价）
type Field string

const (
	FieldFunding      Field = "funding"
	FieldFuturesPrice Field = "futuresPrice"
	FieldSpotPrice    Field = "spotPrice"
)

// MarketRow 单个交易所在某币种上的聚合视图行。
// 缺失的字段为 nil（缓存中不存在或已过期）。
type MarketRow struct {
	Exchange        string   `json:"exchange"`
	FundingRate     *float64 `json:"fundingRate"`
	NextFundingTime *int64   `json:"nextFundingTime"` // 下次资金费结算时间（毫秒时间戳）
	FuturesPrice    *float64 `json:"futuresPrice"`
	SpotPrice       *float64 `json:"spotPrice"`
	SpotFeeRate     string   `json:"spotFeeRate"`
	FuturesFeeRate  string   `json:"futuresFeeRate"`
}

// ========== Spread Arbitrage Models ==========

// SpreadSnapshot 一次扫描中发现的现货价差套利机会（扣费后利润率 > 阈值）
type SpreadSnapshot struct {
	Symbol          string          `json:"symbol"`
	ExchangeBuy     string          `json:"exchange_buy"`  // 买入交易所（低价方）
	ExchangeSell    string          `json:"exchange_sell"` // 卖出交易所（高价方）
	SpotPriceBuy    decimal.Decimal `json:"spot_price_buy"`
	SpotPriceSell   decimal.Decimal `json:"spot_price_sell"`
	SpotSpread      decimal.Decimal `json:"spot_spread"`       // 绝对价差
	ProfitMarginPct decimal.Decimal `json:"profit_margin_pct"` // 扣费后利润率 %
	SpotFeeBuyPct   decimal.Decimal `json:"spot_fee_buy_pct"`
	SpotFeeSellPct  decimal.Decimal `json:"spot_fee_sell_pct"`
	SnapshotTime    int64           `json:"snapshot_time"` // unix ms
}

// PairStat 交易所组合统计（出现次数 + 平均利润率，每币种 Top5）
type PairStat struct {
	Symbol             string  `json:"symbol"`
	ExchangeBuy        string  `json:"exchangeBuy"`
	ExchangeSell       string  `json:"exchangeSell"`
	Count              int     `json:"count"`
	AvgProfitMarginPct float64 `json:"avgProfitMarginPct"`
	AvgFeeBuyPct       float64 `json:"avgFeeBuyPct"`
	AvgFeeSellPct      float64 `json:"avgFeeSellPct"`
}
