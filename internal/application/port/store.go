package port

// MarketStore 行情新鲜度缓存。
// 每个 (exchange, symbol, field) 键独立写入与过期；超过 TTL 的键对读者不可见。
// 所有方法都必须是并发安全的：采集端（WebSocket、HTTP 轮询）与读端
// （聚合视图、价差扫描、API）会同时访问。
type MarketStore interface {
	// SaveFundingRate 写入资金费率。nextFundingTime 为 0 时由实现按
	// 00:00/08:00/16:00 UTC 推算下一个结算时间。
	SaveFundingRate(exchange, symbol string, rate float64, nextFundingTime int64)
	SaveFuturesPrice(exchange, symbol string, price float64)
	SaveSpotPrice(exchange, symbol string, price float64)

	// 读方法：ok=false 表示从未写入或已过期，两者不可区分。
	FundingRate(exchange, symbol string) (float64, bool)
	NextFundingTime(exchange, symbol string) (int64, bool)
	FuturesPrice(exchange, symbol string) (float64, bool)
	SpotPrice(exchange, symbol string) (float64, bool)
}
