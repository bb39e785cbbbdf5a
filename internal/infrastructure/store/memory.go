package store

import (
	"strings"
	"sync"
	"time"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain/model"
)

// DefaultTTL 缓存有效期。15s 覆盖 Kraken/Hyperliquid 等慢源的完整轮询周期
// （6-10s），减少间歇性空数据。
const DefaultTTL = 15 * time.Second

type key struct {
	exchange string
	symbol   string
	field    model.Field
}

type entry struct {
	value           float64
	nextFundingTime int64 // 仅 funding 键使用
	recordedAt      time.Time
}

// Memory 进程内新鲜度缓存。写入刷新 TTL 时钟，读时惰性判断过期。
// 键之间相互独立，后写覆盖先写，不区分来源优先级。
type Memory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[key]entry

	now func() time.Time // 测试注入
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		ttl:     ttl,
		entries: make(map[key]entry),
		now:     time.Now,
	}
}

func (m *Memory) SaveFundingRate(exchange, symbol string, rate float64, nextFundingTime int64) {
	if nextFundingTime <= 0 {
		nextFundingTime = NextFundingTimeAfter(m.now())
	}
	m.put(key{normalizeExchange(exchange), normalizeSymbol(symbol), model.FieldFunding}, entry{
		value:           rate,
		nextFundingTime: nextFundingTime,
		recordedAt:      m.now(),
	})
}

func (m *Memory) SaveFuturesPrice(exchange, symbol string, price float64) {
	m.put(key{normalizeExchange(exchange), normalizeSymbol(symbol), model.FieldFuturesPrice}, entry{
		value:      price,
		recordedAt: m.now(),
	})
}

func (m *Memory) SaveSpotPrice(exchange, symbol string, price float64) {
	m.put(key{normalizeExchange(exchange), normalizeSymbol(symbol), model.FieldSpotPrice}, entry{
		value:      price,
		recordedAt: m.now(),
	})
}

func (m *Memory) FundingRate(exchange, symbol string) (float64, bool) {
	e, ok := m.get(key{normalizeExchange(exchange), normalizeSymbol(symbol), model.FieldFunding})
	return e.value, ok
}

func (m *Memory) NextFundingTime(exchange, symbol string) (int64, bool) {
	e, ok := m.get(key{normalizeExchange(exchange), normalizeSymbol(symbol), model.FieldFunding})
	if !ok || e.nextFundingTime <= 0 {
		return 0, false
	}
	return e.nextFundingTime, true
}

func (m *Memory) FuturesPrice(exchange, symbol string) (float64, bool) {
	e, ok := m.get(key{normalizeExchange(exchange), normalizeSymbol(symbol), model.FieldFuturesPrice})
	return e.value, ok
}

func (m *Memory) SpotPrice(exchange, symbol string) (float64, bool) {
	e, ok := m.get(key{normalizeExchange(exchange), normalizeSymbol(symbol), model.FieldSpotPrice})
	return e.value, ok
}

func (m *Memory) put(k key, e entry) {
	m.mu.Lock()
	m.entries[k] = e
	m.mu.Unlock()
}

func (m *Memory) get(k key) (entry, bool) {
	m.mu.RLock()
	e, ok := m.entries[k]
	m.mu.RUnlock()
	if !ok {
		return entry{}, false
	}
	if m.now().Sub(e.recordedAt) > m.ttl {
		return entry{}, false
	}
	return e, true
}

// NextFundingTimeAfter 计算下一个资金费率结算时间（毫秒时间戳）。
// 大多数永续合约交易所每 8 小时结算一次：00:00, 08:00, 16:00 UTC。
// 今天的结算点全部过去时返回明天 00:00。
func NextFundingTimeAfter(now time.Time) int64 {
	now = now.UTC()
	for _, h := range []int{0, 8, 16} {
		candidate := time.Date(now.Year(), now.Month(), now.Day(), h, 0, 0, 0, time.UTC)
		if candidate.After(now) {
			return candidate.UnixMilli()
		}
	}
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, time.UTC).UnixMilli()
}

func normalizeExchange(ex string) string {
	return strings.ToLower(strings.TrimSpace(ex))
}

func normalizeSymbol(sym string) string {
	return strings.ToUpper(strings.TrimSpace(sym))
}

var _ port.MarketStore = (*Memory)(nil)
