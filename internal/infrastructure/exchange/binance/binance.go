package binance

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application/port"
)

const (
	// Exchange 行情归属的交易所标识。
	Exchange = "binance"

	defaultFuturesWS = "wss://fstream.binance.com/stream"
	defaultSpotWS    = "wss://stream.binance.com:9443/stream"
)

// combined 组合流外层封装。
type combined struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// markPriceMsg markPrice@1s 推送，含标记价格与资金费率。
type markPriceMsg struct {
	Symbol          string `json:"s"`
	MarkPrice       string `json:"p"`
	FundingRate     string `json:"r"`
	NextFundingTime int64  `json:"T"`
}

// tickerMsg 现货 @ticker 推送。
type tickerMsg struct {
	Symbol string `json:"s"`
	Close  string `json:"c"`
}

// FuturesHandler 订阅 U 本位合约 markPrice 组合流，
// 产出资金费率与期货价格。
type FuturesHandler struct {
	url   string
	store port.MarketStore
}

// NewFuturesHandler symbols 为不带 USDT 后缀的币种列表。
func NewFuturesHandler(baseURL string, symbols []string, store port.MarketStore) *FuturesHandler {
	if baseURL == "" {
		baseURL = defaultFuturesWS
	}
	return &FuturesHandler{
		url:   combinedURL(baseURL, symbols, "markPrice@1s"),
		store: store,
	}
}

func (h *FuturesHandler) Name() string { return Exchange }
func (h *FuturesHandler) URL() string  { return h.url }

func (h *FuturesHandler) OnConnected(port.Sender) {
	// 订阅关系编码在 URL 中，连接即订阅。
	log.Info().Str("exchange", Exchange).Msg("futures stream connected")
}

func (h *FuturesHandler) OnMessage(msg []byte) {
	var env combined
	if err := json.Unmarshal(msg, &env); err != nil || env.Data == nil {
		return
	}
	if !strings.Contains(env.Stream, "markPrice") {
		return
	}
	var m markPriceMsg
	if err := json.Unmarshal(env.Data, &m); err != nil || m.Symbol == "" {
		return
	}
	if rate, ok := parseFloat(m.FundingRate); ok {
		h.store.SaveFundingRate(Exchange, m.Symbol, rate, m.NextFundingTime)
	}
	if px, ok := parseFloat(m.MarkPrice); ok {
		h.store.SaveFuturesPrice(Exchange, m.Symbol, px)
	}
}

func (h *FuturesHandler) OnClosed(code int, reason string) {
	log.Warn().Str("exchange", Exchange).Int("code", code).Str("reason", reason).Msg("futures stream closed")
}

func (h *FuturesHandler) OnError(err error) {
	log.Warn().Err(err).Str("exchange", Exchange).Msg("futures stream error")
}

// 服务端自带协议层 ping，不需要应用层心跳。
func (h *FuturesHandler) HeartbeatMessage() string         { return "" }
func (h *FuturesHandler) HeartbeatInterval() time.Duration { return 0 }

// SpotHandler 订阅现货 @ticker 组合流，产出现货价格。
type SpotHandler struct {
	url   string
	store port.MarketStore
}

func NewSpotHandler(baseURL string, symbols []string, store port.MarketStore) *SpotHandler {
	if baseURL == "" {
		baseURL = defaultSpotWS
	}
	return &SpotHandler{
		url:   combinedURL(baseURL, symbols, "ticker"),
		store: store,
	}
}

func (h *SpotHandler) Name() string { return Exchange + "-spot" }
func (h *SpotHandler) URL() string  { return h.url }

func (h *SpotHandler) OnConnected(port.Sender) {
	log.Info().Str("exchange", Exchange).Msg("spot stream connected")
}

func (h *SpotHandler) OnMessage(msg []byte) {
	var env combined
	if err := json.Unmarshal(msg, &env); err != nil || env.Data == nil {
		return
	}
	var t tickerMsg
	if err := json.Unmarshal(env.Data, &t); err != nil || t.Symbol == "" {
		return
	}
	if px, ok := parseFloat(t.Close); ok {
		h.store.SaveSpotPrice(Exchange, t.Symbol, px)
	}
}

func (h *SpotHandler) OnClosed(code int, reason string) {
	log.Warn().Str("exchange", Exchange).Int("code", code).Str("reason", reason).Msg("spot stream closed")
}

func (h *SpotHandler) OnError(err error) {
	log.Warn().Err(err).Str("exchange", Exchange).Msg("spot stream error")
}

func (h *SpotHandler) HeartbeatMessage() string         { return "" }
func (h *SpotHandler) HeartbeatInterval() time.Duration { return 0 }

// combinedURL 拼接组合流地址：base?streams=btcusdt@x/ethusdt@x/...
func combinedURL(base string, symbols []string, suffix string) string {
	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		streams = append(streams, s+"usdt@"+suffix)
	}
	return base + "?streams=" + strings.Join(streams, "/")
}

// parseFloat 交易所把数值编码为字符串，空串与坏值一律丢弃。
func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var (
	_ port.StreamHandler = (*FuturesHandler)(nil)
	_ port.StreamHandler = (*SpotHandler)(nil)
)
