package okx

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application/port"
)

const (
	Exchange = "okx"

	defaultWS = "wss://ws.okx.com:8443/ws/v5/public"

	// OKX 要求 30s 内至少一条消息，留 5s 余量。
	heartbeatInterval = 25 * time.Second
)

type subscribeArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type subscribeReq struct {
	Op   string         `json:"op"`
	Args []subscribeArg `json:"args"`
}

// pushMsg v5 公共频道推送。事件回执带 event 字段，数据推送带 arg+data。
type pushMsg struct {
	Event string `json:"event"`
	Arg   struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data []json.RawMessage `json:"data"`
}

type fundingRateMsg struct {
	FundingRate     string `json:"fundingRate"`
	NextFundingTime string `json:"nextFundingTime"`
}

type tickerMsg struct {
	Last string `json:"last"`
}

// Handler 单连接承载三类订阅：funding-rate（SWAP）、
// tickers（SWAP，期货价格）、tickers（现货）。
type Handler struct {
	url     string
	symbols []string
	store   port.MarketStore
}

// New symbols 为不带 USDT 后缀的币种列表。
func New(baseURL string, symbols []string, store port.MarketStore) *Handler {
	if baseURL == "" {
		baseURL = defaultWS
	}
	return &Handler{url: baseURL, symbols: symbols, store: store}
}

func (h *Handler) Name() string { return Exchange }
func (h *Handler) URL() string  { return h.url }

func (h *Handler) OnConnected(s port.Sender) {
	req := subscribeReq{Op: "subscribe"}
	for _, sym := range h.symbols {
		base := strings.ToUpper(strings.TrimSpace(sym))
		if base == "" {
			continue
		}
		swap := base + "-USDT-SWAP"
		spot := base + "-USDT"
		req.Args = append(req.Args,
			subscribeArg{Channel: "funding-rate", InstID: swap},
			subscribeArg{Channel: "tickers", InstID: swap},
			subscribeArg{Channel: "tickers", InstID: spot},
		)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		log.Error().Err(err).Str("exchange", Exchange).Msg("marshal subscribe")
		return
	}
	if err := s.Send(string(payload)); err != nil {
		log.Warn().Err(err).Str("exchange", Exchange).Msg("send subscribe")
		return
	}
	log.Info().Str("exchange", Exchange).Int("args", len(req.Args)).Msg("stream connected, subscribed")
}

func (h *Handler) OnMessage(msg []byte) {
	if string(msg) == "pong" {
		return
	}
	var push pushMsg
	if err := json.Unmarshal(msg, &push); err != nil {
		return
	}
	// 订阅回执与错误回执都带 event，直接跳过。
	if push.Event != "" || len(push.Data) == 0 {
		return
	}
	symbol := normalizeInstID(push.Arg.InstID)
	if symbol == "" {
		return
	}

	switch push.Arg.Channel {
	case "funding-rate":
		var fr fundingRateMsg
		if err := json.Unmarshal(push.Data[0], &fr); err != nil {
			return
		}
		rate, ok := parseFloat(fr.FundingRate)
		if !ok {
			return
		}
		next, _ := strconv.ParseInt(fr.NextFundingTime, 10, 64)
		h.store.SaveFundingRate(Exchange, symbol, rate, next)
	case "tickers":
		var t tickerMsg
		if err := json.Unmarshal(push.Data[0], &t); err != nil {
			return
		}
		last, ok := parseFloat(t.Last)
		if !ok {
			return
		}
		if strings.HasSuffix(push.Arg.InstID, "-SWAP") {
			h.store.SaveFuturesPrice(Exchange, symbol, last)
		} else {
			h.store.SaveSpotPrice(Exchange, symbol, last)
		}
	}
}

func (h *Handler) OnClosed(code int, reason string) {
	log.Warn().Str("exchange", Exchange).Int("code", code).Str("reason", reason).Msg("stream closed")
}

func (h *Handler) OnError(err error) {
	log.Warn().Err(err).Str("exchange", Exchange).Msg("stream error")
}

func (h *Handler) HeartbeatMessage() string         { return "ping" }
func (h *Handler) HeartbeatInterval() time.Duration { return heartbeatInterval }

// normalizeInstID "BTC-USDT-SWAP" / "BTC-USDT" -> "BTCUSDT"。
func normalizeInstID(instID string) string {
	instID = strings.TrimSuffix(instID, "-SWAP")
	base, quote, ok := strings.Cut(instID, "-")
	if !ok || base == "" {
		return ""
	}
	return base + quote
}

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

var _ port.StreamHandler = (*Handler)(nil)
