package gate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"spreadwatch/internal/application/port"
)

const (
	Exchange = "gateio"

	defaultBaseURL = "https://fx-api.gateio.ws/api/v4"

	futuresTickersPath = "/futures/usdt/tickers"
)

// futuresTicker /futures/usdt/tickers 单条。现货价格取 index_price，
// 期货价格优先 mark_price，缺失时退回 last。
type futuresTicker struct {
	Contract    string `json:"contract"`
	Last        string `json:"last"`
	MarkPrice   string `json:"mark_price"`
	IndexPrice  string `json:"index_price"`
	FundingRate string `json:"funding_rate"`
}

// Source Gate.io 的 REST 兜底数据源。Gate 推送不稳定，
// 改为每个调度周期整表拉取一次 tickers 再按合约过滤。
type Source struct {
	client  *resty.Client
	store   port.MarketStore
	symbols []string
}

// New symbols 为不带 USDT 后缀的币种列表。
func New(baseURL string, symbols []string, store port.MarketStore) *Source {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second).
		SetRetryCount(0)
	return &Source{client: client, store: store, symbols: symbols}
}

func (s *Source) Name() string { return Exchange }

func (s *Source) Fetch(ctx context.Context) error {
	var tickers []futuresTicker
	resp, err := s.client.R().
		SetContext(ctx).
		SetResult(&tickers).
		Get(futuresTickersPath)
	if err != nil {
		return fmt.Errorf("gate tickers: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("gate tickers: status %d", resp.StatusCode())
	}

	byContract := make(map[string]futuresTicker, len(tickers))
	for _, t := range tickers {
		byContract[t.Contract] = t
	}

	// 各币种独立落库，一个坏币种不拖累其他币种。
	g, _ := errgroup.WithContext(ctx)
	for _, sym := range s.symbols {
		base := strings.ToUpper(strings.TrimSpace(sym))
		if base == "" {
			continue
		}
		g.Go(func() error {
			t, ok := byContract[base+"_USDT"]
			if !ok {
				return fmt.Errorf("gate: contract %s_USDT not in tickers", base)
			}
			s.save(base+"USDT", t)
			return nil
		})
	}
	return g.Wait()
}

func (s *Source) save(symbol string, t futuresTicker) {
	if rate, ok := parseFloat(t.FundingRate); ok {
		// Gate 不返回下次结算时间，交给存储层推算。
		s.store.SaveFundingRate(Exchange, symbol, rate, 0)
	}
	if px, ok := parseFloat(t.MarkPrice); ok {
		s.store.SaveFuturesPrice(Exchange, symbol, px)
	} else if px, ok := parseFloat(t.Last); ok {
		s.store.SaveFuturesPrice(Exchange, symbol, px)
	}
	if px, ok := parseFloat(t.IndexPrice); ok {
		s.store.SaveSpotPrice(Exchange, symbol, px)
	}
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

var _ port.PollSource = (*Source)(nil)
