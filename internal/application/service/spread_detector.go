package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain/model"
	"spreadwatch/internal/infrastructure/fees"
)

const (
	// DefaultScanInterval 扫描周期
	DefaultScanInterval = time.Second

	// DefaultInitialDelay 启动后的预热等待，让缓存先积累数据
	DefaultInitialDelay = 10 * time.Second

	// marginScale 利润率计算的小数位（HALF_UP）
	marginScale = 6
)

// DefaultThresholdPct 扣费后利润率阈值：仅持久化严格大于此值的组合
var DefaultThresholdPct = decimal.RequireFromString("0.05")

var oneHundred = decimal.NewFromInt(100)

// SpreadDetector 每个扫描周期对每个币种做两两现货价差比较：
// 买低卖高，扣掉「一 maker 一 taker 且总手续费最小」的两侧手续费，
// 将利润率超过阈值的组合整批写入持久层。
//
// 仅使用现货价参与价差计算与写入，不使用期货价替代：
// 若用期货价替代缺失的现货价，利润率与按表内价格重算结果不符，
// 且可能误写入本应过滤的负利润率记录。
type SpreadDetector struct {
	market    *MarketService
	fees      *fees.Schedule
	repo      port.SnapshotRepository
	symbols   []string
	threshold decimal.Decimal

	interval     time.Duration
	initialDelay time.Duration

	now func() time.Time
}

func NewSpreadDetector(market *MarketService, schedule *fees.Schedule, repo port.SnapshotRepository, symbols []string, threshold decimal.Decimal) *SpreadDetector {
	if threshold.IsZero() {
		threshold = DefaultThresholdPct
	}
	return &SpreadDetector{
		market:       market,
		fees:         schedule,
		repo:         repo,
		symbols:      symbols,
		threshold:    threshold,
		interval:     DefaultScanInterval,
		initialDelay: DefaultInitialDelay,
		now:          time.Now,
	}
}

// SetTiming 覆盖扫描周期与预热等待。零值保留默认值。
func (d *SpreadDetector) SetTiming(interval, initialDelay time.Duration) {
	if interval > 0 {
		d.interval = interval
	}
	if initialDelay > 0 {
		d.initialDelay = initialDelay
	}
}

// Run 固定频率扫描，ctx 取消后退出。持久化失败只丢弃当前周期的批次。
func (d *SpreadDetector) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(d.initialDelay):
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	log.Info().
		Int("symbols", len(d.symbols)).
		Str("threshold_pct", d.threshold.String()).
		Msg("spread detector started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.ScanOnce(ctx)
		}
	}
}

// ScanOnce 执行一个完整扫描周期，所有币种的机会合成一个批次写入。
func (d *SpreadDetector) ScanOnce(ctx context.Context) {
	var rows []model.SpreadSnapshot
	for _, symbol := range d.symbols {
		rows = append(rows, d.Collect(symbol)...)
	}
	if len(rows) == 0 {
		return
	}
	if err := d.repo.SaveSnapshots(ctx, rows); err != nil {
		// 整批丢弃，下一个周期照常进行
		log.Error().Err(err).Int("rows", len(rows)).Msg("save spread snapshots failed, batch dropped")
		return
	}
	log.Debug().Int("rows", len(rows)).Msg("spread snapshots saved")
}

// Collect 收集单个币种在当前时刻的全部合格机会。
// 现货价未过期且严格为正的交易所不足 2 个时返回空。
func (d *SpreadDetector) Collect(symbol string) []model.SpreadSnapshot {
	view := d.market.MarketView(symbol)

	var (
		prices []decimal.Decimal
		exs    []string
	)
	for _, row := range view {
		if row.SpotPrice != nil && *row.SpotPrice > 0 {
			prices = append(prices, decimal.NewFromFloat(*row.SpotPrice))
			exs = append(exs, row.Exchange)
		}
	}
	if len(prices) < 2 {
		return nil
	}

	nowMs := d.now().UnixMilli()
	var out []model.SpreadSnapshot
	for i := 0; i < len(prices); i++ {
		for j := i + 1; j < len(prices); j++ {
			if snap, ok := d.compare(symbol, exs[i], exs[j], prices[i], prices[j], nowMs); ok {
				out = append(out, snap)
			}
		}
	}
	return out
}

func (d *SpreadDetector) compare(symbol, exI, exJ string, pi, pj decimal.Decimal, nowMs int64) (model.SpreadSnapshot, bool) {
	exchangeBuy, exchangeSell := exI, exJ
	priceBuy, priceSell := pi, pj
	if pi.GreaterThan(pj) {
		exchangeBuy, exchangeSell = exJ, exI
		priceBuy, priceSell = pj, pi
	}

	// 原始价差利润率(%)，6 位小数 HALF_UP
	grossMarginPct := priceSell.Sub(priceBuy).DivRound(priceBuy, marginScale).Mul(oneHundred)

	// 一 maker 一 taker，且总手续费最小；任一侧费率缺失则整对跳过
	makerBuy, okMB := d.fees.SpotMakerPct(exchangeBuy)
	takerBuy, okTB := d.fees.SpotTakerPct(exchangeBuy)
	makerSell, okMS := d.fees.SpotMakerPct(exchangeSell)
	takerSell, okTS := d.fees.SpotTakerPct(exchangeSell)
	if !okMB || !okTB || !okMS || !okTS {
		return model.SpreadSnapshot{}, false
	}

	totalA := makerBuy.Add(takerSell) // 买 maker、卖 taker
	totalB := takerBuy.Add(makerSell) // 买 taker、卖 maker
	var feeBuyPct, feeSellPct decimal.Decimal
	if totalA.LessThanOrEqual(totalB) {
		feeBuyPct, feeSellPct = makerBuy, takerSell
	} else {
		feeBuyPct, feeSellPct = takerBuy, makerSell
	}

	profitMarginPct := grossMarginPct.Sub(feeBuyPct).Sub(feeSellPct)
	if profitMarginPct.LessThanOrEqual(d.threshold) {
		return model.SpreadSnapshot{}, false
	}

	return model.SpreadSnapshot{
		Symbol:          symbol,
		ExchangeBuy:     exchangeBuy,
		ExchangeSell:    exchangeSell,
		SpotPriceBuy:    priceBuy,
		SpotPriceSell:   priceSell,
		SpotSpread:      priceSell.Sub(priceBuy),
		ProfitMarginPct: profitMarginPct,
		SpotFeeBuyPct:   feeBuyPct,
		SpotFeeSellPct:  feeSellPct,
		SnapshotTime:    nowMs,
	}, true
}
