package fees

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Schedule 各交易所现货/期货手续费率（来自各平台官网，仅供参考，以官网最新为准）。
// 现货 Maker/Taker 用于价差套利时选「一 maker 一 taker 且总手续费最小」。
type Schedule struct {
	spotMakerPct   map[string]decimal.Decimal
	spotTakerPct   map[string]decimal.Decimal
	spotDisplay    map[string]string
	futuresDisplay map[string]string
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// New 自定义费率表（外部配置源或测试使用）。nil map 视为空。
func New(spotMakerPct, spotTakerPct map[string]decimal.Decimal, spotDisplay, futuresDisplay map[string]string) *Schedule {
	if spotMakerPct == nil {
		spotMakerPct = map[string]decimal.Decimal{}
	}
	if spotTakerPct == nil {
		spotTakerPct = map[string]decimal.Decimal{}
	}
	if spotDisplay == nil {
		spotDisplay = map[string]string{}
	}
	if futuresDisplay == nil {
		futuresDisplay = map[string]string{}
	}
	return &Schedule{
		spotMakerPct:   spotMakerPct,
		spotTakerPct:   spotTakerPct,
		spotDisplay:    spotDisplay,
		futuresDisplay: futuresDisplay,
	}
}

// NewStatic 内置费率表
func NewStatic() *Schedule {
	return &Schedule{
		// 现货 Maker 费率（%），如 0.02 表示 0.02%
		spotMakerPct: map[string]decimal.Decimal{
			"binance":     dec("0.1"),
			"okx":         dec("0.08"),
			"bybit":       dec("0.1"),
			"gateio":      dec("0.2"),
			"mexc":        decimal.Zero,
			"bitget":      dec("0.1"),
			"coinex":      dec("0.16"),
			"cryptocom":   dec("0.4"),
			"kucoin":      dec("0.1"),
			"htx":         dec("0.2"),
			"bingx":       dec("0.1"),
			"coinw":       dec("0.1"),
			"kraken":      dec("0.1"),
			"bitfinex":    dec("0.1"),
			"hyperliquid": dec("0.04"), // Spot Base Tier 0
			"bitunix":     dec("0.1"),
			"whitebit":    dec("0.1"),
			"lbank":       dec("0.1"),
			"dydx":        dec("0.01"), // Tier 1 <$1M
		},
		// 现货 Taker 费率（%）
		spotTakerPct: map[string]decimal.Decimal{
			"binance":     dec("0.1"),
			"okx":         dec("0.1"),
			"bybit":       dec("0.1"),
			"gateio":      dec("0.2"),
			"mexc":        dec("0.05"),
			"bitget":      dec("0.1"),
			"coinex":      dec("0.16"),
			"cryptocom":   dec("0.4"),
			"kucoin":      dec("0.1"),
			"htx":         dec("0.2"),
			"bingx":       dec("0.1"),
			"coinw":       dec("0.1"),
			"kraken":      dec("0.2"),
			"bitfinex":    dec("0.15"),
			"hyperliquid": dec("0.07"),
			"bitunix":     dec("0.1"),
			"whitebit":    dec("0.1"),
			"lbank":       dec("0.1"),
			"dydx":        dec("0.05"),
		},
		// 现货交易手续费率展示（典型 Taker 或 Maker/Taker）
		spotDisplay: map[string]string{
			"binance":     "0.1%",
			"okx":         "0.08%/0.1%",
			"bybit":       "0.1%",
			"gateio":      "0.2%",
			"mexc":        "0%/0.05%",
			"bitget":      "0.1%",
			"coinex":      "0.16%",
			"cryptocom":   "0.4%",
			"kucoin":      "0.1%",
			"htx":         "0.2%",
			"bingx":       "0.1%",
			"coinw":       "0.1%",
			"kraken":      "0.1%/0.2%",
			"bitfinex":    "0.1%/0.15%",
			"hyperliquid": "0.04%/0.07%",
			"bitunix":     "0.1%",
			"whitebit":    "0.1%",
			"lbank":       "0.1%",
			"dydx":        "0.01%/0.05%",
		},
		// 期货/永续合约手续费率展示
		futuresDisplay: map[string]string{
			"binance":     "0.02%/0.05%",
			"okx":         "0.02%/0.05%",
			"bybit":       "0.02%/0.055%",
			"gateio":      "0.02%/0.05%",
			"mexc":        "0%/0.02%",
			"bitget":      "0.02%/0.06%",
			"coinex":      "0.03%/0.05%",
			"cryptocom":   "0.05%",
			"kucoin":      "0.02%/0.06%",
			"htx":         "0.02%/0.04%",
			"bingx":       "0.02%/0.05%",
			"coinw":       "0.02%/0.05%",
			"kraken":      "0.02%/0.05%",
			"bitfinex":    "0.02%/0.065%",
			"hyperliquid": "0.015%/0.045%",
			"bitunix":     "0.02%/0.05%",
			"whitebit":    "0.05%/0.05%",
			"lbank":       "0.02%/0.05%",
			"dydx":        "0.01%/0.05%",
		},
	}
}

// SpotMakerPct 现货 Maker 费率（%），未配置的交易所返回 ok=false
func (s *Schedule) SpotMakerPct(exchange string) (decimal.Decimal, bool) {
	v, ok := s.spotMakerPct[norm(exchange)]
	return v, ok
}

// SpotTakerPct 现货 Taker 费率（%）
func (s *Schedule) SpotTakerPct(exchange string) (decimal.Decimal, bool) {
	v, ok := s.spotTakerPct[norm(exchange)]
	return v, ok
}

func (s *Schedule) SpotFeeDisplay(exchange string) string {
	if v, ok := s.spotDisplay[norm(exchange)]; ok {
		return v
	}
	return "-"
}

func (s *Schedule) FuturesFeeDisplay(exchange string) string {
	if v, ok := s.futuresDisplay[norm(exchange)]; ok {
		return v
	}
	return "-"
}

func norm(exchange string) string {
	return strings.ToLower(strings.TrimSpace(exchange))
}
