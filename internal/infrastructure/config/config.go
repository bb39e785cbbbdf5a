package config

import (
	"errors"
	"strings"

	"github.com/BurntSushi/toml"
)

type StreamExchange struct {
	Enabled bool   `toml:"enabled"`
	WsURL   string `toml:"ws_url"`
}

type Config struct {
	App struct {
		HTTPListen string `toml:"http_listen"`
		LogLevel   string `toml:"log_level"`
	} `toml:"app"`

	Symbols struct {
		List []string `toml:"list"`
	} `toml:"symbols"`

	Store struct {
		TTLSeconds int    `toml:"ttl_seconds"`
		RedisAddr  string `toml:"redis_addr"` // 为空时使用纯内存缓存
	} `toml:"store"`

	Detector struct {
		ThresholdPct    float64 `toml:"threshold_pct"`
		IntervalMs      int     `toml:"interval_ms"`
		InitialDelaySec int     `toml:"initial_delay_sec"`
	} `toml:"detector"`

	Poll struct {
		IntervalMs int `toml:"interval_ms"`
	} `toml:"poll"`

	Storage struct {
		SqlitePath  string `toml:"sqlite_path"`
		PostgresDSN string `toml:"postgres_dsn"` // 为空时只写 sqlite
	} `toml:"storage"`

	Exchange struct {
		Binance struct {
			Enabled      bool   `toml:"enabled"`
			FuturesWsURL string `toml:"futures_ws_url"`
			SpotWsURL    string `toml:"spot_ws_url"`
		} `toml:"binance"`

		Okx StreamExchange `toml:"okx"`

		Gate struct {
			Enabled bool   `toml:"enabled"`
			BaseURL string `toml:"base_url"`
		} `toml:"gate"`
	} `toml:"exchange"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.HTTPListen == "" {
		cfg.App.HTTPListen = ":8080"
	}
	if cfg.Store.TTLSeconds <= 0 {
		cfg.Store.TTLSeconds = 15
	}
	if cfg.Detector.ThresholdPct <= 0 {
		cfg.Detector.ThresholdPct = 0.05
	}
	if cfg.Detector.IntervalMs <= 0 {
		cfg.Detector.IntervalMs = 1000
	}
	if cfg.Detector.InitialDelaySec <= 0 {
		cfg.Detector.InitialDelaySec = 10
	}
	if cfg.Poll.IntervalMs <= 0 {
		cfg.Poll.IntervalMs = 1000
	}
	if cfg.Storage.SqlitePath == "" {
		cfg.Storage.SqlitePath = "data/spreadwatch.db"
	}
}

func validate(cfg *Config) error {
	cfg.Symbols.List = normalizeSymbols(cfg.Symbols.List)
	if len(cfg.Symbols.List) == 0 {
		return errors.New("symbols.list is empty")
	}
	return nil
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		// 币种列表只收基础币，写成 BTCUSDT 的裁掉后缀。
		u = strings.TrimSuffix(u, "USDT")
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
