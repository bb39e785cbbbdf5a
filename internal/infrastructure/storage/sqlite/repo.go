package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain/model"
)

// Repo 价差快照仓储（sqlite）
type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS spread_arbitrage_snapshots (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  symbol TEXT NOT NULL,
  exchange_buy TEXT NOT NULL,
  exchange_sell TEXT NOT NULL,
  spot_price_buy REAL NOT NULL,
  spot_price_sell REAL NOT NULL,
  spot_spread REAL NOT NULL,
  profit_margin_pct REAL NOT NULL,
  spot_fee_buy_pct REAL NOT NULL,
  spot_fee_sell_pct REAL NOT NULL,
  snapshot_time INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_spread_snap_symbol ON spread_arbitrage_snapshots(symbol);
CREATE INDEX IF NOT EXISTS idx_spread_snap_pair ON spread_arbitrage_snapshots(symbol, exchange_buy, exchange_sell);
CREATE INDEX IF NOT EXISTS idx_spread_snap_time ON spread_arbitrage_snapshots(snapshot_time);
`)
	return err
}

// SaveSnapshots 单个事务内批量写入；任何一行失败则整批回滚。
func (r *Repo) SaveSnapshots(ctx context.Context, rows []model.SpreadSnapshot) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO spread_arbitrage_snapshots(
			symbol, exchange_buy, exchange_sell, spot_price_buy, spot_price_sell,
			spot_spread, profit_margin_pct, spot_fee_buy_pct, spot_fee_sell_pct,
			snapshot_time, created_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.Symbol, row.ExchangeBuy, row.ExchangeSell,
			row.SpotPriceBuy.InexactFloat64(), row.SpotPriceSell.InexactFloat64(),
			row.SpotSpread.InexactFloat64(), row.ProfitMarginPct.InexactFloat64(),
			row.SpotFeeBuyPct.InexactFloat64(), row.SpotFeeSellPct.InexactFloat64(),
			row.SnapshotTime, now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// TopPairStats 按 (symbol, exchange_buy, exchange_sell) 聚合，按出现次数降序，
// 每币种在应用层截取前 5 个组合，避免窗口函数歧义。
func (r *Repo) TopPairStats(ctx context.Context) (map[string][]model.PairStat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, exchange_buy, exchange_sell,
		       COUNT(*) AS spread_count,
		       AVG(profit_margin_pct), AVG(spot_fee_buy_pct), AVG(spot_fee_sell_pct)
		FROM spread_arbitrage_snapshots
		GROUP BY symbol, exchange_buy, exchange_sell
		ORDER BY symbol, spread_count DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]model.PairStat)
	for rows.Next() {
		var st model.PairStat
		if err := rows.Scan(&st.Symbol, &st.ExchangeBuy, &st.ExchangeSell,
			&st.Count, &st.AvgProfitMarginPct, &st.AvgFeeBuyPct, &st.AvgFeeSellPct); err != nil {
			return nil, err
		}
		if len(out[st.Symbol]) < 5 {
			out[st.Symbol] = append(out[st.Symbol], st)
		}
	}
	return out, rows.Err()
}

var _ port.SnapshotRepository = (*Repo)(nil)
