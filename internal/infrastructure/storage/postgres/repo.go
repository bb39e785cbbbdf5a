package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain/model"
)

// Repo 价差快照仓储（postgres，pgx stdlib 驱动）
type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

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
  id BIGSERIAL PRIMARY KEY,
  symbol TEXT NOT NULL,
  exchange_buy TEXT NOT NULL,
  exchange_sell TEXT NOT NULL,
  spot_price_buy NUMERIC(20,8) NOT NULL,
  spot_price_sell NUMERIC(20,8) NOT NULL,
  spot_spread NUMERIC(20,8) NOT NULL,
  profit_margin_pct NUMERIC(10,4) NOT NULL,
  spot_fee_buy_pct NUMERIC(10,4) NOT NULL,
  spot_fee_sell_pct NUMERIC(10,4) NOT NULL,
  snapshot_time BIGINT NOT NULL,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_spread_snap_pair ON spread_arbitrage_snapshots(symbol, exchange_buy, exchange_sell);
CREATE INDEX IF NOT EXISTS idx_spread_snap_time ON spread_arbitrage_snapshots(snapshot_time);
`)
	return err
}

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
		) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.Symbol, row.ExchangeBuy, row.ExchangeSell,
			row.SpotPriceBuy.String(), row.SpotPriceSell.String(),
			row.SpotSpread.String(), row.ProfitMarginPct.String(),
			row.SpotFeeBuyPct.String(), row.SpotFeeSellPct.String(),
			row.SnapshotTime, now,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) TopPairStats(ctx context.Context) (map[string][]model.PairStat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, exchange_buy, exchange_sell,
		       COUNT(*) AS spread_count,
		       AVG(profit_margin_pct)::float8, AVG(spot_fee_buy_pct)::float8, AVG(spot_fee_sell_pct)::float8
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
