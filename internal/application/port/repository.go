package port

import (
	"context"

	"spreadwatch/internal/domain/model"
)

// SnapshotRepository 价差快照持久化与聚合查询
type SnapshotRepository interface {
	// SaveSnapshots 将一个扫描周期内的全部快照作为单个事务批量写入。
	// 失败时整批丢弃，不做行级重试。
	SaveSnapshots(ctx context.Context, rows []model.SpreadSnapshot) error

	// TopPairStats 按 (symbol, exchange_buy, exchange_sell) 聚合历史快照，
	// 每币种按出现次数降序取前 5 个组合。
	TopPairStats(ctx context.Context) (map[string][]model.PairStat, error)

	Close() error
}
