package composite

import (
	"context"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain/model"
)

// Repo 将快照写入多个后端（如 sqlite 本地留档 + postgres 共享库）。
// 写入对每个后端独立生效，返回第一个错误；统计查询走第一个后端。
type Repo struct {
	repos []port.SnapshotRepository
}

func New(repos ...port.SnapshotRepository) *Repo {
	out := make([]port.SnapshotRepository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

func (r *Repo) SaveSnapshots(ctx context.Context, rows []model.SpreadSnapshot) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveSnapshots(ctx, rows); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) TopPairStats(ctx context.Context) (map[string][]model.PairStat, error) {
	if len(r.repos) == 0 {
		return map[string][]model.PairStat{}, nil
	}
	return r.repos[0].TopPairStats(ctx)
}

func (r *Repo) Close() error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.SnapshotRepository = (*Repo)(nil)
