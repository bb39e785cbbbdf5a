package port

import "context"

// PollSource 轮询型交易所数据源。
// Fetch 在每个调度周期被调用一次，内部可并发拉取多个币种，
// 但必须在返回前收敛所有子请求。错误由调度器记录后丢弃，不做退避。
type PollSource interface {
	Name() string
	Fetch(ctx context.Context) error
}
