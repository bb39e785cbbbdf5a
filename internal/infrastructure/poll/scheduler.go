package poll

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application/port"
)

const (
	// DefaultInterval 每个轮询源的固定拉取周期
	DefaultInterval = 1000 * time.Millisecond

	// tickTimeout 单次 Fetch 的超时上限。必须显著短于缓存 TTL，
	// 否则单个卡死的源会拖垮数据新鲜度。
	tickTimeout = 8 * time.Second
)

// Scheduler 为每个轮询源维护一个独立的固定频率循环。
// 与推送连接不同：单次拉取失败不退避，下一个周期照常重试。
type Scheduler struct {
	sources  []port.PollSource
	interval time.Duration
	wg       sync.WaitGroup
}

func NewScheduler(sources []port.PollSource, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{sources: sources, interval: interval}
}

// Start 为每个源启动循环，ctx 取消后不再调度新的 tick，
// 进行中的子请求自然结束或超时。
func (s *Scheduler) Start(ctx context.Context) {
	for _, src := range s.sources {
		s.wg.Add(1)
		go s.loop(ctx, src)
	}
	log.Info().Int("sources", len(s.sources)).Int64("interval_ms", s.interval.Milliseconds()).
		Msg("http polling started")
}

// Wait 阻塞到所有轮询循环退出。
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, src port.PollSource) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// 启动后立即拉取一次，不等第一个 tick
	s.fetchOnce(ctx, src)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fetchOnce(ctx, src)
		}
	}
}

func (s *Scheduler) fetchOnce(ctx context.Context, src port.PollSource) {
	tctx, cancel := context.WithTimeout(ctx, tickTimeout)
	defer cancel()

	if err := src.Fetch(tctx); err != nil && ctx.Err() == nil {
		// 轮询失败不退避，记录后等下一个周期
		log.Debug().Str("source", src.Name()).Err(err).Msg("poll tick failed")
	}
}
