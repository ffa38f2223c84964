package normalize

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/iagallery/internal/domain"
)

const MaxConcurrency = 16

// Observer 用于把批处理进度从执行流程中解耦出来。
//
// 约束：
// - normalize 包只发事件，不做任何输出（避免污染 stdout 的 JSON 契约）
// - 实现必须并发安全：concurrency>1 时事件来自多个 goroutine
type Observer interface {
	// OnStart 在批处理开始时调用一次。
	OnStart(total, workers int)
	// OnItemDone 在某个条目完成时调用：done 为已完成数量（1..total），index 为该条目的输入下标。
	OnItemDone(done, total, index int, it domain.ResolvedItem, dur time.Duration)
}

type nopObserver struct{}

func (nopObserver) OnStart(int, int) {}
func (nopObserver) OnItemDone(int, int, int, domain.ResolvedItem, time.Duration) {}

// NormalizeAll 批量规范化。
//
// 约束：
// - 输出顺序与输入一致（按下标写入结果）
// - 单条失败不影响其它条目
// - concurrency<=1 时严格按输入顺序逐条处理
// - 批中含 identifier 条目但 resolver 未配置：直接返回 ErrResolverUnset，不处理任何条目
func (n *Normalizer) NormalizeAll(ctx context.Context, items []domain.SourceItem, concurrency int, obs Observer) (domain.BatchReport, error) {
	if obs == nil {
		obs = nopObserver{}
	}
	for _, src := range items {
		if src.IsDirect() {
			continue
		}
		if err := n.Ready(); err != nil {
			return domain.BatchReport{}, err
		}
		break
	}

	workers := concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > MaxConcurrency {
		workers = MaxConcurrency
	}
	if workers > len(items) && len(items) > 0 {
		workers = len(items)
	}

	rep := domain.BatchReport{StartedAt: time.Now()}
	results := make([]domain.ResolvedItem, len(items))
	total := len(items)
	obs.OnStart(total, workers)

	var (
		mu   sync.Mutex
		done int
	)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range items {
		g.Go(func() error {
			start := time.Now()
			it := n.Normalize(ctx, items[i])
			results[i] = it

			mu.Lock()
			done++
			d := done
			mu.Unlock()
			obs.OnItemDone(d, total, i, it, time.Since(start))
			return nil
		})
	}
	_ = g.Wait()

	rep.FinishedAt = time.Now()
	rep.Items = results
	rep.Finalize()
	n.logger().Info("批处理完成",
		"total", total,
		"resolved", rep.Summary.Resolved,
		"empty", rep.Summary.Empty,
		"failed", rep.Summary.Failed,
		"invalid", rep.Summary.Invalid,
	)
	return rep, nil
}
