package floor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trading-floor/internal/agent"
)

// Floor 并发驱动全部交易员的会话。
// 交易员之间不共享任何状态（各自独占一个账户），因此无需跨会话加锁。
type Floor struct {
	traders  []*agent.Trader
	interval time.Duration
	logger   *zap.Logger
}

// New 创建交易大厅调度器。
func New(traders []*agent.Trader, interval time.Duration, logger *zap.Logger) (*Floor, error) {
	if len(traders) == 0 {
		return nil, errors.New("floor: 至少需要一个交易员")
	}
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Floor{
		traders:  traders,
		interval: interval,
		logger:   logger,
	}, nil
}

// RunSession 并发执行所有交易员的一次会话，全部结束后返回。
// 单个会话中止不会取消或阻塞其他会话，这里刻意使用不带取消传播的
// errgroup.Group，goroutine 永远返回 nil，失败只记录不上抛。
func (f *Floor) RunSession(ctx context.Context) {
	f.logger.Info("交易会话开始", zap.Int("traders", len(f.traders)))
	started := time.Now()

	var group errgroup.Group
	for _, trader := range f.traders {
		trader := trader
		group.Go(func() error {
			result := trader.Run(ctx)
			switch result.Status {
			case agent.StatusAborted:
				f.logger.Warn("交易员会话中止",
					zap.String("trader", trader.Name()),
					zap.String("mode", result.Mode.String()),
					zap.Int("turns", result.Turns),
					zap.Error(result.Err),
				)
			default:
				f.logger.Info("交易员会话完成",
					zap.String("trader", trader.Name()),
					zap.String("mode", result.Mode.String()),
					zap.Int("turns", result.Turns),
				)
			}
			return nil
		})
	}
	_ = group.Wait()

	f.logger.Info("交易会话结束", zap.Duration("elapsed", time.Since(started)))
}

// RunContinuously 以固定间隔重复执行会话，直到上下文取消。
// 每轮会话相互独立，除账户自身的持久化外不携带任何状态。
func (f *Floor) RunContinuously(ctx context.Context) error {
	f.RunSession(ctx)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("floor: 调度异常退出: %w", err)
			}
			f.logger.Info("调度收到退出信号，正在停止")
			return nil
		case <-ticker.C:
			f.RunSession(ctx)
			f.logger.Info("等待下一轮会话", zap.Duration("interval", f.interval))
		}
	}
}
