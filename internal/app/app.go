package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"trading-floor/internal/account"
	"trading-floor/internal/activity"
	"trading-floor/internal/agent"
	"trading-floor/internal/ai"
	"trading-floor/internal/config"
	"trading-floor/internal/floor"
	"trading-floor/internal/market"
	"trading-floor/internal/store"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 组装交易大厅并运行。once 为 true 时只执行一轮会话后退出，
// 否则按调度间隔持续运行，直到上下文取消。
func (a *App) Run(ctx context.Context, once bool) error {
	a.logger.Info("交易大厅已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.Int("traders", len(a.cfg.Traders)),
		zap.Duration("run_interval", a.cfg.Scheduler.RunInterval),
	)

	tradingFloor, err := a.buildFloor(ctx)
	if err != nil {
		return err
	}

	if once {
		tradingFloor.RunSession(ctx)
		return nil
	}

	return tradingFloor.RunContinuously(ctx)
}

func (a *App) buildFloor(ctx context.Context) (*floor.Floor, error) {
	accountStore, err := store.NewAccounts(a.store)
	if err != nil {
		return nil, fmt.Errorf("初始化账户存储失败: %w", err)
	}

	marketStore, err := store.NewMarketData(a.store)
	if err != nil {
		return nil, fmt.Errorf("初始化行情存储失败: %w", err)
	}

	activityLog, err := activity.NewLog(a.store, a.logger)
	if err != nil {
		return nil, fmt.Errorf("初始化活动日志失败: %w", err)
	}

	oracle := market.NewSimulated(a.cfg.Market, marketStore, a.logger)

	aiClient, err := ai.NewClient(a.cfg.OpenAI, a.logger)
	if err != nil {
		return nil, fmt.Errorf("初始化AI客户端失败: %w", err)
	}

	manager, err := account.NewManager(a.cfg.Trading, accountStore, oracle, activityLog, a.logger)
	if err != nil {
		return nil, fmt.Errorf("初始化账户管理器失败: %w", err)
	}

	traders := make([]*agent.Trader, 0, len(a.cfg.Traders))
	for _, tc := range a.cfg.Traders {
		acct, err := manager.Get(ctx, tc.Name)
		if err != nil {
			return nil, fmt.Errorf("装载账户 %q 失败: %w", tc.Name, err)
		}

		traders = append(traders, agent.NewTrader(
			tc.Name, tc.Model, acct, aiClient, oracle, activityLog,
			a.cfg.Trading.MaxTurns, a.logger,
		))
	}

	return floor.New(traders, a.cfg.Scheduler.RunInterval, a.logger)
}
