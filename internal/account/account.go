package account

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trading-floor/internal/activity"
	"trading-floor/internal/config"
	"trading-floor/internal/market"
)

// Store 以账户名称为键持久化账户文档。
type Store interface {
	Put(ctx context.Context, name string, doc []byte) error
	Get(ctx context.Context, name string) ([]byte, bool, error)
}

// Recorder 接收账本产生的活动记录。
type Recorder interface {
	Note(ctx context.Context, name string, category activity.Category, message string)
}

// Account 维护单个交易员的账本状态。
// 余额检查与状态变更在账户互斥锁内完成，保证单账户操作的原子性。
type Account struct {
	mu sync.Mutex

	name         string
	balance      decimal.Decimal
	strategy     string
	holdings     map[string]int64
	transactions []Transaction
	valueSeries  []ValueSample

	store    Store
	oracle   market.Oracle
	recorder Recorder
	logger   *zap.Logger

	spread         decimal.Decimal
	initialBalance decimal.Decimal
	now            func() time.Time
}

// Snapshot 是 Report 生成的结构化账户快照。
type Snapshot struct {
	Name                string           `json:"name"`
	Balance             decimal.Decimal  `json:"balance"`
	Strategy            string           `json:"strategy"`
	Holdings            map[string]int64 `json:"holdings"`
	TransactionCount    int              `json:"transaction_count"`
	TotalPortfolioValue decimal.Decimal  `json:"total_portfolio_value"`
	TotalProfitLoss     decimal.Decimal  `json:"total_profit_loss"`
}

// JSON 将快照序列化为缩进 JSON，供工具结果等文本场景使用。
func (s *Snapshot) JSON() (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("account: 序列化账户快照失败: %w", err)
	}
	return string(data), nil
}

// accountDocument 是账户的持久化形态，字段命名与存量数据保持一致。
type accountDocument struct {
	Name                     string           `json:"name"`
	Balance                  decimal.Decimal  `json:"balance"`
	Strategy                 string           `json:"strategy"`
	Holdings                 map[string]int64 `json:"holdings"`
	Transactions             []Transaction    `json:"transactions"`
	PortfolioValueTimeSeries []ValueSample    `json:"portfolio_value_time_series"`
}

// Manager 负责账户的装载与创建。
type Manager struct {
	cfg      config.TradingConfig
	store    Store
	oracle   market.Oracle
	recorder Recorder
	logger   *zap.Logger
}

// NewManager 创建账户管理器。recorder 可以为 nil。
func NewManager(cfg config.TradingConfig, store Store, oracle market.Oracle, recorder Recorder, logger *zap.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("account: store 不能为空")
	}
	if oracle == nil {
		return nil, fmt.Errorf("account: 行情源不能为空")
	}
	if cfg.InitialBalance <= 0 {
		return nil, fmt.Errorf("account: 初始资金必须大于0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		cfg:      cfg,
		store:    store,
		oracle:   oracle,
		recorder: recorder,
		logger:   logger,
	}, nil
}

// Get 按名称装载账户，不存在时以初始资金创建并立即持久化。
// 名称不区分大小写。
func (m *Manager) Get(ctx context.Context, name string) (*Account, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("account: 账户名称不能为空")
	}

	acct := &Account{
		name:           key,
		holdings:       make(map[string]int64),
		store:          m.store,
		oracle:         m.oracle,
		recorder:       m.recorder,
		logger:         m.logger,
		spread:         decimal.NewFromFloat(m.cfg.Spread),
		initialBalance: decimal.NewFromFloat(m.cfg.InitialBalance),
		now:            time.Now,
	}

	doc, found, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	if !found {
		acct.balance = acct.initialBalance
		if err := acct.persist(ctx); err != nil {
			return nil, err
		}
		m.logger.Info("创建新账户",
			zap.String("trader", key),
			zap.String("initial_balance", acct.initialBalance.StringFixed(2)),
		)
		return acct, nil
	}

	var stored accountDocument
	if err := json.Unmarshal(doc, &stored); err != nil {
		return nil, fmt.Errorf("account: 解析账户 %q 文档失败: %w", key, err)
	}

	acct.balance = stored.Balance
	acct.strategy = stored.Strategy
	if stored.Holdings != nil {
		acct.holdings = stored.Holdings
	}
	acct.transactions = stored.Transactions
	acct.valueSeries = stored.PortfolioValueTimeSeries

	return acct, nil
}

// Name 返回账户名称（小写）。
func (a *Account) Name() string {
	return a.name
}

// Balance 返回当前现金余额。
func (a *Account) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Strategy 返回当前投资策略描述。
func (a *Account) Strategy() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.strategy
}

// Holdings 返回当前持仓的副本。
func (a *Account) Holdings() map[string]int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.holdingsCopy()
}

// Transactions 返回交易流水的副本。
func (a *Account) Transactions() []Transaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Transaction, len(a.transactions))
	copy(out, a.transactions)
	return out
}

// ValueSeries 返回组合估值时间序列的副本。
func (a *Account) ValueSeries() []ValueSample {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ValueSample, len(a.valueSeries))
	copy(out, a.valueSeries)
	return out
}

// Buy 以当前行情价加点差买入。余额不足或标的无效时账户状态保持不变。
func (a *Account) Buy(ctx context.Context, symbol string, quantity int64, rationale string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if quantity <= 0 {
		return "", fmt.Errorf("account: 买入数量必须大于0, 当前为 %d", quantity)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	price, err := a.oracle.GetPrice(ctx, symbol)
	if err != nil {
		return "", fmt.Errorf("account: 获取 %s 价格失败: %w", symbol, err)
	}
	if price.Sign() <= 0 {
		return "", fmt.Errorf("%w: %s", ErrInvalidSymbol, symbol)
	}

	execPrice := price.Mul(decimal.NewFromInt(1).Add(a.spread))
	cost := execPrice.Mul(decimal.NewFromInt(quantity))

	if cost.GreaterThan(a.balance) {
		return "", fmt.Errorf("%w: need $%s, have $%s",
			ErrInsufficientFunds, cost.StringFixed(2), a.balance.StringFixed(2))
	}

	a.holdings[symbol] += quantity
	a.transactions = append(a.transactions, Transaction{
		Symbol:    symbol,
		Quantity:  quantity,
		Price:     execPrice,
		Timestamp: a.now().UTC(),
		Rationale: rationale,
	})
	a.balance = a.balance.Sub(cost)

	if err := a.persist(ctx); err != nil {
		return "", err
	}
	a.note(ctx, fmt.Sprintf("Bought %d %s @ $%s", quantity, symbol, execPrice.StringFixed(2)))

	return fmt.Sprintf("Purchased %d shares of %s at $%s. New balance: $%s",
		quantity, symbol, execPrice.StringFixed(2), a.balance.StringFixed(2)), nil
}

// Sell 以当前行情价减点差卖出。持仓清零时整体移除该标的条目。
func (a *Account) Sell(ctx context.Context, symbol string, quantity int64, rationale string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if quantity <= 0 {
		return "", fmt.Errorf("account: 卖出数量必须大于0, 当前为 %d", quantity)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	held := a.holdings[symbol]
	if held < quantity {
		return "", fmt.Errorf("%w: cannot sell %d shares of %s, only have %d",
			ErrInsufficientShares, quantity, symbol, held)
	}

	price, err := a.oracle.GetPrice(ctx, symbol)
	if err != nil {
		return "", fmt.Errorf("account: 获取 %s 价格失败: %w", symbol, err)
	}
	if price.Sign() <= 0 {
		return "", fmt.Errorf("%w: %s", ErrInvalidSymbol, symbol)
	}

	execPrice := price.Mul(decimal.NewFromInt(1).Sub(a.spread))
	proceeds := execPrice.Mul(decimal.NewFromInt(quantity))

	if held == quantity {
		delete(a.holdings, symbol)
	} else {
		a.holdings[symbol] = held - quantity
	}
	a.transactions = append(a.transactions, Transaction{
		Symbol:    symbol,
		Quantity:  -quantity,
		Price:     execPrice,
		Timestamp: a.now().UTC(),
		Rationale: rationale,
	})
	a.balance = a.balance.Add(proceeds)

	if err := a.persist(ctx); err != nil {
		return "", err
	}
	a.note(ctx, fmt.Sprintf("Sold %d %s @ $%s", quantity, symbol, execPrice.StringFixed(2)))

	return fmt.Sprintf("Sold %d shares of %s at $%s. New balance: $%s",
		quantity, symbol, execPrice.StringFixed(2), a.balance.StringFixed(2)), nil
}

// PortfolioValue 返回现金与持仓市值之和。纯读取，不产生持久化副作用。
func (a *Account) PortfolioValue(ctx context.Context) (decimal.Decimal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.portfolioValueLocked(ctx)
}

// ProfitLoss 返回给定组合价值相对初始资金的盈亏。
func (a *Account) ProfitLoss(value decimal.Decimal) decimal.Decimal {
	return value.Sub(a.initialBalance)
}

// Report 生成账户快照，同时向估值时间序列追加一次采样并持久化。
// 这是唯一带持久化副作用的读操作，重复调用会持续增长时间序列。
func (a *Account) Report(ctx context.Context) (*Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	value, err := a.portfolioValueLocked(ctx)
	if err != nil {
		return nil, err
	}

	a.valueSeries = append(a.valueSeries, ValueSample{
		Timestamp: a.now().UTC(),
		Value:     value,
	})
	if err := a.persist(ctx); err != nil {
		return nil, err
	}
	a.note(ctx, "Generated account report")

	return &Snapshot{
		Name:                a.name,
		Balance:             a.balance,
		Strategy:            a.strategy,
		Holdings:            a.holdingsCopy(),
		TransactionCount:    len(a.transactions),
		TotalPortfolioValue: value,
		TotalProfitLoss:     value.Sub(a.initialBalance),
	}, nil
}

// Reset 清空账户并设置新策略。
func (a *Account) Reset(ctx context.Context, strategy string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.balance = a.initialBalance
	a.strategy = strategy
	a.holdings = make(map[string]int64)
	a.transactions = nil
	a.valueSeries = nil

	if err := a.persist(ctx); err != nil {
		return err
	}
	a.note(ctx, "Account reset")
	return nil
}

// ChangeStrategy 更新投资策略描述。
func (a *Account) ChangeStrategy(ctx context.Context, strategy string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.strategy = strategy
	if err := a.persist(ctx); err != nil {
		return err
	}
	a.note(ctx, "Changed strategy")
	return nil
}

func (a *Account) portfolioValueLocked(ctx context.Context) (decimal.Decimal, error) {
	total := a.balance

	// 固定遍历顺序，保证估值过程可复现。
	symbols := make([]string, 0, len(a.holdings))
	for symbol := range a.holdings {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		price, err := a.oracle.GetPrice(ctx, symbol)
		if err != nil {
			return decimal.Zero, fmt.Errorf("account: 获取 %s 价格失败: %w", symbol, err)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(a.holdings[symbol])))
	}

	return total, nil
}

func (a *Account) holdingsCopy() map[string]int64 {
	out := make(map[string]int64, len(a.holdings))
	for symbol, qty := range a.holdings {
		out[symbol] = qty
	}
	return out
}

// persist 在持有锁的前提下将账户写回存储。
func (a *Account) persist(ctx context.Context) error {
	doc := accountDocument{
		Name:                     a.name,
		Balance:                  a.balance,
		Strategy:                 a.strategy,
		Holdings:                 a.holdings,
		Transactions:             a.transactions,
		PortfolioValueTimeSeries: a.valueSeries,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("account: 序列化账户 %q 失败: %w", a.name, err)
	}
	if err := a.store.Put(ctx, a.name, data); err != nil {
		return fmt.Errorf("account: 持久化账户 %q 失败: %w", a.name, err)
	}
	return nil
}

func (a *Account) note(ctx context.Context, message string) {
	if a.recorder == nil {
		return
	}
	a.recorder.Note(ctx, a.name, activity.CategoryAccount, message)
}
