package market

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"trading-floor/internal/config"
	"trading-floor/internal/store"
)

// Oracle 提供股票报价。返回零值表示该标的价格不可用，由调用方决定如何处理。
type Oracle interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Simulated 基于标的与交易日生成确定性的模拟价格：
// 同一标的在同一交易日内价格保持不变，跨日则重新生成。
// 每个交易日的全量价格表会写入持久化缓存，重启后当日价格可复现。
type Simulated struct {
	mu      sync.Mutex
	cfg     config.MarketConfig
	persist *store.MarketData
	cache   *dateCache
	logger  *zap.Logger
	now     func() time.Time
}

// NewSimulated 创建模拟行情源。persist 可以为 nil，此时仅使用内存缓存。
func NewSimulated(cfg config.MarketConfig, persist *store.MarketData, logger *zap.Logger) *Simulated {
	if cfg.MinPrice <= 0 {
		cfg.MinPrice = 10
	}
	if cfg.MaxPrice <= cfg.MinPrice {
		cfg.MaxPrice = cfg.MinPrice + 490
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Simulated{
		cfg:     cfg,
		persist: persist,
		cache:   newDateCache(cfg.CacheDates),
		logger:  logger,
		now:     time.Now,
	}
}

// GetPrice 返回标的当日价格。标的为空时返回零值。
func (s *Simulated) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return decimal.Zero, nil
	}

	date := s.now().UTC().Format("2006-01-02")

	s.mu.Lock()
	defer s.mu.Unlock()

	day, ok := s.cache.get(date)
	if !ok {
		day = s.loadDay(ctx, date)
		s.cache.put(date, day)
	}

	if price, ok := day[symbol]; ok {
		return price, nil
	}

	price := simulatedPrice(symbol, date, s.cfg.MinPrice, s.cfg.MaxPrice)
	day[symbol] = price
	s.saveDay(ctx, date, day)

	return price, nil
}

func (s *Simulated) loadDay(ctx context.Context, date string) map[string]decimal.Decimal {
	if s.persist == nil {
		return make(map[string]decimal.Decimal)
	}

	doc, found, err := s.persist.Get(ctx, date)
	if err != nil {
		s.logger.Warn("读取行情缓存失败", zap.String("date", date), zap.Error(err))
		return make(map[string]decimal.Decimal)
	}
	if !found {
		return make(map[string]decimal.Decimal)
	}

	var day map[string]decimal.Decimal
	if err := json.Unmarshal(doc, &day); err != nil {
		s.logger.Warn("解析行情缓存失败", zap.String("date", date), zap.Error(err))
		return make(map[string]decimal.Decimal)
	}
	return day
}

func (s *Simulated) saveDay(ctx context.Context, date string, day map[string]decimal.Decimal) {
	if s.persist == nil {
		return
	}

	doc, err := json.Marshal(day)
	if err != nil {
		s.logger.Warn("序列化行情缓存失败", zap.String("date", date), zap.Error(err))
		return
	}
	if err := s.persist.Put(ctx, date, doc); err != nil {
		s.logger.Warn("写入行情缓存失败", zap.String("date", date), zap.Error(err))
	}
}

// simulatedPrice 由标的与交易日散列出 [min, max] 内的整数价格。
func simulatedPrice(symbol, date string, min, max int) decimal.Decimal {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	_, _ = h.Write([]byte(date))

	span := uint64(max - min + 1)
	value := int64(h.Sum64()%span) + int64(min)

	return decimal.NewFromInt(value)
}
