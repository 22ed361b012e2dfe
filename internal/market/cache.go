package market

import (
	"github.com/shopspring/decimal"
)

// dateCache 按交易日缓存全量价格表，只保留最近 N 个交易日，防止长期运行下无界增长。
type dateCache struct {
	capacity int
	order    []string
	days     map[string]map[string]decimal.Decimal
}

func newDateCache(capacity int) *dateCache {
	if capacity <= 0 {
		capacity = 2
	}
	return &dateCache{
		capacity: capacity,
		days:     make(map[string]map[string]decimal.Decimal),
	}
}

func (c *dateCache) get(date string) (map[string]decimal.Decimal, bool) {
	day, ok := c.days[date]
	return day, ok
}

// put 写入某个交易日的价格表，超出容量时淘汰最早进入缓存的交易日。
func (c *dateCache) put(date string, prices map[string]decimal.Decimal) {
	if _, ok := c.days[date]; !ok {
		c.order = append(c.order, date)
	}
	c.days[date] = prices

	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.days, oldest)
	}
}

func (c *dateCache) len() int {
	return len(c.days)
}
