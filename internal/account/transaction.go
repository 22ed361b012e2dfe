package account

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction 表示一笔已成交的交易，创建后不可变更。
// Quantity 为正表示买入，为负表示卖出；Price 为含点差的成交价。
type Transaction struct {
	Symbol    string          `json:"symbol"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
	Rationale string          `json:"rationale"`
}

// Total 返回成交金额（数量绝对值 × 成交价）。
func (t Transaction) Total() decimal.Decimal {
	qty := t.Quantity
	if qty < 0 {
		qty = -qty
	}
	return t.Price.Mul(decimal.NewFromInt(qty))
}

// String 以可读形式描述这笔交易。
func (t Transaction) String() string {
	action := "bought"
	qty := t.Quantity
	if qty < 0 {
		action = "sold"
		qty = -qty
	}
	return fmt.Sprintf("%s %d shares of %s at $%s", action, qty, t.Symbol, t.Price.StringFixed(2))
}

// ValueSample 表示一次组合估值采样。
type ValueSample struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}
