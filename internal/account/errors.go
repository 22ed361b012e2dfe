package account

import "errors"

var (
	// ErrInvalidSymbol 表示行情源无法解析该标的价格。
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrInsufficientFunds 表示买入成本超过现金余额。
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientShares 表示卖出数量超过当前持仓。
	ErrInsufficientShares = errors.New("insufficient shares")
)
