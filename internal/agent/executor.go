package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"trading-floor/internal/account"
	"trading-floor/internal/market"
)

// toolExecutor 将工具调用映射为账本操作或行情查询。
// 领域错误在这里被转换为模型可读的文本结果，绝不向会话循环抛出。
type toolExecutor struct {
	account *account.Account
	oracle  market.Oracle
}

func newToolExecutor(acct *account.Account, oracle market.Oracle) *toolExecutor {
	return &toolExecutor{
		account: acct,
		oracle:  oracle,
	}
}

// execute 执行单次工具调用并返回文本结果。
func (e *toolExecutor) execute(ctx context.Context, call openai.ToolCall) string {
	inv, err := decodeInvocation(call)
	if err != nil {
		var unknown *unknownToolError
		if errors.As(err, &unknown) {
			return fmt.Sprintf("Unknown tool: %s", unknown.name)
		}
		return fmt.Sprintf("Error: %v", err)
	}

	switch v := inv.(type) {
	case priceInvocation:
		price, err := e.oracle.GetPrice(ctx, v.Symbol)
		if err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
		if price.Sign() <= 0 {
			return fmt.Sprintf("Error: no price available for %s", v.Symbol)
		}
		return fmt.Sprintf("$%s", price.StringFixed(2))

	case buyInvocation:
		result, err := e.account.Buy(ctx, v.Symbol, v.Quantity, v.Rationale)
		if err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
		return result

	case sellInvocation:
		result, err := e.account.Sell(ctx, v.Symbol, v.Quantity, v.Rationale)
		if err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
		return result

	case accountInvocation:
		snapshot, err := e.account.Report(ctx)
		if err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
		doc, err := snapshot.JSON()
		if err != nil {
			return fmt.Sprintf("Error: %v", err)
		}
		return doc

	default:
		// decodeInvocation 已覆盖全部变体，到达这里说明有新变体漏接。
		return fmt.Sprintf("Unknown tool: %s", call.Function.Name)
	}
}
