package agent

import (
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const (
	toolGetSharePrice = "get_share_price"
	toolBuyShares     = "buy_shares"
	toolSellShares    = "sell_shares"
	toolGetAccount    = "get_account"
)

// traderTools 返回暴露给模型的工具声明。
func traderTools() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolGetSharePrice,
				Description: "Get current price of a stock",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"symbol": {
							Type:        jsonschema.String,
							Description: "Stock ticker symbol (e.g., AAPL, TSLA, GOOGL)",
						},
					},
					Required: []string{"symbol"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolBuyShares,
				Description: "Buy shares of a stock",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"symbol":    {Type: jsonschema.String, Description: "Stock ticker"},
						"quantity":  {Type: jsonschema.Integer, Description: "Number of shares"},
						"rationale": {Type: jsonschema.String, Description: "Why buying"},
					},
					Required: []string{"symbol", "quantity", "rationale"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolSellShares,
				Description: "Sell shares of a stock",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"symbol":    {Type: jsonschema.String, Description: "Stock ticker"},
						"quantity":  {Type: jsonschema.Integer, Description: "Number of shares"},
						"rationale": {Type: jsonschema.String, Description: "Why selling"},
					},
					Required: []string{"symbol", "quantity", "rationale"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolGetAccount,
				Description: "Get current account status (balance, holdings, P&L)",
				Parameters: jsonschema.Definition{
					Type:       jsonschema.Object,
					Properties: map[string]jsonschema.Definition{},
				},
			},
		},
	}
}

// invocation 是封闭的工具调用变体类型，每个受支持的工具对应一个变体。
// 原始工具调用只在这里解码一次，未知工具名显式拒绝而不是落入字符串匹配。
type invocation interface {
	toolName() string
}

type priceInvocation struct {
	Symbol string `json:"symbol"`
}

func (priceInvocation) toolName() string { return toolGetSharePrice }

type buyInvocation struct {
	Symbol    string `json:"symbol"`
	Quantity  int64  `json:"quantity"`
	Rationale string `json:"rationale"`
}

func (buyInvocation) toolName() string { return toolBuyShares }

type sellInvocation struct {
	Symbol    string `json:"symbol"`
	Quantity  int64  `json:"quantity"`
	Rationale string `json:"rationale"`
}

func (sellInvocation) toolName() string { return toolSellShares }

type accountInvocation struct{}

func (accountInvocation) toolName() string { return toolGetAccount }

// unknownToolError 表示模型请求了未声明的工具。
type unknownToolError struct {
	name string
}

func (e *unknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.name)
}

// decodeInvocation 将原始工具调用解码为对应变体。
func decodeInvocation(call openai.ToolCall) (invocation, error) {
	args := call.Function.Arguments
	if args == "" {
		args = "{}"
	}

	switch call.Function.Name {
	case toolGetSharePrice:
		var inv priceInvocation
		if err := json.Unmarshal([]byte(args), &inv); err != nil {
			return nil, fmt.Errorf("agent: 解析 %s 参数失败: %w", call.Function.Name, err)
		}
		return inv, nil
	case toolBuyShares:
		var inv buyInvocation
		if err := json.Unmarshal([]byte(args), &inv); err != nil {
			return nil, fmt.Errorf("agent: 解析 %s 参数失败: %w", call.Function.Name, err)
		}
		return inv, nil
	case toolSellShares:
		var inv sellInvocation
		if err := json.Unmarshal([]byte(args), &inv); err != nil {
			return nil, fmt.Errorf("agent: 解析 %s 参数失败: %w", call.Function.Name, err)
		}
		return inv, nil
	case toolGetAccount:
		return accountInvocation{}, nil
	default:
		return nil, &unknownToolError{name: call.Function.Name}
	}
}
