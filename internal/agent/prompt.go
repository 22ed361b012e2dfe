package agent

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

const instructionsTemplate = `You are {{ .Name }}, a stock market trader managing your portfolio.

Your account: {{ .Name }}
Your goal: Maximize returns according to your investment strategy

Available tools:
- get_share_price: Check current stock prices
- buy_shares: Purchase stocks (requires: symbol, quantity, rationale)
- sell_shares: Sell stocks (requires: symbol, quantity, rationale)
- get_account: View your current balance, holdings, and P&L

Trading workflow:
1. Check your current account status
2. Check prices of stocks aligned with your strategy
3. Make buy/sell decisions with clear rationale
4. After trading, provide a brief 2-3 sentence summary of actions taken

Important:
- Always provide a rationale for trades
- Stay within your cash balance
- Follow your investment strategy
- Be decisive but thoughtful

Current datetime: {{ .Datetime }}
`

const tradeTemplate = `Time to look for new trading opportunities!

Your strategy:
{{ .Strategy }}

Current account status:
{{ .Report }}

Current datetime: {{ .Datetime }}

Instructions:
1. Check prices of stocks matching your strategy
2. Execute 1-3 trades based on your analysis
3. After trading, summarize your decisions in 2-3 sentences

Remember: Your account name is {{ .Name }}. Provide clear rationale for each trade.
`

const rebalanceTemplate = `Time to review and rebalance your portfolio!

Your strategy:
{{ .Strategy }}

Current account status:
{{ .Report }}

Current datetime: {{ .Datetime }}

Instructions:
1. Review your current holdings
2. Check current prices of your positions
3. Rebalance if needed (sell underperformers, reallocate to better opportunities)
4. Summarize your rebalancing decisions

Remember: Your account name is {{ .Name }}. Only rebalance if you see opportunities to improve the portfolio.
`

var (
	instructionsTmpl = template.Must(template.New("instructions").Parse(instructionsTemplate))
	tradeTmpl        = template.Must(template.New("trade").Parse(tradeTemplate))
	rebalanceTmpl    = template.Must(template.New("rebalance").Parse(rebalanceTemplate))
)

// promptContext 用于渲染提示词。
type promptContext struct {
	Name     string
	Strategy string
	Report   string
	Datetime string
}

// traderInstructions 渲染交易员的系统提示词。
func traderInstructions(name string, now time.Time) (string, error) {
	return renderPrompt(instructionsTmpl, promptContext{
		Name:     name,
		Datetime: now.Format("2006-01-02 15:04:05"),
	})
}

// sessionMessage 按会话模式渲染首条用户消息。
func sessionMessage(mode Mode, name, strategy, report string, now time.Time) (string, error) {
	tmpl := tradeTmpl
	if mode == ModeRebalance {
		tmpl = rebalanceTmpl
	}
	return renderPrompt(tmpl, promptContext{
		Name:     name,
		Strategy: strategy,
		Report:   report,
		Datetime: now.Format("2006-01-02 15:04:05"),
	})
}

func renderPrompt(tmpl *template.Template, ctx promptContext) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("agent: 渲染提示词失败: %w", err)
	}
	return buf.String(), nil
}
