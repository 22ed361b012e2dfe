package agent

import "strings"

// 预置策略：账户首次创建且策略为空时，按交易员名称分配。
var presetStrategies = map[string]string{
	"warren": `Value Investing Strategy:
- Focus on fundamentally strong companies trading below intrinsic value
- Long-term holds (6-12 months minimum)
- Prefer dividend-paying stocks and established companies
- Buy when others are fearful, be patient
- Target: Steady 15-20% annual returns`,

	"george": `Momentum Trading Strategy:
- Capitalize on strong price momentum and market trends
- Quick entries and exits (hold days to weeks)
- Use technical indicators and price action
- Cut losses fast, let winners run
- Target: High turnover, 25-30% annual returns`,

	"ray": `Systematic Quantitative Strategy:
- Rules-based approach using technical indicators
- Diversified portfolio across sectors
- Strict risk management with stop-losses
- Rebalance monthly based on signals
- Target: Consistent 18-22% annual returns`,

	"cathie": `Growth & Innovation Strategy:
- Invest in disruptive technologies and future trends
- High conviction in transformative companies
- Accept volatility for exponential upside
- Focus on AI, biotech, clean energy, fintech
- Target: 30-40% annual returns (high risk)`,
}

// DefaultStrategy 返回指定交易员的预置策略，未知名称返回空串。
func DefaultStrategy(name string) string {
	return presetStrategies[strings.ToLower(strings.TrimSpace(name))]
}
