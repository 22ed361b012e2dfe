package agent

// Mode 表示会话模式：寻找新交易机会，或复盘再平衡已有持仓。
type Mode string

const (
	// ModeSeekTrades 驱动交易员寻找新的建仓机会。
	ModeSeekTrades Mode = "seeking_trades"
	// ModeRebalance 驱动交易员复盘并再平衡当前组合。
	ModeRebalance Mode = "rebalancing"
)

// Next 返回下一次会话应使用的模式。转换是纯函数，两种模式逐次交替。
func (m Mode) Next() Mode {
	if m == ModeSeekTrades {
		return ModeRebalance
	}
	return ModeSeekTrades
}

func (m Mode) String() string {
	return string(m)
}
