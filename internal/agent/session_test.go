package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
)

// scriptedProvider 按脚本逐次返回响应，耗尽后返回纯文本收尾。
type scriptedProvider struct {
	mu        sync.Mutex
	requests  []openai.ChatCompletionRequest
	responses []openai.ChatCompletionResponse
	err       error
}

func (p *scriptedProvider) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)
	if p.err != nil {
		return openai.ChatCompletionResponse{}, p.err
	}

	if len(p.responses) == 0 {
		return textResponse("All done."), nil
	}
	next := p.responses[0]
	p.responses = p.responses[1:]
	return next, nil
}

func textResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: content,
			}},
		},
	}
}

func toolCallResponse(calls ...openai.ToolCall) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{
				Role:      openai.ChatMessageRoleAssistant,
				ToolCalls: calls,
			}},
		},
	}
}

func newSessionTrader(t *testing.T, provider CompletionProvider, maxTurns int) *Trader {
	t.Helper()

	oracle := &fakeOracle{prices: map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(100),
		"TSLA": decimal.NewFromInt(200),
	}}
	acct := newTestAccount(t, "warren", oracle)
	return NewTrader("Warren", "openai/gpt-4o-mini", acct, provider, oracle, nil, maxTurns, nil)
}

func TestRun_NoToolCallsTerminatesAfterOneTurn(t *testing.T) {
	provider := &scriptedProvider{responses: []openai.ChatCompletionResponse{
		textResponse("Nothing to do today."),
	}}
	trader := newSessionTrader(t, provider, 10)

	result := trader.Run(context.Background())

	if result.Status != StatusCompleted {
		t.Fatalf("status: got %s want %s", result.Status, StatusCompleted)
	}
	if result.Turns != 1 {
		t.Errorf("turns: got %d want 1", result.Turns)
	}
	if result.FinalMessage != "Nothing to do today." {
		t.Errorf("final message: got %q", result.FinalMessage)
	}
	if trader.Mode() != ModeRebalance {
		t.Errorf("mode after run: got %s want %s", trader.Mode(), ModeRebalance)
	}
	if len(provider.requests) != 1 {
		t.Fatalf("provider calls: got %d want 1", len(provider.requests))
	}
	if len(provider.requests[0].Tools) != 4 {
		t.Errorf("declared tools: got %d want 4", len(provider.requests[0].Tools))
	}
}

func TestRun_AssignsPresetStrategyOnFirstUse(t *testing.T) {
	provider := &scriptedProvider{}
	trader := newSessionTrader(t, provider, 10)

	if got := trader.Account().Strategy(); got != "" {
		t.Fatalf("expected empty strategy before first run, got %q", got)
	}

	trader.Run(context.Background())

	if got := trader.Account().Strategy(); !strings.Contains(got, "Value Investing") {
		t.Errorf("expected Warren preset strategy, got %q", got)
	}
}

func TestRun_TurnBudgetExhaustionCompletes(t *testing.T) {
	call := openai.ToolCall{
		ID:       "call_loop",
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: toolGetAccount, Arguments: "{}"},
	}
	provider := &scriptedProvider{responses: []openai.ChatCompletionResponse{
		toolCallResponse(call), toolCallResponse(call), toolCallResponse(call),
	}}
	trader := newSessionTrader(t, provider, 3)

	result := trader.Run(context.Background())

	if result.Status != StatusCompleted {
		t.Fatalf("status after budget exhaustion: got %s want %s", result.Status, StatusCompleted)
	}
	if result.Turns != 3 {
		t.Errorf("turns: got %d want 3", result.Turns)
	}
	if len(provider.requests) != 3 {
		t.Errorf("provider calls: got %d want 3", len(provider.requests))
	}
	if trader.Mode() != ModeRebalance {
		t.Errorf("mode should flip after budget exhaustion, got %s", trader.Mode())
	}
}

func TestRun_ProviderFailureAbortsAndStillFlipsMode(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("connection reset")}
	trader := newSessionTrader(t, provider, 10)

	balanceBefore := trader.Account().Balance()
	result := trader.Run(context.Background())

	if result.Status != StatusAborted {
		t.Fatalf("status: got %s want %s", result.Status, StatusAborted)
	}
	if result.Err == nil {
		t.Errorf("expected recorded error on aborted run")
	}
	if trader.Mode() != ModeRebalance {
		t.Errorf("mode should flip even after abort, got %s", trader.Mode())
	}
	if !trader.Account().Balance().Equal(balanceBefore) {
		t.Errorf("aborted run mutated balance: %s", trader.Account().Balance())
	}
}

func TestRun_ToolResultsFollowRequestOrder(t *testing.T) {
	buy := openai.ToolCall{
		ID:   "call_buy",
		Type: openai.ToolTypeFunction,
		Function: openai.FunctionCall{
			Name:      toolBuyShares,
			Arguments: `{"symbol":"AAPL","quantity":2,"rationale":"entry"}`,
		},
	}
	sell := openai.ToolCall{
		ID:   "call_sell",
		Type: openai.ToolTypeFunction,
		Function: openai.FunctionCall{
			Name:      toolSellShares,
			Arguments: `{"symbol":"AAPL","quantity":1,"rationale":"trim"}`,
		},
	}
	provider := &scriptedProvider{responses: []openai.ChatCompletionResponse{
		toolCallResponse(buy, sell),
		textResponse("Done."),
	}}
	trader := newSessionTrader(t, provider, 10)

	result := trader.Run(context.Background())
	if result.Status != StatusCompleted {
		t.Fatalf("status: got %s want %s", result.Status, StatusCompleted)
	}
	if len(provider.requests) != 2 {
		t.Fatalf("provider calls: got %d want 2", len(provider.requests))
	}

	// 第二次请求的转写应包含：system, user, assistant, tool(buy), tool(sell)
	messages := provider.requests[1].Messages
	if len(messages) != 5 {
		t.Fatalf("transcript length: got %d want 5", len(messages))
	}
	if messages[3].Role != openai.ChatMessageRoleTool || messages[3].ToolCallID != "call_buy" {
		t.Errorf("first tool result out of order: %+v", messages[3])
	}
	if !strings.Contains(messages[3].Content, "Purchased 2 shares of AAPL") {
		t.Errorf("buy tool result: got %q", messages[3].Content)
	}
	if messages[4].Role != openai.ChatMessageRoleTool || messages[4].ToolCallID != "call_sell" {
		t.Errorf("second tool result out of order: %+v", messages[4])
	}

	// 卖出在买入之后执行，持仓应剩 1 股
	if got := trader.Account().Holdings()["AAPL"]; got != 1 {
		t.Errorf("holdings after ordered execution: got %d want 1", got)
	}
}

func TestRun_ModeAlternatesRunOverRun(t *testing.T) {
	provider := &scriptedProvider{}
	trader := newSessionTrader(t, provider, 10)

	first := trader.Run(context.Background())
	second := trader.Run(context.Background())

	if first.Mode != ModeSeekTrades {
		t.Errorf("first run mode: got %s want %s", first.Mode, ModeSeekTrades)
	}
	if second.Mode != ModeRebalance {
		t.Errorf("second run mode: got %s want %s", second.Mode, ModeRebalance)
	}
	if trader.Mode() != ModeSeekTrades {
		t.Errorf("mode after two runs: got %s want %s", trader.Mode(), ModeSeekTrades)
	}
}
