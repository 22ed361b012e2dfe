package floor

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"trading-floor/internal/account"
	"trading-floor/internal/agent"
	"trading-floor/internal/config"
)

type fakeOracle struct {
	prices map[string]decimal.Decimal
}

func (f *fakeOracle) GetPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	price, ok := f.prices[strings.ToUpper(symbol)]
	if !ok {
		return decimal.Zero, nil
	}
	return price, nil
}

type memStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string][]byte)}
}

func (m *memStore) Put(_ context.Context, name string, doc []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([]byte, len(doc))
	copy(copied, doc)
	m.docs[strings.ToLower(name)] = copied
	return nil
}

func (m *memStore) Get(_ context.Context, name string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[strings.ToLower(name)]
	return doc, ok, nil
}

type scriptedProvider struct {
	mu        sync.Mutex
	responses []openai.ChatCompletionResponse
	err       error
}

func (p *scriptedProvider) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return openai.ChatCompletionResponse{}, p.err
	}
	if len(p.responses) == 0 {
		return openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: "Done.",
				}},
			},
		}, nil
	}
	next := p.responses[0]
	p.responses = p.responses[1:]
	return next, nil
}

func buyResponse(symbol string, quantity int64) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   "call_buy_" + symbol,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name: "buy_shares",
						Arguments: `{"symbol":"` + symbol + `","quantity":` +
							strconv.FormatInt(quantity, 10) + `,"rationale":"test"}`,
					},
				}},
			}},
		},
	}
}

func newFloorTrader(t *testing.T, name string, provider agent.CompletionProvider, mgr *account.Manager, oracle *fakeOracle) (*agent.Trader, *account.Account) {
	t.Helper()

	acct, err := mgr.Get(context.Background(), name)
	if err != nil {
		t.Fatalf("Get(%s) returned error: %v", name, err)
	}
	return agent.NewTrader(name, "test-model", acct, provider, oracle, nil, 10, nil), acct
}

func TestRunSession_TradersProduceIndependentTransactions(t *testing.T) {
	oracle := &fakeOracle{prices: map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(100),
		"TSLA": decimal.NewFromInt(200),
	}}
	cfg := config.TradingConfig{InitialBalance: 10000, Spread: 0.002, MaxTurns: 10}
	mgr, err := account.NewManager(cfg, newMemStore(), oracle, nil, nil)
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	warrenProvider := &scriptedProvider{responses: []openai.ChatCompletionResponse{buyResponse("AAPL", 3)}}
	cathieProvider := &scriptedProvider{responses: []openai.ChatCompletionResponse{buyResponse("TSLA", 2)}}

	warren, warrenAcct := newFloorTrader(t, "Warren", warrenProvider, mgr, oracle)
	cathie, cathieAcct := newFloorTrader(t, "Cathie", cathieProvider, mgr, oracle)

	fl, err := New([]*agent.Trader{warren, cathie}, time.Minute, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	fl.RunSession(context.Background())

	warrenTx := warrenAcct.Transactions()
	if len(warrenTx) != 1 || warrenTx[0].Symbol != "AAPL" {
		t.Errorf("warren transactions: %+v", warrenTx)
	}
	cathieTx := cathieAcct.Transactions()
	if len(cathieTx) != 1 || cathieTx[0].Symbol != "TSLA" {
		t.Errorf("cathie transactions: %+v", cathieTx)
	}
}

func TestRunSession_AbortedSessionDoesNotBlockSiblings(t *testing.T) {
	oracle := &fakeOracle{prices: map[string]decimal.Decimal{"TSLA": decimal.NewFromInt(200)}}
	cfg := config.TradingConfig{InitialBalance: 10000, Spread: 0.002, MaxTurns: 10}
	mgr, err := account.NewManager(cfg, newMemStore(), oracle, nil, nil)
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	brokenProvider := &scriptedProvider{err: errors.New("provider unavailable")}
	healthyProvider := &scriptedProvider{responses: []openai.ChatCompletionResponse{buyResponse("TSLA", 1)}}

	broken, brokenAcct := newFloorTrader(t, "George", brokenProvider, mgr, oracle)
	healthy, healthyAcct := newFloorTrader(t, "Cathie", healthyProvider, mgr, oracle)

	fl, err := New([]*agent.Trader{broken, healthy}, time.Minute, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	fl.RunSession(context.Background())

	if got := len(brokenAcct.Transactions()); got != 0 {
		t.Errorf("aborted trader recorded %d transactions, want 0", got)
	}
	if got := len(healthyAcct.Transactions()); got != 1 {
		t.Errorf("healthy trader recorded %d transactions, want 1", got)
	}
}
