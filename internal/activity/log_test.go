package activity

import (
	"context"
	"testing"

	"trading-floor/internal/config"
	"trading-floor/internal/store"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()

	st, err := store.NewSQLite(config.DatabaseConfig{
		InMemory:     true,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	l, err := NewLog(st, nil)
	if err != nil {
		t.Fatalf("NewLog returned error: %v", err)
	}
	return l
}

func TestReadRecent_ReturnsLatestInChronologicalOrder(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)

	entries := []struct {
		category Category
		message  string
	}{
		{CategoryAgent, "Started trading session"},
		{CategoryTool, "Executed buy_shares"},
		{CategoryResponse, "Session complete"},
	}
	for _, e := range entries {
		if err := l.Append(ctx, "Warren", e.category, e.message); err != nil {
			t.Fatalf("Append returned error: %v", err)
		}
	}

	records, err := l.ReadRecent(ctx, "warren", 2)
	if err != nil {
		t.Fatalf("ReadRecent returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	// 最近两条，按时间正序返回
	if records[0].Message != "Executed buy_shares" || records[0].Category != CategoryTool {
		t.Errorf("first record: %+v", records[0])
	}
	if records[1].Message != "Session complete" || records[1].Category != CategoryResponse {
		t.Errorf("second record: %+v", records[1])
	}
}

func TestReadRecent_ScopedToTrader(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)

	if err := l.Append(ctx, "Warren", CategoryAccount, "Purchased 5 shares of AAPL"); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	if err := l.Append(ctx, "Cathie", CategoryAccount, "Purchased 2 shares of TSLA"); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	records, err := l.ReadRecent(ctx, "cathie", 10)
	if err != nil {
		t.Fatalf("ReadRecent returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record for cathie, got %d", len(records))
	}
	if records[0].Message != "Purchased 2 shares of TSLA" {
		t.Errorf("record scoped to wrong trader: %+v", records[0])
	}
}

func TestReadRecent_UnknownTraderReturnsEmpty(t *testing.T) {
	l := newTestLog(t)

	records, err := l.ReadRecent(context.Background(), "nobody", 5)
	if err != nil {
		t.Fatalf("ReadRecent returned error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestNote_SwallowsAppendFailures(t *testing.T) {
	st, err := store.NewSQLite(config.DatabaseConfig{
		InMemory:     true,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}

	l, err := NewLog(st, nil)
	if err != nil {
		t.Fatalf("NewLog returned error: %v", err)
	}

	// 关闭连接后写入必然失败，Note 不应恐慌或返回错误
	if err := st.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	l.Note(context.Background(), "warren", CategoryError, "after close")
}
