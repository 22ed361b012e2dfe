package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// MarketData 以交易日为主键缓存当日全量价格表。
type MarketData struct {
	db *sql.DB
}

// NewMarketData 创建行情缓存存储并初始化表结构。
func NewMarketData(store *Store) (*MarketData, error) {
	if store == nil {
		return nil, errors.New("store: 数据库实例不能为空")
	}

	m := &MarketData{db: store.DB()}

	stmt := `
CREATE TABLE IF NOT EXISTS market_data (
	date TEXT PRIMARY KEY,
	data TEXT NOT NULL
);
`
	if _, err := m.db.Exec(stmt); err != nil {
		return nil, fmt.Errorf("store: 初始化行情表失败: %w", err)
	}

	return m, nil
}

// Put 写入某个交易日的价格表。
func (m *MarketData) Put(ctx context.Context, date string, doc []byte) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO market_data (date, data) VALUES (?, ?)
		 ON CONFLICT(date) DO UPDATE SET data = excluded.data`,
		date, string(doc),
	)
	if err != nil {
		return fmt.Errorf("store: 写入行情缓存 %q 失败: %w", date, err)
	}
	return nil
}

// Get 读取某个交易日的价格表，不存在时返回 found=false。
func (m *MarketData) Get(ctx context.Context, date string) ([]byte, bool, error) {
	var data string
	row := m.db.QueryRowContext(ctx, `SELECT data FROM market_data WHERE date = ?`, date)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: 读取行情缓存 %q 失败: %w", date, err)
	}
	return []byte(data), true, nil
}
