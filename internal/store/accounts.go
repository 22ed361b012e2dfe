package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Accounts 以交易员名称为主键保存账户文档。
// 名称统一转为小写后作为分区键，单键写入由 upsert 保证原子性。
type Accounts struct {
	db *sql.DB
}

// NewAccounts 创建账户存储并初始化表结构。
func NewAccounts(store *Store) (*Accounts, error) {
	if store == nil {
		return nil, errors.New("store: 数据库实例不能为空")
	}

	a := &Accounts{db: store.DB()}

	stmt := `
CREATE TABLE IF NOT EXISTS accounts (
	name TEXT PRIMARY KEY,
	data TEXT NOT NULL
);
`
	if _, err := a.db.Exec(stmt); err != nil {
		return nil, fmt.Errorf("store: 初始化账户表失败: %w", err)
	}

	return a, nil
}

// Put 写入账户文档，已存在则整体覆盖。
func (a *Accounts) Put(ctx context.Context, name string, doc []byte) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO accounts (name, data) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data`,
		normalizeKey(name), string(doc),
	)
	if err != nil {
		return fmt.Errorf("store: 写入账户 %q 失败: %w", name, err)
	}
	return nil
}

// Get 读取账户文档，不存在时返回 found=false。
func (a *Accounts) Get(ctx context.Context, name string) ([]byte, bool, error) {
	var data string
	row := a.db.QueryRowContext(ctx, `SELECT data FROM accounts WHERE name = ?`, normalizeKey(name))
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: 读取账户 %q 失败: %w", name, err)
	}
	return []byte(data), true, nil
}

func normalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
