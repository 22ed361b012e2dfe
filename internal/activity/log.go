package activity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"trading-floor/internal/store"
)

// Category 表示活动记录类型。
type Category string

const (
	CategoryAgent    Category = "agent"
	CategoryTool     Category = "tool"
	CategoryResponse Category = "response"
	CategoryAccount  Category = "account"
	CategoryError    Category = "error"
)

// Record 表示一条交易员活动记录。
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"category"`
	Message   string    `json:"message"`
}

// Log 负责持久化每个交易员的活动流水。
type Log struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLog 初始化活动日志服务，创建所需表结构。
func NewLog(st *store.Store, logger *zap.Logger) (*Log, error) {
	if st == nil {
		return nil, errors.New("activity: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Log{
		db:     st.DB(),
		logger: logger,
	}

	if err := l.initSchema(); err != nil {
		return nil, err
	}

	return l, nil
}

func (l *Log) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS activity_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	occurred_at TEXT NOT NULL,
	category TEXT NOT NULL,
	message TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activity_log_name ON activity_log(name);
`
	if _, err := l.db.Exec(stmt); err != nil {
		return fmt.Errorf("activity: 初始化表失败: %w", err)
	}
	return nil
}

// Append 写入单条活动记录。
func (l *Log) Append(ctx context.Context, name string, category Category, message string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO activity_log (name, occurred_at, category, message) VALUES (?, ?, ?, ?)`,
		strings.ToLower(name), time.Now().UTC().Format(time.RFC3339), string(category), message,
	)
	if err != nil {
		return fmt.Errorf("activity: 写入活动记录失败: %w", err)
	}
	return nil
}

// Note 写入活动记录，失败时仅告警。活动流水是旁路输出，不应影响会话主流程。
func (l *Log) Note(ctx context.Context, name string, category Category, message string) {
	if err := l.Append(ctx, name, category, message); err != nil {
		l.logger.Warn("记录交易员活动失败",
			zap.String("trader", name),
			zap.String("category", string(category)),
			zap.Error(err),
		)
	}
}

// ReadRecent 返回指定交易员最近的活动记录，按时间从旧到新排序。
func (l *Log) ReadRecent(ctx context.Context, name string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT occurred_at, category, message FROM activity_log
		 WHERE name = ? ORDER BY id DESC LIMIT ?`,
		strings.ToLower(name), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("activity: 查询活动记录失败: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []Record
	for rows.Next() {
		var (
			occurredAt string
			category   string
			message    string
		)
		if err := rows.Scan(&occurredAt, &category, &message); err != nil {
			return nil, fmt.Errorf("activity: 解析活动记录失败: %w", err)
		}

		ts, err := time.Parse(time.RFC3339, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("activity: 解析记录时间失败: %w", err)
		}

		records = append(records, Record{
			Timestamp: ts,
			Category:  Category(category),
			Message:   message,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("activity: 遍历活动记录失败: %w", err)
	}

	// 查询按 id 倒序取最近 N 条，返回前翻转为时间正序。
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	return records, nil
}
