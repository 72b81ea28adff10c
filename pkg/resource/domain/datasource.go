package domain

import "context"

// Inspector answers read-only schema questions about a live connection.
type Inspector interface {
	// TableExists 检查表或视图是否存在
	TableExists(ctx context.Context, table string) (bool, error)

	// CountRows 统计表的行数
	CountRows(ctx context.Context, table string) (int64, error)

	// Columns 按声明顺序返回表的列名
	Columns(ctx context.Context, table string) ([]string, error)
}

// Querier runs read-only queries and knows its dialect's placeholder syntax.
type Querier interface {
	// QueryRecords 执行只读查询并返回记录
	QueryRecords(ctx context.Context, query string, args ...interface{}) ([]Record, error)

	// Placeholder 返回第 n 个参数的占位符（从1开始）
	Placeholder(n int) string
}

// Handle is the single live connection used by one request.
type Handle interface {
	Inspector
	Querier

	// Descriptor 返回建立该连接的凭据（不含密钥用途）
	Descriptor() ConnectionDescriptor

	// Close 关闭连接
	Close() error
}
