// Package store 提供事件日志所用的 SQLite 存储。
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"exec-engine/internal/config"
)

// Store 持有事件日志的 SQLite 连接。
// 事件日志是单写多读的旁路存储，WAL 模式下读写互不阻塞。
type Store struct {
	db *sql.DB
}

// NewSQLite 按配置打开事件日志数据库。in_memory 开启时数据随进程消失，
// 适合演示与测试场景。
func NewSQLite(cfg config.DatabaseConfig) (*Store, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开事件日志数据库失败: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &Store{db: conn}, nil
}

// buildDSN 组装连接串：WAL + NORMAL 同步满足事件日志的持久性要求，
// busy_timeout 吸收监控读取与写入的偶发竞争。
func buildDSN(cfg config.DatabaseConfig) (string, error) {
	const options = "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"

	if cfg.InMemory {
		// 共享缓存保证同进程内多连接看到同一份内存库
		return "file::memory:?mode=memory&cache=shared&_busy_timeout=5000", nil
	}

	if cfg.Path == "" {
		return "", fmt.Errorf("事件日志路径不能为空")
	}
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("创建事件日志目录 %q 失败: %w", dir, err)
		}
	}
	return cfg.Path + options, nil
}

// Migrate 执行建表语句。事件日志的表结构由各消费方声明，此处只负责执行。
func (s *Store) Migrate(ddl string) error {
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("初始化事件日志表结构失败: %w", err)
	}
	return nil
}

// DB 返回底层连接池。
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
