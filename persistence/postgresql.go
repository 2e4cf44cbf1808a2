// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"
)

// PostgreSQL 数据库实现
type PostgreSQL struct {
	sqlStore
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgreSQL{sqlStore{db: db, rebind: rebindDollar}}, nil
}

// Migrate 初始化数据库表结构
func (p *PostgreSQL) Migrate(ctx context.Context) error {
	return p.execAll(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id BIGINT PRIMARY KEY,
            username VARCHAR(64) UNIQUE NOT NULL,
            restricted BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`, `
        CREATE TABLE IF NOT EXISTS multiplayer_scores (
            id BIGSERIAL PRIMARY KEY,
            room_id BIGINT NOT NULL,
            player_id BIGINT NOT NULL,
            beatmap_hash VARCHAR(64) NOT NULL,
            username VARCHAR(64) NOT NULL,
            mods VARCHAR(255) NOT NULL DEFAULT '',
            score BIGINT NOT NULL,
            max_combo INTEGER NOT NULL,
            hit_geki INTEGER NOT NULL DEFAULT 0,
            hit300 INTEGER NOT NULL DEFAULT 0,
            hit_katu INTEGER NOT NULL DEFAULT 0,
            hit100 INTEGER NOT NULL DEFAULT 0,
            hit50 INTEGER NOT NULL DEFAULT 0,
            hit_miss INTEGER NOT NULL DEFAULT 0,
            played_at TIMESTAMP NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_multiplayer_scores_player ON multiplayer_scores (player_id)`,
		`CREATE INDEX IF NOT EXISTS idx_multiplayer_scores_beatmap ON multiplayer_scores (beatmap_hash)`,
	)
}
