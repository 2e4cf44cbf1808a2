// persistence/interface.go
package persistence

import (
	"context"
	"fmt"

	"github.com/wfunc/rhythmserver/config"
	"github.com/wfunc/rhythmserver/models"
)

// Database 数据库接口
type Database interface {
	LoadAccount(ctx context.Context, id int64) (*models.Account, error)
	SaveMatchResult(ctx context.Context, result *models.MatchResult) (int64, error)
	Migrate(ctx context.Context) error
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)

// Open connects to the database selected by cfg.Driver.
func Open(cfg config.DatabaseConfig) (Database, error) {
	pg := cfg.Postgres
	var (
		db  Database
		err error
	)
	switch cfg.Driver {
	case "gorm":
		db, err = NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "postgres":
		db, err = NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "sqlite":
		db, err = NewSQLite(cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return db, nil
}
