// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/rhythmserver/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}
	return newGormStore(db)
}

func newGormStore(db *gorm.DB) (*GormPostgreSQL, error) {
	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &GormPostgreSQL{db: db}, nil
}

// Migrate 自动迁移表结构
func (p *GormPostgreSQL) Migrate(ctx context.Context) error {
	return p.db.WithContext(ctx).AutoMigrate(
		&models.GormAccount{},
		&models.GormMatchScore{},
	)
}

// LoadAccount 加载账号
func (p *GormPostgreSQL) LoadAccount(ctx context.Context, id int64) (*models.Account, error) {
	var account models.GormAccount
	if err := p.db.WithContext(ctx).First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("load account %d: %w", id, err)
	}
	return &models.Account{
		ID:         account.ID,
		Username:   account.Username,
		Restricted: account.Restricted,
	}, nil
}

// SaveMatchResult 保存一条多人成绩
func (p *GormPostgreSQL) SaveMatchResult(ctx context.Context, result *models.MatchResult) (int64, error) {
	score := result.Score
	record := models.GormMatchScore{
		RoomID:      result.RoomID,
		PlayerID:    score.UID,
		BeatmapHash: result.BeatmapHash,
		Username:    score.Username,
		Mods:        score.ModString,
		Score:       score.Score,
		MaxCombo:    score.MaxCombo,
		HitGeki:     score.Geki,
		Hit300:      score.Perfect,
		HitKatu:     score.Katu,
		Hit100:      score.Good,
		Hit50:       score.Bad,
		HitMiss:     score.Miss,
		PlayedAt:    result.PlayedAt,
	}
	if err := p.db.WithContext(ctx).Create(&record).Error; err != nil {
		return 0, fmt.Errorf("save match result: %w", err)
	}
	return int64(record.ID), nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
