// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormAccount mirrors the users table owned by the account service.
type GormAccount struct {
	ID         int64  `gorm:"primaryKey"`
	Username   string `gorm:"uniqueIndex;not null"`
	Restricted bool   `gorm:"default:false"`
	CreatedAt  time.Time
}

func (GormAccount) TableName() string { return "users" }

// GormMatchScore is one submitted multiplayer result.
type GormMatchScore struct {
	gorm.Model
	RoomID      int64  `gorm:"index;not null"`
	PlayerID    int64  `gorm:"index;not null"`
	BeatmapHash string `gorm:"index;not null"`
	Username    string `gorm:"not null"`
	Mods        string
	Score       int64 `gorm:"not null"`
	MaxCombo    int   `gorm:"not null"`
	HitGeki     int
	Hit300      int
	HitKatu     int
	Hit100      int
	Hit50       int
	HitMiss     int
	PlayedAt    time.Time
}

func (GormMatchScore) TableName() string { return "multiplayer_scores" }
