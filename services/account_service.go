// services/account_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/rhythmserver/models"
	"github.com/wfunc/rhythmserver/persistence"
)

var ErrAccountNotFound = errors.New("account not found")

// AccountService resolves connecting players against the users table.
type AccountService struct {
	db persistence.Database
}

func NewAccountService(db persistence.Database) *AccountService {
	return &AccountService{db: db}
}

// LookupAccount 查询账号
func (s *AccountService) LookupAccount(ctx context.Context, id int64) (*models.Account, error) {
	if id <= 0 {
		return nil, ErrAccountNotFound
	}
	account, err := s.db.LoadAccount(ctx, id)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return account, nil
}

// RankingService stores finished multiplayer scores.
type RankingService struct {
	db  persistence.Database
	now func() time.Time
}

func NewRankingService(db persistence.Database) *RankingService {
	return &RankingService{db: db, now: time.Now}
}

// RecordMatchResult 保存成绩, 返回记录ID
func (s *RankingService) RecordMatchResult(ctx context.Context, result *models.MatchResult) (int64, error) {
	if result == nil {
		return 0, errors.New("nil match result")
	}
	if err := result.Score.Validate(); err != nil {
		return 0, fmt.Errorf("record match result: %w", err)
	}
	if result.PlayedAt.IsZero() {
		result.PlayedAt = s.now()
	}
	id, err := s.db.SaveMatchResult(ctx, result)
	if err != nil {
		return 0, fmt.Errorf("record match result: %w", err)
	}
	return id, nil
}
