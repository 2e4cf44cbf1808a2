package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/rhythmserver/models"
	"github.com/wfunc/rhythmserver/persistence"
)

type fakeDatabase struct {
	accounts map[int64]*models.Account
	saved    []*models.MatchResult
	err      error
}

func (f *fakeDatabase) LoadAccount(_ context.Context, id int64) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	account, ok := f.accounts[id]
	if !ok {
		return nil, persistence.ErrRecordNotFound
	}
	return account, nil
}

func (f *fakeDatabase) SaveMatchResult(_ context.Context, result *models.MatchResult) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, result)
	return int64(len(f.saved)), nil
}

func (f *fakeDatabase) Migrate(context.Context) error { return nil }
func (f *fakeDatabase) Close() error                  { return nil }

func TestAccountService_LookupAccount(t *testing.T) {
	db := &fakeDatabase{accounts: map[int64]*models.Account{
		1: {ID: 1, Username: "alice"},
	}}
	svc := NewAccountService(db)
	ctx := context.Background()

	account, err := svc.LookupAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)

	_, err = svc.LookupAccount(ctx, 2)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = svc.LookupAccount(ctx, 0)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	db.err = errors.New("connection reset")
	_, err = svc.LookupAccount(ctx, 1)
	assert.ErrorIs(t, err, db.err)
	assert.NotErrorIs(t, err, ErrAccountNotFound)
}

func TestRankingService_RecordMatchResult(t *testing.T) {
	db := &fakeDatabase{}
	svc := NewRankingService(db)
	fixed := time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	id, err := svc.RecordMatchResult(context.Background(), &models.MatchResult{
		RoomID:      3,
		BeatmapHash: "abc123",
		Score:       models.ScoreSubmission{UID: 1, Username: "alice", Score: 1000},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	require.Len(t, db.saved, 1)
	assert.Equal(t, fixed, db.saved[0].PlayedAt)

	_, err = svc.RecordMatchResult(context.Background(), &models.MatchResult{
		Score: models.ScoreSubmission{UID: 1, Score: -1},
	})
	assert.Error(t, err)
	assert.Len(t, db.saved, 1, "invalid scores are not stored")

	_, err = svc.RecordMatchResult(context.Background(), nil)
	assert.Error(t, err)
}
