package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wfunc/rhythmserver/models"
)

// sqlStore holds the queries shared by the database/sql backends. Queries
// are written with ? placeholders and rebound per driver.
type sqlStore struct {
	db     *sql.DB
	rebind func(string) string
}

const (
	selectAccountSQL = `SELECT id, username, restricted FROM users WHERE id = ?`
	insertScoreSQL   = `INSERT INTO multiplayer_scores
        (room_id, player_id, beatmap_hash, username, mods, score, max_combo,
         hit_geki, hit300, hit_katu, hit100, hit50, hit_miss, played_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id`
)

// LoadAccount 加载账号
func (s *sqlStore) LoadAccount(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	err := s.db.QueryRowContext(ctx, s.rebind(selectAccountSQL), id).
		Scan(&account.ID, &account.Username, &account.Restricted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load account %d: %w", id, err)
	}
	return &account, nil
}

// SaveMatchResult 保存一条多人成绩
func (s *sqlStore) SaveMatchResult(ctx context.Context, result *models.MatchResult) (int64, error) {
	score := result.Score
	var id int64
	err := s.db.QueryRowContext(ctx, s.rebind(insertScoreSQL),
		result.RoomID, score.UID, result.BeatmapHash, score.Username, score.ModString,
		score.Score, score.MaxCombo,
		score.Geki, score.Perfect, score.Katu, score.Good, score.Bad, score.Miss,
		result.PlayedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save match result: %w", err)
	}
	return id, nil
}

// Close 关闭数据库连接
func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) execAll(ctx context.Context, statements ...string) error {
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebindDollar turns ? placeholders into $1, $2, ...
func rebindDollar(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func rebindNone(query string) string {
	return query
}
