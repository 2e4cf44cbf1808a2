package room

import (
	"context"

	"github.com/wfunc/rhythmserver/models"
	"github.com/wfunc/rhythmserver/session"
)

// Broadcaster defines the interface for broadcasting messages to a room.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	Subscribe(roomID int64, sess *session.Session)
	Unsubscribe(roomID int64, sessionID string)
	BroadcastToRoom(roomID int64, msgID uint16, data []byte) error
	BroadcastToRoomExcept(roomID int64, exceptSessionID string, msgID uint16, data []byte) error
	RemoveRoom(roomID int64)
}

// AccountLookup resolves the identity a connection claims.
type AccountLookup interface {
	LookupAccount(ctx context.Context, id int64) (*models.Account, error)
}

// RankingStore persists finished match results.
type RankingStore interface {
	RecordMatchResult(ctx context.Context, result *models.MatchResult) (int64, error)
}

// BeatmapLookup finds the beatmap set a checksum belongs to.
type BeatmapLookup interface {
	FetchSetID(ctx context.Context, md5 string) (string, error)
}

// Observer receives room events for metrics.
type Observer interface {
	BarrierFired(barrier string)
	HandlerFailed(kind string)
}

type nopObserver struct{}

func (nopObserver) BarrierFired(string)  {}
func (nopObserver) HandlerFailed(string) {}
