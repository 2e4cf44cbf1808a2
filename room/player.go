package room

import (
	"github.com/wfunc/rhythmserver/models"
	"github.com/wfunc/rhythmserver/session"
)

// RoomPlayer is one roster entry, keyed in the room by its session id.
type RoomPlayer struct {
	ID       int64
	Username string
	Session  *session.Session
	Status   models.PlayerStatus
	Team     models.Team
	Mods     models.ModSettings
}

func newRoomPlayer(sess *session.Session) *RoomPlayer {
	return &RoomPlayer{
		ID:       sess.UserID,
		Username: sess.Username,
		Session:  sess,
		Status:   models.PlayerStatusNotReady,
		Team:     models.TeamNone,
		Mods:     models.DefaultModSettings(),
	}
}

// Info is the public part of the entry.
func (p *RoomPlayer) Info() models.PlayerInfo {
	return models.PlayerInfo{
		UID:      p.ID,
		Username: p.Username,
		Status:   p.Status,
		Team:     p.Team,
		Mods:     p.Mods,
	}
}
