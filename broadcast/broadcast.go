// broadcast/broadcast.go
package broadcast

import (
	"errors"
	"sync"

	"github.com/wfunc/rhythmserver/logger"
	"github.com/wfunc/rhythmserver/session"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// Broadcaster fans a framed message out to the sessions of a room.
type Broadcaster interface {
	Subscribe(roomID int64, sess *session.Session)
	Unsubscribe(roomID int64, sessionID string)
	BroadcastToRoom(roomID int64, msgID uint16, data []byte) error
	BroadcastToRoomExcept(roomID int64, exceptSessionID string, msgID uint16, data []byte) error
	RemoveRoom(roomID int64)
}

// Hub keeps the room channel subscriptions. Rooms subscribe their members on
// join and unsubscribe them on leave; a send failure on one session does not
// stop delivery to the others.
type Hub struct {
	rooms map[int64]map[string]*session.Session
	mutex sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[int64]map[string]*session.Session),
	}
}

func (h *Hub) Subscribe(roomID int64, sess *session.Session) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]*session.Session)
		h.rooms[roomID] = members
	}
	members[sess.ID] = sess
}

func (h *Hub) Unsubscribe(roomID int64, sessionID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

func (h *Hub) RemoveRoom(roomID int64) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.rooms, roomID)
}

// Subscribers returns the number of sessions subscribed to a room.
func (h *Hub) Subscribers(roomID int64) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) BroadcastToRoom(roomID int64, msgID uint16, data []byte) error {
	return h.BroadcastToRoomExcept(roomID, "", msgID, data)
}

func (h *Hub) BroadcastToRoomExcept(roomID int64, exceptSessionID string, msgID uint16, data []byte) error {
	sessions, ok := h.snapshot(roomID)
	if !ok {
		return ErrRoomNotFound
	}

	for _, s := range sessions {
		if s.ID == exceptSessionID {
			continue
		}
		if err := s.Send(msgID, data); err != nil {
			// the read loop of that session notices the broken connection
			logger.Log.Debugf("broadcast to session %s in room %d failed: %v", s.ID, roomID, err)
		}
	}
	return nil
}

func (h *Hub) snapshot(roomID int64) ([]*session.Session, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	members, ok := h.rooms[roomID]
	if !ok {
		return nil, false
	}
	sessions := make([]*session.Session, 0, len(members))
	for _, s := range members {
		sessions = append(sessions, s)
	}
	return sessions, true
}
