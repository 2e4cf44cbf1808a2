package room

import (
	"sort"
	"sync"
	"time"

	"github.com/wfunc/rhythmserver/logger"
	"github.com/wfunc/rhythmserver/timer"
)

const (
	DefaultMaxPlayersLimit = 16
	DefaultPendingRoomTTL  = 2 * time.Minute
	DefaultLookupTimeout   = 3 * time.Second
)

// Dependencies are shared by every room of a Manager.
type Dependencies struct {
	Broadcaster Broadcaster
	Ranking     RankingStore
	Beatmaps    BeatmapLookup
	Observer    Observer
	// Timers expires rooms nobody joins within PendingRoomTTL. Nil disables
	// the expiry.
	Timers          *timer.TimerManager
	PendingRoomTTL  time.Duration
	LookupTimeout   time.Duration
	MaxPlayersLimit int
}

// Manager 管理所有房间
type Manager struct {
	rooms  map[int64]*Room
	nextID int64
	deps   Dependencies
	mutex  sync.RWMutex
}

// NewRoomManager 创建一个新的房间管理器
func NewRoomManager(deps Dependencies) *Manager {
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.MaxPlayersLimit <= 0 {
		deps.MaxPlayersLimit = DefaultMaxPlayersLimit
	}
	if deps.PendingRoomTTL <= 0 {
		deps.PendingRoomTTL = DefaultPendingRoomTTL
	}
	if deps.LookupTimeout <= 0 {
		deps.LookupTimeout = DefaultLookupTimeout
	}
	return &Manager{
		rooms: make(map[int64]*Room),
		deps:  deps,
	}
}

// MaxPlayersLimit is the largest room size the manager accepts.
func (m *Manager) MaxPlayersLimit() int {
	return m.deps.MaxPlayersLimit
}

// CreateRoom 创建一个新房间并添加到管理器。ID 单调递增，进程内不复用。
func (m *Manager) CreateRoom(settings Settings) *Room {
	m.mutex.Lock()
	m.nextID++
	room := newRoom(m.nextID, settings, m)
	if m.deps.Timers != nil {
		room.pendingTimer.Store(m.deps.Timers.AddTimer(m.deps.PendingRoomTTL, 0, func() {
			room.Enqueue(func() {
				if !room.joined && !room.destroyed {
					logger.Log.Infof("room %d: nobody joined, expired", room.ID)
					room.destroy()
				}
			})
		}))
	}
	m.rooms[room.ID] = room
	m.mutex.Unlock()

	logger.Log.Infof("room %d created by %d: %q", room.ID, settings.Host.UID, settings.Name)
	return room
}

// cancelPending stops the expiry timer once someone joined.
func (m *Manager) cancelPending(room *Room) {
	if m.deps.Timers == nil {
		return
	}
	if id := room.pendingTimer.Swap(0); id != 0 {
		m.deps.Timers.RemoveTimer(id)
	}
}

// RemoveRoom 从管理器中移除并关闭一个房间
func (m *Manager) RemoveRoom(id int64) {
	m.mutex.Lock()
	room, exists := m.rooms[id]
	delete(m.rooms, id)
	m.mutex.Unlock()

	if !exists {
		return
	}
	m.cancelPending(room)
	room.Close()
	m.deps.Broadcaster.RemoveRoom(id)
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(id int64) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

// Rooms returns the live rooms ordered by id.
func (m *Manager) Rooms() []*Room {
	m.mutex.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.mutex.RUnlock()

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// Close shuts every room down.
func (m *Manager) Close() {
	for _, room := range m.Rooms() {
		m.RemoveRoom(room.ID)
	}
}
