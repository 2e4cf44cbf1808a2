// room/room.go
package room

import (
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/rhythmserver/logger"
	"github.com/wfunc/rhythmserver/models"
	"github.com/wfunc/rhythmserver/network"
	"github.com/wfunc/rhythmserver/session"
	"github.com/wfunc/rhythmserver/state"
)

const inboxSize = 256

// Settings are the values a room is created with.
type Settings struct {
	Name             string
	MaxPlayers       int
	Password         string
	Host             models.HostInfo
	Beatmap          *models.Beatmap
	Mods             models.ModSettings
	GameplaySettings models.GameplaySettings
	TeamMode         models.TeamMode
	WinCondition     models.WinCondition
}

// Room 是多人房间的核心结构。所有字段只在房间自己的 goroutine 中读写，
// 外部通过 Enqueue / Do 提交操作。
type Room struct {
	ID        int64
	CreatedAt time.Time

	name         string
	maxPlayers   int
	password     string
	hostID       int64
	hostName     string
	host         *RoomPlayer
	players      map[string]*RoomPlayer // sessionID -> entry
	order        []string
	beatmap      *models.Beatmap
	mods         models.ModSettings
	gameplay     models.GameplaySettings
	teamMode     models.TeamMode
	winCondition models.WinCondition

	machine *state.RoomMachine
	loaded  *Quorum[int64, struct{}]
	skipped *Quorum[int64, struct{}]
	results *Quorum[int64, models.ScoreSubmission]

	manager      *Manager
	joined       bool
	destroyed    bool
	pendingTimer atomic.Int64

	inbox     chan func()
	closeChan chan struct{}
	closeOnce sync.Once
	stopped   chan struct{}
}

func newRoom(id int64, settings Settings, manager *Manager) *Room {
	r := &Room{
		ID:           id,
		CreatedAt:    time.Now(),
		name:         settings.Name,
		maxPlayers:   settings.MaxPlayers,
		password:     settings.Password,
		hostID:       settings.Host.UID,
		hostName:     settings.Host.Username,
		players:      make(map[string]*RoomPlayer),
		beatmap:      settings.Beatmap,
		mods:         settings.Mods,
		gameplay:     settings.GameplaySettings,
		teamMode:     settings.TeamMode,
		winCondition: settings.WinCondition,
		loaded:       NewQuorum[int64, struct{}](),
		skipped:      NewQuorum[int64, struct{}](),
		results:      NewQuorum[int64, models.ScoreSubmission](),
		manager:      manager,
		inbox:        make(chan func(), inboxSize),
		closeChan:    make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	r.machine = state.NewRoomMachine(r, func() bool { return r.beatmap != nil })

	go r.loop()
	return r
}

// --- state.RoomContext ---

func (r *Room) GetID() int64 {
	return r.ID
}

// Broadcast sends a framed payload to every member of the room.
func (r *Room) Broadcast(msgID uint16, data []byte) error {
	if len(r.players) == 0 {
		return nil
	}
	return r.manager.deps.Broadcaster.BroadcastToRoom(r.ID, msgID, data)
}

// --- actor ---

func (r *Room) loop() {
	defer close(r.stopped)
	for {
		select {
		case fn := <-r.inbox:
			r.run(fn)
		case <-r.closeChan:
			r.drain()
			return
		}
	}
}

// drain runs what was queued before the room closed so Do callers are
// released. Handlers see the room as destroyed.
func (r *Room) drain() {
	r.destroyed = true
	for {
		select {
		case fn := <-r.inbox:
			r.run(fn)
		default:
			return
		}
	}
}

func (r *Room) run(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Log.Errorf("room %d: recovered from panic: %v\n%s", r.ID, rec, debug.Stack())
		}
	}()
	fn()
}

// Enqueue schedules fn on the room goroutine. It returns false once the
// room is closed.
func (r *Room) Enqueue(fn func()) bool {
	select {
	case <-r.closeChan:
		return false
	default:
	}
	select {
	case r.inbox <- fn:
		return true
	case <-r.closeChan:
		return false
	}
}

// Do runs fn on the room goroutine and waits for it to finish.
func (r *Room) Do(fn func()) error {
	done := make(chan struct{})
	if !r.Enqueue(func() {
		defer close(done)
		fn()
	}) {
		return ErrRoomNotFound
	}
	select {
	case <-done:
		return nil
	case <-r.stopped:
		select {
		case <-done:
			return nil
		default:
			return ErrRoomNotFound
		}
	}
}

// Close 关闭房间，停止主循环
func (r *Room) Close() {
	r.closeOnce.Do(func() { close(r.closeChan) })
}

// Done is closed once the room goroutine has exited.
func (r *Room) Done() <-chan struct{} {
	return r.stopped
}

// destroy removes the room from the registry. Must run on the room goroutine.
func (r *Room) destroy() {
	if r.destroyed {
		return
	}
	r.destroyed = true
	r.manager.RemoveRoom(r.ID)
}

// --- public operations ---

// Join adds sess to the roster. A rejected session is not added and the
// error is meant for that connection.
func (r *Room) Join(sess *session.Session) error {
	var err error
	if doErr := r.Do(func() { err = r.join(sess) }); doErr != nil {
		return doErr
	}
	return err
}

// Leave removes sess from the roster, if it is there.
func (r *Room) Leave(sess *session.Session) {
	_ = r.Do(func() { r.leave(sess) })
}

// Info returns the room snapshot shown in the lobby.
func (r *Room) Info() (models.RoomInfo, error) {
	var info models.RoomInfo
	if err := r.Do(func() {
		info = r.snapshot()
		info.Host = nil
	}); err != nil {
		return models.RoomInfo{}, err
	}
	return info, nil
}

func (r *Room) join(sess *session.Session) error {
	// an entry for the same account belongs to a connection whose
	// disconnect has not been noticed yet, the new one replaces it
	stale := r.findPlayer(sess.UserID)
	occupied := len(r.players)
	if stale != nil {
		occupied--
	}
	switch {
	case r.destroyed:
		return ErrRoomNotFound
	case r.password != "" && sess.Password != r.password:
		return ErrWrongPassword
	case occupied >= r.maxPlayers:
		return ErrRoomFull
	case r.machine.Status() == models.RoomStatusPlaying:
		return ErrJoinDuringMatch
	case r.host == nil && sess.UserID != r.hostID:
		return ErrHostNotConnected
	}
	if stale != nil {
		r.evict(stale)
	}

	player := newRoomPlayer(sess)
	r.players[sess.ID] = player
	r.order = append(r.order, sess.ID)
	if player.ID == r.hostID {
		r.host = player
		logger.Log.Infof("room %d: host %d connected", r.ID, player.ID)
	}
	if !r.joined {
		r.joined = true
		r.manager.cancelPending(r)
	}

	r.manager.deps.Broadcaster.Subscribe(r.ID, sess)

	snapshot := r.snapshot()
	snapshot.SessionID = sess.ID
	r.sendTo(sess, network.MsgTypeInitialConnection, snapshot)
	r.broadcastExcept(sess.ID, network.MsgTypePlayerJoined, player.Info())

	logger.Log.Infof("room %d: player %d (%s) joined, %d in room", r.ID, player.ID, player.Username, len(r.players))
	return nil
}

// evict drops the entry of a superseded connection and closes it. The host
// binding is released and picked up again by the reconnecting account.
func (r *Room) evict(stale *RoomPlayer) {
	r.removePlayer(stale.Session.ID)
	if r.host == stale {
		r.host = nil
	}
	r.broadcast(network.MsgTypePlayerLeft, models.PlayerRef{UID: stale.ID})
	_ = stale.Session.Close()
	logger.Log.Infof("room %d: player %d reconnected, old session %s dropped", r.ID, stale.ID, stale.Session.ID)
}

// leave removes sess from the roster. A departing host is announced with
// hostChanged naming the successor, anybody else with playerLeft.
func (r *Room) leave(sess *session.Session) {
	player := r.removePlayer(sess.ID)
	if player == nil {
		return
	}
	logger.Log.Infof("room %d: player %d left, %d in room", r.ID, player.ID, len(r.players))

	if len(r.players) == 0 {
		logger.Log.Infof("room %d: destroyed as it is empty", r.ID)
		r.destroy()
		return
	}

	if r.host == player {
		next := r.players[r.order[0]]
		r.setHost(next)
		logger.Log.Infof("room %d: picked new host %d", r.ID, next.ID)
	} else {
		r.broadcast(network.MsgTypePlayerLeft, models.PlayerRef{UID: player.ID})
	}

	r.checkBarriers()
}

// removePlayer drops the entry, its subscription and its barrier
// contributions. It does not broadcast.
func (r *Room) removePlayer(sessionID string) *RoomPlayer {
	player, ok := r.players[sessionID]
	if !ok {
		return nil
	}
	delete(r.players, sessionID)
	for i, id := range r.order {
		if id == sessionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.manager.deps.Broadcaster.Unsubscribe(r.ID, sessionID)

	r.loaded.Withdraw(player.ID)
	r.skipped.Withdraw(player.ID)
	r.results.Withdraw(player.ID)
	return player
}

func (r *Room) setHost(player *RoomPlayer) {
	r.host = player
	r.hostID = player.ID
	r.hostName = player.Username
	r.broadcast(network.MsgTypeHostChanged, models.HostChanged{UID: player.ID, Username: player.Username})
}

func (r *Room) findPlayer(uid int64) *RoomPlayer {
	for _, p := range r.players {
		if p.ID == uid {
			return p
		}
	}
	return nil
}

// snapshot builds the full room view. Players are listed in join order.
func (r *Room) snapshot() models.RoomInfo {
	players := make([]models.PlayerInfo, 0, len(r.order))
	names := make([]string, 0, len(r.order))
	for _, id := range r.order {
		p := r.players[id]
		players = append(players, p.Info())
		names = append(names, p.Username)
	}

	var beatmap *models.Beatmap
	if r.beatmap != nil {
		b := *r.beatmap
		beatmap = &b
	}

	return models.RoomInfo{
		ID:               r.ID,
		Name:             r.name,
		Host:             &models.HostInfo{UID: r.hostID, Username: r.hostName},
		MaxPlayers:       r.maxPlayers,
		IsLocked:         r.password != "",
		Beatmap:          beatmap,
		Mods:             r.mods,
		GameplaySettings: r.gameplay,
		TeamMode:         r.teamMode,
		WinCondition:     r.winCondition,
		Players:          players,
		PlayerCount:      len(players),
		PlayerNames:      strings.Join(names, ", "),
		Status:           r.machine.Status(),
	}
}

// --- outbound ---

func (r *Room) broadcast(msgID uint16, payload any) {
	data, err := network.Encode(payload)
	if err != nil {
		logger.Log.Errorf("room %d: encode %s: %v", r.ID, network.MsgName(msgID), err)
		return
	}
	if err := r.Broadcast(msgID, data); err != nil {
		logger.Log.Warnf("room %d: broadcast %s: %v", r.ID, network.MsgName(msgID), err)
	}
}

func (r *Room) broadcastExcept(sessionID string, msgID uint16, payload any) {
	if len(r.players) == 0 {
		return
	}
	data, err := network.Encode(payload)
	if err != nil {
		logger.Log.Errorf("room %d: encode %s: %v", r.ID, network.MsgName(msgID), err)
		return
	}
	if err := r.manager.deps.Broadcaster.BroadcastToRoomExcept(r.ID, sessionID, msgID, data); err != nil {
		logger.Log.Warnf("room %d: broadcast %s: %v", r.ID, network.MsgName(msgID), err)
	}
}

func (r *Room) sendTo(sess *session.Session, msgID uint16, payload any) {
	data, err := network.Encode(payload)
	if err != nil {
		logger.Log.Errorf("room %d: encode %s: %v", r.ID, network.MsgName(msgID), err)
		return
	}
	if err := sess.Send(msgID, data); err != nil {
		logger.Log.Debugf("room %d: send %s to %s: %v", r.ID, network.MsgName(msgID), sess.ID, err)
	}
}

// SendError reports err to a single connection.
func SendError(sess *session.Session, err error) {
	data, encErr := network.Encode(models.ErrorMessage{Message: PublicMessage(err)})
	if encErr != nil {
		return
	}
	_ = sess.Send(network.MsgTypeError, data)
}
