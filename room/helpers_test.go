package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wfunc/rhythmserver/broadcast"
	"github.com/wfunc/rhythmserver/models"
	"github.com/wfunc/rhythmserver/network"
	"github.com/wfunc/rhythmserver/session"
)

type recordedMessage struct {
	MsgID uint16
	Data  []byte
}

// MockConnection is a test double for the network.Connection interface that
// keeps everything sent to it.
type MockConnection struct {
	mu       sync.Mutex
	messages []recordedMessage
	closed   bool
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, recordedMessage{MsgID: msgID, Data: append([]byte(nil), data...)})
	return nil
}

func (m *MockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) Ping() error                          { return nil }
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

// received returns the payloads of every message with msgID.
func (m *MockConnection) received(msgID uint16) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]byte
	for _, msg := range m.messages {
		if msg.MsgID == msgID {
			out = append(out, msg.Data)
		}
	}
	return out
}

func (m *MockConnection) count(msgID uint16) int {
	return len(m.received(msgID))
}

func (m *MockConnection) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockConnection) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

// lastError returns the message of the last error sent, or "".
func (m *MockConnection) lastError(t *testing.T) string {
	errs := m.received(network.MsgTypeError)
	if len(errs) == 0 {
		return ""
	}
	var msg models.ErrorMessage
	require.NoError(t, json.Unmarshal(errs[len(errs)-1], &msg))
	return msg.Message
}

type fakeRanking struct {
	mu      sync.Mutex
	results []*models.MatchResult
	err     error
}

func (f *fakeRanking) RecordMatchResult(_ context.Context, result *models.MatchResult) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.results = append(f.results, result)
	return int64(len(f.results)), nil
}

func (f *fakeRanking) recorded() []*models.MatchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.MatchResult(nil), f.results...)
}

type fakeBeatmaps struct {
	mu      sync.Mutex
	setIDs  map[string]string
	lookups []string
}

func (f *fakeBeatmaps) FetchSetID(_ context.Context, md5 string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, md5)
	if id, ok := f.setIDs[md5]; ok {
		return id, nil
	}
	return "", errors.New("not found")
}

func (f *fakeBeatmaps) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lookups...)
}

type recordingObserver struct {
	mu       sync.Mutex
	barriers []string
	failures map[string]int
}

func (o *recordingObserver) BarrierFired(barrier string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.barriers = append(o.barriers, barrier)
}

func (o *recordingObserver) HandlerFailed(kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failures == nil {
		o.failures = make(map[string]int)
	}
	o.failures[kind]++
}

func (o *recordingObserver) fired(barrier string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, b := range o.barriers {
		if b == barrier {
			n++
		}
	}
	return n
}

type fixture struct {
	manager  *Manager
	hub      *broadcast.Hub
	ranking  *fakeRanking
	beatmaps *fakeBeatmaps
	observer *recordingObserver
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		hub:      broadcast.NewHub(),
		ranking:  &fakeRanking{},
		beatmaps: &fakeBeatmaps{setIDs: map[string]string{}},
		observer: &recordingObserver{},
	}
	f.manager = NewRoomManager(Dependencies{
		Broadcaster: f.hub,
		Ranking:     f.ranking,
		Beatmaps:    f.beatmaps,
		Observer:    f.observer,
	})
	t.Cleanup(f.manager.Close)
	return f
}

func testBeatmap(md5 string) *models.Beatmap {
	return &models.Beatmap{MD5: md5, Title: "Title", Artist: "Artist", Creator: "Mapper", Version: "Insane"}
}

// createRoom creates a room hosted by account 1 with a beatmap selected.
func (f *fixture) createRoom(maxPlayers int) *Room {
	return f.manager.CreateRoom(Settings{
		Name:             "test room",
		MaxPlayers:       maxPlayers,
		Host:             models.HostInfo{UID: 1, Username: "player1"},
		Beatmap:          testBeatmap("deadbeef"),
		Mods:             models.DefaultModSettings(),
		GameplaySettings: models.DefaultGameplaySettings(),
	})
}

func newTestSession(uid int64) (*session.Session, *MockConnection) {
	conn := &MockConnection{}
	sess := session.NewSession(fmt.Sprintf("sess-%d", uid), conn)
	sess.UserID = uid
	sess.Username = fmt.Sprintf("player%d", uid)
	return sess, conn
}

func joinRoom(t *testing.T, r *Room, uid int64) (*session.Session, *MockConnection) {
	t.Helper()
	sess, conn := newTestSession(uid)
	require.NoError(t, r.Join(sess))
	return sess, conn
}

// send runs one message through the room and waits for it.
func send(t *testing.T, r *Room, sess *session.Session, msgID uint16, payload any) error {
	t.Helper()
	var data []byte
	switch p := payload.(type) {
	case nil:
	case []byte:
		data = p
	case string:
		data = []byte(p)
	default:
		var err error
		data, err = network.Encode(p)
		require.NoError(t, err)
	}

	var handleErr error
	require.NoError(t, r.Do(func() { handleErr = r.Handle(sess, msgID, data) }))
	return handleErr
}

// inspect runs fn on the room goroutine.
func inspect(t *testing.T, r *Room, fn func()) {
	t.Helper()
	require.NoError(t, r.Do(fn))
}

func decodeLast[T any](t *testing.T, conn *MockConnection, msgID uint16) T {
	t.Helper()
	msgs := conn.received(msgID)
	require.NotEmpty(t, msgs, "no %s received", network.MsgName(msgID))
	var v T
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1], &v))
	return v
}
