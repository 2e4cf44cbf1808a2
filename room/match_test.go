package room

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/rhythmserver/models"
	"github.com/wfunc/rhythmserver/network"
)

func TestRoom_LoadBarrierFiresOnceOnLastLoad(t *testing.T) {
	f := newFixture(t)
	r := f.createRoom(4)

	host, hostConn := joinRoom(t, r, 1)
	p2, _ := joinRoom(t, r, 2)
	p3, _ := joinRoom(t, r, 3)

	require.NoError(t, send(t, r, host, network.MsgTypePlayBeatmap, nil))
	assert.Equal(t, 1, hostConn.count(network.MsgTypePlayBeatmap))

	require.NoError(t, send(t, r, host, network.MsgTypeBeatmapLoadComplete, nil))
	require.NoError(t, send(t, r, p2, network.MsgTypeBeatmapLoadComplete, nil))
	// duplicate loads do not count twice
	require.NoError(t, send(t, r, p2, network.MsgTypeBeatmapLoadComplete, nil))
	assert.Equal(t, 0, hostConn.count(network.MsgTypeAllPlayersBeatmapLoadComplete))

	require.NoError(t, send(t, r, p3, network.MsgTypeBeatmapLoadComplete, nil))
	assert.Equal(t, 1, hostConn.count(network.MsgTypeAllPlayersBeatmapLoadComplete))

	// stale load after firing
	require.NoError(t, send(t, r, p3, network.MsgTypeBeatmapLoadComplete, nil))
	assert.Equal(t, 1, hostConn.count(network.MsgTypeAllPlayersBeatmapLoadComplete))
	assert.Equal(t, 1, f.observer.fired(barrierLoad))

	status := decodeLast[models.RoomStatusChanged](t, hostConn, network.MsgTypeRoomStatusChanged)
	assert.Equal(t, models.RoomStatusPlaying, status.Status)

	inspect(t, r, func() {
		for _, p := range r.players {
			assert.Equal(t, models.PlayerStatusPlaying, p.Status)
		}
	})
}

func TestRoom_PlayBeatmapRules(t *testing.T) {
	f := newFixture(t)
	r := f.manager.CreateRoom(Settings{Name: "no map", MaxPlayers: 4, Host: models.HostInfo{UID: 1}})
	host, _ := joinRoom(t, r, 1)
	guest, _ := joinRoom(t, r, 2)

	assert.Equal(t, KindAuthorization, KindOf(send(t, r, guest, network.MsgTypePlayBeatmap, nil)))
	assert.Equal(t, ErrNoBeatmap, send(t, r, host, network.MsgTypePlayBeatmap, nil))
}

func TestRoom_LoadIgnoredWithoutBeatmap(t *testing.T) {
	f := newFixture(t)
	r := f.manager.CreateRoom(Settings{Name: "no map", MaxPlayers: 1, Host: models.HostInfo{UID: 1}})
	host, conn := joinRoom(t, r, 1)

	require.NoError(t, send(t, r, host, network.MsgTypeBeatmapLoadComplete, nil))
	assert.Equal(t, 0, conn.count(network.MsgTypeAllPlayersBeatmapLoadComplete))
	inspect(t, r, func() { assert.Equal(t, 0, r.loaded.Len()) })
}

// startMatch joins uids 1..n and loads everyone into a match.
func startMatch(t *testing.T, f *fixture, n int) (*Room, []*MockConnection, []func(uint16, any) error) {
	t.Helper()
	r := f.createRoom(8)
	var conns []*MockConnection
	var senders []func(uint16, any) error
	for uid := int64(1); uid <= int64(n); uid++ {
		sess, conn := joinRoom(t, r, uid)
		conns = append(conns, conn)
		senders = append(senders, func(msgID uint16, payload any) error {
			return send(t, r, sess, msgID, payload)
		})
	}
	for _, s := range senders {
		require.NoError(t, s(network.MsgTypeBeatmapLoadComplete, nil))
	}
	inspect(t, r, func() { require.Equal(t, models.RoomStatusPlaying, r.machine.Status()) })
	return r, conns, senders
}

func TestRoom_DuplicateScoreSubmission(t *testing.T) {
	f := newFixture(t)
	r, conns, senders := startMatch(t, f, 2)

	score := models.ScoreSubmission{Score: 1000, MaxCombo: 50, Perfect: 40}
	require.NoError(t, senders[0](network.MsgTypeScoreSubmission, score))

	score.Score = 999999
	err := senders[0](network.MsgTypeScoreSubmission, score)
	assert.Equal(t, ErrDuplicateSubmission, err)
	assert.Equal(t, ErrDuplicateSubmission.Message, conns[0].lastError(t))

	inspect(t, r, func() {
		assert.Equal(t, 1, r.results.Len())
	})
	assert.Equal(t, 0, conns[1].count(network.MsgTypeError), "errors go to the sender only")
}

func TestRoom_ResultBarrier(t *testing.T) {
	f := newFixture(t)
	r, conns, senders := startMatch(t, f, 2)

	require.NoError(t, senders[1](network.MsgTypeScoreSubmission, models.ScoreSubmission{UID: 77, Username: "spoof", Score: 200}))
	require.NoError(t, senders[0](network.MsgTypeScoreSubmission, models.ScoreSubmission{Score: 100, ModString: "HD"}))

	scores := decodeLast[[]models.ScoreSubmission](t, conns[0], network.MsgTypeAllPlayersScoreSubmitted)
	require.Len(t, scores, 2)
	assert.Equal(t, int64(2), scores[0].UID, "uid is stamped by the server")
	assert.Equal(t, "player2", scores[0].Username)
	assert.Equal(t, int64(1), scores[1].UID)
	assert.Equal(t, "HD", scores[1].ModString)

	inspect(t, r, func() {
		assert.Equal(t, models.RoomStatusIdle, r.machine.Status())
		assert.Equal(t, 0, r.loaded.Len())
		assert.Equal(t, 0, r.results.Len())
		for _, p := range r.players {
			assert.Equal(t, models.PlayerStatusNotReady, p.Status)
		}
	})

	require.Eventually(t, func() bool { return len(f.ranking.recorded()) == 2 }, time.Second, 5*time.Millisecond)
	for _, result := range f.ranking.recorded() {
		assert.Equal(t, r.ID, result.RoomID)
		assert.Equal(t, "deadbeef", result.BeatmapHash)
	}
}

func TestRoom_RankingFailureDoesNotBlockBroadcast(t *testing.T) {
	f := newFixture(t)
	f.ranking.err = errors.New("database down")
	_, conns, senders := startMatch(t, f, 1)

	require.NoError(t, senders[0](network.MsgTypeScoreSubmission, models.ScoreSubmission{Score: 1}))
	assert.Equal(t, 1, conns[0].count(network.MsgTypeAllPlayersScoreSubmitted))
}

func TestRoom_LeaveCompletesResultBarrier(t *testing.T) {
	f := newFixture(t)
	r, conns, senders := startMatch(t, f, 3)

	require.NoError(t, senders[0](network.MsgTypeScoreSubmission, models.ScoreSubmission{Score: 1}))
	require.NoError(t, senders[1](network.MsgTypeScoreSubmission, models.ScoreSubmission{Score: 2}))
	assert.Equal(t, 0, conns[0].count(network.MsgTypeAllPlayersScoreSubmitted))

	var third = conns[2]
	inspect(t, r, func() {
		for _, p := range r.players {
			if p.ID == 3 {
				r.leave(p.Session)
			}
		}
	})
	assert.Equal(t, 1, conns[0].count(network.MsgTypeAllPlayersScoreSubmitted))
	assert.Equal(t, 0, third.count(network.MsgTypeAllPlayersScoreSubmitted))
}

func TestRoom_LeaveWithdrawsContribution(t *testing.T) {
	f := newFixture(t)
	r := f.createRoom(4)
	host, hostConn := joinRoom(t, r, 1)
	guest, _ := joinRoom(t, r, 2)
	joinRoom(t, r, 3)

	require.NoError(t, send(t, r, guest, network.MsgTypeBeatmapLoadComplete, nil))
	r.Leave(guest)
	inspect(t, r, func() { assert.False(t, r.loaded.Has(2)) })

	require.NoError(t, send(t, r, host, network.MsgTypeBeatmapLoadComplete, nil))
	assert.Equal(t, 0, hostConn.count(network.MsgTypeAllPlayersBeatmapLoadComplete), "player 3 has not loaded yet")
}

func TestRoom_SkipBarrier(t *testing.T) {
	f := newFixture(t)
	_, conns, senders := startMatch(t, f, 2)

	require.NoError(t, senders[0](network.MsgTypeSkipRequested, nil))
	assert.Equal(t, 0, conns[0].count(network.MsgTypeAllPlayersSkipRequested))
	require.NoError(t, senders[1](network.MsgTypeSkipRequested, nil))
	require.NoError(t, senders[1](network.MsgTypeSkipRequested, nil))
	assert.Equal(t, 1, conns[0].count(network.MsgTypeAllPlayersSkipRequested))
	assert.Equal(t, 1, f.observer.fired(barrierSkip))
}

func TestRoom_ScoreOutsideMatch(t *testing.T) {
	f := newFixture(t)
	r := f.createRoom(2)
	host, _ := joinRoom(t, r, 1)

	assert.Equal(t, ErrNoMatch, send(t, r, host, network.MsgTypeScoreSubmission, models.ScoreSubmission{Score: 1}))
	assert.Equal(t, ErrNoMatch, send(t, r, host, network.MsgTypeLiveScoreData, models.LiveScoreData{Score: 1}))
}

func TestRoom_InvalidScore(t *testing.T) {
	f := newFixture(t)
	_, _, senders := startMatch(t, f, 1)

	assert.Equal(t, ErrInvalidScore, senders[0](network.MsgTypeScoreSubmission, models.ScoreSubmission{Score: -5}))
	assert.Equal(t, ErrInvalidPayload, senders[0](network.MsgTypeScoreSubmission, `{"score":1,"cheat":true}`))
}

func TestRoom_LiveScoreRelay(t *testing.T) {
	f := newFixture(t)
	_, conns, senders := startMatch(t, f, 2)

	require.NoError(t, senders[0](network.MsgTypeLiveScoreData, models.LiveScoreData{Score: 500, Combo: 12, Accuracy: 0.98, IsAlive: true}))

	want := models.LiveScoreData{UID: 1, Username: "player1", Score: 500, Combo: 12, Accuracy: 0.98, IsAlive: true}
	for i, conn := range conns {
		raw := conn.received(network.MsgTypeLiveScoreData)
		require.Len(t, raw, 1, "player %d including the sender gets the relay", i+1)

		var relayed []models.LiveScoreData
		require.NoError(t, json.Unmarshal(raw[0], &relayed))
		require.Len(t, relayed, 1)
		assert.Equal(t, want, relayed[0])
	}
}

func TestRoom_JoinDuringMatchRejected(t *testing.T) {
	f := newFixture(t)
	r, _, _ := startMatch(t, f, 1)

	late, _ := newTestSession(5)
	assert.Equal(t, ErrJoinDuringMatch, r.Join(late))
}

func TestRoom_ChangingBeatmapToPlayingScenario(t *testing.T) {
	f := newFixture(t)
	r := f.manager.CreateRoom(Settings{
		Name:       "scenario",
		MaxPlayers: 8,
		Host:       models.HostInfo{UID: 1, Username: "player1"},
		Mods:       models.DefaultModSettings(),
	})
	host, hostConn := joinRoom(t, r, 1)
	guest, guestConn := joinRoom(t, r, 2)

	require.NoError(t, send(t, r, host, network.MsgTypeBeatmapChanged, nil))
	inspect(t, r, func() {
		assert.Equal(t, models.RoomStatusChangingBeatmap, r.machine.Status())
		assert.Nil(t, r.beatmap)
	})
	cleared := guestConn.received(network.MsgTypeBeatmapChanged)
	require.Len(t, cleared, 1)
	assert.JSONEq(t, "null", string(cleared[0]))

	require.NoError(t, send(t, r, host, network.MsgTypeBeatmapChanged, map[string]any{"md5": "abc123"}))
	inspect(t, r, func() { assert.Equal(t, models.RoomStatusIdle, r.machine.Status()) })
	beatmap := decodeLast[models.Beatmap](t, guestConn, network.MsgTypeBeatmapChanged)
	assert.Equal(t, "abc123", beatmap.MD5)

	require.NoError(t, send(t, r, host, network.MsgTypeBeatmapLoadComplete, nil))
	require.NoError(t, send(t, r, guest, network.MsgTypeBeatmapLoadComplete, nil))

	inspect(t, r, func() { assert.Equal(t, models.RoomStatusPlaying, r.machine.Status()) })
	assert.Equal(t, 1, hostConn.count(network.MsgTypeAllPlayersBeatmapLoadComplete))

	// the beatmap cannot change mid-match
	assert.Equal(t, ErrMatchInProgress, send(t, r, host, network.MsgTypeBeatmapChanged, nil))
}
