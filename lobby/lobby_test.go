package lobby

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/rhythmserver/broadcast"
	"github.com/wfunc/rhythmserver/models"
	"github.com/wfunc/rhythmserver/room"
)

type countingObserver struct{ created int }

func (c *countingObserver) IncRoomsCreated() { c.created++ }

func newTestService(t *testing.T) (*Service, *room.Manager, *countingObserver) {
	t.Helper()
	manager := room.NewRoomManager(room.Dependencies{Broadcaster: broadcast.NewHub()})
	t.Cleanup(manager.Close)
	counter := &countingObserver{}
	return NewService(manager, counter), manager, counter
}

func fakeRequest(faker *gofakeit.Faker) *models.CreateRoomRequest {
	return &models.CreateRoomRequest{
		Name:       fmt.Sprintf("%s's room", faker.Username()),
		MaxPlayers: faker.Number(2, 16),
		Host: &models.HostInfo{
			UID:      int64(faker.Number(1, 1_000_000)),
			Username: faker.Username(),
		},
	}
}

func TestCreateRoom_Defaults(t *testing.T) {
	svc, manager, counter := newTestService(t)
	faker := gofakeit.New(42)

	req := fakeRequest(faker)
	resp, err := svc.CreateRoom(req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.ID)
	assert.Equal(t, 1, counter.created)

	r, ok := manager.GetRoom(resp.ID)
	require.True(t, ok)
	info, err := r.Info()
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(req.Name), info.Name)
	assert.Equal(t, req.MaxPlayers, info.MaxPlayers)
	assert.Equal(t, models.DefaultModSettings(), info.Mods)
	assert.Equal(t, models.DefaultGameplaySettings(), info.GameplaySettings)
	assert.Equal(t, models.TeamModeHeadToHead, info.TeamMode)
	assert.False(t, info.IsLocked)
	assert.Nil(t, info.Beatmap)
	assert.Zero(t, info.PlayerCount)
}

func TestCreateRoom_WithOptionalFields(t *testing.T) {
	svc, manager, _ := newTestService(t)
	faker := gofakeit.New(7)

	teamMode := models.TeamModeTeamVsTeam
	winCondition := models.WinConditionAccuracy
	req := fakeRequest(faker)
	req.Password = faker.Password(true, true, true, false, false, 10)
	req.Beatmap = &models.Beatmap{MD5: strings.ReplaceAll(faker.UUID(), "-", ""), Title: faker.Word()}
	req.TeamMode = &teamMode
	req.WinCondition = &winCondition

	resp, err := svc.CreateRoom(req)
	require.NoError(t, err)

	r, _ := manager.GetRoom(resp.ID)
	info, err := r.Info()
	require.NoError(t, err)
	assert.True(t, info.IsLocked)
	require.NotNil(t, info.Beatmap)
	assert.Equal(t, req.Beatmap.MD5, info.Beatmap.MD5)
	assert.Equal(t, teamMode, info.TeamMode)
	assert.Equal(t, winCondition, info.WinCondition)
}

func TestCreateRoom_Validation(t *testing.T) {
	svc, manager, counter := newTestService(t)
	faker := gofakeit.New(1)

	badTeamMode := models.TeamMode(9)
	cases := map[string]func(*models.CreateRoomRequest){
		"empty name":      func(r *models.CreateRoomRequest) { r.Name = "   " },
		"long name":       func(r *models.CreateRoomRequest) { r.Name = strings.Repeat("x", 65) },
		"no players":      func(r *models.CreateRoomRequest) { r.MaxPlayers = 0 },
		"too many":        func(r *models.CreateRoomRequest) { r.MaxPlayers = 17 },
		"no host":         func(r *models.CreateRoomRequest) { r.Host = nil },
		"bad beatmap":     func(r *models.CreateRoomRequest) { r.Beatmap = &models.Beatmap{Title: "no checksum"} },
		"path in md5":     func(r *models.CreateRoomRequest) { r.Beatmap = &models.Beatmap{MD5: "../admin/delete?x=1"} },
		"bad team mode":   func(r *models.CreateRoomRequest) { r.TeamMode = &badTeamMode },
		"zero speed mods": func(r *models.CreateRoomRequest) { r.Mods = &models.ModSettings{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := fakeRequest(faker)
			mutate(req)
			_, err := svc.CreateRoom(req)
			assert.True(t, errors.Is(err, ErrInvalidRequest), "got %v", err)
		})
	}
	assert.Zero(t, manager.Count())
	assert.Zero(t, counter.created)
}

func TestListRooms(t *testing.T) {
	svc, manager, _ := newTestService(t)
	faker := gofakeit.New(3)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateRoom(fakeRequest(faker))
		require.NoError(t, err)
	}
	manager.RemoveRoom(2)

	rooms, err := svc.ListRooms(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, int64(1), rooms[0].ID)
	assert.Equal(t, int64(3), rooms[1].ID)
	for _, info := range rooms {
		assert.Nil(t, info.Host)
		assert.Empty(t, info.SessionID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.ListRooms(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
