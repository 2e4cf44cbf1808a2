package rpc

import (
	"context"
	"net/rpc"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/wfunc/rhythmserver/broadcast"
	"github.com/wfunc/rhythmserver/lobby"
	"github.com/wfunc/rhythmserver/models"
	"github.com/wfunc/rhythmserver/room"
)

func newLobby(t *testing.T) *lobby.Service {
	t.Helper()
	manager := room.NewRoomManager(room.Dependencies{Broadcaster: broadcast.NewHub()})
	t.Cleanup(manager.Close)
	return lobby.NewService(manager, nil)
}

func TestLobbyServiceOverRPC(t *testing.T) {
	server, err := NewServer("127.0.0.1:0", newLobby(t))
	require.NoError(t, err)
	go server.Start()
	defer server.Stop()

	client, err := rpc.Dial("tcp", server.Addr())
	require.NoError(t, err)
	defer client.Close()

	var created models.CreateRoomResponse
	err = client.Call("LobbyService.CreateRoom", &models.CreateRoomRequest{
		Name:       "over rpc",
		MaxPlayers: 8,
		Host:       &models.HostInfo{UID: 5, Username: "five"},
	}, &created)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	err = client.Call("LobbyService.CreateRoom", &models.CreateRoomRequest{Name: "no host", MaxPlayers: 8}, &created)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host is required")

	var listed ListRoomsReply
	require.NoError(t, client.Call("LobbyService.ListRooms", &ListRoomsArgs{}, &listed))
	require.Len(t, listed.Rooms, 1)
	assert.Equal(t, "over rpc", listed.Rooms[0].Name)
	assert.Equal(t, 8, listed.Rooms[0].MaxPlayers)

	require.NoError(t, client.Call("LobbyService.CreateRoom", &models.CreateRoomRequest{
		Name: "second", MaxPlayers: 2, Host: &models.HostInfo{UID: 6, Username: "six"},
	}, &created))
	listed = ListRoomsReply{}
	require.NoError(t, client.Call("LobbyService.ListRooms", &ListRoomsArgs{Limit: 1}, &listed))
	require.Len(t, listed.Rooms, 1)
	assert.Equal(t, int64(1), listed.Rooms[0].ID)
}

func TestHealthServer(t *testing.T) {
	hs, err := NewHealthServer("127.0.0.1:0")
	require.NoError(t, err)
	go hs.Start()
	defer hs.Stop()

	conn, err := grpc.NewClient(hs.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
