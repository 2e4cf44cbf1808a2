package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"sync"

	"github.com/wfunc/rhythmserver/lobby"
	"github.com/wfunc/rhythmserver/logger"
	"github.com/wfunc/rhythmserver/models"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	server   *rpc.Server
	wg       sync.WaitGroup
}

// NewServer creates a new RPC server serving the lobby.
func NewServer(addr string, svc *lobby.Service) (*Server, error) {
	server := rpc.NewServer()
	if err := server.RegisterName("LobbyService", NewLobbyService(svc)); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  listener.Addr().String(),
		server:   server,
	}, nil
}

// Addr is the address the listener is bound to.
func (s *Server) Addr() string {
	return s.address
}

// Start begins listening for RPC requests. It returns once Stop closes the
// listener.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.server.ServeConn(conn)
		}()
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// LobbyService is the struct that exposes RPC methods.
type LobbyService struct {
	lobby *lobby.Service
}

func NewLobbyService(svc *lobby.Service) *LobbyService {
	return &LobbyService{lobby: svc}
}

// ListRoomsArgs limits the reply to the first Limit rooms, 0 means all.
type ListRoomsArgs struct {
	Limit int
}

type ListRoomsReply struct {
	Rooms []models.RoomInfo
}

// ListRooms must follow the net/rpc signature: exported method, exported
// arguments, second argument is a pointer, return type is error.
func (ls *LobbyService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	rooms, err := ls.lobby.ListRooms(context.Background())
	if err != nil {
		return err
	}
	if args.Limit > 0 && len(rooms) > args.Limit {
		rooms = rooms[:args.Limit]
	}
	reply.Rooms = rooms
	return nil
}

func (ls *LobbyService) CreateRoom(args *models.CreateRoomRequest, reply *models.CreateRoomResponse) error {
	resp, err := ls.lobby.CreateRoom(args)
	if err != nil {
		return err
	}
	*reply = *resp
	return nil
}
