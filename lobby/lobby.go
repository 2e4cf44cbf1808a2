// Package lobby lists and creates rooms on behalf of clients that are not
// connected to a room yet.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/wfunc/rhythmserver/logger"
	"github.com/wfunc/rhythmserver/models"
	"github.com/wfunc/rhythmserver/room"
)

const maxRoomNameLength = 64

// ErrInvalidRequest wraps every validation failure of CreateRoom.
var ErrInvalidRequest = errors.New("invalid room request")

// Counter is told about every room the lobby creates.
type Counter interface {
	IncRoomsCreated()
}

type Service struct {
	manager *room.Manager
	counter Counter
}

func NewService(manager *room.Manager, counter Counter) *Service {
	return &Service{manager: manager, counter: counter}
}

// ListRooms 返回所有房间的公开信息, 按ID排序
func (s *Service) ListRooms(ctx context.Context) ([]models.RoomInfo, error) {
	rooms := s.manager.Rooms()
	infos := make([]models.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := r.Info()
		if errors.Is(err, room.ErrRoomNotFound) {
			// destroyed while listing
			continue
		}
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// CreateRoom validates req and registers a pending room. The host has to
// connect before anybody else can join.
func (s *Service) CreateRoom(req *models.CreateRoomRequest) (*models.CreateRoomResponse, error) {
	settings, err := s.settings(req)
	if err != nil {
		return nil, err
	}
	r := s.manager.CreateRoom(settings)
	if s.counter != nil {
		s.counter.IncRoomsCreated()
	}
	logger.Log.Infow("room created", "room", r.ID, "name", settings.Name, "host", settings.Host.UID)
	return &models.CreateRoomResponse{ID: r.ID}, nil
}

func (s *Service) settings(req *models.CreateRoomRequest) (room.Settings, error) {
	if req == nil {
		return room.Settings{}, fmt.Errorf("%w: empty request", ErrInvalidRequest)
	}
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return room.Settings{}, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	case utf8.RuneCountInString(name) > maxRoomNameLength:
		return room.Settings{}, fmt.Errorf("%w: name is longer than %d characters", ErrInvalidRequest, maxRoomNameLength)
	case req.MaxPlayers < 1 || req.MaxPlayers > s.manager.MaxPlayersLimit():
		return room.Settings{}, fmt.Errorf("%w: maxPlayers must be between 1 and %d", ErrInvalidRequest, s.manager.MaxPlayersLimit())
	case req.Host == nil || req.Host.UID <= 0:
		return room.Settings{}, fmt.Errorf("%w: host is required", ErrInvalidRequest)
	}

	settings := room.Settings{
		Name:             name,
		MaxPlayers:       req.MaxPlayers,
		Password:         req.Password,
		Host:             *req.Host,
		Mods:             models.DefaultModSettings(),
		GameplaySettings: models.DefaultGameplaySettings(),
		TeamMode:         models.TeamModeHeadToHead,
		WinCondition:     models.WinConditionScoreV1,
	}
	if req.Beatmap != nil {
		if err := req.Beatmap.Validate(); err != nil {
			return room.Settings{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		beatmap := *req.Beatmap
		settings.Beatmap = &beatmap
	}
	if req.Mods != nil {
		if req.Mods.SpeedMultiplier <= 0 {
			return room.Settings{}, fmt.Errorf("%w: speedMultiplier must be positive", ErrInvalidRequest)
		}
		settings.Mods = *req.Mods
	}
	if req.GameplaySettings != nil {
		settings.GameplaySettings = *req.GameplaySettings
	}
	if req.TeamMode != nil {
		if !req.TeamMode.Valid() {
			return room.Settings{}, fmt.Errorf("%w: unknown team mode", ErrInvalidRequest)
		}
		settings.TeamMode = *req.TeamMode
	}
	if req.WinCondition != nil {
		if !req.WinCondition.Valid() {
			return room.Settings{}, fmt.Errorf("%w: unknown win condition", ErrInvalidRequest)
		}
		settings.WinCondition = *req.WinCondition
	}
	return settings, nil
}
