package state

import (
	"fmt"

	"github.com/wfunc/rhythmserver/logger"
	"github.com/wfunc/rhythmserver/models"
	"github.com/wfunc/rhythmserver/network"
)

const (
	StateIdle            = "idle"
	StateChangingBeatmap = "changing_beatmap"
	StatePlaying         = "playing"
)

// RoomState is a state that maps onto a wire room status.
type RoomState interface {
	State
	Status() models.RoomStatus
}

type statusState struct {
	RoomStateBase
	status models.RoomStatus
}

func newStatusState(id string, status models.RoomStatus, room RoomContext) *statusState {
	return &statusState{
		RoomStateBase: RoomStateBase{ID: id, Room: room},
		status:        status,
	}
}

func (s *statusState) Status() models.RoomStatus {
	return s.status
}

// OnEnter announces the new status to the room.
func (s *statusState) OnEnter() {
	data, err := network.Encode(models.RoomStatusChanged{Status: s.status})
	if err != nil {
		logger.Log.Errorf("encode room status: %v", err)
		return
	}
	if err := s.Room.Broadcast(network.MsgTypeRoomStatusChanged, data); err != nil {
		logger.Log.Debugf("room %d status broadcast: %v", s.Room.GetID(), err)
	}
}

// IdleState: players pick a beatmap and get ready.
type IdleState struct{ *statusState }

// ChangingBeatmapState: the host is choosing the next beatmap.
type ChangingBeatmapState struct{ *statusState }

// PlayingState: a match is running, entered only by the load barrier.
type PlayingState struct{ *statusState }

func NewIdleState(room RoomContext) *IdleState {
	return &IdleState{newStatusState(StateIdle, models.RoomStatusIdle, room)}
}

func NewChangingBeatmapState(room RoomContext) *ChangingBeatmapState {
	return &ChangingBeatmapState{newStatusState(StateChangingBeatmap, models.RoomStatusChangingBeatmap, room)}
}

func NewPlayingState(room RoomContext) *PlayingState {
	return &PlayingState{newStatusState(StatePlaying, models.RoomStatusPlaying, room)}
}

// RoomMachine wires the room status states and their allowed transitions.
type RoomMachine struct {
	*BaseStateMachine
	states map[models.RoomStatus]RoomState
}

// NewRoomMachine starts in idle. hasBeatmap guards every transition that
// needs a selected beatmap.
func NewRoomMachine(room RoomContext, hasBeatmap func() bool) *RoomMachine {
	idle := NewIdleState(room)
	changing := NewChangingBeatmapState(room)
	playing := NewPlayingState(room)

	m := &RoomMachine{
		BaseStateMachine: NewBaseStateMachine(idle),
		states: map[models.RoomStatus]RoomState{
			models.RoomStatusIdle:            idle,
			models.RoomStatusChangingBeatmap: changing,
			models.RoomStatusPlaying:         playing,
		},
	}
	_ = m.AddTransition(idle, changing, nil)
	_ = m.AddTransition(changing, idle, hasBeatmap)
	_ = m.AddTransition(idle, playing, hasBeatmap)
	_ = m.AddTransition(playing, idle, nil)
	return m
}

func (m *RoomMachine) Status() models.RoomStatus {
	return m.GetCurrentState().(RoomState).Status()
}

// Transition moves the room to status.
func (m *RoomMachine) Transition(status models.RoomStatus) error {
	next, ok := m.states[status]
	if !ok {
		return fmt.Errorf("unknown room status %d", status)
	}
	if err := m.ChangeState(next); err != nil {
		return fmt.Errorf("%s -> %s: %w", m.Status(), status, err)
	}
	return nil
}
