package room

import (
	"bytes"

	"github.com/wfunc/rhythmserver/logger"
	"github.com/wfunc/rhythmserver/network"
	"github.com/wfunc/rhythmserver/session"
)

type handlerFunc func(r *Room, p *RoomPlayer, data []byte) error

var handlers = map[uint16]handlerFunc{
	network.MsgTypeBeatmapChanged:         (*Room).onBeatmapChanged,
	network.MsgTypeHostChanged:            (*Room).onHostChanged,
	network.MsgTypePlayerKicked:           (*Room).onPlayerKicked,
	network.MsgTypePlayerModsChanged:      (*Room).onPlayerModsChanged,
	network.MsgTypeRoomModsChanged:        (*Room).onRoomModsChanged,
	network.MsgTypeSpeedMultiplierChanged: (*Room).onSpeedMultiplierChanged,
	network.MsgTypeFreeModsSettingChanged: (*Room).onFreeModsSettingChanged,
	network.MsgTypePlayerStatusChanged:    (*Room).onPlayerStatusChanged,
	network.MsgTypeTeamModeChanged:        (*Room).onTeamModeChanged,
	network.MsgTypeWinConditionChanged:    (*Room).onWinConditionChanged,
	network.MsgTypeTeamChanged:            (*Room).onTeamChanged,
	network.MsgTypeRoomNameChanged:        (*Room).onRoomNameChanged,
	network.MsgTypeMaxPlayersChanged:      (*Room).onMaxPlayersChanged,
	network.MsgTypeRoomPasswordChanged:    (*Room).onRoomPasswordChanged,
	network.MsgTypePlayBeatmap:            (*Room).onPlayBeatmap,
	network.MsgTypeChatMessage:            (*Room).onChatMessage,
	network.MsgTypeLiveScoreData:          (*Room).onLiveScoreData,
	network.MsgTypeBeatmapLoadComplete:    (*Room).onBeatmapLoadComplete,
	network.MsgTypeSkipRequested:          (*Room).onSkipRequested,
	network.MsgTypeScoreSubmission:        (*Room).onScoreSubmission,
}

// Handles reports whether msgID is a room message.
func Handles(msgID uint16) bool {
	_, ok := handlers[msgID]
	return ok
}

// Handle runs one inbound message from sess. It must be called on the room
// goroutine, see Enqueue. A failure is sent back to sess only and leaves the
// room untouched.
func (r *Room) Handle(sess *session.Session, msgID uint16, data []byte) error {
	err := r.handle(sess, msgID, data)
	if err != nil {
		logger.Log.Debugf("room %d: %s from %s rejected: %v", r.ID, network.MsgName(msgID), sess.ID, err)
		r.manager.deps.Observer.HandlerFailed(KindOf(err).String())
		SendError(sess, err)
	}
	return err
}

func (r *Room) handle(sess *session.Session, msgID uint16, data []byte) error {
	if r.destroyed {
		return ErrRoomNotFound
	}
	player, ok := r.players[sess.ID]
	if !ok {
		return ErrNotMember
	}
	handler, ok := handlers[msgID]
	if !ok {
		return ErrUnknownMessage
	}
	return handler(r, player, data)
}

func decode(data []byte, v any) error {
	if err := network.Decode(data, v); err != nil {
		return ErrInvalidPayload
	}
	return nil
}

func isEmptyPayload(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (r *Room) requireHost(p *RoomPlayer) error {
	if r.host != p {
		return ErrNotHost
	}
	return nil
}
