package room

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/wfunc/rhythmserver/logger"
	"github.com/wfunc/rhythmserver/models"
	"github.com/wfunc/rhythmserver/network"
)

const (
	maxRoomNameLength = 64
	maxChatLength     = 500
)

func (r *Room) onBeatmapChanged(p *RoomPlayer, data []byte) error {
	if err := r.requireHost(p); err != nil {
		return err
	}
	if r.machine.Status() == models.RoomStatusPlaying {
		return ErrMatchInProgress
	}

	var beatmap *models.Beatmap
	if !isEmptyPayload(data) {
		if err := decode(data, &beatmap); err != nil {
			return err
		}
	}

	// no checksum: the host is still picking
	if beatmap == nil || beatmap.MD5 == "" {
		if err := r.machine.Transition(models.RoomStatusChangingBeatmap); err != nil {
			return err
		}
		r.beatmap = nil
		r.broadcast(network.MsgTypeBeatmapChanged, nil)
		return nil
	}

	if err := beatmap.Validate(); err != nil {
		return ErrInvalidBeatmap
	}
	if beatmap.BeatmapSetID == "" {
		beatmap.BeatmapSetID = r.lookupSetID(beatmap.MD5)
	}

	r.beatmap = beatmap
	r.reset()
	r.broadcast(network.MsgTypeBeatmapChanged, beatmap)
	if err := r.machine.Transition(models.RoomStatusIdle); err != nil {
		logger.Log.Errorf("room %d: %v", r.ID, err)
	}
	return nil
}

// lookupSetID asks the beatmap lookup for the set id. Failures only mean the
// beatmap goes out without one.
func (r *Room) lookupSetID(md5 string) string {
	deps := r.manager.deps
	if deps.Beatmaps == nil {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), deps.LookupTimeout)
	defer cancel()

	setID, err := deps.Beatmaps.FetchSetID(ctx, md5)
	if err != nil {
		logger.Log.Warnf("room %d: beatmap set lookup for %s: %v", r.ID, md5, err)
		return ""
	}
	return setID
}

func (r *Room) onHostChanged(p *RoomPlayer, data []byte) error {
	if r.host != p {
		return newError(KindAuthorization, "Only room host is allowed to transfer host.")
	}
	var msg models.HostChanged
	if err := decode(data, &msg); err != nil {
		return err
	}
	target := r.findPlayer(msg.UID)
	if target == nil {
		return ErrHostTarget
	}
	if target == p {
		return nil
	}
	r.setHost(target)
	logger.Log.Infof("room %d: host transferred to %d", r.ID, target.ID)
	return nil
}

func (r *Room) onPlayerKicked(p *RoomPlayer, data []byte) error {
	if r.host != p {
		return newError(KindAuthorization, "Only room host is allowed to kick players.")
	}
	var msg models.PlayerRef
	if err := decode(data, &msg); err != nil {
		return err
	}
	target := r.findPlayer(msg.UID)
	if target == nil {
		return ErrKickTarget
	}
	if target == p {
		return ErrKickSelf
	}

	r.broadcast(network.MsgTypePlayerKicked, models.PlayerRef{UID: target.ID})
	r.removePlayer(target.Session.ID)
	if err := target.Session.Close(); err != nil {
		logger.Log.Debugf("room %d: close kicked session: %v", r.ID, err)
	}
	logger.Log.Infof("room %d: player %d kicked by %d", r.ID, target.ID, p.ID)

	r.checkBarriers()
	return nil
}

func (r *Room) onRoomModsChanged(p *RoomPlayer, data []byte) error {
	if r.host != p {
		return newError(KindAuthorization, "Only host is allowed to change room mods.")
	}
	var msg models.RoomModsChanged
	if err := decode(data, &msg); err != nil {
		return err
	}
	r.mods.Mods = msg.Mods
	r.broadcast(network.MsgTypeRoomModsChanged, msg)
	return nil
}

func (r *Room) onSpeedMultiplierChanged(p *RoomPlayer, data []byte) error {
	if err := r.requireHost(p); err != nil {
		return err
	}
	var msg models.SpeedMultiplierChanged
	if err := decode(data, &msg); err != nil {
		return err
	}
	if msg.SpeedMultiplier <= 0 {
		return ErrInvalidSpeed
	}
	r.mods.SpeedMultiplier = msg.SpeedMultiplier
	r.broadcast(network.MsgTypeSpeedMultiplierChanged, msg)
	return nil
}

func (r *Room) onFreeModsSettingChanged(p *RoomPlayer, data []byte) error {
	if err := r.requireHost(p); err != nil {
		return err
	}
	var msg models.FreeModsSettingChanged
	if err := decode(data, &msg); err != nil {
		return err
	}
	r.gameplay.IsFreeMod = msg.IsFreeMod
	r.broadcast(network.MsgTypeFreeModsSettingChanged, msg)
	return nil
}

func (r *Room) onTeamModeChanged(p *RoomPlayer, data []byte) error {
	if err := r.requireHost(p); err != nil {
		return err
	}
	var msg models.TeamModeChanged
	if err := decode(data, &msg); err != nil {
		return err
	}
	if !msg.TeamMode.Valid() {
		return ErrInvalidTeamMode
	}
	if msg.TeamMode == models.TeamModeHeadToHead {
		for _, player := range r.players {
			player.Team = models.TeamNone
		}
	}
	r.teamMode = msg.TeamMode
	r.broadcast(network.MsgTypeTeamModeChanged, msg)
	return nil
}

func (r *Room) onWinConditionChanged(p *RoomPlayer, data []byte) error {
	if err := r.requireHost(p); err != nil {
		return err
	}
	var msg models.WinConditionChanged
	if err := decode(data, &msg); err != nil {
		return err
	}
	if !msg.WinCondition.Valid() {
		return ErrInvalidWinCondition
	}
	r.winCondition = msg.WinCondition
	r.broadcast(network.MsgTypeWinConditionChanged, msg)
	return nil
}

func (r *Room) onRoomNameChanged(p *RoomPlayer, data []byte) error {
	if err := r.requireHost(p); err != nil {
		return err
	}
	var msg models.RoomNameChanged
	if err := decode(data, &msg); err != nil {
		return err
	}
	msg.Name = strings.TrimSpace(msg.Name)
	if msg.Name == "" || utf8.RuneCountInString(msg.Name) > maxRoomNameLength {
		return ErrInvalidName
	}
	r.name = msg.Name
	r.broadcast(network.MsgTypeRoomNameChanged, msg)
	return nil
}

func (r *Room) onMaxPlayersChanged(p *RoomPlayer, data []byte) error {
	if err := r.requireHost(p); err != nil {
		return err
	}
	var msg models.MaxPlayersChanged
	if err := decode(data, &msg); err != nil {
		return err
	}
	if msg.MaxPlayers < 1 || msg.MaxPlayers > r.manager.deps.MaxPlayersLimit || msg.MaxPlayers < len(r.players) {
		return ErrInvalidMaxPlayers
	}
	r.maxPlayers = msg.MaxPlayers
	r.broadcast(network.MsgTypeMaxPlayersChanged, msg)
	return nil
}

// onRoomPasswordChanged never sends the password back out, only whether the
// room is now locked.
func (r *Room) onRoomPasswordChanged(p *RoomPlayer, data []byte) error {
	if err := r.requireHost(p); err != nil {
		return err
	}
	var msg models.RoomPasswordChanged
	if !isEmptyPayload(data) {
		if err := decode(data, &msg); err != nil {
			return err
		}
	}
	r.password = msg.Password
	r.broadcast(network.MsgTypeRoomPasswordChanged, models.RoomLockChanged{IsLocked: r.password != ""})
	return nil
}

func (r *Room) onPlayerStatusChanged(p *RoomPlayer, data []byte) error {
	var msg models.PlayerStatusChanged
	if err := decode(data, &msg); err != nil {
		return err
	}
	if !msg.Status.Valid() {
		return ErrInvalidStatus
	}
	p.Status = msg.Status
	r.broadcast(network.MsgTypePlayerStatusChanged, models.PlayerStatusChanged{UID: p.ID, Status: p.Status})
	return nil
}

func (r *Room) onPlayerModsChanged(p *RoomPlayer, data []byte) error {
	var msg models.PlayerModsChanged
	if err := decode(data, &msg); err != nil {
		return err
	}
	p.Mods.Mods = msg.Mods
	r.broadcast(network.MsgTypePlayerModsChanged, models.PlayerModsChanged{UID: p.ID, Mods: p.Mods.Mods})
	return nil
}

func (r *Room) onTeamChanged(p *RoomPlayer, data []byte) error {
	if r.teamMode != models.TeamModeTeamVsTeam {
		return ErrNotTeamMode
	}
	var msg models.TeamChanged
	if err := decode(data, &msg); err != nil {
		return err
	}
	if !msg.Team.Valid() {
		return ErrInvalidTeam
	}
	p.Team = msg.Team
	r.broadcast(network.MsgTypeTeamChanged, models.TeamChanged{UID: p.ID, Team: p.Team})
	return nil
}

func (r *Room) onChatMessage(p *RoomPlayer, data []byte) error {
	var msg models.ChatMessage
	if err := decode(data, &msg); err != nil {
		return err
	}
	text := strings.TrimSpace(msg.Message)
	if text == "" || utf8.RuneCountInString(text) > maxChatLength {
		return ErrInvalidChat
	}
	if !p.Session.Allow() {
		return ErrChatRateLimited
	}
	r.broadcast(network.MsgTypeChatMessage, models.ChatMessage{UID: p.ID, Username: p.Username, Message: text})
	return nil
}
