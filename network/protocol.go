package network

// An event uses the same id in both directions.
const (
	MsgTypeHeartbeat = 1
	MsgTypeError     = 2

	// roster and settings
	MsgTypeInitialConnection      = 100
	MsgTypePlayerJoined           = 101
	MsgTypePlayerLeft             = 102
	MsgTypePlayerKicked           = 103
	MsgTypeHostChanged            = 104
	MsgTypeBeatmapChanged         = 105
	MsgTypePlayerModsChanged      = 106
	MsgTypeRoomModsChanged        = 107
	MsgTypeSpeedMultiplierChanged = 108
	MsgTypeFreeModsSettingChanged = 109
	MsgTypePlayerStatusChanged    = 110
	MsgTypeTeamModeChanged        = 111
	MsgTypeWinConditionChanged    = 112
	MsgTypeTeamChanged            = 113
	MsgTypeRoomNameChanged        = 114
	MsgTypeMaxPlayersChanged      = 115
	MsgTypeRoomPasswordChanged    = 116
	MsgTypeRoomStatusChanged      = 117

	// match
	MsgTypePlayBeatmap                   = 200
	MsgTypeChatMessage                   = 201
	MsgTypeLiveScoreData                 = 202
	MsgTypeBeatmapLoadComplete           = 203
	MsgTypeSkipRequested                 = 204
	MsgTypeScoreSubmission               = 205
	MsgTypeAllPlayersBeatmapLoadComplete = 206
	MsgTypeAllPlayersSkipRequested       = 207
	MsgTypeAllPlayersScoreSubmitted      = 208
)

var msgNames = map[uint16]string{
	MsgTypeHeartbeat:                     "heartbeat",
	MsgTypeError:                         "error",
	MsgTypeInitialConnection:             "initialConnection",
	MsgTypePlayerJoined:                  "playerJoined",
	MsgTypePlayerLeft:                    "playerLeft",
	MsgTypePlayerKicked:                  "playerKicked",
	MsgTypeHostChanged:                   "hostChanged",
	MsgTypeBeatmapChanged:                "beatmapChanged",
	MsgTypePlayerModsChanged:             "playerModsChanged",
	MsgTypeRoomModsChanged:               "roomModsChanged",
	MsgTypeSpeedMultiplierChanged:        "speedMultiplierChanged",
	MsgTypeFreeModsSettingChanged:        "freeModsSettingChanged",
	MsgTypePlayerStatusChanged:           "playerStatusChanged",
	MsgTypeTeamModeChanged:               "teamModeChanged",
	MsgTypeWinConditionChanged:           "winConditionChanged",
	MsgTypeTeamChanged:                   "teamChanged",
	MsgTypeRoomNameChanged:               "roomNameChanged",
	MsgTypeMaxPlayersChanged:             "maxPlayersChanged",
	MsgTypeRoomPasswordChanged:           "roomPasswordChanged",
	MsgTypeRoomStatusChanged:             "roomStatusChanged",
	MsgTypePlayBeatmap:                   "playBeatmap",
	MsgTypeChatMessage:                   "chatMessage",
	MsgTypeLiveScoreData:                 "liveScoreData",
	MsgTypeBeatmapLoadComplete:           "beatmapLoadComplete",
	MsgTypeSkipRequested:                 "skipRequested",
	MsgTypeScoreSubmission:               "scoreSubmission",
	MsgTypeAllPlayersBeatmapLoadComplete: "allPlayersBeatmapLoadComplete",
	MsgTypeAllPlayersSkipRequested:       "allPlayersSkipRequested",
	MsgTypeAllPlayersScoreSubmitted:      "allPlayersScoreSubmitted",
}

// MsgName returns the event name for logs and traces.
func MsgName(msgID uint16) string {
	if name, ok := msgNames[msgID]; ok {
		return name
	}
	return "unknown"
}
