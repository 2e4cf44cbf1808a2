package models

// Payloads carried by room messages. Where an event travels in both
// directions the same struct is used; fields the server stamps (uid) are
// ignored on the way in.

type ErrorMessage struct {
	Message string `json:"message"`
}

type PlayerRef struct {
	UID int64 `json:"uid"`
}

type HostChanged struct {
	UID      int64  `json:"uid"`
	Username string `json:"username,omitempty"`
}

type PlayerModsChanged struct {
	UID  int64  `json:"uid,omitempty"`
	Mods string `json:"mods"`
}

type RoomModsChanged struct {
	Mods string `json:"mods"`
}

type SpeedMultiplierChanged struct {
	SpeedMultiplier float64 `json:"speedMultiplier"`
}

type FreeModsSettingChanged struct {
	IsFreeMod bool `json:"isFreeMod"`
}

type PlayerStatusChanged struct {
	UID    int64        `json:"uid,omitempty"`
	Status PlayerStatus `json:"status"`
}

type TeamModeChanged struct {
	TeamMode TeamMode `json:"teamMode"`
}

type WinConditionChanged struct {
	WinCondition WinCondition `json:"winCondition"`
}

type TeamChanged struct {
	UID  int64 `json:"uid,omitempty"`
	Team Team  `json:"team"`
}

type RoomNameChanged struct {
	Name string `json:"name"`
}

type MaxPlayersChanged struct {
	MaxPlayers int `json:"maxPlayers"`
}

type RoomPasswordChanged struct {
	Password string `json:"password,omitempty"`
}

// RoomLockChanged is broadcast instead of the password itself.
type RoomLockChanged struct {
	IsLocked bool `json:"isLocked"`
}

type RoomStatusChanged struct {
	Status RoomStatus `json:"status"`
}

type ChatMessage struct {
	UID      int64  `json:"uid,omitempty"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message"`
}

// CreateRoomRequest is accepted by the lobby.
type CreateRoomRequest struct {
	Name             string            `json:"name"`
	MaxPlayers       int               `json:"maxPlayers"`
	Host             *HostInfo         `json:"host"`
	Beatmap          *Beatmap          `json:"beatmap,omitempty"`
	Mods             *ModSettings      `json:"mods,omitempty"`
	Password         string            `json:"password,omitempty"`
	GameplaySettings *GameplaySettings `json:"gameplaySettings,omitempty"`
	TeamMode         *TeamMode         `json:"teamMode,omitempty"`
	WinCondition     *WinCondition     `json:"winCondition,omitempty"`
}

type CreateRoomResponse struct {
	ID int64 `json:"id"`
}
